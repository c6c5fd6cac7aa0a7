package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cryptotax"
	"github.com/google/subcommands"
)

type checkCmd struct{}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "check the ledger for consistency issues" }
func (*checkCmd) Usage() string {
	return `ctax check

  Replays the crypto balances of the transaction log, without touching the
  price API, and reports acquisitions missing from the log, negative
  balances, and balance mismatches. Findings are advisory; they flag source
  data to fix upstream.
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {}

func (c *checkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store := openStore()

	log, err := store.LoadTransactions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading transactions: %v\n", err)
		return subcommands.ExitFailure
	}
	registry, err := store.LoadWallets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading wallets: %v\n", err)
		return subcommands.ExitFailure
	}

	findings := cryptotax.CheckTransactions(log, registry)
	printMarkdown(cryptotax.FindingsMarkdown(findings))
	if len(findings) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
