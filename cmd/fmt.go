package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type fmtCmd struct{}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the ledger files into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `ctax fmt

  Reads the transaction log and the wallet registry, validates them, sorts
  the transactions by timestamp, and writes them back in a canonical JSONL
  format.
`
}

func (p *fmtCmd) SetFlags(f *flag.FlagSet) {}

func (p *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store := openStore()

	log, err := store.LoadTransactions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load transactions: %v\n", err)
		return subcommands.ExitFailure
	}
	registry, err := store.LoadWallets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load wallets: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := store.SaveTransactions(log); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving transactions: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := store.SaveWallets(registry); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving wallets: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(os.Stderr, "Formatted %d transactions and %d wallets.\n", log.Len(), registry.Len())
	return subcommands.ExitSuccess
}
