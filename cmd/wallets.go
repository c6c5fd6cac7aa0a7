package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/cryptotax"
	"github.com/google/subcommands"
)

type walletsCmd struct {
	kind string
}

func (*walletsCmd) Name() string     { return "wallets" }
func (*walletsCmd) Synopsis() string { return "list the wallets of the ledger" }
func (*walletsCmd) Usage() string {
	return `ctax wallets [-kind fiat|crypto]

  Lists the registered wallets with their currency, platform and balance.
`
}

func (c *walletsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "", "Only list wallets of this kind (fiat, crypto). Empty lists all.")
}

func (c *walletsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store := openStore()

	registry, err := store.LoadWallets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading wallets: %v\n", err)
		return subcommands.ExitFailure
	}

	var only *cryptotax.WalletKind
	if c.kind != "" {
		kind, err := cryptotax.ParseWalletKind(c.kind)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		only = &kind
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Wallets\n\n")
	fmt.Fprintln(&b, "| Currency | Kind | Platform | Address | Owner | Balance |")
	fmt.Fprintln(&b, "|:---|:---|:---|:---|:---|---:|")
	n := 0
	for w := range registry.Wallets() {
		if only != nil && w.Kind != *only {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			w.Currency, w.Kind, w.Platform, w.Address, w.Owner, w.Balance)
		n++
	}
	if n == 0 {
		b.Reset()
		fmt.Fprint(&b, "# Wallets\n\nNo wallet registered.\n")
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
