// Package cmd implements the CLI application to compute French crypto
// capital gains from a transaction ledger.
package cmd

import (
	"flag"

	"github.com/etnz/cryptotax"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&gainsCmd{}, "reports")
	c.Register(&walletsCmd{}, "reports")

	c.Register(&fmtCmd{}, "ledger")
	c.Register(&checkCmd{}, "ledger")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var storePath = flag.String("store", ".", "Path to the ledger folder (JSONL files)")

// openStore returns the store of the current invocation.
func openStore() *cryptotax.Store {
	return cryptotax.NewStore(*storePath)
}
