package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/cryptotax"
	"github.com/google/subcommands"
)

// gainsCmd holds the flags for the 'gains' subcommand.
type gainsCmd struct {
	year    int
	offline bool
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "compute the taxable capital gains of the ledger" }
func (*gainsCmd) Usage() string {
	return `ctax gains [-year <year>] [-offline]

  Replays the transaction log, values the portfolio before each taxable
  disposal, and reports the capital gain of each one as declared on form
  2086. Prices already resolved in a previous run are reused; the rest are
  fetched from Kraken unless -offline is set.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", 0, "Report only the disposals of this calendar year. 0 reports all.")
	f.BoolVar(&c.offline, "offline", false, "Never call the price API; fail on prices missing from the cached history.")
}

func (c *gainsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	// The portfolio history is a real cache: it holds prices already fetched.
	// The cost-basis series is pure arithmetic over the log, recomputed every
	// run and saved only for inspection.
	portfolios, err := store.LoadPortfolios()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio history: %v\n", err)
		return subcommands.ExitFailure
	}

	var oracle cryptotax.PriceOracle = cryptotax.NewKrakenOracle()
	if c.offline {
		oracle = cryptotax.OracleFunc(func(_ context.Context, at time.Time, currency string) (cryptotax.Money, error) {
			return cryptotax.Money{}, &cryptotax.PriceNotFoundError{Currency: currency, At: at}
		})
	}

	valuation := cryptotax.NewValuationEngine(oracle, registry, portfolios)
	if err := valuation.Replay(ctx, log.Slice()); err != nil {
		// Keep what was computed before the failure so the next run resumes
		// from the cache.
		if saveErr := store.SavePortfolios(valuation.History(), log); saveErr != nil {
			fmt.Fprintf(os.Stderr, "Error saving partial portfolio history: %v\n", saveErr)
		}
		fmt.Fprintf(os.Stderr, "Error valuing portfolio: %v\n", err)
		return subcommands.ExitFailure
	}

	costs := cryptotax.NewCostBasisEngine()
	if err := costs.Replay(log.Slice(), valuation.History()); err != nil {
		fmt.Fprintf(os.Stderr, "Error computing cost basis: %v\n", err)
		return subcommands.ExitFailure
	}

	gains, err := cryptotax.TaxGains(log, registry, valuation.History(), costs.History())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing gains: %v\n", err)
		return subcommands.ExitFailure
	}

	if err := store.SavePortfolios(valuation.History(), log); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving portfolio history: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := store.SaveCostBases(costs.History(), log); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving cost basis history: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(cryptotax.GainsMarkdown(gains, c.year))
	return subcommands.ExitSuccess
}
