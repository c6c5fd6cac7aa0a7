// Package cryptotax reconstructs the EUR valuation history of a crypto
// portfolio and the running acquisition cost basis needed to compute
// French capital gains under the weighted-average-cost method.
//
// The core functionalities include:
//   - Transaction Log: an ordered, deduplicated record of trades, transfers,
//     deposits and withdrawals, keyed by transaction id.
//   - Wallet Registry: the set of known fiat and crypto wallets, indexed by a
//     composite (currency, platform, address) key.
//   - Portfolio Valuation: a sequential replay of the transaction log that
//     tracks per-wallet balances and prices every held crypto wallet
//     immediately before each taxable disposal.
//   - Cost Basis: a second replay that maintains the portfolio-wide
//     acquisition cost (net and gross) and removes, on each disposal, the
//     same fraction of cost as the fraction of portfolio value disposed.
//   - Data Persistence: encoding and decoding of the log and of both derived
//     series to human-readable JSONL, so reruns reuse already-fetched prices.
//
// This package serves as the foundational logic for the `ctax` command-line
// tool. Prices are resolved through a PriceOracle; a Kraken-backed oracle is
// provided.
package cryptotax
