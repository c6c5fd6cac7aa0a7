package cryptotax

import (
	"context"
	"time"
)

// PriceOracle resolves the EUR price of one unit of a currency at a given
// instant. Implementations must be deterministic for a given (instant,
// currency) pair so that replays are idempotent, and must return a
// *PriceNotFoundError when no price exists. Retries and timeouts belong to
// the implementation's transport, not to the callers.
type PriceOracle interface {
	Price(ctx context.Context, at time.Time, currency string) (Money, error)
}

// OracleFunc adapts a function to the PriceOracle interface.
type OracleFunc func(ctx context.Context, at time.Time, currency string) (Money, error)

// Price implements PriceOracle.
func (f OracleFunc) Price(ctx context.Context, at time.Time, currency string) (Money, error) {
	return f(ctx, at, currency)
}
