package cryptotax

import (
	"fmt"
	"time"
)

// PriceNotFoundError reports that the oracle has no price for a currency at a
// given time. It aborts the valuation of the transaction being processed.
type PriceNotFoundError struct {
	Currency string
	At       time.Time
}

func (e *PriceNotFoundError) Error() string {
	return fmt.Sprintf("no price found for %s at %s", e.Currency, e.At.UTC().Format(time.RFC3339))
}

// BalanceMismatchError reports a divergence between the balance tracked by
// the valuation replay and the balance embedded in the transaction data.
// It is advisory: the replay logs it and keeps the tracked value.
type BalanceMismatchError struct {
	WalletID string
	Expected Quantity // balance tracked by the replay
	Actual   Quantity // balance embedded in the transaction
}

func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("wallet %s: tracked balance %s does not match transaction balance %s",
		e.WalletID, e.Expected, e.Actual)
}

// DoubleFeeError reports a trade or transfer carrying a nonzero fee on both
// legs. The weighted-cost model cannot attribute such a fee and the
// transaction must be rejected.
type DoubleFeeError struct {
	TxID string
}

func (e *DoubleFeeError) Error() string {
	return fmt.Sprintf("transaction %s declares a fee on both legs", e.TxID)
}

// MissingPreviousStateError reports that a wallet required for a computation
// was never seen by the replay. Upstream wallet creation makes this
// unreachable; hitting it means the invariants are broken.
type MissingPreviousStateError struct {
	WalletID string
	TxID     string
}

func (e *MissingPreviousStateError) Error() string {
	return fmt.Sprintf("wallet %s absent from previous state when processing transaction %s", e.WalletID, e.TxID)
}

// NotTaxableError reports a gain computation requested for a transaction
// whose portfolio record is not taxable.
type NotTaxableError struct {
	TxID string
}

func (e *NotTaxableError) Error() string {
	return fmt.Sprintf("transaction %s is not a taxable disposal", e.TxID)
}
