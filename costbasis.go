package cryptotax

import (
	"encoding/json"
	"fmt"
)

// GlobalCostBasis is the acquisition cost of the whole portfolio immediately
// before one transaction.
//
// PFCostBasis is the weighted cost basis: it grows with acquisitions and
// fees, and shrinks on each disposal by the share of the portfolio sold.
// PFTotalCost is the cumulative capital ever injected; it only grows. Both
// follow the "prix total d'acquisition" rules of French form 2086.
type GlobalCostBasis struct {
	TxID        string
	PFCostBasis Money
	PFTotalCost Money
}

// MarshalJSON implements the json.Marshaler interface for GlobalCostBasis.
func (g GlobalCostBasis) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("tx", g.TxID)
	w.Append("cost_basis", g.PFCostBasis)
	w.Append("total_cost", g.PFTotalCost)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for GlobalCostBasis.
func (g *GlobalCostBasis) UnmarshalJSON(data []byte) error {
	var temp struct {
		Tx        string `json:"tx"`
		CostBasis Money  `json:"cost_basis"`
		TotalCost Money  `json:"total_cost"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	g.TxID = temp.Tx
	g.PFCostBasis = temp.CostBasis
	g.PFTotalCost = temp.TotalCost
	return nil
}

// CostBasisEngine replays the transaction log and maintains the portfolio's
// global acquisition cost, emitting one GlobalCostBasis record per
// transaction with the values immediately before it.
//
// The replay depends on the valuation history for disposals only: the
// weighted reduction needs the portfolio total value at the disposal
// instant. Everything else is pure arithmetic over the log.
type CostBasisEngine struct {
	history   map[string]*GlobalCostBasis
	costBasis Money
	totalCost Money
}

// NewCostBasisEngine creates an engine with a zero acquisition cost.
func NewCostBasisEngine() *CostBasisEngine {
	return &CostBasisEngine{
		history:   make(map[string]*GlobalCostBasis),
		costBasis: EUR(0),
		totalCost: EUR(0),
	}
}

// History returns the cost-basis records keyed by transaction id.
func (e *CostBasisEngine) History() map[string]*GlobalCostBasis { return e.history }

// CostBasis returns the record computed for this transaction id.
func (e *CostBasisEngine) CostBasis(txID string) (*GlobalCostBasis, bool) {
	g, ok := e.history[txID]
	return g, ok
}

// Current returns the running cost basis and total cost after the last
// processed transaction.
func (e *CostBasisEngine) Current() (costBasis, totalCost Money) {
	return e.costBasis, e.totalCost
}

// Replay processes the transactions, which must be sorted by ascending
// timestamp. portfolios is the valuation history; it must contain a priced
// record for every taxable transaction.
func (e *CostBasisEngine) Replay(txs []Transaction, portfolios map[string]*Portfolio) error {
	for _, tx := range txs {
		if err := e.process(tx, portfolios[tx.ID()]); err != nil {
			return fmt.Errorf("transaction %s: %w", tx.ID(), err)
		}
	}
	return nil
}

func (e *CostBasisEngine) process(tx Transaction, pf *Portfolio) error {
	// Record first: the history always carries pre-transaction values.
	e.history[tx.ID()] = &GlobalCostBasis{
		TxID:        tx.ID(),
		PFCostBasis: e.costBasis,
		PFTotalCost: e.totalCost,
	}

	switch v := tx.(type) {
	case Trade:
		feeEUR, err := legFeeEUR(v.ID(), v.From, v.To)
		if err != nil {
			return err
		}
		switch v.TradeType {
		case FiatToCrypto:
			injected := v.LocalCostBasis.Add(feeEUR)
			e.costBasis = e.costBasis.Add(injected)
			e.totalCost = e.totalCost.Add(injected)
		case CryptoToFiat:
			if pf == nil || !pf.IsPFTotalCalculated {
				return fmt.Errorf("no portfolio valuation for disposal")
			}
			sellValue := v.From.PriceEUR.Mul(v.SoldAmount)
			// The disposal consumes the share of the basis it represents,
			// computed on the pre-transaction basis.
			consumed := e.costBasis.Scale(sellValue, pf.PFTotalValue)
			e.costBasis = e.costBasis.Add(feeEUR).Sub(consumed)
			e.totalCost = e.totalCost.Add(feeEUR)
		case CryptoToCrypto:
			// Swaps are tax-neutral; only their fee is new acquisition cost.
			e.costBasis = e.costBasis.Add(feeEUR)
			e.totalCost = e.totalCost.Add(feeEUR)
		}
	case Transfer:
		feeEUR, err := legFeeEUR(v.ID(), v.From, v.To)
		if err != nil {
			return err
		}
		e.costBasis = e.costBasis.Add(feeEUR)
		e.totalCost = e.totalCost.Add(feeEUR)
	}
	// Fiat deposits and withdrawals leave the acquisition cost untouched.
	return nil
}

// legFeeEUR returns the EUR value of the fee charged on a two-legged
// transaction. Source records carry a nonzero fee on one leg at most; both
// legs fee-bearing means the upstream mapping is broken. An explicit zero
// fee counts as no fee.
func legFeeEUR(txID string, from, to WalletSnapshot) (Money, error) {
	fromFee := !from.FeeOrZero().IsZero()
	toFee := !to.FeeOrZero().IsZero()
	if fromFee && toFee {
		return Money{}, &DoubleFeeError{TxID: txID}
	}
	if fromFee {
		return from.FeeEUR(), nil
	}
	if toFee {
		return to.FeeEUR(), nil
	}
	return EUR(0), nil
}
