package cryptotax

import (
	"fmt"
	"time"
)

// TaxGain is the taxable capital gain of one crypto-to-fiat disposal,
// decomposed the way French form 2086 wants it reported.
type TaxGain struct {
	TxID              string
	At                time.Time
	Currency          string // currency disposed of
	SellValueEUR      Money  // gross EUR proceeds of the disposal
	FeeEUR            Money  // disposal fee, deducted from the proceeds
	PFTotalValueEUR   Money  // portfolio value immediately before the disposal
	PFCostBasisEUR    Money  // global cost basis immediately before the disposal
	WeightedBasisEUR  Money  // share of the cost basis consumed by the disposal
	GainEUR           Money
}

// CalculateTaxGain computes the capital gain of one taxable disposal from
// its trade and the derived records of the two replays:
//
//	gain = (sell_value - fee) - cost_basis * sell_value / pf_total_value
//
// Non-taxable transactions are rejected with a *NotTaxableError rather than
// reported as a zero gain, so a miswired caller fails loudly.
func CalculateTaxGain(tx Transaction, registry *WalletRegistry, pf *Portfolio, cb *GlobalCostBasis) (*TaxGain, error) {
	if !tx.Taxable() {
		return nil, &NotTaxableError{TxID: tx.ID()}
	}
	trade, ok := tx.(Trade)
	if !ok {
		return nil, &NotTaxableError{TxID: tx.ID()}
	}
	if pf == nil || !pf.IsPFTotalCalculated {
		return nil, fmt.Errorf("disposal %s: no portfolio valuation", tx.ID())
	}
	if cb == nil {
		return nil, fmt.Errorf("disposal %s: no cost basis record", tx.ID())
	}

	currency := ""
	if w, ok := registry.Get(trade.From.Wallet); ok {
		currency = w.Currency
	}

	sellValue := trade.From.PriceEUR.Mul(trade.SoldAmount)
	feeEUR, err := legFeeEUR(trade.ID(), trade.From, trade.To)
	if err != nil {
		return nil, err
	}
	weighted := cb.PFCostBasis.Scale(sellValue, pf.PFTotalValue)

	return &TaxGain{
		TxID:             trade.ID(),
		At:               trade.When(),
		Currency:         currency,
		SellValueEUR:     sellValue,
		FeeEUR:           feeEUR,
		PFTotalValueEUR:  pf.PFTotalValue,
		PFCostBasisEUR:   cb.PFCostBasis,
		WeightedBasisEUR: weighted,
		GainEUR:          sellValue.Sub(feeEUR).Sub(weighted),
	}, nil
}

// TaxGains computes the gain of every taxable disposal of the log, in log
// order. The valuation and cost-basis histories must cover every disposal.
func TaxGains(log *TransactionLog, registry *WalletRegistry, portfolios map[string]*Portfolio, bases map[string]*GlobalCostBasis) ([]*TaxGain, error) {
	var gains []*TaxGain
	for tx := range log.Transactions() {
		if !tx.Taxable() {
			continue
		}
		gain, err := CalculateTaxGain(tx, registry, portfolios[tx.ID()], bases[tx.ID()])
		if err != nil {
			return nil, err
		}
		gains = append(gains, gain)
	}
	return gains, nil
}

// TotalGain sums the gains, netting losses against gains.
func TotalGain(gains []*TaxGain) Money {
	total := EUR(0)
	for _, g := range gains {
		total = total.Add(g.GainEUR)
	}
	return total
}
