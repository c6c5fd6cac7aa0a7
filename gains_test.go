package cryptotax

import (
	"errors"
	"testing"
	"time"
)

func TestTaxGainsOverScenario(t *testing.T) {
	valuation, costs, txs, _, registry := replayScenario(t)

	log := NewTransactionLog()
	log.Extend(txs)

	gains, err := TaxGains(log, registry, valuation.History(), costs.History())
	if err != nil {
		t.Fatal(err)
	}
	if len(gains) != 2 {
		t.Fatalf("gains = %d, want 2", len(gains))
	}

	// First disposal: 450 proceeds, basis share 1000*450/1200 = 375.
	mustEqualMoney(t, gains[0].GainEUR, EUR(75), "first gain")
	mustEqualMoney(t, gains[0].WeightedBasisEUR, EUR(375), "first consumed basis")
	if gains[0].Currency != "BTC" {
		t.Errorf("first gain currency = %q, want BTC", gains[0].Currency)
	}

	// Full disposal: 1350 proceeds, consumes the remaining 625.
	mustEqualMoney(t, gains[1].GainEUR, EUR(725), "second gain")
	mustEqualMoney(t, gains[1].WeightedBasisEUR, EUR(625), "second consumed basis")

	mustEqualMoney(t, TotalGain(gains), EUR(800), "total gain")
}

func TestCalculateTaxGainFormula(t *testing.T) {
	clock := testClock()
	registry, ids := newTestRegistry(t, "BTC")

	tx := sell("s1", clock(), ids["BTC"], ids["EUR"], 40, 0, 5, 4000, 800)
	pf := NewPortfolio("s1", true)
	pf.PFTotalValue = EUR(32000)
	pf.IsPFTotalCalculated = true
	cb := &GlobalCostBasis{TxID: "s1", PFCostBasis: EUR(18000), PFTotalCost: EUR(18000)}

	gain, err := CalculateTaxGain(tx, registry, pf, cb)
	if err != nil {
		t.Fatal(err)
	}
	mustEqualMoney(t, gain.SellValueEUR, EUR(4000), "sell value")
	// 18000 * 4000/32000 = 2250.
	mustEqualMoney(t, gain.WeightedBasisEUR, EUR(2250), "consumed basis")
	mustEqualMoney(t, gain.GainEUR, EUR(1750), "gain")
}

func TestCalculateTaxGainDeductsDisposalFee(t *testing.T) {
	clock := testClock()
	registry, ids := newTestRegistry(t, "BTC")

	tx := NewTrade("s1", clock(),
		leg(ids["BTC"], 3, 400),
		legFee(ids["EUR"], 0, 1, 5),
		Q(1.125), Q(445), CryptoToFiat)
	pf := NewPortfolio("s1", true)
	pf.PFTotalValue = EUR(1200)
	pf.IsPFTotalCalculated = true
	cb := &GlobalCostBasis{TxID: "s1", PFCostBasis: EUR(1000), PFTotalCost: EUR(1000)}

	gain, err := CalculateTaxGain(tx, registry, pf, cb)
	if err != nil {
		t.Fatal(err)
	}
	mustEqualMoney(t, gain.FeeEUR, EUR(5), "disposal fee")
	// (450 - 5) - 375.
	mustEqualMoney(t, gain.GainEUR, EUR(70), "gain net of fee")
}

func TestCalculateTaxGainRejectsNonTaxable(t *testing.T) {
	clock := testClock()
	registry, ids := newTestRegistry(t, "BTC")

	tx := buy("t1", clock(), ids["EUR"], ids["BTC"], 1000, 0, 1000, 3, 333)
	_, err := CalculateTaxGain(tx, registry, nil, nil)
	var notTaxable *NotTaxableError
	if !errors.As(err, &notTaxable) {
		t.Fatalf("CalculateTaxGain error = %v, want NotTaxableError", err)
	}
}

func TestTotalGainNetsLosses(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	gains := []*TaxGain{
		{TxID: "a", At: at, GainEUR: EUR(100)},
		{TxID: "b", At: at, GainEUR: EUR(-30)},
	}
	mustEqualMoney(t, TotalGain(gains), EUR(70), "net total")
}
