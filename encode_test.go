package cryptotax

import (
	"bytes"
	"context"
	"testing"
)

func TestTransactionsRoundTrip(t *testing.T) {
	clock := testClock()
	_, ids := newTestRegistry(t, "BTC")
	cold := ids["BTC"] + "-cold"

	transfer := NewTransfer("m1", clock(), legFee(ids["BTC"], 3, 400, 0.01), leg(cold, 0, 400), Q(1))
	transfer.Income = "staking"

	log := NewTransactionLog()
	log.Extend([]Transaction{
		buy("t1", clock(), ids["EUR"], ids["BTC"], 1000, 0, 1000, 3, 333),
		sell("t2", clock(), ids["BTC"], ids["EUR"], 3, 0, 1.125, 450, 400),
		transfer,
		NewDeposit("d1", clock(), leg(ids["EUR"], 0, 1), Q(1000)),
		NewWithdrawal("w1", clock(), leg(ids["EUR"], 1000, 1), Q(100)),
	})

	var buf bytes.Buffer
	if err := EncodeTransactions(&buf, log); err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeTransactions(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.Len() != log.Len() {
		t.Fatalf("decoded %d transactions, want %d", decoded.Len(), log.Len())
	}
	want := log.Slice()
	for i, tx := range decoded.Slice() {
		if !tx.Equal(want[i]) {
			t.Errorf("transaction %d (%s) changed through the round trip", i, tx.ID())
		}
	}
}

func TestDecodeTransactionsRejectsUnknownType(t *testing.T) {
	line := []byte(`{"type":"airdrop","id":"x","timestamp":"2024-03-01T10:00:00Z"}` + "\n")
	if _, err := DecodeTransactions(bytes.NewReader(line)); err == nil {
		t.Fatal("decoding an unknown transaction type succeeded")
	}
}

func TestWalletsRoundTrip(t *testing.T) {
	registry, _ := newTestRegistry(t, "BTC", "ETH")

	var buf bytes.Buffer
	if err := EncodeWallets(&buf, registry); err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeWallets(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.Len() != registry.Len() {
		t.Fatalf("decoded %d wallets, want %d", decoded.Len(), registry.Len())
	}
	for w := range registry.Wallets() {
		got, ok := decoded.Get(w.ID)
		if !ok {
			t.Errorf("wallet %s lost through the round trip", w.ID)
			continue
		}
		if got.Key() != w.Key() || got.Kind != w.Kind || got.Owner != w.Owner {
			t.Errorf("wallet %s changed through the round trip", w.ID)
		}
	}
}

func TestPortfolioHistoryRoundTrip(t *testing.T) {
	registry, _, txs := scenarioBTC(t)
	engine := NewValuationEngine(&countingOracle{}, registry, nil)
	if err := engine.Replay(context.Background(), txs); err != nil {
		t.Fatal(err)
	}

	ids := []string{"t1", "t2", "t3"}
	var buf bytes.Buffer
	if err := EncodePortfolios(&buf, engine.History(), ids); err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodePortfolios(&buf)
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range ids {
		want := engine.History()[id]
		got, ok := decoded[id]
		if !ok {
			t.Fatalf("portfolio %s lost through the round trip", id)
		}
		if got.IsTaxable != want.IsTaxable || got.IsPFTotalCalculated != want.IsPFTotalCalculated {
			t.Errorf("portfolio %s flags changed through the round trip", id)
		}
		if want.IsPFTotalCalculated && !got.PFTotalValue.Equal(want.PFTotalValue) {
			t.Errorf("portfolio %s total changed: %s, want %s", id, got.PFTotalValue, want.PFTotalValue)
		}
	}
}

func TestStoreLoadsDefaultsWhenEmpty(t *testing.T) {
	store := NewStore(t.TempDir())

	log, err := store.LoadTransactions()
	if err != nil || log.Len() != 0 {
		t.Errorf("LoadTransactions = (%v, %v), want empty log", log.Len(), err)
	}
	registry, err := store.LoadWallets()
	if err != nil || registry.Len() != 0 {
		t.Errorf("LoadWallets = (%v, %v), want empty registry", registry.Len(), err)
	}
	portfolios, err := store.LoadPortfolios()
	if err != nil || len(portfolios) != 0 {
		t.Errorf("LoadPortfolios = (%v, %v), want empty history", len(portfolios), err)
	}
	bases, err := store.LoadCostBases()
	if err != nil || len(bases) != 0 {
		t.Errorf("LoadCostBases = (%v, %v), want empty history", len(bases), err)
	}
}

func TestStoreSaveAndReload(t *testing.T) {
	registry, _, txs := scenarioBTC(t)
	log := NewTransactionLog()
	log.Extend(txs)

	engine := NewValuationEngine(&countingOracle{}, registry, nil)
	if err := engine.Replay(context.Background(), txs); err != nil {
		t.Fatal(err)
	}
	costs := NewCostBasisEngine()
	if err := costs.Replay(txs, engine.History()); err != nil {
		t.Fatal(err)
	}

	store := NewStore(t.TempDir())
	if err := store.SaveTransactions(log); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveWallets(registry); err != nil {
		t.Fatal(err)
	}
	if err := store.SavePortfolios(engine.History(), log); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveCostBases(costs.History(), log); err != nil {
		t.Fatal(err)
	}

	reloaded, err := store.LoadTransactions()
	if err != nil || reloaded.Len() != log.Len() {
		t.Errorf("reloaded %d transactions, want %d (err %v)", reloaded.Len(), log.Len(), err)
	}
	portfolios, err := store.LoadPortfolios()
	if err != nil || len(portfolios) != 3 {
		t.Errorf("reloaded %d portfolios, want 3 (err %v)", len(portfolios), err)
	}
	bases, err := store.LoadCostBases()
	if err != nil || len(bases) != 3 {
		t.Errorf("reloaded %d cost bases, want 3 (err %v)", len(bases), err)
	}
	cb, ok := bases["t3"]
	if !ok || !cb.PFCostBasis.Equal(EUR(625)) {
		t.Errorf("reloaded cost basis t3 = %+v, want 625", cb)
	}
}
