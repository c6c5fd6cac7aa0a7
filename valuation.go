package cryptotax

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
)

// PortfolioSnapshot is the valuation engine's view of one tracked wallet:
// the balance immediately before a transaction and, once resolved, the EUR
// unit price at that instant. The price stays nil until a taxable event
// first needs it.
type PortfolioSnapshot struct {
	Wallet       string
	PreTxBalance Quantity
	Fee          *Quantity
	PriceEUR     *Money
}

func (s *PortfolioSnapshot) clone() *PortfolioSnapshot {
	c := *s
	if s.Fee != nil {
		fee := *s.Fee
		c.Fee = &fee
	}
	if s.PriceEUR != nil {
		price := *s.PriceEUR
		c.PriceEUR = &price
	}
	return &c
}

// MarshalJSON implements the json.Marshaler interface for PortfolioSnapshot.
func (s PortfolioSnapshot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("wallet", s.Wallet)
	w.Append("balance", s.PreTxBalance)
	if s.Fee != nil {
		w.Append("fee", *s.Fee)
	}
	if s.PriceEUR != nil {
		w.Append("price", *s.PriceEUR)
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for PortfolioSnapshot.
func (s *PortfolioSnapshot) UnmarshalJSON(data []byte) error {
	var temp struct {
		Wallet  string    `json:"wallet"`
		Balance Quantity  `json:"balance"`
		Fee     *Quantity `json:"fee"`
		Price   *Money    `json:"price"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	s.Wallet = temp.Wallet
	s.PreTxBalance = temp.Balance
	s.Fee = temp.Fee
	s.PriceEUR = temp.Price
	return nil
}

// Portfolio is the state of every nonzero crypto wallet immediately before
// one transaction. The total EUR value is computed only for taxable
// transactions; until then IsPFTotalCalculated stays false.
//
// Portfolio records are derived data, owned by the valuation engine and
// recomputed deterministically from the log; they are persisted as a side
// table keyed by transaction id so reruns skip already-fetched prices.
type Portfolio struct {
	TxID                string
	WalletSnaps         map[string]*PortfolioSnapshot
	IsTaxable           bool
	PFTotalValue        Money
	IsPFTotalCalculated bool
}

// NewPortfolio creates an empty portfolio record for one transaction.
func NewPortfolio(txID string, taxable bool) *Portfolio {
	return &Portfolio{
		TxID:        txID,
		WalletSnaps: make(map[string]*PortfolioSnapshot),
		IsTaxable:   taxable,
	}
}

// TotalValue sums balance times price over the snapshots. All snapshots must
// be priced.
func (p *Portfolio) TotalValue() Money {
	total := EUR(0)
	for _, snap := range p.WalletSnaps {
		total = total.Add(snap.PriceEUR.Mul(snap.PreTxBalance))
	}
	return total
}

// walletIDs returns the snapshot keys in stable order.
func (p *Portfolio) walletIDs() []string {
	ids := make([]string, 0, len(p.WalletSnaps))
	for id := range p.WalletSnaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalJSON implements the json.Marshaler interface for Portfolio.
func (p Portfolio) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("tx", p.TxID)
	w.Append("taxable", p.IsTaxable)
	snaps := make([]*PortfolioSnapshot, 0, len(p.WalletSnaps))
	for _, id := range p.walletIDs() {
		snaps = append(snaps, p.WalletSnaps[id])
	}
	w.Append("wallets", snaps)
	if p.IsPFTotalCalculated {
		w.Append("total", p.PFTotalValue)
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Portfolio.
func (p *Portfolio) UnmarshalJSON(data []byte) error {
	var temp struct {
		Tx      string               `json:"tx"`
		Taxable bool                 `json:"taxable"`
		Wallets []*PortfolioSnapshot `json:"wallets"`
		Total   *Money               `json:"total"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	p.TxID = temp.Tx
	p.IsTaxable = temp.Taxable
	p.WalletSnaps = make(map[string]*PortfolioSnapshot, len(temp.Wallets))
	for _, snap := range temp.Wallets {
		p.WalletSnaps[snap.Wallet] = snap
	}
	if temp.Total != nil {
		p.PFTotalValue = *temp.Total
		p.IsPFTotalCalculated = true
	}
	return nil
}

// ValuationEngine replays the transaction log in timestamp order and emits
// one Portfolio record per transaction: the state of every nonzero crypto
// wallet immediately before that transaction.
//
// The replay is strictly sequential; each transaction's balance effects feed
// the next one's snapshot. Price resolution is the only blocking point, and
// a failed lookup aborts the in-flight transaction without committing any of
// its state: records computed before the failure stay valid.
type ValuationEngine struct {
	oracle   PriceOracle
	registry *WalletRegistry
	history  map[string]*Portfolio
	previous map[string]*PortfolioSnapshot
}

// NewValuationEngine creates an engine. history may carry the records of a
// prior run, in which case replaying reuses their prices instead of calling
// the oracle again.
func NewValuationEngine(oracle PriceOracle, registry *WalletRegistry, history map[string]*Portfolio) *ValuationEngine {
	if history == nil {
		history = make(map[string]*Portfolio)
	}
	return &ValuationEngine{
		oracle:   oracle,
		registry: registry,
		history:  history,
		previous: make(map[string]*PortfolioSnapshot),
	}
}

// History returns the portfolio records keyed by transaction id.
func (e *ValuationEngine) History() map[string]*Portfolio { return e.history }

// Portfolio returns the record computed for this transaction id.
func (e *ValuationEngine) Portfolio(txID string) (*Portfolio, bool) {
	p, ok := e.history[txID]
	return p, ok
}

// Replay processes the transactions, which must be sorted by ascending
// timestamp, and fills the portfolio history. It stops at the first failing
// transaction, reporting its id and cause; records computed before the
// failure remain valid.
func (e *ValuationEngine) Replay(ctx context.Context, txs []Transaction) error {
	for _, tx := range txs {
		if err := e.process(ctx, tx); err != nil {
			return fmt.Errorf("transaction %s: %w", tx.ID(), err)
		}
	}
	return nil
}

func (e *ValuationEngine) process(ctx context.Context, tx Transaction) error {
	var from, to WalletSnapshot
	var sent, received Quantity

	switch v := tx.(type) {
	case Trade:
		from, to = v.From, v.To
		sent, received = v.SoldAmount, v.BoughtAmount
	case Transfer:
		from, to = v.From, v.To
		sent, received = v.Amount, v.Amount
	default:
		// Fiat deposits and withdrawals carry no valuation weight; record an
		// empty portfolio so the history stays dense.
		if _, ok := e.history[tx.ID()]; !ok {
			e.history[tx.ID()] = NewPortfolio(tx.ID(), false)
		}
		return nil
	}

	prior := e.history[tx.ID()] // record from a previous run, nil on first pass
	pf := NewPortfolio(tx.ID(), tx.Taxable())

	fromWallet, ok := e.registry.Get(from.Wallet)
	if !ok {
		return fmt.Errorf("wallet %s not registered", from.Wallet)
	}
	toWallet, ok := e.registry.Get(to.Wallet)
	if !ok {
		return fmt.Errorf("wallet %s not registered", to.Wallet)
	}

	// Reconcile the from leg against the tracked state. The tracked balance
	// is authoritative; the transaction-embedded one only seeds it.
	var seed *PortfolioSnapshot
	if fromWallet.IsCrypto() {
		if prev, ok := e.previous[from.Wallet]; ok {
			if !prev.PreTxBalance.Equal(from.PreTxBalance) {
				mismatch := &BalanceMismatchError{
					WalletID: from.Wallet,
					Expected: prev.PreTxBalance,
					Actual:   from.PreTxBalance,
				}
				log.Printf("reconciliation warning on tx %s (%s): %v", tx.ID(), fromWallet.Currency, mismatch)
			} else {
				pf.WalletSnaps[from.Wallet] = legSnapshot(from)
			}
		} else {
			seed = legSnapshot(from)
			pf.WalletSnaps[from.Wallet] = seed.clone()
		}
	}

	if pf.IsTaxable {
		priced, err := e.resolvePrices(ctx, tx, pf, prior, seed)
		if err != nil {
			return err
		}
		pf.WalletSnaps = priced
		pf.PFTotalValue = pf.TotalValue()
		pf.IsPFTotalCalculated = true
	}

	// Commit: from here on the transaction cannot fail, mutate the tracked
	// state all at once.
	if seed != nil {
		e.previous[seed.Wallet] = seed
	}
	if fromWallet.IsCrypto() {
		snap := e.previous[from.Wallet]
		if snap == nil {
			return &MissingPreviousStateError{WalletID: from.Wallet, TxID: tx.ID()}
		}
		balance := snap.PreTxBalance.Sub(sent).Sub(from.FeeOrZero())
		if balance.IsZero() {
			// Zero-balance wallets carry no future valuation weight.
			delete(e.previous, from.Wallet)
		} else {
			snap.PreTxBalance = balance
			snap.Fee = from.Fee
		}
	}
	if toWallet.IsCrypto() {
		credited := received.Sub(to.FeeOrZero())
		if snap, ok := e.previous[to.Wallet]; ok {
			snap.PreTxBalance = snap.PreTxBalance.Add(credited)
		} else {
			e.previous[to.Wallet] = &PortfolioSnapshot{
				Wallet:       to.Wallet,
				PreTxBalance: to.PreTxBalance.Add(credited),
				Fee:          to.Fee,
			}
		}
	}

	e.history[tx.ID()] = pf
	return nil
}

// resolvePrices returns a copy of the tracked state (plus the staged seed)
// with every snapshot priced at the transaction instant. Prices recorded by
// a previous run of the same transaction are reused; the rest are fetched
// from the oracle, independent lookups fanning out concurrently. The tracked
// state itself is never touched, so a failed lookup commits nothing.
func (e *ValuationEngine) resolvePrices(ctx context.Context, tx Transaction, pf, prior *Portfolio, seed *PortfolioSnapshot) (map[string]*PortfolioSnapshot, error) {
	working := make(map[string]*PortfolioSnapshot, len(e.previous)+1)
	for id, snap := range e.previous {
		working[id] = snap.clone()
	}
	if seed != nil {
		working[seed.Wallet] = seed.clone()
	}

	type lookup struct {
		walletID string
		currency string
	}
	var pending []lookup
	for id, snap := range working {
		if cached := cachedPrice(pf, id); cached != nil {
			snap.PriceEUR = cached
			continue
		}
		if cached := cachedPrice(prior, id); cached != nil {
			snap.PriceEUR = cached
			continue
		}
		w, ok := e.registry.Get(id)
		if !ok {
			return nil, fmt.Errorf("wallet %s not registered", id)
		}
		pending = append(pending, lookup{walletID: id, currency: w.Currency})
	}

	if len(pending) == 0 {
		return working, nil
	}

	// Lookups for distinct wallets are independent: fan out, fan in, and
	// only then mutate anything.
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, lk := range pending {
		wg.Add(1)
		go func(lk lookup) {
			defer wg.Done()
			price, err := e.oracle.Price(ctx, tx.When(), lk.currency)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			working[lk.walletID].PriceEUR = &price
		}(lk)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return working, nil
}

// cachedPrice returns the price recorded for this wallet on this portfolio
// record, or nil.
func cachedPrice(p *Portfolio, walletID string) *Money {
	if p == nil {
		return nil
	}
	snap, ok := p.WalletSnaps[walletID]
	if !ok || snap.PriceEUR == nil {
		return nil
	}
	price := *snap.PriceEUR
	return &price
}

// legSnapshot converts a transaction leg into a tracked snapshot, keeping
// the embedded price as the first price candidate.
func legSnapshot(leg WalletSnapshot) *PortfolioSnapshot {
	snap := &PortfolioSnapshot{
		Wallet:       leg.Wallet,
		PreTxBalance: leg.PreTxBalance,
		Fee:          leg.Fee,
	}
	price := leg.PriceEUR
	snap.PriceEUR = &price
	return snap
}
