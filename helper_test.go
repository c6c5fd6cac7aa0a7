package cryptotax

import (
	"context"
	"sync"
	"testing"
	"time"
)

// testClock returns increasing timestamps, one minute apart.
func testClock() func() time.Time {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		at = at.Add(time.Minute)
		return at
	}
}

// newTestRegistry builds a registry with one EUR fiat wallet and one crypto
// wallet per given currency, all on kraken.
func newTestRegistry(t *testing.T, cryptos ...string) (*WalletRegistry, map[string]string) {
	t.Helper()
	registry := NewWalletRegistry()
	ids := make(map[string]string)

	eur := registry.Intern(WalletKey{Currency: "EUR", Platform: Kraken}, Fiat, OwnerUser)
	ids["EUR"] = eur.ID
	for _, cur := range cryptos {
		w := registry.Intern(WalletKey{Currency: cur, Platform: Kraken}, Crypto, OwnerUser)
		ids[cur] = w.ID
	}
	return registry, ids
}

// leg builds a transaction leg snapshot.
func leg(wallet string, balance, price float64) WalletSnapshot {
	return WalletSnapshot{Wallet: wallet, PreTxBalance: Q(balance), PriceEUR: EUR(price)}
}

// legFee builds a transaction leg snapshot carrying a fee.
func legFee(wallet string, balance, price, fee float64) WalletSnapshot {
	f := Q(fee)
	s := leg(wallet, balance, price)
	s.Fee = &f
	return s
}

// countingOracle serves fixed prices per currency and counts lookups.
type countingOracle struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  int
}

func (o *countingOracle) Price(_ context.Context, at time.Time, currency string) (Money, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	p, ok := o.prices[currency]
	if !ok {
		return Money{}, &PriceNotFoundError{Currency: currency, At: at}
	}
	return EUR(p), nil
}

func (o *countingOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// buy records a fiat-to-crypto acquisition injecting spent EUR as cost.
func buy(id string, at time.Time, eurWallet, cryptoWallet string, eurBalance, cryptoBalance, spent, bought, price float64) Trade {
	tr := NewTrade(id, at,
		leg(eurWallet, eurBalance, 1),
		leg(cryptoWallet, cryptoBalance, price),
		Q(spent), Q(bought), FiatToCrypto)
	tr.LocalCostBasis = EUR(spent)
	return tr
}

// sell records a crypto-to-fiat disposal.
func sell(id string, at time.Time, cryptoWallet, eurWallet string, cryptoBalance, eurBalance, sold, proceeds, price float64) Trade {
	return NewTrade(id, at,
		leg(cryptoWallet, cryptoBalance, price),
		leg(eurWallet, eurBalance, 1),
		Q(sold), Q(proceeds), CryptoToFiat)
}

func mustEqualMoney(t *testing.T, got, want Money, what string) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}
