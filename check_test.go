package cryptotax

import (
	"strings"
	"testing"
)

func TestCheckAcceptsConsistentLog(t *testing.T) {
	registry, _, txs := scenarioBTC(t)
	log := NewTransactionLog()
	log.Extend(txs)

	if findings := CheckTransactions(log, registry); len(findings) != 0 {
		t.Errorf("findings = %v, want none", findings)
	}
}

func TestCheckFlagsMissingAcquisition(t *testing.T) {
	clock := testClock()
	registry, ids := newTestRegistry(t, "BTC")

	// The first sight of the BTC wallet is an outflow from a nonzero
	// balance: those holdings were never acquired in the log.
	log := NewTransactionLog()
	log.Push(sell("s1", clock(), ids["BTC"], ids["EUR"], 3, 0, 1, 400, 400))

	findings := CheckTransactions(log, registry)
	if len(findings) != 1 {
		t.Fatalf("findings = %v, want exactly one", findings)
	}
	if !strings.Contains(findings[0].Message, "without a recorded acquisition") {
		t.Errorf("finding = %q, want a missing acquisition", findings[0])
	}
}

func TestCheckFlagsNegativeBalance(t *testing.T) {
	clock := testClock()
	registry, ids := newTestRegistry(t, "BTC")

	log := NewTransactionLog()
	log.Push(buy("t1", clock(), ids["EUR"], ids["BTC"], 1000, 0, 1000, 3, 333))
	log.Push(sell("s1", clock(), ids["BTC"], ids["EUR"], 3, 0, 4, 1600, 400))

	findings := CheckTransactions(log, registry)
	if len(findings) != 1 {
		t.Fatalf("findings = %v, want exactly one", findings)
	}
	if !strings.Contains(findings[0].Message, "negative") {
		t.Errorf("finding = %q, want a negative balance", findings[0])
	}
}

func TestCheckFlagsBalanceMismatch(t *testing.T) {
	clock := testClock()
	registry, ids := newTestRegistry(t, "BTC")

	log := NewTransactionLog()
	log.Push(buy("t1", clock(), ids["EUR"], ids["BTC"], 1000, 0, 1000, 3, 333))
	log.Push(sell("s1", clock(), ids["BTC"], ids["EUR"], 2.5, 0, 1, 400, 400))

	findings := CheckTransactions(log, registry)
	if len(findings) != 1 {
		t.Fatalf("findings = %v, want exactly one", findings)
	}
	if !strings.Contains(findings[0].Message, "differs from declared") {
		t.Errorf("finding = %q, want a balance mismatch", findings[0])
	}
}

func TestCheckFlagsUnregisteredWallet(t *testing.T) {
	clock := testClock()
	registry, ids := newTestRegistry(t, "BTC")

	log := NewTransactionLog()
	log.Push(NewTransfer("m1", clock(), leg(ids["EUR"], 100, 1), leg("ghost", 0, 1), Q(50)))

	findings := CheckTransactions(log, registry)
	if len(findings) != 1 {
		t.Fatalf("findings = %v, want exactly one", findings)
	}
	if findings[0].WalletID != "ghost" {
		t.Errorf("finding wallet = %q, want ghost", findings[0].WalletID)
	}
}
