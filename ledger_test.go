package cryptotax

import (
	"testing"
	"time"
)

func TestPushDeduplicatesByID(t *testing.T) {
	clock := testClock()
	_, ids := newTestRegistry(t, "BTC")

	log := NewTransactionLog()
	tx := buy("t1", clock(), ids["EUR"], ids["BTC"], 1000, 0, 1000, 3, 333)
	log.Push(tx)
	log.Push(buy("t1", clock(), ids["EUR"], ids["BTC"], 0, 3, 500, 1, 500))

	if log.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", log.Len())
	}
	got := log.Slice()[0]
	if !got.Equal(tx) {
		t.Errorf("Push replaced an existing transaction, want the first one kept")
	}
}

func TestPushUpdateReplacesByID(t *testing.T) {
	clock := testClock()
	_, ids := newTestRegistry(t, "BTC")

	log := NewTransactionLog()
	at := clock()
	log.Push(buy("t1", at, ids["EUR"], ids["BTC"], 1000, 0, 1000, 3, 333))
	log.Push(buy("t2", clock(), ids["EUR"], ids["BTC"], 0, 3, 200, 1, 200))
	log.Sort()

	updated := buy("t1", at, ids["EUR"], ids["BTC"], 1000, 0, 900, 3, 300)
	log.PushUpdate(updated)

	if log.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", log.Len())
	}
	if !log.Slice()[0].Equal(updated) {
		t.Errorf("PushUpdate did not replace the recorded transaction")
	}
}

func TestPushUpdateRelocatesByIDOnTimestampChange(t *testing.T) {
	clock := testClock()
	_, ids := newTestRegistry(t, "BTC")

	log := NewTransactionLog()
	log.Push(buy("t1", clock(), ids["EUR"], ids["BTC"], 1000, 0, 1000, 3, 333))
	log.Sort()

	// Same id, corrected timestamp: the entry is replaced in place and a
	// re-sort restores the order.
	updated := buy("t1", clock(), ids["EUR"], ids["BTC"], 1000, 0, 1000, 3, 333)
	log.PushUpdate(updated)

	if log.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", log.Len())
	}
	if !log.Slice()[0].When().Equal(updated.When()) {
		t.Errorf("PushUpdate kept the stale timestamp")
	}
}

func TestSortIsStableOnEqualTimestamps(t *testing.T) {
	_, ids := newTestRegistry(t, "BTC")
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	later := at.Add(time.Hour)

	log := NewTransactionLog()
	log.Push(buy("late", later, ids["EUR"], ids["BTC"], 0, 3, 100, 1, 100))
	log.Push(buy("a", at, ids["EUR"], ids["BTC"], 1000, 0, 1000, 3, 333))
	log.Push(buy("b", at, ids["EUR"], ids["BTC"], 0, 3, 200, 1, 200))
	log.Sort()

	want := []string{"a", "b", "late"}
	for i, tx := range log.Slice() {
		if tx.ID() != want[i] {
			t.Errorf("position %d: got %q, want %q", i, tx.ID(), want[i])
		}
	}
}
