package cryptotax

import (
	"iter"
	"sort"
)

// TransactionLog is an ordered, deduplicated collection of transactions,
// keyed by transaction id.
//
// The log is totally ordered by timestamp, insertion order breaking ties.
// Mutating operations do not re-sort: callers must call Sort after a batch of
// insertions, and before relying on PushUpdate.
type TransactionLog struct {
	transactions []Transaction
	ids          map[string]struct{}
}

// NewTransactionLog creates an empty transaction log.
func NewTransactionLog() *TransactionLog {
	return &TransactionLog{
		transactions: make([]Transaction, 0),
		ids:          make(map[string]struct{}),
	}
}

// Len returns the number of transactions in the log.
func (l *TransactionLog) Len() int { return len(l.transactions) }

// Has reports whether a transaction with this id is already recorded.
func (l *TransactionLog) Has(id string) bool {
	_, ok := l.ids[id]
	return ok
}

// Push inserts the transaction if its id is unseen, and is a no-op otherwise.
func (l *TransactionLog) Push(tx Transaction) {
	if l.Has(tx.ID()) {
		return
	}
	l.ids[tx.ID()] = struct{}{}
	l.transactions = append(l.transactions, tx)
}

// PushUpdate inserts the transaction if its id is unseen; otherwise it
// replaces the recorded transaction. The existing entry is located by binary
// search on the timestamp, which assumes the log is sorted; among entries
// sharing the timestamp, the one with the matching id is replaced.
func (l *TransactionLog) PushUpdate(tx Transaction) {
	if !l.Has(tx.ID()) {
		l.Push(tx)
		return
	}
	// Leftmost entry whose timestamp is not before tx's.
	i := sort.Search(len(l.transactions), func(i int) bool {
		return !l.transactions[i].When().Before(tx.When())
	})
	for ; i < len(l.transactions) && l.transactions[i].When().Equal(tx.When()); i++ {
		if l.transactions[i].ID() == tx.ID() {
			l.transactions[i] = tx
			return
		}
	}
	// The recorded entry carries a different timestamp. Replace it by id and
	// let the caller re-sort.
	for i, old := range l.transactions {
		if old.ID() == tx.ID() {
			l.transactions[i] = tx
			return
		}
	}
}

// Extend pushes every transaction, skipping already-recorded ids.
func (l *TransactionLog) Extend(txs []Transaction) {
	for _, tx := range txs {
		l.Push(tx)
	}
}

// ExtendUpdate pushes every transaction, replacing already-recorded ids.
func (l *TransactionLog) ExtendUpdate(txs []Transaction) {
	for _, tx := range txs {
		l.PushUpdate(tx)
	}
}

// Sort stably sorts the log by ascending timestamp. Transactions sharing a
// timestamp keep their insertion order.
func (l *TransactionLog) Sort() {
	sort.SliceStable(l.transactions, func(i, j int) bool {
		return l.transactions[i].When().Before(l.transactions[j].When())
	})
}

// Transactions iterates over the transactions in log order.
func (l *TransactionLog) Transactions() iter.Seq[Transaction] {
	return func(yield func(Transaction) bool) {
		for _, tx := range l.transactions {
			if !yield(tx) {
				return
			}
		}
	}
}

// Slice returns the transactions in log order. The returned slice is owned by
// the log and must not be mutated.
func (l *TransactionLog) Slice() []Transaction { return l.transactions }
