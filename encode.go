package cryptotax

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// This file persists the transaction log and its derived series as JSONL
// streams, one record per line, human-readable and git-friendly. The
// transaction log is the source of truth; portfolio and cost-basis files
// are caches of the replays, kept mainly so historical prices survive runs.

// DecodeTransactions decodes a JSONL stream of transactions, dispatching on
// each line's type discriminator, and returns a sorted log.
func DecodeTransactions(r io.Reader) (*TransactionLog, error) {
	log := NewTransactionLog()
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}

		var identifier struct {
			Type TxType `json:"type"`
		}
		if err := json.Unmarshal(lineBytes, &identifier); err != nil {
			return nil, fmt.Errorf("could not identify transaction type in line %q: %w", string(lineBytes), err)
		}

		var decodedTx Transaction
		var err error

		switch identifier.Type {
		case TxTrade:
			var tx Trade
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case TxTransfer:
			var tx Transfer
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case TxDeposit:
			var tx Deposit
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		case TxWithdrawal:
			var tx Withdrawal
			err = json.Unmarshal(lineBytes, &tx)
			decodedTx = tx
		default:
			err = fmt.Errorf("unknown transaction type: %q", identifier.Type)
		}

		if err != nil {
			return nil, err
		}
		log.Push(decodedTx)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}

	log.Sort()
	return log, nil
}

// EncodeTransaction marshals a single transaction and writes it as one JSONL
// line.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction %s: %w", tx.ID(), err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write transaction %s: %w", tx.ID(), err)
	}
	return nil
}

// EncodeTransactions sorts the log by timestamp and writes it out in JSONL
// format. The sort is stable, so same-instant transactions keep their
// relative order.
func EncodeTransactions(w io.Writer, log *TransactionLog) error {
	log.Sort()
	for tx := range log.Transactions() {
		if err := EncodeTransaction(w, tx); err != nil {
			return err
		}
	}
	return nil
}

// DecodeWallets decodes a JSONL stream of wallets into a registry.
func DecodeWallets(r io.Reader) (*WalletRegistry, error) {
	registry := NewWalletRegistry()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}
		w := new(Wallet)
		if err := json.Unmarshal(lineBytes, w); err != nil {
			return nil, fmt.Errorf("invalid wallet line %q: %w", string(lineBytes), err)
		}
		if err := registry.Register(w); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return registry, nil
}

// EncodeWallets writes the registry in JSONL format, in stable id order.
func EncodeWallets(w io.Writer, registry *WalletRegistry) error {
	for wallet := range registry.Wallets() {
		data, err := json.Marshal(wallet)
		if err != nil {
			return fmt.Errorf("failed to marshal wallet %s: %w", wallet.ID, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write wallet %s: %w", wallet.ID, err)
		}
	}
	return nil
}

// DecodePortfolios decodes a JSONL stream of portfolio records keyed by
// transaction id.
func DecodePortfolios(r io.Reader) (map[string]*Portfolio, error) {
	history := make(map[string]*Portfolio)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}
		p := new(Portfolio)
		if err := json.Unmarshal(lineBytes, p); err != nil {
			return nil, fmt.Errorf("invalid portfolio line %q: %w", string(lineBytes), err)
		}
		history[p.TxID] = p
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return history, nil
}

// EncodePortfolios writes the portfolio history in JSONL format. txIDs fixes
// the line order, typically the log's transaction order; ids absent from the
// history are skipped.
func EncodePortfolios(w io.Writer, history map[string]*Portfolio, txIDs []string) error {
	for _, id := range txIDs {
		p, ok := history[id]
		if !ok {
			continue
		}
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal portfolio %s: %w", id, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write portfolio %s: %w", id, err)
		}
	}
	return nil
}

// DecodeCostBases decodes a JSONL stream of cost-basis records keyed by
// transaction id.
func DecodeCostBases(r io.Reader) (map[string]*GlobalCostBasis, error) {
	history := make(map[string]*GlobalCostBasis)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}
		g := new(GlobalCostBasis)
		if err := json.Unmarshal(lineBytes, g); err != nil {
			return nil, fmt.Errorf("invalid cost basis line %q: %w", string(lineBytes), err)
		}
		history[g.TxID] = g
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return history, nil
}

// EncodeCostBases writes the cost-basis history in JSONL format, in the
// order fixed by txIDs.
func EncodeCostBases(w io.Writer, history map[string]*GlobalCostBasis, txIDs []string) error {
	for _, id := range txIDs {
		g, ok := history[id]
		if !ok {
			continue
		}
		data, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("failed to marshal cost basis %s: %w", id, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write cost basis %s: %w", id, err)
		}
	}
	return nil
}
