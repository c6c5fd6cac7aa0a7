package cryptotax

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	transactionsFilename = "transactions.jsonl"
	walletsFilename      = "wallets.jsonl"
	portfoliosFilename   = "portfolios.jsonl"
	costBasisFilename    = "costbasis.jsonl"
)

// Store is a folder holding one tax ledger: the transaction log, the wallet
// registry, and the cached replay histories. Files are JSONL so the whole
// folder can live in a private git repository.
//
// Loading a missing file yields an empty value, never an error; nothing is
// written back implicitly, callers save explicitly after a successful run.
type Store struct {
	path string
}

// NewStore creates a store rooted at path. The folder need not exist yet; it
// is created on first save.
func NewStore(path string) *Store { return &Store{path: path} }

// Path returns the store's root folder.
func (s *Store) Path() string { return s.path }

// LoadTransactions reads the transaction log, or returns an empty log when
// the file does not exist yet.
func (s *Store) LoadTransactions() (*TransactionLog, error) {
	file := filepath.Join(s.path, transactionsFilename)
	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTransactionLog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open transaction log %q: %w", file, err)
	}
	defer f.Close()

	log, err := DecodeTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode transaction log %q: %w", file, err)
	}
	return log, nil
}

// SaveTransactions writes the transaction log.
func (s *Store) SaveTransactions(log *TransactionLog) error {
	return s.save(transactionsFilename, func(f *os.File) error {
		return EncodeTransactions(f, log)
	})
}

// LoadWallets reads the wallet registry, or returns an empty registry when
// the file does not exist yet.
func (s *Store) LoadWallets() (*WalletRegistry, error) {
	file := filepath.Join(s.path, walletsFilename)
	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return NewWalletRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open wallet registry %q: %w", file, err)
	}
	defer f.Close()

	registry, err := DecodeWallets(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode wallet registry %q: %w", file, err)
	}
	return registry, nil
}

// SaveWallets writes the wallet registry.
func (s *Store) SaveWallets(registry *WalletRegistry) error {
	return s.save(walletsFilename, func(f *os.File) error {
		return EncodeWallets(f, registry)
	})
}

// LoadPortfolios reads the cached valuation history, or returns an empty one
// when the file does not exist yet.
func (s *Store) LoadPortfolios() (map[string]*Portfolio, error) {
	file := filepath.Join(s.path, portfoliosFilename)
	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]*Portfolio), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open portfolio history %q: %w", file, err)
	}
	defer f.Close()

	history, err := DecodePortfolios(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode portfolio history %q: %w", file, err)
	}
	return history, nil
}

// SavePortfolios writes the valuation history, one line per transaction in
// log order.
func (s *Store) SavePortfolios(history map[string]*Portfolio, log *TransactionLog) error {
	return s.save(portfoliosFilename, func(f *os.File) error {
		return EncodePortfolios(f, history, txIDs(log))
	})
}

// LoadCostBases reads the cached cost-basis history, or returns an empty one
// when the file does not exist yet.
func (s *Store) LoadCostBases() (map[string]*GlobalCostBasis, error) {
	file := filepath.Join(s.path, costBasisFilename)
	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]*GlobalCostBasis), nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open cost basis history %q: %w", file, err)
	}
	defer f.Close()

	history, err := DecodeCostBases(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode cost basis history %q: %w", file, err)
	}
	return history, nil
}

// SaveCostBases writes the cost-basis history, one line per transaction in
// log order.
func (s *Store) SaveCostBases(history map[string]*GlobalCostBasis, log *TransactionLog) error {
	return s.save(costBasisFilename, func(f *os.File) error {
		return EncodeCostBases(f, history, txIDs(log))
	})
}

func (s *Store) save(filename string, encode func(*os.File) error) error {
	if err := os.MkdirAll(s.path, 0755); err != nil {
		return fmt.Errorf("could not create store folder %q: %w", s.path, err)
	}
	file := filepath.Join(s.path, filename)
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("error opening %q for writing: %w", file, err)
	}
	defer f.Close()
	return encode(f)
}

func txIDs(log *TransactionLog) []string {
	ids := make([]string, 0, log.Len())
	for tx := range log.Transactions() {
		ids = append(ids, tx.ID())
	}
	return ids
}
