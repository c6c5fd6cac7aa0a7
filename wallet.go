package cryptotax

import (
	"encoding/json"
	"fmt"
	"iter"
	"sort"

	"github.com/google/uuid"
)

// WalletKind separates fiat wallets, which are accounting-only, from crypto
// wallets, which are the only ones carrying valuation weight.
type WalletKind int

const (
	Fiat WalletKind = iota
	Crypto
)

func (k WalletKind) String() string {
	switch k {
	case Fiat:
		return "fiat"
	case Crypto:
		return "crypto"
	default:
		return "unknown"
	}
}

// ParseWalletKind parses a string into a WalletKind.
func ParseWalletKind(s string) (WalletKind, error) {
	switch s {
	case "fiat":
		return Fiat, nil
	case "crypto":
		return Crypto, nil
	default:
		return 0, &jsonFieldError{field: "kind", value: s}
	}
}

// MarshalJSON implements the json.Marshaler interface for WalletKind.
func (k WalletKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// UnmarshalJSON implements the json.Unmarshaler interface for WalletKind.
func (k *WalletKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseWalletKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Owner identifies who controls a wallet.
type Owner string

const (
	OwnerUser     Owner = "user"
	OwnerPlatform Owner = "platform"
	OwnerOther    Owner = "other"
)

// Platform names where a wallet lives: an exchange or the blockchain itself.
type Platform string

const (
	Kraken     Platform = "kraken"
	Binance    Platform = "binance"
	Blockchain Platform = "blockchain"
)

// WalletKey is the composite identity of a wallet. Two wallets never share a
// key; the registry enforces it. Address distinguishes sub-wallets of the
// same currency on the same platform (e.g. a main and an "earn" wallet).
type WalletKey struct {
	Currency string
	Platform Platform
	Address  string
}

func (k WalletKey) String() string {
	s := k.Currency + "/" + string(k.Platform)
	if k.Address != "" {
		s += "/" + k.Address
	}
	return s
}

// id derives the deterministic wallet id for this key, so that two runs over
// the same source data agree on wallet identity.
func (k WalletKey) id() string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(k.String())).String()
}

// Wallet is one fiat or crypto account of the holder. Balance is the running
// balance maintained by the upstream exchange mapping; the valuation replay
// tracks its own and only reads this one to reconcile.
type Wallet struct {
	ID       string
	Kind     WalletKind
	Currency string
	Platform Platform
	Address  string
	Owner    Owner
	Balance  Quantity
	Info     string
}

// IsCrypto reports whether the wallet participates in portfolio valuation.
func (w *Wallet) IsCrypto() bool { return w.Kind == Crypto }

// Key returns the wallet's composite identity.
func (w *Wallet) Key() WalletKey {
	return WalletKey{Currency: w.Currency, Platform: w.Platform, Address: w.Address}
}

// MarshalJSON implements the json.Marshaler interface for Wallet.
func (w Wallet) MarshalJSON() ([]byte, error) {
	var jw jsonObjectWriter
	jw.Append("id", w.ID)
	jw.Append("kind", w.Kind)
	jw.Append("currency", w.Currency)
	jw.Append("platform", w.Platform)
	jw.Optional("address", w.Address)
	jw.Append("owner", w.Owner)
	jw.Append("balance", w.Balance)
	jw.Optional("info", w.Info)
	return jw.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Wallet.
func (w *Wallet) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID       string     `json:"id"`
		Kind     WalletKind `json:"kind"`
		Currency string     `json:"currency"`
		Platform Platform   `json:"platform"`
		Address  string     `json:"address"`
		Owner    Owner      `json:"owner"`
		Balance  Quantity   `json:"balance"`
		Info     string     `json:"info"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*w = Wallet{
		ID: temp.ID, Kind: temp.Kind, Currency: temp.Currency,
		Platform: temp.Platform, Address: temp.Address, Owner: temp.Owner,
		Balance: temp.Balance, Info: temp.Info,
	}
	return nil
}

// WalletRegistry maps wallet ids to wallets and maintains the interning
// index from composite key to id. It is supplied by the exchange-mapping
// stage; the engines consume it read-only.
type WalletRegistry struct {
	wallets map[string]*Wallet
	index   map[WalletKey]string
}

// NewWalletRegistry creates an empty registry.
func NewWalletRegistry() *WalletRegistry {
	return &WalletRegistry{
		wallets: make(map[string]*Wallet),
		index:   make(map[WalletKey]string),
	}
}

// Len returns the number of registered wallets.
func (r *WalletRegistry) Len() int { return len(r.wallets) }

// Get returns the wallet with this id.
func (r *WalletRegistry) Get(id string) (*Wallet, bool) {
	w, ok := r.wallets[id]
	return w, ok
}

// Lookup returns the wallet registered under this composite key.
func (r *WalletRegistry) Lookup(key WalletKey) (*Wallet, bool) {
	id, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.wallets[id], true
}

// Intern returns the wallet for this key, creating it with a deterministic
// id when unseen.
func (r *WalletRegistry) Intern(key WalletKey, kind WalletKind, owner Owner) *Wallet {
	if w, ok := r.Lookup(key); ok {
		return w
	}
	w := &Wallet{
		ID:       key.id(),
		Kind:     kind,
		Currency: key.Currency,
		Platform: key.Platform,
		Address:  key.Address,
		Owner:    owner,
	}
	r.wallets[w.ID] = w
	r.index[key] = w.ID
	return w
}

// Register adds an existing wallet, enforcing the uniqueness of both the id
// and the composite key.
func (r *WalletRegistry) Register(w *Wallet) error {
	if _, ok := r.wallets[w.ID]; ok {
		return fmt.Errorf("wallet id %q already registered", w.ID)
	}
	if id, ok := r.index[w.Key()]; ok {
		return fmt.Errorf("wallet key %s already bound to id %q", w.Key(), id)
	}
	r.wallets[w.ID] = w
	r.index[w.Key()] = w.ID
	return nil
}

// Wallets iterates over the registered wallets in stable id order.
func (r *WalletRegistry) Wallets() iter.Seq[*Wallet] {
	ids := make([]string, 0, len(r.wallets))
	for id := range r.wallets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return func(yield func(*Wallet) bool) {
		for _, id := range ids {
			if !yield(r.wallets[id]) {
				return
			}
		}
	}
}
