package cryptotax

import (
	"encoding/json"
	"time"
)

// TxType is a typed string identifying the kind of a transaction.
type TxType string

// Transaction kinds recorded in the log.
const (
	TxTrade      TxType = "trade"
	TxTransfer   TxType = "transfer"
	TxDeposit    TxType = "deposit"
	TxWithdrawal TxType = "withdrawal"
)

// Transaction defines the common interface for all entries of the
// transaction log. Transactions are immutable once created: the derived
// valuation and cost-basis series live in side tables keyed by ID.
type Transaction interface {
	What() TxType    // What returns the kind of the transaction.
	ID() string      // ID returns the globally unique transaction id.
	When() time.Time // When returns the instant the transaction occurred.
	Taxable() bool   // Taxable reports whether the transaction is a taxable disposal.
	Equal(Transaction) bool
}

// baseTx carries the identity shared by every transaction. The id comes from
// the exchange or is derived deterministically from the source records;
// timestamps need not be unique.
type baseTx struct {
	Type      TxType    `json:"type"`
	TxID      string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func (t baseTx) What() TxType    { return t.Type }
func (t baseTx) ID() string      { return t.TxID }
func (t baseTx) When() time.Time { return t.Timestamp }

// MarshalJSON implements the json.Marshaler interface for baseTx.
func (t baseTx) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("type", t.Type)
	w.Append("id", t.TxID)
	w.Append("timestamp", t.Timestamp.UTC())
	return w.MarshalJSON()
}

// WalletSnapshot is the point-in-time view of one wallet attached to one
// transaction leg: the balance immediately before the transaction, the
// optional fee charged on this leg, and the EUR unit price of the wallet's
// currency at the transaction instant.
type WalletSnapshot struct {
	Wallet       string    // wallet id
	PreTxBalance Quantity  // balance before the transaction applies
	Fee          *Quantity // fee charged on this leg, nil when none
	PriceEUR     Money     // EUR price of one unit at the transaction time
}

// FeeOrZero returns the leg fee, or a zero quantity when no fee is set.
func (s WalletSnapshot) FeeOrZero() Quantity {
	if s.Fee == nil {
		return Q(0)
	}
	return *s.Fee
}

// FeeEUR returns the EUR value of the leg fee.
func (s WalletSnapshot) FeeEUR() Money {
	return s.PriceEUR.Mul(s.FeeOrZero())
}

func (s WalletSnapshot) equal(o WalletSnapshot) bool {
	if s.Wallet != o.Wallet || !s.PreTxBalance.Equal(o.PreTxBalance) || !s.PriceEUR.Equal(o.PriceEUR) {
		return false
	}
	if (s.Fee == nil) != (o.Fee == nil) {
		return false
	}
	return s.Fee == nil || s.Fee.Equal(*o.Fee)
}

// MarshalJSON implements the json.Marshaler interface for WalletSnapshot.
func (s WalletSnapshot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("wallet", s.Wallet)
	w.Append("balance", s.PreTxBalance)
	if s.Fee != nil {
		w.Append("fee", *s.Fee)
	}
	w.Append("price", s.PriceEUR)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for WalletSnapshot.
func (s *WalletSnapshot) UnmarshalJSON(data []byte) error {
	var temp struct {
		Wallet  string    `json:"wallet"`
		Balance Quantity  `json:"balance"`
		Fee     *Quantity `json:"fee"`
		Price   Money     `json:"price"`
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

// TradeType classifies a trade by the nature of its two legs. It determines
// taxability and the cost-basis adjustment rule.
type TradeType int

const (
	// FiatToCrypto is an acquisition: it injects new capital, carried as the
	// trade's LocalCostBasis, into the portfolio acquisition cost.
	FiatToCrypto TradeType = iota
	// CryptoToFiat is a disposal into fiat, the only taxable event.
	CryptoToFiat
	// CryptoToCrypto is a swap, not taxable under the French model.
	CryptoToCrypto
)

func (t TradeType) String() string {
	switch t {
	case FiatToCrypto:
		return "fiat-to-crypto"
	case CryptoToFiat:
		return "crypto-to-fiat"
	case CryptoToCrypto:
		return "crypto-to-crypto"
	default:
		return "unknown"
	}
}

// ParseTradeType parses a string into a TradeType.
func ParseTradeType(s string) (TradeType, error) {
	switch s {
	case "fiat-to-crypto":
		return FiatToCrypto, nil
	case "crypto-to-fiat":
		return CryptoToFiat, nil
	case "crypto-to-crypto":
		return CryptoToCrypto, nil
	default:
		return 0, &jsonFieldError{field: "trade_type", value: s}
	}
}

// MarshalJSON implements the json.Marshaler interface for TradeType.
func (t TradeType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

// UnmarshalJSON implements the json.Unmarshaler interface for TradeType.
func (t *TradeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTradeType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type jsonFieldError struct {
	field string
	value string
}

func (e *jsonFieldError) Error() string {
	return "unknown " + e.field + ": " + e.value
}

// ExchangePair names the traded pair as the exchange reported it.
type ExchangePair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// Trade represents an exchange of one asset for another: fiat→crypto
// acquisition, crypto→fiat disposal, or crypto→crypto swap.
type Trade struct {
	baseTx
	From           WalletSnapshot
	To             WalletSnapshot
	SoldAmount     Quantity
	BoughtAmount   Quantity
	Pair           *ExchangePair
	TradeType      TradeType
	LocalCostBasis Money // EUR capital injected, set for FiatToCrypto only
}

// NewTrade creates a new Trade transaction.
func NewTrade(id string, at time.Time, from, to WalletSnapshot, sold, bought Quantity, tradeType TradeType) Trade {
	return Trade{
		baseTx:       baseTx{Type: TxTrade, TxID: id, Timestamp: at},
		From:         from,
		To:           to,
		SoldAmount:   sold,
		BoughtAmount: bought,
		TradeType:    tradeType,
	}
}

// Taxable reports whether the trade is a disposal into fiat, the only
// taxable event of this model.
func (t Trade) Taxable() bool { return t.TradeType == CryptoToFiat }

func (t Trade) Equal(other Transaction) bool {
	o, ok := other.(Trade)
	return ok && t.baseTx.TxID == o.baseTx.TxID && t.baseTx.Timestamp.Equal(o.baseTx.Timestamp) &&
		t.From.equal(o.From) && t.To.equal(o.To) &&
		t.SoldAmount.Equal(o.SoldAmount) && t.BoughtAmount.Equal(o.BoughtAmount) &&
		t.TradeType == o.TradeType && t.LocalCostBasis.Equal(o.LocalCostBasis)
}

// MarshalJSON implements the json.Marshaler interface for Trade.
func (t Trade) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseTx)
	w.Append("from", t.From)
	w.Append("to", t.To)
	w.Append("sold", t.SoldAmount)
	w.Append("bought", t.BoughtAmount)
	if t.Pair != nil {
		w.Append("pair", t.Pair)
	}
	w.Append("trade_type", t.TradeType)
	if t.TradeType == FiatToCrypto {
		w.Append("local_cost_basis", t.LocalCostBasis)
	}
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Trade.
func (t *Trade) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseTx
		From           WalletSnapshot `json:"from"`
		To             WalletSnapshot `json:"to"`
		Sold           Quantity       `json:"sold"`
		Bought         Quantity       `json:"bought"`
		Pair           *ExchangePair  `json:"pair"`
		TradeType      TradeType      `json:"trade_type"`
		LocalCostBasis Money          `json:"local_cost_basis"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseTx = temp.baseTx
	t.From = temp.From
	t.To = temp.To
	t.SoldAmount = temp.Sold
	t.BoughtAmount = temp.Bought
	t.Pair = temp.Pair
	t.TradeType = temp.TradeType
	t.LocalCostBasis = temp.LocalCostBasis
	return nil
}

// Transfer represents a movement of one asset between two wallets of the
// holder. Income tags transfers that create value out of nowhere (staking
// rewards, airdrops, gifts); they are recorded but never taxed here.
type Transfer struct {
	baseTx
	From   WalletSnapshot
	To     WalletSnapshot
	Amount Quantity
	Income string
}

// NewTransfer creates a new Transfer transaction.
func NewTransfer(id string, at time.Time, from, to WalletSnapshot, amount Quantity) Transfer {
	return Transfer{
		baseTx: baseTx{Type: TxTransfer, TxID: id, Timestamp: at},
		From:   from,
		To:     to,
		Amount: amount,
	}
}

func (t Transfer) Taxable() bool { return false }

func (t Transfer) Equal(other Transaction) bool {
	o, ok := other.(Transfer)
	return ok && t.baseTx.TxID == o.baseTx.TxID && t.baseTx.Timestamp.Equal(o.baseTx.Timestamp) &&
		t.From.equal(o.From) && t.To.equal(o.To) && t.Amount.Equal(o.Amount) && t.Income == o.Income
}

// MarshalJSON implements the json.Marshaler interface for Transfer.
func (t Transfer) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseTx)
	w.Append("from", t.From)
	w.Append("to", t.To)
	w.Append("amount", t.Amount)
	w.Optional("income", t.Income)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Transfer.
func (t *Transfer) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseTx
		From   WalletSnapshot `json:"from"`
		To     WalletSnapshot `json:"to"`
		Amount Quantity       `json:"amount"`
		Income string         `json:"income"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseTx = temp.baseTx
	t.From = temp.From
	t.To = temp.To
	t.Amount = temp.Amount
	t.Income = temp.Income
	return nil
}

// Deposit represents fiat entering the portfolio from outside. Deposits are
// accounting only: they never move crypto and never affect valuation.
type Deposit struct {
	baseTx
	To     WalletSnapshot
	Amount Quantity
}

// NewDeposit creates a new Deposit transaction.
func NewDeposit(id string, at time.Time, to WalletSnapshot, amount Quantity) Deposit {
	return Deposit{baseTx: baseTx{Type: TxDeposit, TxID: id, Timestamp: at}, To: to, Amount: amount}
}

func (t Deposit) Taxable() bool { return false }

func (t Deposit) Equal(other Transaction) bool {
	o, ok := other.(Deposit)
	return ok && t.baseTx.TxID == o.baseTx.TxID && t.baseTx.Timestamp.Equal(o.baseTx.Timestamp) &&
		t.To.equal(o.To) && t.Amount.Equal(o.Amount)
}

// MarshalJSON implements the json.Marshaler interface for Deposit.
func (t Deposit) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseTx)
	w.Append("to", t.To)
	w.Append("amount", t.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Deposit.
func (t *Deposit) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseTx
		To     WalletSnapshot `json:"to"`
		Amount Quantity       `json:"amount"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseTx = temp.baseTx
	t.To = temp.To
	t.Amount = temp.Amount
	return nil
}

// Withdrawal represents fiat leaving the portfolio.
type Withdrawal struct {
	baseTx
	From   WalletSnapshot
	Amount Quantity
}

// NewWithdrawal creates a new Withdrawal transaction.
func NewWithdrawal(id string, at time.Time, from WalletSnapshot, amount Quantity) Withdrawal {
	return Withdrawal{baseTx: baseTx{Type: TxWithdrawal, TxID: id, Timestamp: at}, From: from, Amount: amount}
}

func (t Withdrawal) Taxable() bool { return false }

func (t Withdrawal) Equal(other Transaction) bool {
	o, ok := other.(Withdrawal)
	return ok && t.baseTx.TxID == o.baseTx.TxID && t.baseTx.Timestamp.Equal(o.baseTx.Timestamp) &&
		t.From.equal(o.From) && t.Amount.Equal(o.Amount)
}

// MarshalJSON implements the json.Marshaler interface for Withdrawal.
func (t Withdrawal) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseTx)
	w.Append("from", t.From)
	w.Append("amount", t.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Withdrawal.
func (t *Withdrawal) UnmarshalJSON(data []byte) error {
	var temp struct {
		baseTx
		From   WalletSnapshot `json:"from"`
		Amount Quantity       `json:"amount"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.baseTx = temp.baseTx
	t.From = temp.From
	t.Amount = temp.Amount
	return nil
}
