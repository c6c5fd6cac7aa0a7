package cryptotax

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// This file implements a PriceOracle over Kraken's public Trades endpoint.
// The price of a currency at an instant is the average of the first few
// trades executed on the pair right after that instant. Responses are cached
// on disk, so replaying a ledger does not hammer the API.

const krakenEndpoint = "https://api.kraken.com"

// krakenAssets maps common currency codes to Kraken's legacy asset codes.
var krakenAssets = map[string]string{
	"BTC": "XXBT",
	"ETH": "XETH",
	"XRP": "XXRP",
	"LTC": "XLTC",
	"XLM": "XXLM",
	"ZEC": "XZEC",
	"XMR": "XXMR",
	"ETC": "XETC",
	"EUR": "ZEUR",
	"USD": "ZUSD",
	"GBP": "ZGBP",
	"CAD": "ZCAD",
	"JPY": "ZJPY",
}

// krakenAsset sanitizes a currency code into Kraken's asset code.
func krakenAsset(currency string) string {
	if code, ok := krakenAssets[currency]; ok {
		return code
	}
	return currency
}

// KrakenOracle resolves EUR prices from Kraken's public market data.
type KrakenOracle struct {
	endpoint string
	tradeN   int // number of trades averaged per lookup
}

// NewKrakenOracle creates an oracle against the public Kraken API.
func NewKrakenOracle() *KrakenOracle {
	return &KrakenOracle{endpoint: krakenEndpoint, tradeN: 6}
}

// Price implements PriceOracle. It tries the direct pair against EUR first,
// then routes through BTC for assets that only trade against it.
func (o *KrakenOracle) Price(ctx context.Context, at time.Time, currency string) (Money, error) {
	asset := krakenAsset(currency)
	if asset == "ZEUR" {
		return EUR(1), nil
	}

	price, ok, err := o.pairPrice(ctx, at, asset+"ZEUR")
	if err != nil {
		return Money{}, err
	}
	if ok {
		return M(price, "EUR"), nil
	}

	// No direct EUR pair: price the asset in BTC, then BTC in EUR.
	inBTC, ok, err := o.pairPrice(ctx, at, asset+"XXBT")
	if err != nil {
		return Money{}, err
	}
	if !ok {
		return Money{}, &PriceNotFoundError{Currency: currency, At: at}
	}
	btcEUR, ok, err := o.pairPrice(ctx, at, "XXBTZEUR")
	if err != nil {
		return Money{}, err
	}
	if !ok {
		return Money{}, &PriceNotFoundError{Currency: currency, At: at}
	}
	return M(inBTC.Mul(btcEUR), "EUR"), nil
}

// pairPrice fetches the first trades on a pair at or after the instant and
// returns their average price. ok is false when Kraken does not know the
// pair.
func (o *KrakenOracle) pairPrice(ctx context.Context, at time.Time, pair string) (decimal.Decimal, bool, error) {
	q := url.Values{}
	q.Set("pair", pair)
	q.Set("since", strconv.FormatInt(at.Unix(), 10))
	q.Set("count", strconv.Itoa(o.tradeN))
	addr := o.endpoint + "/0/public/Trades?" + q.Encode()

	var jobj any
	if err := jwget(ctx, cached(), addr, &jobj); err != nil {
		return decimal.Zero, false, fmt.Errorf("kraken trades %q: %w", pair, err)
	}

	// {"error":["EQuery:Unknown asset pair"]} or {"error":[],"result":{"<PAIR>":[[price,vol,time,...],...],"last":"..."}}
	if jerr, err := jsonpath.Get("$.error[0]", jobj); err == nil {
		msg, _ := jerr.(string)
		if msg == "EQuery:Unknown asset pair" {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("kraken trades %q: %s", pair, msg)
	}

	jtrades, err := jsonpath.Get("$.result."+pair, jobj)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("kraken trades %q: unexpected payload: %w", pair, err)
	}
	rows, ok := jtrades.([]any)
	if !ok || len(rows) == 0 {
		return decimal.Zero, false, nil
	}

	total := decimal.Zero
	n := 0
	for _, row := range rows {
		cells, ok := row.([]any)
		if !ok || len(cells) == 0 {
			continue
		}
		s, ok := cells[0].(string)
		if !ok {
			continue
		}
		p, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("kraken trades %q: invalid price %q: %w", pair, s, err)
		}
		total = total.Add(p)
		n++
	}
	if n == 0 {
		return decimal.Zero, false, nil
	}
	return total.Div(decimal.NewFromInt(int64(n))), true, nil
}
