package cryptotax

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeKraken serves the Trades endpoint for a fixed set of pairs.
func fakeKraken(t *testing.T) *httptest.Server {
	t.Helper()
	trades := map[string][][2]string{
		"XXBTZEUR": {{"100", "0.1"}, {"102", "0.2"}},
		"ADAXXBT":  {{"0.4", "10"}, {"0.6", "20"}},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/0/public/Trades" {
			http.NotFound(w, r)
			return
		}
		pair := r.URL.Query().Get("pair")
		rows, ok := trades[pair]
		if !ok {
			fmt.Fprint(w, `{"error":["EQuery:Unknown asset pair"]}`)
			return
		}
		fmt.Fprintf(w, `{"error":[],"result":{%q:[`, pair)
		for i, row := range rows {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `[%q,%q,1709280000,"b","l",""]`, row[0], row[1])
		}
		fmt.Fprint(w, `],"last":"1709280000000000000"}}`)
	}))
}

func TestKrakenDirectPair(t *testing.T) {
	srv := fakeKraken(t)
	defer srv.Close()
	oracle := &KrakenOracle{endpoint: srv.URL, tradeN: 6}

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	price, err := oracle.Price(context.Background(), at, "BTC")
	if err != nil {
		t.Fatal(err)
	}
	// Average of the first trades: (100 + 102) / 2.
	mustEqualMoney(t, price, EUR(101), "BTC price")
}

func TestKrakenRoutesThroughBTC(t *testing.T) {
	srv := fakeKraken(t)
	defer srv.Close()
	oracle := &KrakenOracle{endpoint: srv.URL, tradeN: 6}

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	price, err := oracle.Price(context.Background(), at, "ADA")
	if err != nil {
		t.Fatal(err)
	}
	// No ADAZEUR pair: 0.5 BTC average times 101 EUR per BTC.
	mustEqualMoney(t, price, EUR(50.5), "ADA price")
}

func TestKrakenUnknownAsset(t *testing.T) {
	srv := fakeKraken(t)
	defer srv.Close()
	oracle := &KrakenOracle{endpoint: srv.URL, tradeN: 6}

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := oracle.Price(context.Background(), at, "FOO")
	var notFound *PriceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Price error = %v, want PriceNotFoundError", err)
	}
	if notFound.Currency != "FOO" {
		t.Errorf("missing currency = %q, want FOO", notFound.Currency)
	}
}

func TestKrakenEURIsUnit(t *testing.T) {
	oracle := NewKrakenOracle()
	price, err := oracle.Price(context.Background(), time.Now(), "EUR")
	if err != nil {
		t.Fatal(err)
	}
	mustEqualMoney(t, price, EUR(1), "EUR price")
}
