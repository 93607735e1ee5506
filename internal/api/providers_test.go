package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAlphaVantage_GlobalQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path = %q, want /query", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("function") != "GLOBAL_QUOTE" || q.Get("symbol") != "^GSPC" || q.Get("apikey") != "av-key" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"Global Quote": {
			"01. symbol": "^GSPC",
			"05. price": "4210.00",
			"06. volume": "100",
			"09. change": "10.00",
			"10. change percent": "0.2381%"
		}}`))
	}))
	defer server.Close()

	av := NewAlphaVantage(server.URL, "av-key")
	q, err := av.GlobalQuote(context.Background(), "^GSPC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Price.Equal(decimal.NewFromInt(4210)) || q.Source != SourceAlphaVantage {
		t.Errorf("unexpected quote: %+v", q)
	}
}

func TestAlphaVantage_Notices(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"note", `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`, ErrThrottled},
		{"information", `{"Information": "rate limit"}`, ErrThrottled},
		{"error message", `{"Error Message": "Invalid API call"}`, ErrNoData},
		{"empty quote", `{"Global Quote": {}}`, ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewAlphaVantage(server.URL, "k").GlobalQuote(context.Background(), "X")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAlphaVantage_CurrencyExchangeRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("from_currency") != "EUR" || q.Get("to_currency") != "USD" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"Realtime Currency Exchange Rate": {
			"1. From_Currency Code": "EUR",
			"3. To_Currency Code": "USD",
			"5. Exchange Rate": "1.08750000"
		}}`))
	}))
	defer server.Close()

	q, err := NewAlphaVantage(server.URL, "k").CurrencyExchangeRate(context.Background(), "EUR", "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Symbol != "EUR/USD" || !q.Price.Equal(decimal.RequireFromString("1.0875")) {
		t.Errorf("unexpected quote: %+v", q)
	}
}

func TestAlphaVantage_TopGainersLosers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"top_gainers": [{"ticker": "AAA", "price": "2.00", "change_percentage": "50%"}],
			"top_losers": [{"ticker": "ZZZ", "price": "1.00", "change_percentage": "-40%"}]
		}`))
	}))
	defer server.Close()

	list, err := NewAlphaVantage(server.URL, "k").TopGainersLosers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Gainers) != 1 || len(list.Losers) != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list.Losers[0].Symbol != "ZZZ" || !list.Losers[0].ChangePercent.Equal(decimal.NewFromInt(-40)) {
		t.Errorf("unexpected loser: %+v", list.Losers[0])
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer empty.Close()
	if _, err := NewAlphaVantage(empty.URL, "k").TopGainersLosers(context.Background()); !errors.Is(err, ErrNoData) {
		t.Errorf("empty movers error = %v, want ErrNoData", err)
	}
}

func TestFinnhub_Quote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" || r.URL.Query().Get("token") != "fh-key" {
			t.Errorf("unexpected request: %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		if r.URL.Query().Get("symbol") == "UNKNOWN" {
			w.Write([]byte(`{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`))
			return
		}
		w.Write([]byte(`{"c":50.5,"d":0.5,"dp":1,"h":51,"l":49,"o":50,"pc":50,"t":1700000000}`))
	}))
	defer server.Close()

	fh := NewFinnhub(server.URL, "fh-key")
	q, err := fh.Quote(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.ChangePercent.Equal(decimal.NewFromInt(1)) {
		t.Errorf("ChangePercent = %s, want 1", q.ChangePercent)
	}

	if _, err := fh.Quote(context.Background(), "UNKNOWN"); !errors.Is(err, ErrNoData) {
		t.Errorf("unknown symbol error = %v, want ErrNoData", err)
	}
}

func TestFinnhub_MarketNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("category") != "general" {
			t.Errorf("category = %q, want general", r.URL.Query().Get("category"))
		}
		w.Write([]byte("["))
		for i := 0; i < 15; i++ {
			if i > 0 {
				w.Write([]byte(","))
			}
			fmt.Fprintf(w, `{"id":%d,"headline":"h%d","summary":"s","source":"CNBC","datetime":1700000000,"category":"top news"}`, i, i)
		}
		w.Write([]byte("]"))
	}))
	defer server.Close()

	items, err := NewFinnhub(server.URL, "k").MarketNews(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != maxNewsItems {
		t.Errorf("len = %d, want %d", len(items), maxNewsItems)
	}
	if items[0].Title != "h0" {
		t.Errorf("first title = %q", items[0].Title)
	}
}

func TestFinnhub_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewFinnhub(server.URL, "k").Quote(context.Background(), "SPY")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("error = %v, want 429 APIError", err)
	}
}
