package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
)

// DefaultFinnhubURL is the production REST base.
const DefaultFinnhubURL = "https://finnhub.io/api/v1"

// maxNewsItems caps how many headlines are converted per call.
const maxNewsItems = 10

// Finnhub wraps the Finnhub REST API.
type Finnhub struct {
	c   *Client
	now func() time.Time
}

// NewFinnhub creates a Finnhub client. An empty baseURL selects production.
func NewFinnhub(baseURL, apiKey string, opts ...ClientOption) *Finnhub {
	if baseURL == "" {
		baseURL = DefaultFinnhubURL
	}
	opts = append([]ClientOption{WithAuthParam("token")}, opts...)
	return &Finnhub{
		c:   NewClient(baseURL, apiKey, opts...),
		now: time.Now,
	}
}

// Quote fetches the latest quote for symbol.
func (f *Finnhub) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	var resp FinnhubQuote
	if err := f.c.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return model.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	q, err := QuoteFromFinnhub(symbol, resp, f.now())
	if err != nil {
		return model.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	return q, nil
}

// MarketNews fetches the latest headlines in category ("general", "forex",
// "crypto", "merger"). At most ten items are returned.
func (f *Finnhub) MarketNews(ctx context.Context, category string) ([]model.NewsItem, error) {
	if category == "" {
		category = "general"
	}

	var resp []FinnhubNews
	if err := f.c.get(ctx, "/news", url.Values{"category": {category}}, &resp); err != nil {
		return nil, fmt.Errorf("market news %s: %w", category, err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("market news %s: %w", category, ErrNoData)
	}

	if len(resp) > maxNewsItems {
		resp = resp[:maxNewsItems]
	}
	items := make([]model.NewsItem, 0, len(resp))
	for _, n := range resp {
		items = append(items, NewsFromFinnhub(n))
	}
	return items, nil
}
