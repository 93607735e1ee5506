package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
)

// DefaultAlphaVantageURL is the production query endpoint base.
const DefaultAlphaVantageURL = "https://www.alphavantage.co"

// AlphaVantage wraps the Alpha Vantage query API.
type AlphaVantage struct {
	c   *Client
	now func() time.Time
}

// NewAlphaVantage creates an Alpha Vantage client. An empty baseURL selects
// the production endpoint.
func NewAlphaVantage(baseURL, apiKey string, opts ...ClientOption) *AlphaVantage {
	if baseURL == "" {
		baseURL = DefaultAlphaVantageURL
	}
	opts = append([]ClientOption{WithAuthParam("apikey")}, opts...)
	return &AlphaVantage{
		c:   NewClient(baseURL, apiKey, opts...),
		now: time.Now,
	}
}

// GlobalQuote fetches the latest quote for symbol.
func (a *AlphaVantage) GlobalQuote(ctx context.Context, symbol string) (model.Quote, error) {
	var resp GlobalQuoteResponse
	if err := a.query(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}}, &resp, &resp.avNotice); err != nil {
		return model.Quote{}, fmt.Errorf("global quote %s: %w", symbol, err)
	}
	q, err := QuoteFromGlobal(resp.Quote, a.now())
	if err != nil {
		return model.Quote{}, fmt.Errorf("global quote %s: %w", symbol, err)
	}
	return q, nil
}

// CurrencyExchangeRate fetches the realtime rate for from/to.
func (a *AlphaVantage) CurrencyExchangeRate(ctx context.Context, from, to string) (model.Quote, error) {
	var resp ExchangeRateResponse
	query := url.Values{
		"function":      {"CURRENCY_EXCHANGE_RATE"},
		"from_currency": {from},
		"to_currency":   {to},
	}
	if err := a.query(ctx, query, &resp, &resp.avNotice); err != nil {
		return model.Quote{}, fmt.Errorf("exchange rate %s/%s: %w", from, to, err)
	}
	q, err := QuoteFromExchangeRate(resp.Rate, a.now())
	if err != nil {
		return model.Quote{}, fmt.Errorf("exchange rate %s/%s: %w", from, to, err)
	}
	return q, nil
}

// TopGainersLosers fetches the session's top movers in provider order.
func (a *AlphaVantage) TopGainersLosers(ctx context.Context) (model.RankingList, error) {
	var resp MoversResponse
	if err := a.query(ctx, url.Values{"function": {"TOP_GAINERS_LOSERS"}}, &resp, &resp.avNotice); err != nil {
		return model.RankingList{}, fmt.Errorf("top gainers losers: %w", err)
	}
	if len(resp.TopGainers) == 0 && len(resp.TopLosers) == 0 {
		return model.RankingList{}, fmt.Errorf("top gainers losers: %w", ErrNoData)
	}

	var list model.RankingList
	for _, m := range resp.TopGainers {
		e, err := RankingFromMover(m)
		if err != nil {
			return model.RankingList{}, fmt.Errorf("gainer %s: %w", m.Ticker, err)
		}
		list.Gainers = append(list.Gainers, e)
	}
	for _, m := range resp.TopLosers {
		e, err := RankingFromMover(m)
		if err != nil {
			return model.RankingList{}, fmt.Errorf("loser %s: %w", m.Ticker, err)
		}
		list.Losers = append(list.Losers, e)
	}
	return list, nil
}

func (a *AlphaVantage) query(ctx context.Context, query url.Values, result any, notice *avNotice) error {
	if err := a.c.get(ctx, "/query", query, result); err != nil {
		return err
	}
	switch {
	case notice.ErrorMessage != "":
		return fmt.Errorf("%w: %s", ErrNoData, notice.ErrorMessage)
	case notice.Note != "":
		return fmt.Errorf("%w: %s", ErrThrottled, notice.Note)
	case notice.Information != "":
		return fmt.Errorf("%w: %s", ErrThrottled, notice.Information)
	}
	return nil
}
