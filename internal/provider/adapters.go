package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/rickgao/market-pulse/internal/api"
	"github.com/rickgao/market-pulse/internal/model"
)

// Chain aliases for the data kinds the aggregator fetches.
type (
	QuoteChain   = Chain[model.Instrument, model.Quote]
	NewsChain    = Chain[NewsRequest, []model.NewsItem]
	RankingChain = Chain[RankingsRequest, model.RankingList]

	QuoteFetcher   = Fetcher[model.Instrument, model.Quote]
	NewsFetcher    = Fetcher[NewsRequest, []model.NewsItem]
	RankingFetcher = Fetcher[RankingsRequest, model.RankingList]
)

// NewsRequest selects headlines.
type NewsRequest struct {
	Category string
	Limit    int
}

// RankingsRequest selects movers.
type RankingsRequest struct {
	Limit int
}

// GlobalQuoter is satisfied by *api.AlphaVantage.
type GlobalQuoter interface {
	GlobalQuote(ctx context.Context, symbol string) (model.Quote, error)
}

// ExchangeRater is satisfied by *api.AlphaVantage.
type ExchangeRater interface {
	CurrencyExchangeRate(ctx context.Context, from, to string) (model.Quote, error)
}

// MoversSource is satisfied by *api.AlphaVantage.
type MoversSource interface {
	TopGainersLosers(ctx context.Context) (model.RankingList, error)
}

// Quoter is satisfied by *api.Finnhub.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (model.Quote, error)
}

// NewsSource is satisfied by *api.Finnhub.
type NewsSource interface {
	MarketNews(ctx context.Context, category string) ([]model.NewsItem, error)
}

func unavailable(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err)
}

// -----------------------------------------------------------------------------
// Quotes
// -----------------------------------------------------------------------------

// AlphaVantageQuotes fetches index quotes via GLOBAL_QUOTE.
type AlphaVantageQuotes struct {
	Client GlobalQuoter
}

func (AlphaVantageQuotes) Name() string { return api.SourceAlphaVantage }

func (a AlphaVantageQuotes) Fetch(ctx context.Context, inst model.Instrument) (model.Quote, error) {
	q, err := a.Client.GlobalQuote(ctx, inst.SymbolFor(api.SourceAlphaVantage))
	if err != nil {
		return model.Quote{}, unavailable(api.SourceAlphaVantage, err)
	}
	return q, nil
}

// FinnhubQuotes fetches index quotes via /quote.
type FinnhubQuotes struct {
	Client Quoter
}

func (FinnhubQuotes) Name() string { return api.SourceFinnhub }

func (f FinnhubQuotes) Fetch(ctx context.Context, inst model.Instrument) (model.Quote, error) {
	q, err := f.Client.Quote(ctx, inst.SymbolFor(api.SourceFinnhub))
	if err != nil {
		return model.Quote{}, unavailable(api.SourceFinnhub, err)
	}
	return q, nil
}

// AlphaVantageFX fetches currency pairs via CURRENCY_EXCHANGE_RATE. The
// instrument symbol must be written "FROM/TO".
type AlphaVantageFX struct {
	Client ExchangeRater
}

func (AlphaVantageFX) Name() string { return api.SourceAlphaVantage }

func (a AlphaVantageFX) Fetch(ctx context.Context, inst model.Instrument) (model.Quote, error) {
	from, to, ok := strings.Cut(inst.SymbolFor(api.SourceAlphaVantage), "/")
	if !ok || from == "" || to == "" {
		return model.Quote{}, unavailable(api.SourceAlphaVantage, fmt.Errorf("instrument %s: symbol is not a currency pair", inst.ID))
	}
	q, err := a.Client.CurrencyExchangeRate(ctx, from, to)
	if err != nil {
		return model.Quote{}, unavailable(api.SourceAlphaVantage, err)
	}
	return q, nil
}

// -----------------------------------------------------------------------------
// News and rankings
// -----------------------------------------------------------------------------

// FinnhubNews fetches headlines via /news.
type FinnhubNews struct {
	Client NewsSource
}

func (FinnhubNews) Name() string { return api.SourceFinnhub }

func (f FinnhubNews) Fetch(ctx context.Context, req NewsRequest) ([]model.NewsItem, error) {
	items, err := f.Client.MarketNews(ctx, req.Category)
	if err != nil {
		return nil, unavailable(api.SourceFinnhub, err)
	}
	if req.Limit > 0 && len(items) > req.Limit {
		items = items[:req.Limit]
	}
	return items, nil
}

// AlphaVantageMovers fetches rankings via TOP_GAINERS_LOSERS.
type AlphaVantageMovers struct {
	Client MoversSource
}

func (AlphaVantageMovers) Name() string { return api.SourceAlphaVantage }

func (a AlphaVantageMovers) Fetch(ctx context.Context, req RankingsRequest) (model.RankingList, error) {
	list, err := a.Client.TopGainersLosers(ctx)
	if err != nil {
		return model.RankingList{}, unavailable(api.SourceAlphaVantage, err)
	}
	return list.Normalize(req.Limit), nil
}
