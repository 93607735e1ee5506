package provider

import (
	"fmt"

	"github.com/rickgao/market-pulse/internal/api"
	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/synthetic"
)

// Clients holds the upstream clients. A nil client disables that provider.
type Clients struct {
	AlphaVantage *api.AlphaVantage
	Finnhub      *api.Finnhub
}

// Set bundles one chain per data kind, all sharing the same limiter and
// synthetic fallback.
type Set struct {
	Quotes   *QuoteChain
	FX       *QuoteChain
	News     *NewsChain
	Rankings *RankingChain
}

// NewSet builds the chains, adding each provider's fetchers in order.
func NewSet(order []string, clients Clients, gen *synthetic.Generator, opts ...Option) (*Set, error) {
	var (
		quotes   []QuoteFetcher
		fx       []QuoteFetcher
		news     []NewsFetcher
		rankings []RankingFetcher
	)

	for _, name := range order {
		switch name {
		case api.SourceAlphaVantage:
			if clients.AlphaVantage == nil {
				continue
			}
			quotes = append(quotes, AlphaVantageQuotes{Client: clients.AlphaVantage})
			fx = append(fx, AlphaVantageFX{Client: clients.AlphaVantage})
			rankings = append(rankings, AlphaVantageMovers{Client: clients.AlphaVantage})
		case api.SourceFinnhub:
			if clients.Finnhub == nil {
				continue
			}
			quotes = append(quotes, FinnhubQuotes{Client: clients.Finnhub})
			news = append(news, FinnhubNews{Client: clients.Finnhub})
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}

	return &Set{
		Quotes: NewChain[model.Instrument, model.Quote]("quotes", gen.Quote, quotes, opts...),
		FX:     NewChain[model.Instrument, model.Quote]("currencies", gen.Quote, fx, opts...),
		News: NewChain[NewsRequest, []model.NewsItem]("news", func(req NewsRequest) []model.NewsItem {
			return gen.News(req.Limit)
		}, news, opts...),
		Rankings: NewChain[RankingsRequest, model.RankingList]("rankings", func(req RankingsRequest) model.RankingList {
			return gen.Rankings(req.Limit)
		}, rankings, opts...),
	}, nil
}

// Stats returns the counters of every chain in the set.
func (s *Set) Stats() []Stats {
	return []Stats{s.Quotes.Stats(), s.FX.Stats(), s.News.Stats(), s.Rankings.Stats()}
}
