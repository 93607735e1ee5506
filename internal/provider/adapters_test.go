package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/market-pulse/internal/api"
	"github.com/rickgao/market-pulse/internal/catalog"
	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/synthetic"
)

type stubAV struct {
	from, to string
	err      error
}

func (s *stubAV) CurrencyExchangeRate(_ context.Context, from, to string) (model.Quote, error) {
	s.from, s.to = from, to
	if s.err != nil {
		return model.Quote{}, s.err
	}
	return model.Quote{Symbol: from + "/" + to, Price: decimal.NewFromInt(5)}, nil
}

func (s *stubAV) TopGainersLosers(context.Context) (model.RankingList, error) {
	entries := make([]model.RankingEntry, 12)
	for i := range entries {
		entries[i] = model.RankingEntry{ChangePercent: decimal.NewFromInt(int64(i + 1))}
	}
	return model.RankingList{Gainers: entries}, nil
}

type stubNews struct{}

func (stubNews) MarketNews(_ context.Context, category string) ([]model.NewsItem, error) {
	if category == "down" {
		return nil, api.ErrNoData
	}
	return make([]model.NewsItem, 10), nil
}

func TestAlphaVantageFX(t *testing.T) {
	brl, ok := catalog.Default().Lookup("USDBRL")
	require.True(t, ok)

	stub := &stubAV{}
	q, err := AlphaVantageFX{Client: stub}.Fetch(context.Background(), brl)
	require.NoError(t, err)
	assert.Equal(t, "USD", stub.from)
	assert.Equal(t, "BRL", stub.to)
	assert.Equal(t, "USD/BRL", q.Symbol)

	_, err = AlphaVantageFX{Client: stub}.Fetch(context.Background(), model.Instrument{ID: "BAD", Symbol: "USDBRL"})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = AlphaVantageFX{Client: &stubAV{err: errors.New("down")}}.Fetch(context.Background(), brl)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFinnhubNews(t *testing.T) {
	items, err := FinnhubNews{Client: stubNews{}}.Fetch(context.Background(), NewsRequest{Limit: 8})
	require.NoError(t, err)
	assert.Len(t, items, 8)

	_, err = FinnhubNews{Client: stubNews{}}.Fetch(context.Background(), NewsRequest{Category: "down"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, api.ErrNoData)
}

func TestAlphaVantageMovers_Normalizes(t *testing.T) {
	list, err := AlphaVantageMovers{Client: &stubAV{}}.Fetch(context.Background(), RankingsRequest{Limit: 8})
	require.NoError(t, err)
	require.Len(t, list.Gainers, 8)
	assert.True(t, list.Gainers[0].ChangePercent.Equal(decimal.NewFromInt(12)))
}

func TestNewSet(t *testing.T) {
	gen := synthetic.New()

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewSet([]string{"alphavantage", "bloomberg"}, Clients{}, gen)
		assert.Error(t, err)
	})

	t.Run("order respected", func(t *testing.T) {
		set, err := NewSet([]string{"finnhub", "alphavantage"}, Clients{
			AlphaVantage: api.NewAlphaVantage("http://127.0.0.1:1", "k"),
			Finnhub:      api.NewFinnhub("http://127.0.0.1:1", "k"),
		}, gen)
		require.NoError(t, err)

		quotes := set.Quotes.Stats()
		require.Len(t, quotes.Fetchers, 2)
		assert.Equal(t, "finnhub", quotes.Fetchers[0].Name)
		assert.Equal(t, "alphavantage", quotes.Fetchers[1].Name)
		assert.Len(t, set.News.Stats().Fetchers, 1)
		assert.Len(t, set.Rankings.Stats().Fetchers, 1)
		assert.Len(t, set.Stats(), 4)
	})

	t.Run("no clients means synthetic only", func(t *testing.T) {
		set, err := NewSet([]string{"alphavantage", "finnhub"}, Clients{}, gen)
		require.NoError(t, err)

		news := set.News.Fetch(context.Background(), NewsRequest{Limit: 3})
		assert.Len(t, news, 3)
		r := set.Rankings.Fetch(context.Background(), RankingsRequest{Limit: 8})
		assert.Len(t, r.Gainers, 8)
		assert.Equal(t, int64(1), set.News.Stats().Fallbacks)
	})
}
