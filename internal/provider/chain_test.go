package provider

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rickgao/market-pulse/internal/catalog"
	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/ratelimit"
	"github.com/rickgao/market-pulse/internal/synthetic"
)

// funcFetcher adapts a function to Fetcher.
type funcFetcher[Req, Resp any] struct {
	name  string
	calls atomic.Int64
	fn    func(ctx context.Context, req Req) (Resp, error)
}

func (f *funcFetcher[Req, Resp]) Name() string { return f.name }

func (f *funcFetcher[Req, Resp]) Fetch(ctx context.Context, req Req) (Resp, error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}

func okQuote(source string) func(context.Context, model.Instrument) (model.Quote, error) {
	return func(_ context.Context, inst model.Instrument) (model.Quote, error) {
		return model.Quote{Symbol: inst.ID, Price: decimal.NewFromInt(1), Source: source}, nil
	}
}

func failQuote(context.Context, model.Instrument) (model.Quote, error) {
	return model.Quote{}, errors.New("boom")
}

func syntheticFallback(inst model.Instrument) model.Quote {
	return model.Quote{Symbol: inst.ID, Source: synthetic.Source}
}

func TestChain_FirstSuccessWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := NewMockFetcher[model.Instrument, model.Quote](ctrl)
	second := NewMockFetcher[model.Instrument, model.Quote](ctrl)

	first.EXPECT().Name().Return("alphavantage").AnyTimes()
	second.EXPECT().Name().Return("finnhub").AnyTimes()
	first.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(model.Quote{Symbol: "SP500", Source: "alphavantage"}, nil)
	second.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	c := NewChain[model.Instrument, model.Quote]("quotes", syntheticFallback,
		[]QuoteFetcher{first, second})

	q := c.Fetch(context.Background(), model.Instrument{ID: "SP500"})
	assert.Equal(t, "alphavantage", q.Source)

	st := c.Stats()
	assert.Equal(t, int64(1), st.Fetchers[0].Successes)
	assert.Equal(t, int64(0), st.Fetchers[1].Attempts)
	assert.Equal(t, int64(0), st.Fallbacks)
}

func TestChain_FailureFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := NewMockFetcher[model.Instrument, model.Quote](ctrl)
	second := NewMockFetcher[model.Instrument, model.Quote](ctrl)

	first.EXPECT().Name().Return("alphavantage").AnyTimes()
	second.EXPECT().Name().Return("finnhub").AnyTimes()
	first.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(model.Quote{}, errors.New("malformed payload"))
	second.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(model.Quote{Source: "finnhub"}, nil)

	c := NewChain[model.Instrument, model.Quote]("quotes", syntheticFallback,
		[]QuoteFetcher{first, second})

	q := c.Fetch(context.Background(), model.Instrument{ID: "DAX"})
	assert.Equal(t, "finnhub", q.Source)
	assert.Equal(t, int64(1), c.Stats().Fetchers[0].Failures)
}

// Every instrument yields a quote no matter how the providers behave.
func TestChain_Totality(t *testing.T) {
	behaviours := map[string]func(context.Context, model.Instrument) (model.Quote, error){
		"error": failQuote,
		"panic": func(context.Context, model.Instrument) (model.Quote, error) {
			panic("provider bug")
		},
		"hang": func(ctx context.Context, _ model.Instrument) (model.Quote, error) {
			<-ctx.Done()
			return model.Quote{}, ctx.Err()
		},
	}

	gen := synthetic.New(synthetic.WithSeed(1, 2))
	for name, fn := range behaviours {
		t.Run(name, func(t *testing.T) {
			c := NewChain[model.Instrument, model.Quote]("quotes", gen.Quote,
				[]QuoteFetcher{
					&funcFetcher[model.Instrument, model.Quote]{name: "alphavantage", fn: fn},
					&funcFetcher[model.Instrument, model.Quote]{name: "finnhub", fn: fn},
				},
				WithTimeout(20*time.Millisecond),
			)

			for _, inst := range catalog.Default().Indices() {
				q := c.Fetch(context.Background(), inst)
				require.Equal(t, synthetic.Source, q.Source)
				require.Equal(t, inst.ID, q.Symbol)
			}
			assert.Equal(t, int64(len(catalog.Default().Indices())), c.Stats().Fallbacks)
		})
	}
}

func TestChain_TimeoutIgnoringFetcher(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	stuck := &funcFetcher[model.Instrument, model.Quote]{
		name: "alphavantage",
		fn: func(context.Context, model.Instrument) (model.Quote, error) {
			<-release
			return model.Quote{Source: "late"}, nil
		},
	}
	c := NewChain[model.Instrument, model.Quote]("quotes", syntheticFallback,
		[]QuoteFetcher{stuck}, WithTimeout(30*time.Millisecond))

	start := time.Now()
	q := c.Fetch(context.Background(), model.Instrument{ID: "SP500"})

	assert.Equal(t, synthetic.Source, q.Source)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(1), c.Stats().Fetchers[0].Failures)
}

func TestChain_DeniedProviderSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	limited := NewMockFetcher[model.Instrument, model.Quote](ctrl)
	limited.EXPECT().Name().Return("alphavantage").AnyTimes()
	limited.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(0)

	backup := &funcFetcher[model.Instrument, model.Quote]{name: "finnhub", fn: okQuote("finnhub")}

	limiter := ratelimit.NewFixedWindow(map[string]ratelimit.Budget{
		"alphavantage": {MaxCalls: 1, Window: time.Hour},
	})
	require.True(t, limiter.TryConsume(context.Background(), "alphavantage"))

	c := NewChain[model.Instrument, model.Quote]("quotes", syntheticFallback,
		[]QuoteFetcher{limited, backup}, WithLimiter(limiter))

	q := c.Fetch(context.Background(), model.Instrument{ID: "NASDAQ"})
	assert.Equal(t, "finnhub", q.Source)
	assert.Equal(t, int64(1), c.Stats().Fetchers[0].Denials)
}

// Provider A's budget runs out partway through a pass; the rest of the pass
// moves on to B and then to the fallback without error.
func TestChain_BudgetExhaustedMidPass(t *testing.T) {
	a := &funcFetcher[model.Instrument, model.Quote]{name: "alphavantage", fn: okQuote("alphavantage")}
	b := &funcFetcher[model.Instrument, model.Quote]{name: "finnhub", fn: okQuote("finnhub")}

	limiter := ratelimit.NewFixedWindow(map[string]ratelimit.Budget{
		"alphavantage": {MaxCalls: 5, Window: time.Minute},
		"finnhub":      {MaxCalls: 10, Window: time.Minute},
	})
	c := NewChain[model.Instrument, model.Quote]("quotes", syntheticFallback,
		[]QuoteFetcher{a, b}, WithLimiter(limiter))

	sources := map[string]int{}
	for _, inst := range catalog.Default().Indices() {
		sources[c.Fetch(context.Background(), inst).Source]++
	}

	assert.Equal(t, 5, sources["alphavantage"])
	assert.Equal(t, 10, sources["finnhub"])
	assert.Equal(t, 19-15, sources[synthetic.Source])
	assert.Equal(t, int64(5), a.calls.Load())
	assert.Equal(t, int64(10), b.calls.Load())
}

func TestChain_CancelledContextSkipsUpstream(t *testing.T) {
	f := &funcFetcher[model.Instrument, model.Quote]{name: "finnhub", fn: okQuote("finnhub")}
	c := NewChain[model.Instrument, model.Quote]("quotes", syntheticFallback, []QuoteFetcher{f})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := c.Fetch(ctx, model.Instrument{ID: "DOW"})
	assert.Equal(t, synthetic.Source, q.Source)
	assert.Equal(t, int64(0), f.calls.Load())
}

func TestChain_AllFailSyntheticSP500(t *testing.T) {
	sp, ok := catalog.Default().Lookup("SP500")
	require.True(t, ok)

	gen := synthetic.New()
	c := NewChain[model.Instrument, model.Quote]("quotes", gen.Quote, []QuoteFetcher{
		&funcFetcher[model.Instrument, model.Quote]{name: "alphavantage", fn: failQuote},
		&funcFetcher[model.Instrument, model.Quote]{name: "finnhub", fn: failQuote},
	})

	q := c.Fetch(context.Background(), sp)

	bound := sp.Baseline.Mul(decimal.NewFromFloat(sp.Spread / 2))
	assert.Equal(t, "SP500", q.Symbol)
	assert.True(t, q.Price.Sub(sp.Baseline).Abs().LessThanOrEqual(bound))
	assert.True(t, q.ChangePercent.Equal(synthetic.PercentOf(q.Change, sp.Baseline)))
}

func TestErrorsWrapUnavailable(t *testing.T) {
	fetcher := &funcFetcher[model.Instrument, model.Quote]{name: "finnhub", fn: failQuote}
	c := NewChain[model.Instrument, model.Quote]("quotes", syntheticFallback, nil)

	_, err := c.attempt(context.Background(), fetcher, model.Instrument{})
	assert.ErrorIs(t, err, ErrUnavailable)
}
