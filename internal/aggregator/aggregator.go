// Package aggregator assembles complete market snapshots.
//
// One pass fans out a quote fetch per tracked index and currency pair plus a
// news fetch and a rankings fetch, waits for all of them and builds a single
// Snapshot. Every fetch goes through a provider chain that ends in synthetic
// data, so a pass always produces a complete snapshot.
package aggregator

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/market-pulse/internal/catalog"
	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/provider"
	"github.com/rickgao/market-pulse/internal/synthetic"
)

// Display defaults.
const (
	DefaultNewsLimit     = 8
	DefaultRankingsLimit = 8
	DefaultConcurrency   = 8
)

// QuoteSource fetches one instrument's quote. It never fails.
type QuoteSource interface {
	Fetch(ctx context.Context, inst model.Instrument) model.Quote
}

// NewsSource fetches headlines. It never fails.
type NewsSource interface {
	Fetch(ctx context.Context, req provider.NewsRequest) []model.NewsItem
}

// RankingSource fetches movers. It never fails.
type RankingSource interface {
	Fetch(ctx context.Context, req provider.RankingsRequest) model.RankingList
}

// Sources are the chains an Aggregator draws from.
type Sources struct {
	Indices    QuoteSource
	Currencies QuoteSource
	News       NewsSource
	Rankings   RankingSource
}

// SourcesFromSet adapts a provider set.
func SourcesFromSet(s *provider.Set) Sources {
	return Sources{
		Indices:    s.Quotes,
		Currencies: s.FX,
		News:       s.News,
		Rankings:   s.Rankings,
	}
}

// Config controls pass shape.
type Config struct {
	NewsLimit     int
	NewsCategory  string
	RankingsLimit int
	Concurrency   int // maximum in-flight fetches; <= 0 means unbounded
}

// Aggregator runs aggregation passes.
type Aggregator struct {
	catalog *catalog.Catalog
	sources Sources
	cfg     Config
	now     func() time.Time
	logger  *slog.Logger

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
	lastMs  uint64 // guarded by idMu
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// New creates an Aggregator.
func New(cat *catalog.Catalog, sources Sources, cfg Config, opts ...Option) *Aggregator {
	if cfg.NewsLimit == 0 {
		cfg.NewsLimit = DefaultNewsLimit
	}
	if cfg.RankingsLimit == 0 {
		cfg.RankingsLimit = DefaultRankingsLimit
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	a := &Aggregator{
		catalog: cat,
		sources: sources,
		cfg:     cfg,
		now:     time.Now,
		logger:  slog.Default(),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Run performs one aggregation pass.
func (a *Aggregator) Run(ctx context.Context) *model.Snapshot {
	start := time.Now()
	indices := a.catalog.Indices()
	currencies := a.catalog.Currencies()

	indexQuotes := make([]model.Quote, len(indices))
	currencyQuotes := make([]model.Quote, len(currencies))
	var (
		news     []model.NewsItem
		rankings model.RankingList
	)

	var g errgroup.Group
	if a.cfg.Concurrency > 0 {
		g.SetLimit(a.cfg.Concurrency)
	}

	g.Go(func() error {
		news = a.sources.News.Fetch(ctx, provider.NewsRequest{
			Category: a.cfg.NewsCategory,
			Limit:    a.cfg.NewsLimit,
		})
		return nil
	})
	g.Go(func() error {
		rankings = a.sources.Rankings.Fetch(ctx, provider.RankingsRequest{Limit: a.cfg.RankingsLimit})
		return nil
	})
	for i, inst := range indices {
		g.Go(func() error {
			indexQuotes[i] = a.sources.Indices.Fetch(ctx, inst)
			return nil
		})
	}
	for i, inst := range currencies {
		g.Go(func() error {
			currencyQuotes[i] = a.sources.Currencies.Fetch(ctx, inst)
			return nil
		})
	}
	// Fetches never return errors.
	_ = g.Wait()

	snap := &model.Snapshot{
		ID:         a.newID(),
		Indices:    make(map[string]model.Quote, len(indices)),
		Currencies: make(map[string]model.Quote, len(currencies)),
		News:       capNews(news, a.cfg.NewsLimit),
		Rankings:   rankings.Normalize(a.cfg.RankingsLimit),
		LastUpdate: a.now().UTC(),
	}
	synth := 0
	for i, inst := range indices {
		snap.Indices[inst.ID] = indexQuotes[i]
		if indexQuotes[i].Source == synthetic.Source {
			synth++
		}
	}
	for i, inst := range currencies {
		snap.Currencies[inst.ID] = currencyQuotes[i]
		if currencyQuotes[i].Source == synthetic.Source {
			synth++
		}
	}

	a.logger.Info("aggregation pass complete",
		"snapshot", snap.ID,
		"indices", len(snap.Indices),
		"currencies", len(snap.Currencies),
		"news", len(snap.News),
		"synthetic_quotes", synth,
		"duration", time.Since(start),
	)
	return snap
}

// newID returns a ULID greater than every ID issued before it. The timestamp
// never moves backwards, even when the wall clock does.
func (a *Aggregator) newID() string {
	a.idMu.Lock()
	defer a.idMu.Unlock()

	ms := max(ulid.Timestamp(a.now()), a.lastMs)
	id, err := ulid.New(ms, a.entropy)
	if err != nil {
		// Entropy exhausted within this millisecond; move to the next one.
		ms++
		id = ulid.MustNew(ms, a.entropy)
	}
	a.lastMs = ms
	return id.String()
}

func capNews(items []model.NewsItem, limit int) []model.NewsItem {
	if items == nil {
		return []model.NewsItem{}
	}
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
