// Package synthetic produces plausible placeholder market data.
//
// It is the terminal fallback of every provider chain: nothing here performs
// I/O and nothing here can fail. Values are randomized but bounded around a
// known baseline; they are not market data.
package synthetic

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/market-pulse/internal/model"
)

// Source is the name stamped on generated quotes.
const Source = "synthetic"

const maxVolume = 1_000_000_000

var hundred = decimal.NewFromInt(100)

// Generator builds synthetic quotes, news, rankings and price histories.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed makes the generator deterministic.
func WithSeed(seed1, seed2 uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed1, seed2))
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a Generator seeded from the runtime's random source.
func New(opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// float returns a uniform value in [0, 1).
func (g *Generator) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

func (g *Generator) intN(n int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Int64N(n)
}

// centered returns a uniform value in [-0.5, 0.5).
func (g *Generator) centered() float64 {
	return g.float() - 0.5
}

// Quote perturbs the instrument's baseline by at most ±Spread/2 and derives
// change and percent change from that perturbation.
//
//	change        = round(u * baseline * spread, precision)   u in [-0.5, 0.5)
//	price         = baseline + change
//	changePercent = round(change / baseline * 100, 2)
func (g *Generator) Quote(inst model.Instrument) model.Quote {
	baseline := inst.Baseline
	if !baseline.IsPositive() {
		baseline = decimal.NewFromInt(1000)
	}
	precision := inst.Precision
	if precision <= 0 {
		precision = 2
	}
	spread := inst.Spread
	if spread <= 0 {
		spread = 0.05
	}

	change := baseline.Mul(decimal.NewFromFloat(g.centered() * spread)).Round(precision)

	var volume int64
	if inst.Category != model.CategoryCurrency {
		volume = g.intN(maxVolume)
	}

	symbol := inst.ID
	if inst.Category == model.CategoryCurrency && inst.Name != "" {
		symbol = inst.Name
	}

	return model.Quote{
		Symbol:        symbol,
		Price:         baseline.Add(change),
		Change:        change,
		ChangePercent: PercentOf(change, baseline),
		Volume:        volume,
		Timestamp:     g.now().UTC(),
		Source:        Source,
	}
}

// PercentOf returns change/base*100 rounded to two places.
func PercentOf(change, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return change.Div(base).Mul(hundred).Round(2)
}
