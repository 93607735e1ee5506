// Package provider orders upstream data sources by preference and falls back
// across them.
//
// A Chain tries each Fetcher in turn, skipping those whose rate budget is
// spent and abandoning those that fail or exceed their timeout. When every
// fetcher has been skipped or has failed, the chain's Fallback produces the
// result. Fetch therefore never fails.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rickgao/market-pulse/internal/ratelimit"
)

// DefaultTimeout bounds a single fetcher attempt.
const DefaultTimeout = 10 * time.Second

var (
	// ErrUnavailable wraps every recoverable upstream failure.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrRateLimited marks an attempt skipped because the budget was spent.
	ErrRateLimited = errors.New("rate budget exhausted")
)

// Fetcher is one upstream source for Resp values. Name doubles as the rate
// budget key, so fetchers backed by the same provider share its budget.
//
//go:generate mockgen -package=provider -destination=mock_fetcher_test.go -source=chain.go Fetcher
type Fetcher[Req, Resp any] interface {
	Name() string
	Fetch(ctx context.Context, req Req) (Resp, error)
}

// Fallback produces a result without I/O. It must not fail.
type Fallback[Req, Resp any] func(req Req) Resp

// Option configures a Chain.
type Option func(*options)

type options struct {
	limiter ratelimit.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

// WithLimiter sets the rate limiter consulted before each attempt.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithTimeout bounds each fetcher attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// counters track one fetcher's outcomes.
type counters struct {
	attempts  atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	denials   atomic.Int64
}

// Chain is an ordered list of fetchers with a terminal fallback.
type Chain[Req, Resp any] struct {
	name     string
	fetchers []Fetcher[Req, Resp]
	fallback Fallback[Req, Resp]
	limiter  ratelimit.Limiter
	timeout  time.Duration
	logger   *slog.Logger

	counters  []*counters
	fallbacks atomic.Int64
}

// NewChain creates a chain named name (used in logs and stats). Fetchers are
// tried in the given order.
func NewChain[Req, Resp any](name string, fallback Fallback[Req, Resp], fetchers []Fetcher[Req, Resp], opts ...Option) *Chain[Req, Resp] {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}

	c := &Chain[Req, Resp]{
		name:     name,
		fetchers: append([]Fetcher[Req, Resp](nil), fetchers...),
		fallback: fallback,
		limiter:  o.limiter,
		timeout:  o.timeout,
		logger:   o.logger.With("chain", name),
		counters: make([]*counters, len(fetchers)),
	}
	for i := range c.counters {
		c.counters[i] = &counters{}
	}
	return c
}

// Fetch returns the first successful fetcher result, or the fallback result.
// A cancelled ctx stops further upstream attempts and goes to the fallback.
func (c *Chain[Req, Resp]) Fetch(ctx context.Context, req Req) Resp {
	for i, f := range c.fetchers {
		if ctx.Err() != nil {
			break
		}

		cnt := c.counters[i]
		if c.limiter != nil && !c.limiter.TryConsume(ctx, f.Name()) {
			cnt.denials.Add(1)
			c.logger.Debug("skipping provider",
				"provider", f.Name(),
				"err", ErrRateLimited,
			)
			continue
		}

		cnt.attempts.Add(1)
		start := time.Now()
		resp, err := c.attempt(ctx, f, req)
		if err == nil {
			cnt.successes.Add(1)
			return resp
		}

		cnt.failures.Add(1)
		c.logger.Debug("provider failed",
			"provider", f.Name(),
			"duration", time.Since(start),
			"err", err,
		)
	}

	c.fallbacks.Add(1)
	return c.fallback(req)
}

// attempt runs one fetch under the chain timeout. The fetch runs in its own
// goroutine so a fetcher that ignores its context cannot hold the chain past
// the deadline.
func (c *Chain[Req, Resp]) attempt(ctx context.Context, f Fetcher[Req, Resp], req Req) (Resp, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		resp Resp
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %s panicked: %v", ErrUnavailable, f.Name(), r)}
			}
		}()
		resp, err := f.Fetch(ctx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && !errors.Is(r.err, ErrUnavailable) {
			r.err = fmt.Errorf("%w: %s: %w", ErrUnavailable, f.Name(), r.err)
		}
		return r.resp, r.err
	case <-ctx.Done():
		var zero Resp
		return zero, fmt.Errorf("%w: %s: %w", ErrUnavailable, f.Name(), ctx.Err())
	}
}

// FetcherStats are cumulative outcome counts for one fetcher.
type FetcherStats struct {
	Name      string `json:"name"`
	Attempts  int64  `json:"attempts"`
	Successes int64  `json:"successes"`
	Failures  int64  `json:"failures"`
	Denials   int64  `json:"denials"`
}

// Stats summarizes a chain's lifetime outcomes.
type Stats struct {
	Chain     string         `json:"chain"`
	Fetchers  []FetcherStats `json:"fetchers"`
	Fallbacks int64          `json:"fallbacks"`
}

// Stats returns the chain's counters.
func (c *Chain[Req, Resp]) Stats() Stats {
	s := Stats{
		Chain:     c.name,
		Fetchers:  make([]FetcherStats, len(c.fetchers)),
		Fallbacks: c.fallbacks.Load(),
	}
	for i, f := range c.fetchers {
		cnt := c.counters[i]
		s.Fetchers[i] = FetcherStats{
			Name:      f.Name(),
			Attempts:  cnt.attempts.Load(),
			Successes: cnt.successes.Load(),
			Failures:  cnt.failures.Load(),
			Denials:   cnt.denials.Load(),
		}
	}
	return s
}
