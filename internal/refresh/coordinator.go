// Package refresh decides when aggregation passes run.
//
// The Coordinator guarantees at most one pass at a time: requests that arrive
// while a pass is in flight wait for that pass instead of starting another.
// The Scheduler triggers passes on a business-hours-aware cadence.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
)

// State is the coordinator's refresh state.
type State int

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Runner performs one aggregation pass. It must always return a snapshot.
type Runner interface {
	Run(ctx context.Context) *model.Snapshot
}

// Store is the snapshot cache.
type Store interface {
	Read() (*model.Snapshot, error)
	IsStale(maxAge time.Duration) bool
	Publish(s *model.Snapshot)
}

// Broadcaster receives every published snapshot.
type Broadcaster interface {
	Publish(s *model.Snapshot)
}

// pass is one in-flight aggregation.
type pass struct {
	done    chan struct{}
	snap    *model.Snapshot
	waiters int // callers attached, guarded by Coordinator.mu
}

// Coordinator serializes aggregation passes.
type Coordinator struct {
	runner Runner
	store  Store
	hub    Broadcaster
	base   context.Context
	logger *slog.Logger

	mu       sync.Mutex
	inflight *pass

	passes atomic.Int64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBroadcaster sets the receiver notified after every publish.
func WithBroadcaster(b Broadcaster) Option {
	return func(c *Coordinator) {
		c.hub = b
	}
}

// WithBaseContext sets the context passes run under. Cancelling it makes
// in-flight fetches fall back to synthetic data; it does not stop a pass from
// publishing.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Coordinator) {
		c.base = ctx
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a Coordinator in the Idle state.
func NewCoordinator(runner Runner, store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		runner: runner,
		store:  store,
		base:   context.Background(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// ForceRefresh runs a pass, or joins the one already in flight, and returns
// its snapshot. Cancelling ctx stops the wait, not the pass.
func (c *Coordinator) ForceRefresh(ctx context.Context) (*model.Snapshot, error) {
	c.mu.Lock()
	p := c.joinLocked()
	c.mu.Unlock()

	return c.wait(ctx, p)
}

// EnsureFresh returns the cached snapshot if it is at most maxAge old, and
// otherwise behaves like ForceRefresh.
func (c *Coordinator) EnsureFresh(ctx context.Context, maxAge time.Duration) (*model.Snapshot, error) {
	c.mu.Lock()
	if c.inflight == nil && !c.store.IsStale(maxAge) {
		c.mu.Unlock()
		return c.store.Read()
	}
	p := c.joinLocked()
	c.mu.Unlock()

	return c.wait(ctx, p)
}

// State reports whether a pass is in flight.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight != nil {
		return Refreshing
	}
	return Idle
}

// Passes returns the number of passes that published a snapshot.
func (c *Coordinator) Passes() int64 {
	return c.passes.Load()
}

// joinLocked attaches the caller to the in-flight pass, opening one if the
// coordinator is Idle. Must be called with c.mu held.
func (c *Coordinator) joinLocked() *pass {
	p := c.inflight
	if p == nil {
		p = &pass{done: make(chan struct{})}
		c.inflight = p
		go c.run(p)
	}
	p.waiters++
	return p
}

func (c *Coordinator) run(p *pass) {
	start := time.Now()
	snap := c.aggregate()

	// Publishing under the lock means a caller that sees Idle also sees the
	// new snapshot.
	c.mu.Lock()
	c.store.Publish(snap)
	p.snap = snap
	c.inflight = nil
	waiters := p.waiters
	c.mu.Unlock()

	if snap != nil {
		c.passes.Add(1)
	}
	close(p.done)

	if snap == nil {
		return
	}
	c.logger.Debug("snapshot published",
		"snapshot", snap.ID,
		"requests", waiters,
		"duration", time.Since(start),
	)
	if c.hub != nil {
		c.hub.Publish(snap)
	}
}

// aggregate runs the pass, turning a panic into a nil snapshot so the
// previous snapshot stays published.
func (c *Coordinator) aggregate() (snap *model.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("aggregation pass panicked", "panic", r)
			snap = nil
		}
	}()
	return c.runner.Run(c.base)
}

func (c *Coordinator) wait(ctx context.Context, p *pass) (*model.Snapshot, error) {
	select {
	case <-p.done:
		if p.snap != nil {
			return p.snap, nil
		}
		// The pass failed; serve whatever was published before it.
		return c.store.Read()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
