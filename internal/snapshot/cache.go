// Package snapshot holds the current market snapshot.
package snapshot

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
)

// ErrNotReady is returned by Read before the first publication.
var ErrNotReady = errors.New("market data not yet available")

// Cache holds one snapshot reference. Publish swaps the reference in a single
// atomic store, so readers see either the previous or the new snapshot.
// Published snapshots must not be modified.
type Cache struct {
	current atomic.Pointer[model.Snapshot]
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for staleness.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read returns the current snapshot.
func (c *Cache) Read() (*model.Snapshot, error) {
	s := c.current.Load()
	if s == nil {
		return nil, ErrNotReady
	}
	return s, nil
}

// Publish replaces the current snapshot. A nil snapshot is ignored.
func (c *Cache) Publish(s *model.Snapshot) {
	if s == nil {
		return
	}
	c.current.Store(s)
}

// IsStale reports whether the current snapshot is older than maxAge. An empty
// cache is always stale.
func (c *Cache) IsStale(maxAge time.Duration) bool {
	s := c.current.Load()
	if s == nil {
		return true
	}
	return s.Age(c.now()) > maxAge
}

// Age returns the age of the current snapshot, or false if there is none.
func (c *Cache) Age() (time.Duration, bool) {
	s := c.current.Load()
	if s == nil {
		return 0, false
	}
	return s.Age(c.now()), true
}
