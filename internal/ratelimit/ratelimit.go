// Package ratelimit implements fixed-window call budgets.
//
// Each key (an upstream provider name, or a client address for inbound HTTP)
// owns a budget of MaxCalls per Window. Windows reset lazily on the first
// consumption attempt after they expire; there is no background timer. Bursts
// straddling a window boundary are accepted.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a call against key may proceed. It never blocks;
// a denied caller is expected to fall back immediately.
type Limiter interface {
	TryConsume(ctx context.Context, key string) bool
}

// Budget is a fixed-window allowance.
type Budget struct {
	MaxCalls int
	Window   time.Duration
}

// Unlimited reports whether the budget places no restriction on calls.
func (b Budget) Unlimited() bool {
	return b.MaxCalls <= 0 || b.Window <= 0
}

// sweepThreshold bounds the number of idle per-key windows kept in memory.
const sweepThreshold = 4096

// window is the mutable counter for one key.
type window struct {
	mu      sync.Mutex
	budget  Budget
	count   int
	resetAt time.Time
}

// consume applies the lazy reset and then tries to take one call.
func (w *window) consume(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(w.budget.Window)
	}
	if w.count >= w.budget.MaxCalls {
		return false
	}
	w.count++
	return true
}

func (w *window) expired(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.After(w.resetAt)
}

// WindowState is a point-in-time view of one key's counter.
type WindowState struct {
	Count   int
	Max     int
	ResetAt time.Time
}

// FixedWindow is an in-process Limiter. Keys are independent: each has its
// own lock, so concurrent attempts against different keys never contend while
// attempts against the same key are serialized.
type FixedWindow struct {
	budgets map[string]Budget
	def     Budget
	now     func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithDefault applies budget to keys without an explicit budget. Without it,
// such keys are unlimited.
func WithDefault(b Budget) Option {
	return func(f *FixedWindow) {
		f.def = b
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) {
		f.now = now
	}
}

// NewFixedWindow creates a limiter with per-key budgets.
func NewFixedWindow(budgets map[string]Budget, opts ...Option) *FixedWindow {
	f := &FixedWindow{
		budgets: make(map[string]Budget, len(budgets)),
		now:     time.Now,
		windows: make(map[string]*window),
	}
	for k, b := range budgets {
		f.budgets[k] = b
	}
	for _, opt := range opts {
		opt(f)
	}

	// First windows start at construction time, as if each budget had just been reset.
	start := f.now()
	for k, b := range f.budgets {
		if b.Unlimited() {
			continue
		}
		f.windows[k] = &window{budget: b, resetAt: start.Add(b.Window)}
	}
	return f
}

// TryConsume implements Limiter.
func (f *FixedWindow) TryConsume(_ context.Context, key string) bool {
	w := f.windowFor(key)
	if w == nil {
		return true
	}
	return w.consume(f.now())
}

// State returns the counter for key, if the key is budgeted.
func (f *FixedWindow) State(key string) (WindowState, bool) {
	f.mu.Lock()
	w, ok := f.windows[key]
	f.mu.Unlock()
	if !ok {
		return WindowState{}, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return WindowState{Count: w.count, Max: w.budget.MaxCalls, ResetAt: w.resetAt}, true
}

func (f *FixedWindow) windowFor(key string) *window {
	f.mu.Lock()
	defer f.mu.Unlock()

	if w, ok := f.windows[key]; ok {
		return w
	}

	b, ok := f.budgets[key]
	if !ok {
		b = f.def
	}
	if b.Unlimited() {
		return nil
	}

	if len(f.windows) >= sweepThreshold {
		f.sweepLocked()
	}

	// A zero resetAt makes the first consume open a fresh window.
	w := &window{budget: b}
	f.windows[key] = w
	return w
}

// sweepLocked drops expired windows of keys without an explicit budget.
// Must be called with f.mu held.
func (f *FixedWindow) sweepLocked() {
	now := f.now()
	for k, w := range f.windows {
		if _, explicit := f.budgets[k]; explicit {
			continue
		}
		if w.expired(now) {
			delete(f.windows, k)
		}
	}
}
