// Package hub fans published snapshots out to connected subscribers.
//
// Delivery is concurrent and isolated: each subscriber gets its own deadline,
// a failing or panicking subscriber is logged and never affects the others,
// and a subscriber that reports ErrSubscriberClosed is removed.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
)

// DefaultDeliveryTimeout bounds a single delivery.
const DefaultDeliveryTimeout = 5 * time.Second

// ErrSubscriberClosed tells the hub to drop the subscriber.
var ErrSubscriberClosed = errors.New("subscriber closed")

// Subscriber receives snapshots. Deliver should return promptly; the hub
// cancels ctx at the delivery deadline and stops waiting for it.
//
// Deliveries to one subscriber are serialized and follow the order of Publish
// calls. The snapshot delivered on Connect is never newer than a later
// delivery: a publish that overlaps Connect is either delivered after the
// initial snapshot or skipped because the initial snapshot already covers it.
// A Deliver call abandoned at its deadline may still be running when the next
// one starts.
type Subscriber interface {
	ID() string
	Deliver(ctx context.Context, s *model.Snapshot) error
}

// Source provides the current snapshot for newly connected subscribers. A
// snapshot must be readable from the source before it is passed to Publish.
type Source interface {
	Read() (*model.Snapshot, error)
}

// Stats provides statistics about the hub.
type Stats struct {
	Subscribers int   `json:"subscribers"`
	Published   int64 `json:"published"`
	Delivered   int64 `json:"delivered"`
	Failed      int64 `json:"failed"`
}

// entry gives each registration an identity, so a stale delivery failure
// cannot remove a newer subscriber that reused the ID.
type entry struct {
	sub Subscriber

	mu  sync.Mutex // serializes deliveries to sub
	seq int64      // publish sequence of the newest snapshot handed to sub
}

// Hub is the registry of subscribers.
type Hub struct {
	source  Source
	timeout time.Duration
	logger  *slog.Logger

	mu   sync.RWMutex
	subs map[string]*entry

	published atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

// Option configures a Hub.
type Option func(*Hub)

// WithDeliveryTimeout bounds each delivery.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates a Hub. source may be nil, in which case new subscribers wait
// for the next publish.
func New(source Source, opts ...Option) *Hub {
	h := &Hub{
		source:  source,
		timeout: DefaultDeliveryTimeout,
		logger:  slog.Default(),
		subs:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect registers sub and immediately delivers the current snapshot, if
// any. Registering an ID twice replaces the earlier subscriber.
func (h *Hub) Connect(sub Subscriber) {
	e := &entry{sub: sub}
	// Publishes that see the entry wait here until the initial snapshot is out.
	e.mu.Lock()
	defer e.mu.Unlock()

	h.mu.Lock()
	h.subs[sub.ID()] = e
	n := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("subscriber connected", "subscriber", sub.ID(), "subscribers", n)

	if h.source == nil {
		return
	}
	// Every publish up to seq is already visible to Read.
	seq := h.published.Load()
	snap, err := h.source.Read()
	if err != nil {
		return
	}
	e.seq = seq
	h.send(e, snap)
}

// Disconnect removes the subscriber with the given ID.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	_, ok := h.subs[id]
	delete(h.subs, id)
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.logger.Debug("subscriber disconnected", "subscriber", id, "subscribers", n)
	}
}

// Publish delivers snap to every current subscriber and returns once every
// delivery has finished or timed out.
func (h *Hub) Publish(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	seq := h.published.Add(1)

	h.mu.RLock()
	entries := make([]*entry, 0, len(h.subs))
	for _, e := range h.subs {
		entries = append(entries, e)
	}
	h.mu.RUnlock()

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.deliver(e, seq, snap)
		}()
	}
	wg.Wait()
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Stats returns delivery counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Subscribers: h.Count(),
		Published:   h.published.Load(),
		Delivered:   h.delivered.Load(),
		Failed:      h.failed.Load(),
	}
}

// deliver hands the snapshot of publish seq to e unless e already has one at
// least as new.
func (h *Hub) deliver(e *entry, seq int64, snap *model.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq <= e.seq {
		return
	}
	e.seq = seq
	h.send(e, snap)
}

// send runs one delivery under the hub timeout. e.mu must be held.
func (h *Hub) send(e *entry, snap *model.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	err := attempt(ctx, e.sub, snap)
	if err == nil {
		h.delivered.Add(1)
		return
	}

	h.failed.Add(1)
	if errors.Is(err, ErrSubscriberClosed) {
		h.remove(e)
		return
	}
	h.logger.Warn("snapshot delivery failed",
		"subscriber", e.sub.ID(),
		"snapshot", snap.ID,
		"err", err,
	)
}

func (h *Hub) remove(e *entry) {
	id := e.sub.ID()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[id] == e {
		delete(h.subs, id)
	}
}

// attempt runs Deliver in its own goroutine so a subscriber that ignores its
// context cannot hold the hub past the deadline.
func attempt(ctx context.Context, sub Subscriber, snap *model.Snapshot) error {
	done := make(chan error, 1)
	go func() {
		done <- safeDeliver(ctx, sub, snap)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("delivery timed out: %w", ctx.Err())
	}
}

func safeDeliver(ctx context.Context, sub Subscriber, snap *model.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return sub.Deliver(ctx, snap)
}
