package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindow is a Limiter whose counters live in Redis, so several service
// instances can share one upstream quota. Windows are aligned to the epoch
// (window index = now / Window) rather than reset lazily; the fixed-window
// contract is otherwise the same as FixedWindow.
//
// Any Redis error denies the call.
type RedisWindow struct {
	client  redis.Cmdable
	prefix  string
	budgets map[string]Budget
	def     Budget
	now     func() time.Time
	logger  *slog.Logger
}

// RedisOption configures a RedisWindow.
type RedisOption func(*RedisWindow)

// WithRedisDefault applies budget to keys without an explicit budget.
func WithRedisDefault(b Budget) RedisOption {
	return func(r *RedisWindow) {
		r.def = b
	}
}

// WithRedisClock overrides the time source.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(r *RedisWindow) {
		r.now = now
	}
}

// WithRedisLogger sets the logger.
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(r *RedisWindow) {
		r.logger = logger
	}
}

// NewRedisWindow creates a Redis-backed limiter. Keys are stored under prefix.
func NewRedisWindow(client redis.Cmdable, prefix string, budgets map[string]Budget, opts ...RedisOption) *RedisWindow {
	r := &RedisWindow{
		client:  client,
		prefix:  prefix,
		budgets: make(map[string]Budget, len(budgets)),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for k, b := range budgets {
		r.budgets[k] = b
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TryConsume implements Limiter.
func (r *RedisWindow) TryConsume(ctx context.Context, key string) bool {
	b, ok := r.budgets[key]
	if !ok {
		b = r.def
	}
	if b.Unlimited() {
		return true
	}

	rkey := r.windowKey(key, b)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, rkey)
		pipe.PExpire(ctx, rkey, b.Window)
		return nil
	})
	if err != nil {
		r.logger.Warn("rate budget unavailable, denying call",
			"key", key,
			"err", err,
		)
		return false
	}

	// Denied attempts still increment; the counter only ever overshoots on denials.
	return incr.Val() <= int64(b.MaxCalls)
}

func (r *RedisWindow) windowKey(key string, b Budget) string {
	ms := b.Window.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	idx := r.now().UnixMilli() / ms
	return fmt.Sprintf("%s%s:%s", r.prefix, key, strconv.FormatInt(idx, 10))
}
