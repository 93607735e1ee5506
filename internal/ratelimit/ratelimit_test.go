package ratelimit

import (
	"context"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestFixedWindow_BudgetAndReset(t *testing.T) {
	clock := newFakeClock()
	l := NewFixedWindow(map[string]Budget{
		"alphavantage": {MaxCalls: 5, Window: time.Minute},
	}, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.True(t, l.TryConsume(ctx, "alphavantage"), "call %d should be permitted", i+1)
	}
	assert.False(t, l.TryConsume(ctx, "alphavantage"), "sixth call in window must be denied")

	// Exactly at the reset instant the window is still current.
	clock.Advance(time.Minute)
	assert.False(t, l.TryConsume(ctx, "alphavantage"))

	clock.Advance(time.Millisecond)
	assert.True(t, l.TryConsume(ctx, "alphavantage"), "window past reset time starts over")

	st, ok := l.State("alphavantage")
	require.True(t, ok)
	assert.Equal(t, 1, st.Count)
	assert.Equal(t, 5, st.Max)
	assert.Equal(t, clock.Now().Add(time.Minute), st.ResetAt)
}

func TestFixedWindow_IndependentKeys(t *testing.T) {
	clock := newFakeClock()
	l := NewFixedWindow(map[string]Budget{
		"alphavantage": {MaxCalls: 1, Window: time.Minute},
		"finnhub":      {MaxCalls: 2, Window: time.Minute},
	}, WithClock(clock.Now))
	ctx := context.Background()

	assert.True(t, l.TryConsume(ctx, "alphavantage"))
	assert.False(t, l.TryConsume(ctx, "alphavantage"))
	assert.True(t, l.TryConsume(ctx, "finnhub"))
	assert.True(t, l.TryConsume(ctx, "finnhub"))
	assert.False(t, l.TryConsume(ctx, "finnhub"))
}

func TestFixedWindow_UnknownKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("unlimited without default", func(t *testing.T) {
		l := NewFixedWindow(nil)
		for i := 0; i < 1000; i++ {
			require.True(t, l.TryConsume(ctx, "anything"))
		}
		_, ok := l.State("anything")
		assert.False(t, ok)
	})

	t.Run("default budget per key", func(t *testing.T) {
		clock := newFakeClock()
		l := NewFixedWindow(nil, WithDefault(Budget{MaxCalls: 2, Window: time.Second}), WithClock(clock.Now))

		assert.True(t, l.TryConsume(ctx, "10.0.0.1"))
		assert.True(t, l.TryConsume(ctx, "10.0.0.1"))
		assert.False(t, l.TryConsume(ctx, "10.0.0.1"))
		assert.True(t, l.TryConsume(ctx, "10.0.0.2"), "other client has its own window")

		clock.Advance(2 * time.Second)
		assert.True(t, l.TryConsume(ctx, "10.0.0.1"))
	})
}

// TestFixedWindow_NeverExceedsMax drives random call sequences and checks that no
// window ever admits more than MaxCalls.
func TestFixedWindow_NeverExceedsMax(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7))
		clock := newFakeClock()
		budget := Budget{MaxCalls: 1 + rng.IntN(10), Window: time.Duration(1+rng.IntN(60)) * time.Second}
		l := NewFixedWindow(map[string]Budget{"p": budget}, WithClock(clock.Now))
		ctx := context.Background()

		var windowStart time.Time
		permitted := 0
		for i := 0; i < 500; i++ {
			clock.Advance(time.Duration(rng.IntN(3000)) * time.Millisecond)
			st, _ := l.State("p")
			before := st.ResetAt

			if l.TryConsume(ctx, "p") {
				st, _ = l.State("p")
				if !st.ResetAt.Equal(before) || windowStart.IsZero() {
					windowStart = st.ResetAt
					permitted = 0
				}
				permitted++
				require.LessOrEqual(t, permitted, budget.MaxCalls, "seed %d: window over budget", seed)
			}
		}
	}
}

func TestFixedWindow_ConcurrentSameKey(t *testing.T) {
	l := NewFixedWindow(map[string]Budget{"finnhub": {MaxCalls: 60, Window: time.Hour}})
	ctx := context.Background()

	var permitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if l.TryConsume(ctx, "finnhub") {
					permitted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(60), permitted.Load())
}

func TestFixedWindow_SweepsIdleDefaultKeys(t *testing.T) {
	clock := newFakeClock()
	l := NewFixedWindow(
		map[string]Budget{"finnhub": {MaxCalls: 1, Window: time.Second}},
		WithDefault(Budget{MaxCalls: 1, Window: time.Second}),
		WithClock(clock.Now),
	)
	ctx := context.Background()

	for i := 0; i < sweepThreshold; i++ {
		l.TryConsume(ctx, "client-"+time.Duration(i).String())
	}
	clock.Advance(2 * time.Second)
	l.TryConsume(ctx, "late-client")

	l.mu.Lock()
	n := len(l.windows)
	l.mu.Unlock()

	// finnhub (explicit) + late-client survive the sweep.
	assert.Equal(t, 2, n)
}

func TestRedisWindow(t *testing.T) {
	addr := os.Getenv("MARKET_PULSE_TEST_REDIS")
	if addr == "" {
		t.Skip("MARKET_PULSE_TEST_REDIS not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	prefix := "market-pulse-test:" + time.Now().Format("150405.000000") + ":"
	clock := newFakeClock()
	l := NewRedisWindow(client, prefix, map[string]Budget{
		"alphavantage": {MaxCalls: 3, Window: time.Minute},
	}, WithRedisClock(clock.Now))

	for i := 0; i < 3; i++ {
		require.True(t, l.TryConsume(ctx, "alphavantage"))
	}
	assert.False(t, l.TryConsume(ctx, "alphavantage"))
	assert.True(t, l.TryConsume(ctx, "unbudgeted"))

	clock.Advance(time.Minute)
	assert.True(t, l.TryConsume(ctx, "alphavantage"), "next aligned window has a fresh counter")
}

func TestRedisWindow_DeniesOnError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedisWindow(client, "test:", map[string]Budget{
		"finnhub": {MaxCalls: 60, Window: time.Minute},
	})

	assert.False(t, l.TryConsume(context.Background(), "finnhub"))
}
