package snapshot

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/market-pulse/internal/model"
)

func TestCache_Empty(t *testing.T) {
	c := New()

	_, err := c.Read()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.True(t, c.IsStale(time.Hour))
	_, ok := c.Age()
	assert.False(t, ok)
}

func TestCache_PublishRead(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return now }))

	s := &model.Snapshot{ID: "a", LastUpdate: now.Add(-10 * time.Second)}
	c.Publish(s)

	got, err := c.Read()
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, s.LastUpdate, got.LastUpdate)

	assert.False(t, c.IsStale(30*time.Second))
	assert.True(t, c.IsStale(5*time.Second))
	age, ok := c.Age()
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, age)

	c.Publish(nil)
	got, _ = c.Read()
	assert.Same(t, s, got, "nil publish keeps the current snapshot")
}

// Readers racing a publisher always see a snapshot whose fields all come from
// the same pass.
func TestCache_ReadersNeverSeeMixedSnapshots(t *testing.T) {
	c := New()
	build := func(n int) *model.Snapshot {
		v := decimal.NewFromInt(int64(n))
		return &model.Snapshot{
			ID:         strconv.Itoa(n),
			Indices:    map[string]model.Quote{"SP500": {Price: v}},
			Currencies: map[string]model.Quote{"USDBRL": {Price: v}},
			LastUpdate: time.Unix(int64(n), 0),
		}
	}
	c.Publish(build(0))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s, err := c.Read()
				if err != nil {
					t.Error(err)
					return
				}
				n, _ := strconv.Atoi(s.ID)
				if s.LastUpdate.Unix() != int64(n) ||
					!s.Indices["SP500"].Price.Equal(decimal.NewFromInt(int64(n))) ||
					!s.Currencies["USDBRL"].Price.Equal(decimal.NewFromInt(int64(n))) {
					t.Errorf("snapshot %s has mixed fields", s.ID)
					return
				}
			}
		}()
	}

	for i := 1; i <= 500; i++ {
		c.Publish(build(i))
	}
	close(stop)
	wg.Wait()

	s, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, "500", s.ID)
}
