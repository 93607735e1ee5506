package refresh

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
)

func TestScheduleConfig_Active(t *testing.T) {
	cfg := DefaultScheduleConfig()
	cfg.Location = time.UTC

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"monday opening", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), true},
		{"monday before open", time.Date(2025, 3, 10, 8, 59, 59, 0, time.UTC), false},
		{"friday last hour", time.Date(2025, 3, 14, 18, 59, 0, 0, time.UTC), true},
		{"friday after close", time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC), false},
		{"saturday midday", time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC), false},
		{"sunday midday", time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Active(tt.at); got != tt.want {
				t.Errorf("Active(%v) = %v, want %v", tt.at, got, tt.want)
			}
			want := cfg.QuietInterval
			if tt.want {
				want = cfg.ActiveInterval
			}
			if got := cfg.Interval(tt.at); got != want {
				t.Errorf("Interval(%v) = %v, want %v", tt.at, got, want)
			}
		})
	}
}

func TestScheduleConfig_Timezone(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	cfg := DefaultScheduleConfig()
	cfg.Location = loc

	// 11:00 UTC is 08:00 in BRT, before the open.
	if cfg.Active(time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)) {
		t.Error("expected quiet period in local timezone")
	}
	if !cfg.Active(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)) {
		t.Error("expected active period in local timezone")
	}
}

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) ForceRefresh(context.Context) (*model.Snapshot, error) {
	r.calls.Add(1)
	return &model.Snapshot{}, nil
}

func TestScheduler_StartStop(t *testing.T) {
	r := &countingRefresher{}
	cfg := ScheduleConfig{
		ActiveInterval: 10 * time.Millisecond,
		QuietInterval:  10 * time.Millisecond,
	}
	s := NewScheduler(cfg, r, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := r.calls.Load(); got < 3 {
		t.Errorf("refresh calls = %d, want >= 3", got)
	}

	after := r.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if got := r.calls.Load(); got != after {
		t.Errorf("refreshes continued after Stop: %d -> %d", after, got)
	}
}

func TestScheduler_RefreshesImmediately(t *testing.T) {
	r := &countingRefresher{}
	s := NewScheduler(ScheduleConfig{ActiveInterval: time.Hour, QuietInterval: time.Hour}, r, nil)

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for r.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := r.calls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
}
