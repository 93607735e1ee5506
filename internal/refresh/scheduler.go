package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
)

// Refresher is implemented by Coordinator.
type Refresher interface {
	ForceRefresh(ctx context.Context) (*model.Snapshot, error)
}

// ScheduleConfig holds scheduler configuration.
type ScheduleConfig struct {
	ActiveInterval time.Duration  // Cadence during business hours (default: 30s)
	QuietInterval  time.Duration  // Cadence otherwise (default: 5m)
	BusinessDays   []time.Weekday // Default: Monday through Friday
	StartHour      int            // First business hour, inclusive (default: 9)
	EndHour        int            // Last business hour, exclusive (default: 19)
	Location       *time.Location // Default: time.Local
}

// DefaultScheduleConfig returns sensible defaults.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		ActiveInterval: 30 * time.Second,
		QuietInterval:  5 * time.Minute,
		BusinessDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		StartHour: 9,
		EndHour:   19,
		Location:  time.Local,
	}
}

// Active reports whether t falls within business hours.
func (c ScheduleConfig) Active(t time.Time) bool {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)

	business := false
	for _, d := range c.BusinessDays {
		if t.Weekday() == d {
			business = true
			break
		}
	}
	return business && t.Hour() >= c.StartHour && t.Hour() < c.EndHour
}

// Interval returns the cadence that applies at t.
func (c ScheduleConfig) Interval(t time.Time) time.Duration {
	if c.Active(t) {
		return c.ActiveInterval
	}
	return c.QuietInterval
}

// Scheduler periodically forces a refresh.
type Scheduler struct {
	cfg       ScheduleConfig
	refresher Refresher
	now       func() time.Time
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(cfg ScheduleConfig, refresher Refresher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultScheduleConfig()
	if cfg.ActiveInterval <= 0 {
		cfg.ActiveInterval = def.ActiveInterval
	}
	if cfg.QuietInterval <= 0 {
		cfg.QuietInterval = def.QuietInterval
	}
	return &Scheduler{
		cfg:       cfg,
		refresher: refresher,
		now:       time.Now,
		logger:    logger,
	}
}

// Start begins the scheduling loop. The first refresh runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("refresh scheduler started",
		"active_interval", s.cfg.ActiveInterval,
		"quiet_interval", s.cfg.QuietInterval,
	)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("refresh scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main scheduling loop.
func (s *Scheduler) run() {
	defer s.wg.Done()

	s.refresh()

	for {
		wait := s.cfg.Interval(s.now())
		timer := time.NewTimer(wait)

		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.refresh()
		}
	}
}

func (s *Scheduler) refresh() {
	if _, err := s.refresher.ForceRefresh(s.ctx); err != nil && s.ctx.Err() == nil {
		s.logger.Warn("scheduled refresh failed", "err", err)
	}
}
