package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rickgao/market-pulse/internal/api"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RequestLimit < 0 {
		return errors.New("server.request_limit must be >= 0")
	}

	for i, name := range c.Providers.Order {
		if name != api.SourceAlphaVantage && name != api.SourceFinnhub {
			return fmt.Errorf("providers.order[%d]: unknown provider %q", i, name)
		}
		if slices.Index(c.Providers.Order, name) != i {
			return fmt.Errorf("providers.order[%d]: duplicate provider %q", i, name)
		}
	}
	if c.Providers.Timeout <= 0 {
		return errors.New("providers.timeout must be > 0")
	}
	if err := c.Providers.AlphaVantage.validate("providers.alphavantage"); err != nil {
		return err
	}
	if err := c.Providers.Finnhub.validate("providers.finnhub"); err != nil {
		return err
	}

	switch c.RateLimit.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.RateLimit.Redis.Addr == "" {
			return errors.New("rate_limit.redis.addr is required")
		}
	default:
		return fmt.Errorf("rate_limit.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.RateLimit.Backend)
	}

	if err := c.Refresh.validate(); err != nil {
		return err
	}

	if c.Display.NewsLimit < 1 {
		return errors.New("display.news_limit must be >= 1")
	}
	if c.Display.RankingsLimit < 1 {
		return errors.New("display.rankings_limit must be >= 1")
	}

	if c.Hub.DeliveryTimeout <= 0 {
		return errors.New("hub.delivery_timeout must be > 0")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (p *ProviderConfig) validate(prefix string) error {
	if p.BaseURL == "" {
		return fmt.Errorf("%s.base_url is required", prefix)
	}
	if p.Budget.MaxCalls < 0 {
		return fmt.Errorf("%s.budget.max_calls must be >= 0", prefix)
	}
	if p.Budget.Window < 0 {
		return fmt.Errorf("%s.budget.window must be >= 0", prefix)
	}
	if p.Retries < 0 {
		return fmt.Errorf("%s.retries must be >= 0", prefix)
	}
	return nil
}

func (r *RefreshConfig) validate() error {
	if r.MaxAge <= 0 {
		return errors.New("refresh.max_age must be > 0")
	}
	if r.ActiveInterval <= 0 {
		return errors.New("refresh.active_interval must be > 0")
	}
	if r.QuietInterval <= 0 {
		return errors.New("refresh.quiet_interval must be > 0")
	}
	if r.StartHour < 0 || r.StartHour > 23 {
		return fmt.Errorf("refresh.start_hour must be between 0 and 23, got %d", r.StartHour)
	}
	if r.EndHour < 1 || r.EndHour > 24 {
		return fmt.Errorf("refresh.end_hour must be between 1 and 24, got %d", r.EndHour)
	}
	if r.StartHour >= r.EndHour {
		return fmt.Errorf("refresh.start_hour (%d) must be before end_hour (%d)", r.StartHour, r.EndHour)
	}
	if _, err := r.Weekdays(); err != nil {
		return fmt.Errorf("refresh.business_days: %w", err)
	}
	if _, err := r.Location(); err != nil {
		return fmt.Errorf("refresh.timezone: %w", err)
	}
	if r.Concurrency < 1 {
		return errors.New("refresh.concurrency must be >= 1")
	}
	return nil
}
