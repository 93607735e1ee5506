package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rickgao/market-pulse/internal/catalog"
)

// Config is the root configuration for a pulse instance.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Display   DisplayConfig   `yaml:"display"`
	Hub       HubConfig       `yaml:"hub"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	StaticDir       string        `yaml:"static_dir"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // empty allows any origin
	RequestLimit    int           `yaml:"request_limit"`   // per client IP per window
	RequestWindow   time.Duration `yaml:"request_window"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProvidersConfig lists upstream providers in priority order.
type ProvidersConfig struct {
	Order        []string       `yaml:"order"`
	Timeout      time.Duration  `yaml:"timeout"` // per fetch, including retries
	AlphaVantage ProviderConfig `yaml:"alphavantage"`
	Finnhub      ProviderConfig `yaml:"finnhub"`
}

// ProviderConfig holds one provider's credentials and call budget.
type ProviderConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Budget       BudgetConfig  `yaml:"budget"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	Retries      int           `yaml:"retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// Enabled reports whether the provider has credentials.
func (p ProviderConfig) Enabled() bool {
	return p.APIKey != ""
}

// BudgetConfig is a fixed-window call allowance.
type BudgetConfig struct {
	MaxCalls int           `yaml:"max_calls"`
	Window   time.Duration `yaml:"window"`
}

// RateLimitConfig selects where provider budgets are counted.
type RateLimitConfig struct {
	Backend string      `yaml:"backend"` // memory or redis
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds the shared budget store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RefreshConfig controls staleness and the scheduled cadence.
type RefreshConfig struct {
	MaxAge         time.Duration `yaml:"max_age"`
	ActiveInterval time.Duration `yaml:"active_interval"`
	QuietInterval  time.Duration `yaml:"quiet_interval"`
	BusinessDays   []string      `yaml:"business_days"` // mon, tue, ...
	StartHour      int           `yaml:"start_hour"`
	EndHour        int           `yaml:"end_hour"` // exclusive
	Timezone       string        `yaml:"timezone"` // IANA name or "Local"
	Concurrency    int           `yaml:"concurrency"`
}

// DisplayConfig caps the collections kept in a snapshot.
type DisplayConfig struct {
	NewsLimit     int    `yaml:"news_limit"`
	NewsCategory  string `yaml:"news_category"`
	RankingsLimit int    `yaml:"rankings_limit"`
}

// HubConfig holds subscriber delivery settings.
type HubConfig struct {
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
}

// CatalogConfig overrides or extends the built-in instruments.
type CatalogConfig struct {
	Indices    []catalog.Entry `yaml:"indices"`
	Currencies []catalog.Entry `yaml:"currencies"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Weekdays parses BusinessDays. Full names ("monday") are accepted too.
func (r RefreshConfig) Weekdays() ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(r.BusinessDays))
	for _, name := range r.BusinessDays {
		key := strings.ToLower(strings.TrimSpace(name))
		if len(key) > 3 {
			key = key[:3]
		}
		d, ok := weekdays[key]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		days = append(days, d)
	}
	return days, nil
}

// Location resolves Timezone. An empty name means the local zone.
func (r RefreshConfig) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(r.Timezone)
}
