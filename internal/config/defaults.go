package config

import (
	"time"

	"github.com/rickgao/market-pulse/internal/api"
)

// Environment variables consulted when no config file is given.
const (
	EnvAlphaVantageKey = "ALPHA_VANTAGE_API_KEY"
	EnvFinnhubKey      = "FINNHUB_API_KEY"
)

// Default values for optional configuration fields.
const (
	DefaultPort                 = 3001
	DefaultRequestLimit         = 100
	DefaultRequestWindow        = 15 * time.Minute
	DefaultShutdownTimeout      = 10 * time.Second
	DefaultProviderTimeout      = 10 * time.Second
	DefaultHTTPTimeout          = 10 * time.Second
	DefaultRetryBackoff         = 1 * time.Second
	DefaultAlphaVantageMaxCalls = 5
	DefaultFinnhubMaxCalls      = 60
	DefaultBudgetWindow         = time.Minute
	DefaultRateLimitBackend     = BackendMemory
	DefaultRedisAddr            = "localhost:6379"
	DefaultRedisPrefix          = "pulse:budget"
	DefaultMaxAge               = 30 * time.Second
	DefaultActiveInterval       = 30 * time.Second
	DefaultQuietInterval        = 5 * time.Minute
	DefaultStartHour            = 9
	DefaultEndHour              = 19
	DefaultConcurrency          = 8
	DefaultNewsLimit            = 8
	DefaultNewsCategory         = "general"
	DefaultRankingsLimit        = 8
	DefaultDeliveryTimeout      = 5 * time.Second
	DefaultPingInterval         = 30 * time.Second
	DefaultWriteTimeout         = 10 * time.Second
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
)

// Rate limit backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultBusinessDays are Monday through Friday.
var DefaultBusinessDays = []string{"mon", "tue", "wed", "thu", "fri"}

// DefaultProviderOrder tries Alpha Vantage before Finnhub.
var DefaultProviderOrder = []string{api.SourceAlphaVantage, api.SourceFinnhub}

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.RequestLimit == 0 {
		c.Server.RequestLimit = DefaultRequestLimit
	}
	if c.Server.RequestWindow == 0 {
		c.Server.RequestWindow = DefaultRequestWindow
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Provider defaults
	if len(c.Providers.Order) == 0 {
		c.Providers.Order = append([]string(nil), DefaultProviderOrder...)
	}
	if c.Providers.Timeout == 0 {
		c.Providers.Timeout = DefaultProviderTimeout
	}
	applyProviderDefaults(&c.Providers.AlphaVantage, api.DefaultAlphaVantageURL, DefaultAlphaVantageMaxCalls)
	applyProviderDefaults(&c.Providers.Finnhub, api.DefaultFinnhubURL, DefaultFinnhubMaxCalls)

	// Rate limit defaults
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = DefaultRateLimitBackend
	}
	if c.RateLimit.Redis.Addr == "" {
		c.RateLimit.Redis.Addr = DefaultRedisAddr
	}
	if c.RateLimit.Redis.Prefix == "" {
		c.RateLimit.Redis.Prefix = DefaultRedisPrefix
	}

	// Refresh defaults
	if c.Refresh.MaxAge == 0 {
		c.Refresh.MaxAge = DefaultMaxAge
	}
	if c.Refresh.ActiveInterval == 0 {
		c.Refresh.ActiveInterval = DefaultActiveInterval
	}
	if c.Refresh.QuietInterval == 0 {
		c.Refresh.QuietInterval = DefaultQuietInterval
	}
	if len(c.Refresh.BusinessDays) == 0 {
		c.Refresh.BusinessDays = append([]string(nil), DefaultBusinessDays...)
	}
	if c.Refresh.StartHour == 0 && c.Refresh.EndHour == 0 {
		c.Refresh.StartHour = DefaultStartHour
		c.Refresh.EndHour = DefaultEndHour
	}
	if c.Refresh.Concurrency == 0 {
		c.Refresh.Concurrency = DefaultConcurrency
	}

	// Display defaults
	if c.Display.NewsLimit == 0 {
		c.Display.NewsLimit = DefaultNewsLimit
	}
	if c.Display.NewsCategory == "" {
		c.Display.NewsCategory = DefaultNewsCategory
	}
	if c.Display.RankingsLimit == 0 {
		c.Display.RankingsLimit = DefaultRankingsLimit
	}

	// Hub defaults
	if c.Hub.DeliveryTimeout == 0 {
		c.Hub.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if c.Hub.PingInterval == 0 {
		c.Hub.PingInterval = DefaultPingInterval
	}
	if c.Hub.WriteTimeout == 0 {
		c.Hub.WriteTimeout = DefaultWriteTimeout
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyProviderDefaults(p *ProviderConfig, baseURL string, maxCalls int) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.Budget.MaxCalls == 0 {
		p.Budget.MaxCalls = maxCalls
	}
	if p.Budget.Window == 0 {
		p.Budget.Window = DefaultBudgetWindow
	}
	if p.HTTPTimeout == 0 {
		p.HTTPTimeout = DefaultHTTPTimeout
	}
	if p.RetryBackoff == 0 {
		p.RetryBackoff = DefaultRetryBackoff
	}
}
