package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/market-pulse/internal/aggregator"
	"github.com/rickgao/market-pulse/internal/api"
	"github.com/rickgao/market-pulse/internal/catalog"
	"github.com/rickgao/market-pulse/internal/config"
	"github.com/rickgao/market-pulse/internal/hub"
	"github.com/rickgao/market-pulse/internal/provider"
	"github.com/rickgao/market-pulse/internal/ratelimit"
	"github.com/rickgao/market-pulse/internal/refresh"
	"github.com/rickgao/market-pulse/internal/snapshot"
	"github.com/rickgao/market-pulse/internal/synthetic"
)

const redisPingTimeout = 5 * time.Second

// engine holds the wired components shared by serve and snapshot.
type engine struct {
	catalog     *catalog.Catalog
	generator   *synthetic.Generator
	providers   *provider.Set
	aggregator  *aggregator.Aggregator
	cache       *snapshot.Cache
	hub         *hub.Hub
	coordinator *refresh.Coordinator
	closers     []io.Closer
}

func (e *engine) Close() error {
	var first error
	for _, c := range e.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newLogger builds the root logger from config.
func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// setupLogger builds the root logger and installs it as the slog default, so
// packages constructed without an explicit logger share its level and format.
func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	logger := newLogger(cfg, w)
	slog.SetDefault(logger)
	return logger
}

// buildEngine wires config into the aggregation pipeline. Passes run under
// ctx.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine, error) {
	e := &engine{}

	cat, err := catalog.New(cfg.Catalog.Indices, cfg.Catalog.Currencies)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	e.catalog = cat

	limiter, closer, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		e.closers = append(e.closers, closer)
	}

	e.generator = synthetic.New()
	e.providers, err = provider.NewSet(cfg.Providers.Order, newClients(cfg.Providers, logger), e.generator,
		provider.WithLimiter(limiter),
		provider.WithTimeout(cfg.Providers.Timeout),
		provider.WithLogger(logger),
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("build providers: %w", err)
	}

	e.aggregator = aggregator.New(cat, aggregator.SourcesFromSet(e.providers), aggregator.Config{
		NewsLimit:     cfg.Display.NewsLimit,
		NewsCategory:  cfg.Display.NewsCategory,
		RankingsLimit: cfg.Display.RankingsLimit,
		Concurrency:   cfg.Refresh.Concurrency,
	}, aggregator.WithLogger(logger))

	e.cache = snapshot.New()
	e.hub = hub.New(e.cache,
		hub.WithDeliveryTimeout(cfg.Hub.DeliveryTimeout),
		hub.WithLogger(logger),
	)
	e.coordinator = refresh.NewCoordinator(e.aggregator, e.cache,
		refresh.WithBroadcaster(e.hub),
		refresh.WithBaseContext(ctx),
		refresh.WithLogger(logger),
	)

	return e, nil
}

func newClients(cfg config.ProvidersConfig, logger *slog.Logger) provider.Clients {
	var clients provider.Clients
	if p := cfg.AlphaVantage; p.Enabled() {
		clients.AlphaVantage = api.NewAlphaVantage(p.BaseURL, p.APIKey, clientOptions(p, logger)...)
	}
	if p := cfg.Finnhub; p.Enabled() {
		clients.Finnhub = api.NewFinnhub(p.BaseURL, p.APIKey, clientOptions(p, logger)...)
	}
	return clients
}

func clientOptions(p config.ProviderConfig, logger *slog.Logger) []api.ClientOption {
	return []api.ClientOption{
		api.WithTimeout(p.HTTPTimeout),
		api.WithRetries(p.Retries, p.RetryBackoff),
		api.WithLogger(logger),
	}
}

// newLimiter returns the provider budget limiter for the configured backend.
// The closer is non-nil when the limiter holds a connection.
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, io.Closer, error) {
	budgets := map[string]ratelimit.Budget{
		api.SourceAlphaVantage: budget(cfg.Providers.AlphaVantage.Budget),
		api.SourceFinnhub:      budget(cfg.Providers.Finnhub.Budget),
	}

	if cfg.RateLimit.Backend != config.BackendRedis {
		return ratelimit.NewFixedWindow(budgets), nil, nil
	}

	rc := cfg.RateLimit.Redis
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", rc.Addr, err)
	}
	logger.Info("using redis rate limit store", "addr", rc.Addr, "prefix", rc.Prefix)

	return ratelimit.NewRedisWindow(client, rc.Prefix, budgets, ratelimit.WithRedisLogger(logger)), client, nil
}

func budget(b config.BudgetConfig) ratelimit.Budget {
	return ratelimit.Budget{MaxCalls: b.MaxCalls, Window: b.Window}
}

func scheduleConfig(cfg config.RefreshConfig) (refresh.ScheduleConfig, error) {
	days, err := cfg.Weekdays()
	if err != nil {
		return refresh.ScheduleConfig{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return refresh.ScheduleConfig{}, err
	}
	return refresh.ScheduleConfig{
		ActiveInterval: cfg.ActiveInterval,
		QuietInterval:  cfg.QuietInterval,
		BusinessDays:   days,
		StartHour:      cfg.StartHour,
		EndHour:        cfg.EndHour,
		Location:       loc,
	}, nil
}
