package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/rickgao/market-pulse/internal/catalog"
	"github.com/rickgao/market-pulse/internal/hub"
	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/provider"
	"github.com/rickgao/market-pulse/internal/ratelimit"
	"github.com/rickgao/market-pulse/internal/refresh"
	"github.com/rickgao/market-pulse/internal/synthetic"
)

// Refresher is implemented by refresh.Coordinator.
type Refresher interface {
	ForceRefresh(ctx context.Context) (*model.Snapshot, error)
	EnsureFresh(ctx context.Context, maxAge time.Duration) (*model.Snapshot, error)
	State() refresh.State
}

// Store is the snapshot cache.
type Store interface {
	Read() (*model.Snapshot, error)
}

// Broadcast is implemented by hub.Hub.
type Broadcast interface {
	Connect(sub hub.Subscriber)
	Disconnect(id string)
	Stats() hub.Stats
}

// HistorySource generates price series.
type HistorySource interface {
	History(base decimal.Decimal, tf synthetic.Timeframe) []model.HistoryPoint
}

// StatsSource reports provider chain counters.
type StatsSource interface {
	Stats() []provider.Stats
}

// Config holds server settings.
type Config struct {
	MaxAge         time.Duration // staleness bound for /api/market-data (default: 30s)
	StaticDir      string        // served at / when set
	AllowedOrigins []string      // empty allows any origin
	RequestLimit   int           // per client IP per window, 0 disables
	RequestWindow  time.Duration
	PingInterval   time.Duration // WebSocket keepalive (default: 30s)
	WriteTimeout   time.Duration // WebSocket write deadline (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAge:        30 * time.Second,
		RequestLimit:  100,
		RequestWindow: 15 * time.Minute,
		PingInterval:  30 * time.Second,
		WriteTimeout:  10 * time.Second,
	}
}

// Deps are the components the server reads from.
type Deps struct {
	Refresh   Refresher
	Cache     Store
	Hub       Broadcast
	Catalog   *catalog.Catalog
	History   HistorySource
	Providers StatsSource // optional
}

// Server serves the REST API and WebSocket endpoint.
type Server struct {
	cfg      Config
	deps     Deps
	limiter  ratelimit.Limiter
	upgrader websocket.Upgrader
	static   http.Handler
	logger   *slog.Logger
	now      func() time.Time
	started  time.Time

	mu      sync.Mutex
	clients map[string]*wsClient
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLimiter replaces the per-IP request limiter.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server.
func New(cfg Config, deps Deps, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  slog.Default(),
		now:     time.Now,
		clients: make(map[string]*wsClient),
	}
	if cfg.RequestLimit > 0 && cfg.RequestWindow > 0 {
		s.limiter = ratelimit.NewFixedWindow(nil, ratelimit.WithDefault(ratelimit.Budget{
			MaxCalls: cfg.RequestLimit,
			Window:   cfg.RequestWindow,
		}))
	}
	for _, opt := range opts {
		opt(s)
	}
	s.started = s.now()
	if cfg.StaticDir != "" {
		s.static = http.FileServer(http.Dir(cfg.StaticDir))
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/market-data", s.handleMarketData)
	mux.HandleFunc("GET /api/indices", s.handleIndices)
	mux.HandleFunc("GET /api/currencies", s.handleCurrencies)
	mux.HandleFunc("GET /api/news", s.handleNews)
	mux.HandleFunc("GET /api/rankings", s.handleRankings)
	mux.HandleFunc("GET /api/historical/{symbol}", s.handleHistorical)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("/api/", s.handleNotFound)

	mux.HandleFunc("/", s.handleRoot)

	return s.recoverPanic(s.withHeaders(s.limitRequests(mux)))
}

// CloseClients disconnects every WebSocket client. http.Server.Shutdown does
// not track hijacked connections, so call this during shutdown.
func (s *Server) CloseClients() {
	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.close(websocket.CloseGoingAway)
	}
}

// Clients returns the number of open WebSocket connections.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) originAllowed(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
