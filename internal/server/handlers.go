package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/market-pulse/internal/hub"
	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/provider"
	"github.com/rickgao/market-pulse/internal/snapshot"
	"github.com/rickgao/market-pulse/internal/synthetic"
	"github.com/rickgao/market-pulse/internal/version"
)

const defaultNewsLimit = 10

type healthResponse struct {
	Status          string           `json:"status"`
	Version         version.Info     `json:"version"`
	Timestamp       time.Time        `json:"timestamp"`
	Uptime          float64          `json:"uptime"` // seconds
	LastUpdate      *time.Time       `json:"lastUpdate"`
	SnapshotID      string           `json:"snapshotId,omitempty"`
	TotalIndices    int              `json:"totalIndices"`
	TotalCurrencies int              `json:"totalCurrencies"`
	Refresh         string           `json:"refresh"`
	Connections     int              `json:"connections"`
	Hub             hub.Stats        `json:"hub"`
	Providers       []provider.Stats `json:"providers,omitempty"`
}

type historicalResponse struct {
	Symbol    string               `json:"symbol"`
	Timeframe synthetic.Timeframe  `json:"timeframe"`
	Data      []model.HistoryPoint `json:"data"`
}

type errorResponse struct {
	Error     string    `json:"error"`
	Path      string    `json:"path,omitempty"`
	Method    string    `json:"method,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	health := healthResponse{
		Status:          "OK",
		Version:         version.Get(),
		Timestamp:       now.UTC(),
		Uptime:          now.Sub(s.started).Seconds(),
		TotalIndices:    len(s.deps.Catalog.Indices()),
		TotalCurrencies: len(s.deps.Catalog.Currencies()),
		Refresh:         s.deps.Refresh.State().String(),
		Connections:     s.Clients(),
		Hub:             s.deps.Hub.Stats(),
	}
	if snap, err := s.deps.Cache.Read(); err == nil {
		last := snap.LastUpdate
		health.LastUpdate = &last
		health.SnapshotID = snap.ID
	}
	if s.deps.Providers != nil {
		health.Providers = s.deps.Providers.Stats()
	}

	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Refresh.EnsureFresh(r.Context(), s.cfg.MaxAge)
	if err != nil {
		s.writeSnapshotError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.readSnapshot(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Indices)
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.readSnapshot(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Currencies)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit := defaultNewsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	snap, ok := s.readSnapshot(w, r)
	if !ok {
		return
	}
	if limit == 0 {
		s.writeJSON(w, http.StatusOK, []model.NewsItem{})
		return
	}
	s.writeJSON(w, http.StatusOK, snap.FilterNews(r.URL.Query().Get("category"), limit))
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.readSnapshot(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Rankings)
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	resp, err := s.historical(r.PathValue("symbol"), r.URL.Query().Get("timeframe"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// historical builds a series around the symbol's current index price, or
// around the default base when the symbol has no quote.
func (s *Server) historical(symbol, timeframe string) (historicalResponse, error) {
	tf, err := synthetic.ParseTimeframe(timeframe)
	if err != nil {
		return historicalResponse{}, err
	}

	var base decimal.Decimal
	if snap, err := s.deps.Cache.Read(); err == nil {
		if q, ok := snap.Indices[symbol]; ok {
			base = q.Price
		}
	}

	return historicalResponse{
		Symbol:    symbol,
		Timeframe: tf,
		Data:      s.deps.History.History(base, tf),
	}, nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if s.static != nil && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		s.static.ServeHTTP(w, r)
		return
	}
	s.handleNotFound(w, r)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, errorResponse{
		Error:     "route not found",
		Path:      r.URL.Path,
		Method:    r.Method,
		Timestamp: s.now().UTC(),
	})
}

func (s *Server) readSnapshot(w http.ResponseWriter, r *http.Request) (*model.Snapshot, bool) {
	snap, err := s.deps.Cache.Read()
	if err != nil {
		s.writeSnapshotError(w, r, err)
		return nil, false
	}
	return snap, true
}

func (s *Server) writeSnapshotError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, snapshot.ErrNotReady):
		s.writeError(w, http.StatusServiceUnavailable, snapshot.ErrNotReady.Error())
	case errors.Is(err, context.Canceled):
		// Client went away.
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, "market data refresh timed out")
	default:
		s.logger.Error("snapshot request failed", "path", r.URL.Path, "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{
		Error:     msg,
		Timestamp: s.now().UTC(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", "err", err)
	}
}
