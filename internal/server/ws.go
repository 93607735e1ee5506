package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/market-pulse/internal/hub"
	"github.com/rickgao/market-pulse/internal/model"
)

// WebSocket message types.
const (
	TypeMarketData     = "marketData"
	TypeHistoricalData = "historicalData"
	TypeSubscribed     = "subscribed"
	TypeError          = "error"

	TypeRequestUpdate = "requestUpdate"
	TypeSubscribe     = "subscribe"
	TypeGetHistorical = "getHistorical"
)

const (
	maxMessageSize = 64 << 10
	refreshWait    = time.Minute
)

// envelope is an inbound client message.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// outbound is a server message.
type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type historicalRequest struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

type errorMessage struct {
	Message string `json:"message"`
}

// wsClient is one WebSocket connection registered with the hub.
type wsClient struct {
	id     string
	conn   *websocket.Conn
	srv    *Server
	logger *slog.Logger

	ctx    context.Context // cancelled on close
	cancel context.CancelFunc

	// Write serialization
	writeMu sync.Mutex

	// Latest undelivered snapshot; a newer one replaces it.
	mu      sync.Mutex
	pending *model.Snapshot
	symbols []string
	notify  chan struct{}

	done      chan struct{}
	closeOnce sync.Once

	lastSent string // writeLoop only
}

func newWSClient(id string, conn *websocket.Conn, srv *Server) *wsClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &wsClient{
		id:     id,
		conn:   conn,
		srv:    srv,
		logger: srv.logger.With("client", id),
		ctx:    ctx,
		cancel: cancel,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	c := newWSClient(uuid.NewString(), conn, s)
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	c.logger.Info("websocket client connected", "remote", clientIP(r))

	go c.writeLoop()
	s.deps.Hub.Connect(c)
	c.readLoop()

	s.deps.Hub.Disconnect(c.id)
	c.close(websocket.CloseNormalClosure)
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.logger.Info("websocket client disconnected")
}

// ID implements hub.Subscriber.
func (c *wsClient) ID() string {
	return c.id
}

// Deliver implements hub.Subscriber. It never blocks on the network: the
// snapshot is parked for the write loop, replacing any older pending one.
func (c *wsClient) Deliver(_ context.Context, snap *model.Snapshot) error {
	select {
	case <-c.done:
		return hub.ErrSubscriberClosed
	default:
	}

	c.mu.Lock()
	if c.pending == nil || snap.ID > c.pending.ID {
		c.pending = snap
	}
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// Symbols returns the symbols the client subscribed to.
func (c *wsClient) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.symbols...)
}

// writeLoop sends pending snapshots and keepalive pings.
func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(c.srv.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case <-c.notify:
			c.mu.Lock()
			snap := c.pending
			c.pending = nil
			c.mu.Unlock()

			// IDs sort by creation, so anything not newer was superseded.
			if snap == nil || (c.lastSent != "" && snap.ID <= c.lastSent) {
				continue
			}
			if err := c.send(TypeMarketData, snap); err != nil {
				c.logger.Debug("failed to send snapshot", "snapshot", snap.ID, "err", err)
				c.close(websocket.CloseInternalServerErr)
				return
			}
			c.lastSent = snap.ID

		case <-ticker.C:
			deadline := time.Now().Add(c.srv.cfg.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "err", err)
				c.close(websocket.CloseGoingAway)
				return
			}
		}
	}
}

// readLoop dispatches client messages until the connection fails.
func (c *wsClient) readLoop() {
	pongWait := 2 * c.srv.cfg.PingInterval
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.logger.Debug("websocket read failed", "err", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.dispatch(data)
	}
}

func (c *wsClient) dispatch(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.sendError("malformed message")
		return
	}

	switch env.Type {
	case TypeRequestUpdate:
		go c.requestUpdate()

	case TypeSubscribe:
		symbols, err := parseSymbols(env.Data)
		if err != nil {
			c.sendError("subscribe expects a symbol or a list of symbols")
			return
		}
		c.mu.Lock()
		c.symbols = symbols
		c.mu.Unlock()
		c.logger.Debug("client subscribed", "symbols", symbols)
		c.reply(TypeSubscribed, symbols)

	case TypeGetHistorical:
		var req historicalRequest
		if err := json.Unmarshal(env.Data, &req); err != nil || req.Symbol == "" {
			c.sendError("getHistorical expects a symbol")
			return
		}
		resp, err := c.srv.historical(req.Symbol, req.Timeframe)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.reply(TypeHistoricalData, resp)

	default:
		c.logger.Debug("skipping message type", "type", env.Type)
		c.sendError("unknown message type")
	}
}

// requestUpdate forces a pass. The result reaches every client through the
// hub; it is also parked here in case this client joined late.
func (c *wsClient) requestUpdate() {
	ctx, cancel := context.WithTimeout(c.ctx, refreshWait)
	defer cancel()

	snap, err := c.srv.deps.Refresh.ForceRefresh(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("requested refresh failed", "err", err)
		}
		return
	}
	c.Deliver(ctx, snap)
}

func (c *wsClient) reply(msgType string, data any) {
	if err := c.send(msgType, data); err != nil {
		c.logger.Debug("failed to send reply", "type", msgType, "err", err)
	}
}

func (c *wsClient) sendError(msg string) {
	c.reply(TypeError, errorMessage{Message: msg})
}

func (c *wsClient) send(msgType string, data any) error {
	payload, err := json.Marshal(outbound{Type: msgType, Data: data})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.srv.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// close sends a close frame and tears the connection down. Safe to call more
// than once.
func (c *wsClient) close(code int) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, ""),
			time.Now().Add(time.Second),
		)
		c.conn.Close()
	})
}

func parseSymbols(raw json.RawMessage) ([]string, error) {
	var symbols []string
	if err := json.Unmarshal(raw, &symbols); err == nil {
		return symbols, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []string{one}, nil
}
