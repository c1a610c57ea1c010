package netsvc

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nugget/smldaq/internal/events"
	"github.com/nugget/smldaq/internal/meter"
)

// wsMessage is the JSON envelope pushed to every subscribed websocket
// client.
type wsMessage struct {
	Type      string          `json:"type"`
	MeterName string          `json:"meter_name"`
	Snapshot  json.RawMessage `json:"snapshot"`
}

// upgrader is shared across all WebSocket upgrades; smldaq has no
// cross-origin browser clients to restrict, so CheckOrigin accepts
// everything, matching the dashboard's own-origin deployment model.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHub upgrades incoming HTTP requests to WebSocket connections and
// pushes every meter.Snapshot it is Notified of to all connected
// clients, the push-telemetry enrichment layered on C13's observer
// substrate.
type WSHub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewWSHub returns an empty hub.
func NewWSHub(logger *slog.Logger) *WSHub {
	return &WSHub{logger: logger, clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP implements http.Handler, upgrading the connection and
// registering it until it is closed by the remote end.
func (h *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.drain(conn)
}

// drain discards any inbound traffic (the protocol is push-only) and
// removes conn from the client set once the peer disconnects.
func (h *WSHub) drain(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Notify implements events.Subscriber[meter.Snapshot]: every snapshot
// published by a meter.Reader is marshaled and fanned out to every
// currently connected client. A client that cannot keep up within
// writeTimeout is dropped rather than allowed to back-pressure the
// whole hub.
func (h *WSHub) Notify(snap meter.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		h.logger.Warn("marshal snapshot for websocket push", "error", err)
		return
	}
	msg := wsMessage{Type: "snapshot", MeterName: snap.MeterName, Snapshot: payload}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteJSON(msg); err != nil {
			h.logger.Debug("websocket push failed, dropping client", "error", err)
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			c.Close()
		}
	}
}

// writeTimeout bounds how long a single client's push write may take
// before it is considered unresponsive.
const writeTimeout = 2 * time.Second

var _ events.Subscriber[meter.Snapshot] = (*WSHub)(nil)
