package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds one observer write so a stalled connection cannot
// hold up event fan-out.
const writeTimeout = 5 * time.Second

// Hub fans engine events out to WebSocket observers.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	conns  map[int]*websocket.Conn

	allowedOrigin string
	isDev         bool
}

// NewHub creates a Hub. allowedOrigin guards the upgrade handshake the
// same way the HTTP layer's CORS does; isDev disables the check.
func NewHub(allowedOrigin string, isDev bool) *Hub {
	return &Hub{
		conns:         make(map[int]*websocket.Conn),
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// Publish implements Notifier. Slow or dead observers are logged and
// skipped; publishing never fails.
func (h *Hub) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to encode event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	conns := make(map[int]*websocket.Conn, len(h.conns))
	for id, c := range h.conns {
		conns[id] = c
	}
	h.mu.RUnlock()

	for id, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			slog.Debug("observer write failed", "observer", id, "type", ev.Type, "error", err)
		}
	}

	slog.Info("event published", "type", ev.Type, "observers", len(conns))
}

// ServeHTTP upgrades the request and holds the connection open until the
// observer goes away. Observers only listen; inbound frames are drained
// and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept observer WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}

	id := h.register(conn)
	defer h.unregister(id)
	defer func() {
		if closeErr := conn.Close(websocket.StatusNormalClosure, "bye"); closeErr != nil {
			slog.Debug("failed to close observer websocket", "observer", id, "error", closeErr)
		}
	}()

	slog.Info("observer connected", "observer", id, "ip", r.RemoteAddr)

	// Drain until the peer closes or the request context ends.
	for {
		if _, _, err := conn.Read(r.Context()); err != nil {
			slog.Info("observer disconnected", "observer", id)
			return
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.conns[id] = conn
	return id
}

func (h *Hub) unregister(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

// ObserverCount returns the number of connected observers.
func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("observer origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

var _ Notifier = (*Hub)(nil)
