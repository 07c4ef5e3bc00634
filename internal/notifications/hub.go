package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"fruitmap/internal/middleware"
	"fruitmap/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const maxTotalConns = 5000

// ErrHubFull is returned by Register once maxTotalConns clients are connected.
var ErrHubFull = errors.New("server connection limit reached")

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("hub is shut down")

// Hub tracks live map subscribers and fans tree events out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a subscriber for conn.
func (h *Hub) Register(conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= maxTotalConns {
		return nil, ErrHubFull
	}

	client := newClient(h, conn)
	h.clients[client] = struct{}{}
	observability.WebSocketConnections.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send queue. Safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	observability.WebSocketConnections.Dec()
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll queues payload for every subscriber.
func (h *Hub) BroadcastAll(payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data := []byte(payload)
	for c := range h.clients {
		c.TrySend(data)
	}
}

// StartWiring forwards every event published on Redis to local subscribers.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartTreeSubscriber(ctx, h.BroadcastAll)
}

// Serve runs the pumps for conn until the peer disconnects.
func (h *Hub) Serve(conn *websocket.Conn) {
	client, err := h.Register(conn)
	if err != nil {
		middleware.Logger.Warn("live map connection rejected", slog.String("error", err.Error()))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		_ = conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}

// Shutdown closes every subscriber's queue; WritePump then sends a close frame.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.Send)
		observability.WebSocketConnections.Dec()
	}
	return nil
}
