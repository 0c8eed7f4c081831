package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
	"golang.org/x/net/websocket"
)

const defaultHubWriteTimeout = 5 * time.Second

// Hub pushes notifications to connected websocket clients. Each write is
// bounded by writeTimeout so a stalled client cannot hold up the caller.
type Hub struct {
	logger       *logging.Logger
	writeTimeout time.Duration

	mu      sync.RWMutex
	clients map[string]*hubConn
}

type hubConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type hubEnvelope struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification,omitempty"`
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{logger: logger, writeTimeout: defaultHubWriteTimeout, clients: make(map[string]*hubConn)}
}

// Clients reports the number of open connections.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify broadcasts n to every client. Write failures drop that client.
func (h *Hub) Notify(_ context.Context, n Notification) {
	h.mu.RLock()
	targets := make(map[string]*hubConn, len(h.clients))
	for id, c := range h.clients {
		targets[id] = c
	}
	h.mu.RUnlock()

	for id, c := range targets {
		if err := h.send(c, hubEnvelope{Type: "notification", Notification: &n}); err != nil {
			h.logger.Debug("notify hub: dropping client", "client_id", id, "error", err)
			h.drop(id, c)
		}
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(h.serve).ServeHTTP(w, r)
}

func (h *Hub) serve(conn *websocket.Conn) {
	id := uuid.NewString()
	c := &hubConn{conn: conn}

	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	defer h.drop(id, c)

	_ = h.send(c, hubEnvelope{Type: "ready"})
	h.logger.Debug("notify hub: client connected", "client_id", id)

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return
		}
		if msg.Type == "ping" {
			_ = h.send(c, hubEnvelope{Type: "pong"})
		}
	}
}

func (h *Hub) send(c *hubConn, env hubEnvelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
		return err
	}
	return websocket.JSON.Send(c.conn, env)
}

func (h *Hub) drop(id string, c *hubConn) {
	h.mu.Lock()
	if h.clients[id] == c {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}
