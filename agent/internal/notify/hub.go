package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the connection
	// as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// DefaultReplay is how many recent notifications a new client receives.
	DefaultReplay = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Listeners are expected on localhost; origin checks belong to a proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Message is the JSON envelope sent to WebSocket clients.
type Message struct {
	Event string       `json:"event"`
	Data  Notification `json:"data"`
}

// Hub is a Sink that broadcasts notifications to connected WebSocket
// clients. New clients first receive the most recent notifications.
type Hub struct {
	replay int

	mu      sync.RWMutex
	clients map[*client]struct{}
	recent  [][]byte
	closed  bool
}

// client is one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub returns a Hub that keeps the last replay notifications for new
// clients. replay <= 0 uses DefaultReplay.
func NewHub(replay int) *Hub {
	if replay <= 0 {
		replay = DefaultReplay
	}
	return &Hub{
		replay:  replay,
		clients: make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Notify broadcasts n. Clients whose buffer is full are disconnected.
func (h *Hub) Notify(_ context.Context, n Notification) error {
	data, err := json.Marshal(Message{Event: "notification", Data: n})
	if err != nil {
		return fmt.Errorf("notify: hub: encode: %w", err)
	}

	h.mu.Lock()
	h.recent = append(h.recent, data)
	if len(h.recent) > h.replay {
		h.recent = h.recent[len(h.recent)-h.replay:]
	}
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		h.trySend(c, data)
	}
	return nil
}

// ServeHTTP upgrades the connection and serves the client until it goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize+h.replay),
	}
	if !h.register(c) {
		conn.Close()
		return
	}
	defer h.unregister(c)

	go c.writePump()
	c.readPump()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// register adds c and queues the replay backlog under the same lock so no
// notification is delivered twice or skipped.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	for _, msg := range h.recent {
		c.send <- msg
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) trySend(c *client, data []byte) {
	h.mu.RLock()
	_, ok := h.clients[c]
	if ok {
		select {
		case c.send <- data:
			h.mu.RUnlock()
			return
		default:
		}
	}
	h.mu.RUnlock()
	if ok {
		// Outgoing buffer full.
		h.unregister(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump forwards queued messages and sends periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes control frames and returns when the peer disconnects.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
