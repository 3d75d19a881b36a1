package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const wsWriteTimeout = 10 * time.Second

// WSClient is one open WebSocket of a user. Writes are serialised per connection.
type WSClient struct {
	userID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

// NewWSClient wraps an upgraded connection
func NewWSClient(userID string, conn *websocket.Conn) *WSClient {
	return &WSClient{userID: userID, conn: conn}
}

// UserID returns the owner of the connection
func (c *WSClient) UserID() string {
	return c.userID
}

// WriteJSON sends v as a text frame
func (c *WSClient) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.write(websocket.TextMessage, data)
}

// Ping sends a ping control frame
func (c *WSClient) Ping() error {
	return c.write(websocket.PingMessage, nil)
}

func (c *WSClient) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// Close closes the underlying connection
func (c *WSClient) Close() error {
	return c.conn.Close()
}

// WSHub tracks every open WebSocket per user and fans change events out to them
type WSHub struct {
	mu      sync.RWMutex
	clients map[string]map[*WSClient]struct{}
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		clients: make(map[string]map[*WSClient]struct{}),
	}
}

// Register adds a connection for its user. A user may hold several at once.
func (h *WSHub) Register(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*WSClient]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}

	log.Info().
		Str("user_id", c.userID).
		Int("connections", len(set)).
		Msg("WebSocket connection registered")
}

// Unregister removes and closes a connection
func (h *WSHub) Unregister(c *WSClient) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if ok {
		if _, exists := set[c]; !exists {
			ok = false
		}
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()

	if ok {
		c.Close()
		log.Info().Str("user_id", c.userID).Msg("WebSocket connection unregistered")
	}
}

// Publish sends event to every connection of userID without waiting for delivery.
// Failed connections are dropped.
func (h *WSHub) Publish(userID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		go h.deliver(c, event)
	}
}

func (h *WSHub) deliver(c *WSClient, event Event) {
	if err := c.WriteJSON(event); err != nil {
		log.Error().
			Err(err).
			Str("user_id", c.userID).
			Str("event", event.Type).
			Msg("Failed to deliver event")
		h.Unregister(c)
	}
}

// ConnectionCount returns the number of open connections of userID
func (h *WSHub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
