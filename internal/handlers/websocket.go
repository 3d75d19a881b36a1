package handlers

import (
	"context"
	"net/http"
	"time"

	"love-vault-backend/internal/middleware"
	"love-vault-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsReadLimit  = 4096
)

// WebSocketHandler handles the realtime change feed
type WebSocketHandler struct {
	hub      *services.WSHub
	resolver middleware.SessionResolver
	upgrader websocket.Upgrader

	// pingPeriod is also how often the session behind an open socket is re-checked
	pingPeriod time.Duration
}

// NewWebSocketHandler creates a new WebSocket handler. allowedOrigin "*" accepts any origin.
func NewWebSocketHandler(hub *services.WSHub, resolver middleware.SessionResolver, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		resolver:   resolver,
		pingPeriod: wsPingPeriod,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// HandleWebSocket handles GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	session, err := h.resolver.GetCurrentUser(r.Context(), token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := services.NewWSClient(session.UserID, conn)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(client, token, done)

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// The feed is server-to-client; inbound frames are read only to process control messages.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", session.UserID).Msg("WebSocket error")
			}
			return
		}
	}
}

// keepAlive pings the client and closes the socket once its session is signed
// out or expired
func (h *WebSocketHandler) keepAlive(client *services.WSClient, token string, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !h.sessionValid(token) {
				log.Info().Str("user_id", client.UserID()).Msg("Closing WebSocket of ended session")
				h.hub.Unregister(client)
				return
			}
			if err := client.Ping(); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) sessionValid(token string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.resolver.GetCurrentUser(ctx, token)
	return err == nil
}
