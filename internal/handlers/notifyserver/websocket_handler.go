package notifyserver

import (
	"log"
	"net/http"

	"match-go/internal/auth"
	"match-go/internal/config"
	ws "match-go/internal/websocket"
)

// WebSocketHandler upgrades match-notification connections.
type WebSocketHandler struct {
	hub       *ws.Hub
	blacklist auth.TokenBlacklist
	cfg       config.Config
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(hub *ws.Hub, blacklist auth.TokenBlacklist, cfg config.Config) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		blacklist: blacklist,
		cfg:       cfg,
	}
}

// ServeWS handles incoming WebSocket requests. Browsers cannot set an
// Authorization header on the upgrade request, so the token travels in a
// query parameter. Anonymous connections are rejected.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing authentication token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(r.Context(), token, h.cfg.Auth.JWTSecretKey, h.blacklist)
	if err != nil {
		log.Printf("WebSocket connection rejected, invalid token: %v", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	ws.ServeWsPerConnection(h.hub, claims.UserID, w, r, h.cfg.WebSocket)
}
