// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in demo page.
package server

import (
	_ "embed"
	"net/http"

	"github.com/Tyrowin/gochat-presence/internal/auth"
)

//go:embed static/index.html
var indexPage []byte

// handleWebSocket authenticates the handshake from its token cookie, upgrades
// the connection and registers the client with the hub. A missing or invalid
// token admits the connection as anonymous.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity := s.authenticateHandshake(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, identity, s.clientConfig())

	// The hub launches the pump goroutines.
	if !s.hub.Register(client) {
		s.log.Warn("hub stopped; closing new connection", "conn_id", client.id)
		_ = conn.Close()
	}
}

// authenticateHandshake returns the verified claims of the request's token
// cookie, or nil.
func (s *Server) authenticateHandshake(r *http.Request) *auth.Claims {
	cookie, err := r.Cookie(TokenCookieName)
	if err != nil || cookie.Value == "" {
		s.metrics.incHandshake("anonymous")
		return nil
	}

	claims, err := s.tokens.Verify(cookie.Value)
	if err != nil {
		// Degrade to anonymous rather than reject the socket.
		s.log.Info("websocket token rejected; admitting as anonymous", "remote", r.RemoteAddr, "err", err)
		s.metrics.incHandshake("invalid_token")
		return nil
	}

	s.metrics.incHandshake("authenticated")
	return claims
}

// handleLiveness answers the /test probe with the JSON string "test ok".
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, "test ok")
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("GoChat server is running!"))
}

// handleIndex serves the demo page for trying register, login and the live roster.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexPage); err != nil {
		s.log.Warn("error writing index page", "err", err)
	}
}
