// Package server wires HTTP handlers into a ServeMux for the chat
// application via routing helpers.
package server

import "net/http"

// Routes returns the application's handler with all routes and request
// logging installed.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", HealthHandler)
	mux.HandleFunc("GET /test", s.handleLiveness)
	mux.HandleFunc("POST /register", s.withAuthRateLimit("register", s.handleRegister))
	mux.HandleFunc("POST /login", s.withAuthRateLimit("login", s.handleLogin))
	mux.HandleFunc("GET /profile", s.handleProfile)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return withRequestLogging(mux, s.log)
}
