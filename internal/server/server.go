package server

import (
	"errors"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gochat-presence/internal/auth"
	"github.com/Tyrowin/gochat-presence/internal/logging"
	"github.com/Tyrowin/gochat-presence/internal/users"
)

// TokenCookieName is the cookie carrying the identity token, both for the
// HTTP endpoints and the WebSocket handshake.
const TokenCookieName = "token"

// TokenService issues and verifies identity tokens.
type TokenService interface {
	Issue(claims auth.Claims) (string, error)
	Verify(token string) (*auth.Claims, error)
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Store   users.Store
	Tokens  TokenService
	Logger  *slog.Logger
	Metrics *Metrics
}

// Server owns the hub and serves the HTTP and WebSocket endpoints.
type Server struct {
	cfg         Config
	log         *slog.Logger
	store       users.Store
	tokens      TokenService
	hub         *Hub
	metrics     *Metrics
	origins     *originPolicy
	authLimiter *keyedRateLimiter
	upgrader    websocket.Upgrader
}

// New wires a Server. The hub is created but not started; see StartHub and Run.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("server: credential store is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("server: token service is required")
	}

	log := deps.Logger
	if log == nil {
		log = logging.Discard()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	cfg.Sanitize()

	s := &Server{
		cfg:         cfg,
		log:         log,
		store:       deps.Store,
		tokens:      deps.Tokens,
		metrics:     metrics,
		origins:     newOriginPolicy(cfg.AllowedOrigins, log),
		authLimiter: newKeyedRateLimiter(cfg.AuthRateLimit.PerMinute, cfg.AuthRateLimit.Burst),
		hub: NewHub(HubConfig{
			Logger:                log,
			Metrics:               metrics,
			BroadcastOnDisconnect: cfg.BroadcastOnDisconnect,
		}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s, nil
}

// Hub exposes the connection registry, mainly for shutdown and tests.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) clientConfig() ClientConfig {
	return ClientConfig{
		MaxMessageSize: s.cfg.MaxMessageSize,
		RateLimit:      s.cfg.RateLimit,
	}
}
