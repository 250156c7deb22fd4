// Package server constructs and starts the HTTP service with helpers that
// apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartHub runs the hub loop in its own goroutine. Call it once, before
// serving WebSocket requests.
func (s *Server) StartHub() {
	go s.hub.Run()
	s.log.Info("hub started and ready to manage websocket connections")
}

// Run serves on cfg.Port until ctx is cancelled or the listener fails, then
// shuts down the HTTP server and the hub within shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.StartHub()

	srv := CreateServer(s.cfg.Port, s.Routes())

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.log.Info("server stopping", "reason", "context done")
	case serveErr = <-errCh:
		s.log.Error("server failed", "err", serveErr)
	}

	if err := ShutdownServer(srv, shutdownTimeout); err != nil {
		s.log.Error("http server shutdown error", "err", err)
	}
	if err := s.hub.Shutdown(shutdownTimeout); err != nil {
		s.log.Warn("hub shutdown incomplete", "err", err)
	}

	return serveErr
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return server.Shutdown(ctx)
}
