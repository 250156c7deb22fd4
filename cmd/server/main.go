package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Tyrowin/gochat-presence/internal/auth"
	"github.com/Tyrowin/gochat-presence/internal/logging"
	"github.com/Tyrowin/gochat-presence/internal/server"
	"github.com/Tyrowin/gochat-presence/internal/users"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel)
	log.Info("starting GoChat server")

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := users.Open(ctx, users.Config{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		BcryptCost:  cfg.BcryptCost,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("closing credential store", "err", err)
		}
	}()

	tokens, err := auth.NewService(auth.Config{Secret: []byte(cfg.JWTSecret)})
	if err != nil {
		return err
	}

	srv, err := server.New(*cfg, server.Deps{
		Store:   store,
		Tokens:  tokens,
		Logger:  log,
		Metrics: server.NewMetrics(),
	})
	if err != nil {
		return err
	}

	return srv.Run(ctx, shutdownTimeout)
}
