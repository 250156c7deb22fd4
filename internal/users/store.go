package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Store persists and looks up users.
type Store interface {
	// Create hashes password and stores a new user. It fails with
	// ErrDuplicateUsername when username is taken.
	Create(ctx context.Context, username, password string) (*User, error)

	// FindByUsername returns ErrNotFound when no such user exists.
	FindByUsername(ctx context.Context, username string) (*User, error)

	Close() error
}

// DBTX is the subset of database/sql used by the SQL stores.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Config selects and tunes a backend.
//
// DatabaseURL forms:
//   - ""                        in-memory store
//   - postgres://... or postgresql://...
//   - sqlite://<path> or sqlite://:memory:
//   - file:<path>[?query], passed to SQLite as is
type Config struct {
	DatabaseURL string
	MaxConns    int32
	BcryptCost  int
}

// Open returns the Store described by cfg with its schema migrated.
func Open(ctx context.Context, cfg Config) (Store, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)

	switch {
	case dsn == "":
		return NewMemoryStore(cfg.BcryptCost), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn, cfg.MaxConns, cfg.BcryptCost)
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"), cfg.BcryptCost)
	case strings.HasPrefix(dsn, "file:"):
		return OpenSQLite(ctx, dsn, cfg.BcryptCost)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDSN, redactDSN(dsn))
	}
}

// redactDSN keeps the scheme only so credentials never reach logs.
func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i] + "://..."
	}
	return "..."
}
