package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteStore keeps users in a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	cost int
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
// path is a file name or a "file:" URI, which may carry its own query
// parameters. ":memory:" gives a private in-process database.
func OpenSQLite(ctx context.Context, path string, bcryptCost int) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "file:" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if !isMemoryDSN(path) {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Writers serialize in SQLite anyway, and a memory database only lives
	// as long as its single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := migrate(ctx, db, goose.DialectSQLite3, "migrations/sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, cost: bcryptCost}, nil
}

// Create hashes password and inserts the user. A taken username yields
// ErrDuplicateUsername.
func (s *SQLiteStore) Create(ctx context.Context, username, password string) (*User, error) {
	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, hash, now.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &User{Username: username, PasswordHash: hash, CreatedAt: now}, nil
}

// FindByUsername returns the user or ErrNotFound.
func (s *SQLiteStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	var (
		u       User
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, created_at FROM users WHERE username = ?`,
		username).Scan(&u.Username, &u.PasswordHash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.CreatedAt = time.UnixMilli(created).UTC()
	return &u, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isMemoryDSN(path string) bool {
	return strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
}

// isUniqueViolation matches only uniqueness failures; other constraint
// errors (NOT NULL, CHECK) stay storage errors.
func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
