package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const pgUniqueViolation = "23505"

// PostgresStore keeps users in a PostgreSQL table.
type PostgresStore struct {
	db     DBTX
	cost   int
	closer func() error
}

// NewPostgresStore wraps an existing handle. The caller owns db.
func NewPostgresStore(db DBTX, bcryptCost int) *PostgresStore {
	return &PostgresStore{db: db, cost: bcryptCost}
}

// OpenPostgres connects a pgx pool, runs migrations and returns a store that
// owns the pool.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32, bcryptCost int) (*PostgresStore, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if maxConns > 0 {
		pcfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := migrate(ctx, db, goose.DialectPostgres, "migrations/postgres"); err != nil {
		_ = db.Close()
		pool.Close()
		return nil, err
	}

	s := NewPostgresStore(db, bcryptCost)
	s.closer = func() error {
		err := db.Close()
		pool.Close()
		return err
	}
	return s, nil
}

// Create hashes password and inserts the user. A unique violation yields
// ErrDuplicateUsername.
func (s *PostgresStore) Create(ctx context.Context, username, password string) (*User, error) {
	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO users (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING created_at`

	u := &User{Username: username, PasswordHash: hash}
	if err := s.db.QueryRowContext(ctx, query, username, hash).Scan(&u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

// FindByUsername returns the user or ErrNotFound.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	query :=
		`SELECT username, password_hash, created_at FROM users
		 WHERE username = $1`

	u := &User{}
	err := s.db.QueryRowContext(ctx, query, username).Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

// Close releases the pool when the store owns one.
func (s *PostgresStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
