package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const (
	insertUserRe = `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*password_hash\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+created_at\s*$`
	selectUserRe = `(?s)^SELECT\s+username,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`
)

func newPostgresWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresStore(db, bcrypt.MinCost), mock, db
}

func TestPostgresCreate_Success(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(insertUserRe).
		WithArgs("alice", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	u, err := s.Create(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if u.Username != "alice" || !u.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !VerifyPassword(u, "secret1") {
		t.Fatalf("stored hash does not verify")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreate_UniqueViolation(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertUserRe).
		WithArgs("alice", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"})

	_, err := s.Create(context.Background(), "alice", "secret1")
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("want ErrDuplicateUsername, got %v", err)
	}
}

func TestPostgresCreate_DBError(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertUserRe).
		WithArgs("alice", sqlmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	_, err := s.Create(context.Background(), "alice", "secret1")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("generic failure must not look like a conflict")
	}
}

func TestPostgresFind_Found(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword error: %v", err)
	}
	mock.ExpectQuery(selectUserRe).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "created_at"}).
			AddRow("alice", hash, time.Now()))

	u, err := s.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername error: %v", err)
	}
	if u.Username != "alice" || !VerifyPassword(u, "pw") {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestPostgresFind_NotFound(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectUserRe).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := s.FindByUsername(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestPostgresFind_DBError(t *testing.T) {
	s, mock, db := newPostgresWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectUserRe).
		WithArgs("alice").
		WillReturnError(errors.New("db err"))

	_, err := s.FindByUsername(context.Background(), "alice")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgresClose_WithoutOwnedPool(t *testing.T) {
	s, _, db := newPostgresWithMock(t)
	defer db.Close()

	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}
