package users

import "errors"

var (
	// ErrNotFound is returned when no user has the requested username.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateUsername is returned by Create when the username is taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrPasswordTooLong is returned for passwords over bcrypt's 72-byte input limit.
	ErrPasswordTooLong = errors.New("password too long")

	// ErrUnsupportedDSN is returned by Open for an unrecognised DATABASE_URL scheme.
	ErrUnsupportedDSN = errors.New("unsupported database url")
)
