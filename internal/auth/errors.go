package auth

import "errors"

var (
	// ErrInvalidToken is returned by Verify for malformed, tampered or
	// otherwise unverifiable tokens. The parser error is wrapped.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingSecret is returned by NewService when no signing key is configured.
	ErrMissingSecret = errors.New("token signing secret is required")
)
