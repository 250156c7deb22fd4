package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity payload embedded in a token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Config holds what the token service needs from the surrounding process.
type Config struct {
	Secret []byte
}

// Service signs and verifies tokens with one HMAC key.
type Service struct {
	secret []byte
	now    func() time.Time
}

// NewService builds a Service from cfg. The secret is copied.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	return &Service{
		secret: append([]byte(nil), cfg.Secret...),
		now:    time.Now,
	}, nil
}

// Issue signs claims into a compact token string. Only the issued-at time is
// added; no expiry is set.
func (s *Service) Issue(claims Claims) (string, error) {
	claims.IssuedAt = jwt.NewNumericDate(s.now())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature of tokenString and returns its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	if !token.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
