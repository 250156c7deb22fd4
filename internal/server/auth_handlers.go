package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Tyrowin/gochat-presence/internal/auth"
	"github.com/Tyrowin/gochat-presence/internal/users"
)

const maxAuthBodyBytes = 1 << 20

var errValidation = errors.New("username and password are required")

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type usernameResponse struct {
	Username string `json:"username"`
}

type profileResponse struct {
	UserData *auth.Claims `json:"userData"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// decodeCredentials reads and validates a {username, password} body. The
// username comes back trimmed.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest

	body := http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, errors.Join(errValidation, err)
	}

	// Surrounding whitespace never distinguishes two accounts.
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return req, errValidation
	}
	return req, nil
}

// handleRegister creates a user and signs them in with a token cookie.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(w, r)
	if err != nil {
		s.writeAuthError(w, "register", http.StatusBadRequest, errValidation.Error())
		return
	}

	user, err := s.store.Create(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, users.ErrDuplicateUsername):
		s.writeAuthError(w, "register", http.StatusConflict, "username already taken")
		return
	case errors.Is(err, users.ErrPasswordTooLong):
		s.writeAuthError(w, "register", http.StatusBadRequest, "password too long")
		return
	default:
		s.log.Error("register: create user", "err", err)
		s.writeAuthError(w, "register", http.StatusInternalServerError, "internal server error")
		return
	}

	if !s.issueTokenCookie(w, "register", user.Username) {
		return
	}

	s.log.Info("user registered", "username", user.Username)
	s.metrics.incAuth("register", http.StatusCreated)
	s.writeJSON(w, http.StatusCreated, usernameResponse{Username: user.Username})
}

// handleLogin checks credentials and refreshes the token cookie. Failures
// never set a cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(w, r)
	if err != nil {
		s.writeAuthError(w, "login", http.StatusBadRequest, errValidation.Error())
		return
	}

	user, err := s.store.FindByUsername(r.Context(), req.Username)
	switch {
	case err == nil:
	case errors.Is(err, users.ErrNotFound):
		s.writeAuthError(w, "login", http.StatusUnauthorized, "invalid username or password")
		return
	default:
		s.log.Error("login: find user", "err", err)
		s.writeAuthError(w, "login", http.StatusInternalServerError, "internal server error")
		return
	}

	if !users.VerifyPassword(user, req.Password) {
		s.log.Info("login failed", "username", req.Username, "remote", r.RemoteAddr)
		s.writeAuthError(w, "login", http.StatusUnauthorized, "invalid username or password")
		return
	}

	if !s.issueTokenCookie(w, "login", user.Username) {
		return
	}

	s.metrics.incAuth("login", http.StatusCreated)
	s.writeJSON(w, http.StatusCreated, usernameResponse{Username: user.Username})
}

// handleProfile returns the claims of the caller's token cookie.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(TokenCookieName)
	if err != nil || cookie.Value == "" {
		s.writeAuthError(w, "profile", http.StatusUnauthorized, "Unauthorized - JWT must be provided")
		return
	}

	claims, err := s.tokens.Verify(cookie.Value)
	if err != nil {
		s.log.Info("profile: token rejected", "remote", r.RemoteAddr, "err", err)
		s.writeAuthError(w, "profile", http.StatusUnauthorized, "Unauthorized - invalid token")
		return
	}

	s.metrics.incAuth("profile", http.StatusOK)
	s.writeJSON(w, http.StatusOK, profileResponse{UserData: claims})
}

// issueTokenCookie signs a token for username and sets it on w. On failure it
// writes a 500 and returns false.
func (s *Server) issueTokenCookie(w http.ResponseWriter, op, username string) bool {
	token, err := s.tokens.Issue(auth.Claims{Username: username})
	if err != nil {
		s.log.Error(op+": issue token", "err", err)
		s.writeAuthError(w, op, http.StatusInternalServerError, "internal server error")
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
	return true
}

func (s *Server) writeAuthError(w http.ResponseWriter, op string, status int, message string) {
	s.metrics.incAuth(op, status)
	s.writeJSON(w, status, errorResponse{Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("error writing JSON response", "err", err)
	}
}
