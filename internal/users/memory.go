package users

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps users in a map. Data is lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
	cost  int
}

// NewMemoryStore returns an empty store hashing with bcryptCost.
func NewMemoryStore(bcryptCost int) *MemoryStore {
	return &MemoryStore{
		users: make(map[string]User),
		cost:  bcryptCost,
	}
}

// Create hashes password outside the lock, then checks and inserts
// atomically.
func (s *MemoryStore) Create(_ context.Context, username, password string) (*User, error) {
	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return nil, ErrDuplicateUsername
	}

	u := User{Username: username, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	s.users[username] = u
	return &u, nil
}

// FindByUsername returns a copy of the user or ErrNotFound.
func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
