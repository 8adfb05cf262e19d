package memory

// Package memory provides a process-local TokenStore. Sessions do not survive a restart.

import (
	"context"
	"sync"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	apperrors "github.com/ocfl-archive/clerk-login/internal/errors"
	"github.com/ocfl-archive/clerk-login/internal/ports"
)

// TokenStore keeps token sets in a map. It is safe for concurrent use.
type TokenStore struct {
	mu   sync.RWMutex
	sets map[string]domainauth.TokenSet
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{sets: make(map[string]domainauth.TokenSet)}
}

func (s *TokenStore) Load(_ context.Context, key string) (domainauth.TokenSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.sets[key]
	if !ok {
		return domainauth.TokenSet{}, apperrors.NotFound("session not found")
	}
	return ts, nil
}

func (s *TokenStore) Save(_ context.Context, key string, ts domainauth.TokenSet) error {
	if key == "" {
		return apperrors.ValidationField("key", "session key cannot be empty")
	}
	s.mu.Lock()
	s.sets[key] = ts
	s.mu.Unlock()
	return nil
}

func (s *TokenStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.sets, key)
	s.mu.Unlock()
	return nil
}
