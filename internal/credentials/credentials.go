// Package credentials holds the scrobble service session key shared by all requests.
package credentials

import (
	"fmt"
	"sync"
)

// Backend persists the session key. An empty key means none.
type Backend interface {
	LoadSessionKey() (string, error)
	SaveSessionKey(key string) error
}

// Store is the single in-memory owner of the session key. Reads always see
// the latest saved or invalidated value.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	key     string
}

// New creates a Store over backend. Call Load to read the persisted key.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Load reads the persisted key into memory and returns it.
func (s *Store) Load() (string, error) {
	key, err := s.backend.LoadSessionKey()
	if err != nil {
		return "", fmt.Errorf("load session key: %w", err)
	}

	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	return key, nil
}

// SessionKey returns the active key, or "" when none is held.
func (s *Store) SessionKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Save persists key and makes it active. The in-memory key is left
// unchanged when persisting fails.
func (s *Store) Save(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.SaveSessionKey(key); err != nil {
		return fmt.Errorf("save session key: %w", err)
	}
	s.key = key
	return nil
}

// Invalidate clears the key if it still equals stale, so a key saved by a
// concurrent re-authentication survives a late rejection of the old one.
// The in-memory key is cleared before persisting.
func (s *Store) Invalidate(stale string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == "" || s.key != stale {
		return nil
	}
	s.key = ""
	if err := s.backend.SaveSessionKey(""); err != nil {
		return fmt.Errorf("clear session key: %w", err)
	}
	return nil
}
