package state

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Mock is a test double for Manager.
type Mock struct {
	mu      sync.Mutex
	session *LastfmSession
	records []ScrobbleRecord
	closed  bool
}

// NewMock creates a new mock state manager for testing.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) GetLastfmSession() (*LastfmSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil //nolint:nilnil // nil session means not linked
	}
	s := *m.session
	return &s, nil
}

func (m *Mock) LoadSessionKey() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return "", nil
	}
	return m.session.SessionKey, nil
}

func (m *Mock) SaveSessionKey(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key == "" {
		m.session = nil
		return nil
	}
	m.session = &LastfmSession{SessionKey: key, LinkedAt: time.Now()}
	return nil
}

func (m *Mock) SetLastfmUsername(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Username = username
	}
	return nil
}

func (m *Mock) RecordScrobble(_ context.Context, r ScrobbleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.records) + 1)
	m.records = append(m.records, r)
	return nil
}

func (m *Mock) RecentScrobbles(_ context.Context, limit int) ([]ScrobbleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.records)
	slices.Reverse(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) Records() []ScrobbleRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}

func (m *Mock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
