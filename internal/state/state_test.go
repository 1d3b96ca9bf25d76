package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestManager opens a database in a temporary directory.
func setupTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := OpenAt(filepath.Join(t.TempDir(), "state", "nowscrobble.db"))
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestInitSchema_Idempotent(t *testing.T) {
	m := setupTestManager(t)

	if err := initSchema(m.DB()); err != nil {
		t.Fatalf("second initSchema failed: %v", err)
	}

	var version int
	if err := m.DB().QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("query version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestLastfmSession_Empty(t *testing.T) {
	m := setupTestManager(t)

	s, err := m.GetLastfmSession()
	require.NoError(t, err)
	assert.Nil(t, s)

	key, err := m.LoadSessionKey()
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestLastfmSession_SaveLoad(t *testing.T) {
	m := setupTestManager(t)

	require.NoError(t, m.SaveSessionKey("SK1"))
	require.NoError(t, m.SetLastfmUsername("alice"))

	key, err := m.LoadSessionKey()
	require.NoError(t, err)
	assert.Equal(t, "SK1", key)

	s, err := m.GetLastfmSession()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "alice", s.Username)
	assert.WithinDuration(t, time.Now(), s.LinkedAt, time.Minute)

	// Saving the same key keeps the username; a new key resets it.
	require.NoError(t, m.SaveSessionKey("SK1"))
	s, _ = m.GetLastfmSession()
	assert.Equal(t, "alice", s.Username)

	require.NoError(t, m.SaveSessionKey("SK2"))
	s, _ = m.GetLastfmSession()
	assert.Equal(t, "SK2", s.SessionKey)
	assert.Empty(t, s.Username)
}

func TestLastfmSession_ClearWithEmptyKey(t *testing.T) {
	m := setupTestManager(t)

	require.NoError(t, m.SaveSessionKey("SK"))
	require.NoError(t, m.SaveSessionKey(""))

	s, err := m.GetLastfmSession()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestLastfmSession_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nowscrobble.db")

	m, err := OpenAt(path)
	require.NoError(t, err)
	require.NoError(t, m.SaveSessionKey("SK"))
	require.NoError(t, m.Close())

	m, err = OpenAt(path)
	require.NoError(t, err)
	defer m.Close()

	key, err := m.LoadSessionKey()
	require.NoError(t, err)
	assert.Equal(t, "SK", key)
}

func TestRecordScrobble_RoundTrip(t *testing.T) {
	m := setupTestManager(t)
	ctx := context.Background()

	started := time.Unix(1700000000, 0)
	require.NoError(t, m.RecordScrobble(ctx, ScrobbleRecord{
		Artist:     "A",
		Title:      "T1",
		Album:      "Al",
		StartedAt:  started,
		Duration:   200 * time.Second,
		RecordedAt: started.Add(100 * time.Second),
	}))
	require.NoError(t, m.RecordScrobble(ctx, ScrobbleRecord{
		Artist:     "A",
		Title:      "T2",
		StartedAt:  started.Add(200 * time.Second),
		Error:      "lastfm error 11: Service Offline",
		RecordedAt: started.Add(300 * time.Second),
	}))

	records, err := m.RecentScrobbles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "T2", records[0].Title, "newest first")
	assert.Empty(t, records[0].Album)
	assert.Zero(t, records[0].Duration)
	assert.Equal(t, "lastfm error 11: Service Offline", records[0].Error)

	assert.Equal(t, "T1", records[1].Title)
	assert.Equal(t, "Al", records[1].Album)
	assert.Equal(t, 200*time.Second, records[1].Duration)
	assert.Equal(t, started, records[1].StartedAt)
	assert.Empty(t, records[1].Error)
}

func TestRecentScrobbles_Limit(t *testing.T) {
	m := setupTestManager(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i := range 5 {
		require.NoError(t, m.RecordScrobble(ctx, ScrobbleRecord{
			Artist:     "A",
			Title:      "T",
			StartedAt:  base,
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := m.RecentScrobbles(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, base.Add(4*time.Minute), records[0].RecordedAt)
}

func TestRecordScrobble_Prunes(t *testing.T) {
	m := setupTestManager(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i := range maxHistory + 5 {
		require.NoError(t, m.RecordScrobble(ctx, ScrobbleRecord{
			Artist:     "A",
			Title:      "T",
			StartedAt:  base,
			RecordedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	var n int
	require.NoError(t, m.DB().QueryRow(`SELECT COUNT(*) FROM scrobble_log`).Scan(&n))
	assert.Equal(t, maxHistory, n)
}

func TestMock(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	require.NoError(t, m.SaveSessionKey("SK"))
	require.NoError(t, m.SetLastfmUsername("bob"))
	s, _ := m.GetLastfmSession()
	assert.Equal(t, "bob", s.Username)

	require.NoError(t, m.RecordScrobble(ctx, ScrobbleRecord{Title: "1"}))
	require.NoError(t, m.RecordScrobble(ctx, ScrobbleRecord{Title: "2"}))
	recent, _ := m.RecentScrobbles(ctx, 1)
	require.Len(t, recent, 1)
	assert.Equal(t, "2", recent[0].Title)

	require.NoError(t, m.SaveSessionKey(""))
	key, _ := m.LoadSessionKey()
	assert.Empty(t, key)

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())
}
