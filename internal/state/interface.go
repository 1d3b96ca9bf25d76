package state

import "context"

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	GetLastfmSession() (*LastfmSession, error)
	LoadSessionKey() (string, error)
	SaveSessionKey(key string) error
	SetLastfmUsername(username string) error
	RecordScrobble(ctx context.Context, r ScrobbleRecord) error
	RecentScrobbles(ctx context.Context, limit int) ([]ScrobbleRecord, error)
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
