// Package session turns polled player snapshots into listening sessions:
// it announces each new track once, scrobbles it at most once, and clears
// the presence when playback stops.
package session

import (
	"time"

	"github.com/llehouerou/nowscrobble/internal/playback"
)

// State is the engine's tracking state.
type State int

const (
	StateIdle State = iota
	StateTracking
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateTracking:
		return "Tracking"
	default:
		return "Unknown"
	}
}

// Identity distinguishes listening sessions. An empty album is a valid,
// stable value.
type Identity struct {
	Artist string
	Title  string
	Album  string
}

// IdentityOf returns the identity of the track in s.
func IdentityOf(s playback.Snapshot) Identity {
	return Identity{Artist: s.Artist, Title: s.Title, Album: s.Album}
}

// Session is one uninterrupted listen of a track.
type Session struct {
	Identity Identity

	// StartedAt is fixed when the session is created, at second precision.
	StartedAt     time.Time
	LengthSeconds int
	Scrobbled     bool

	ArtworkURL string
	TrackRef   string
}

// Length returns the track length, 0 when unknown.
func (s Session) Length() time.Duration {
	return time.Duration(s.LengthSeconds) * time.Second
}

// scrobbleCap is the listening time after which any track qualifies.
const scrobbleCap = 240

// ShouldScrobble reports whether a position reached the scrobble threshold:
// half the track or four minutes, whichever comes first. Tracks of unknown
// length never qualify.
func ShouldScrobble(lengthSeconds, positionSeconds int) bool {
	if lengthSeconds <= 0 {
		return false
	}
	return 2*positionSeconds >= lengthSeconds || positionSeconds >= scrobbleCap
}
