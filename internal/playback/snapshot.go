// Package playback describes what the media player is doing at one instant.
package playback

import (
	"context"
	"strings"
)

// Snapshot is a single read of the player's state.
type Snapshot struct {
	Status State

	Artist string
	Title  string
	Album  string // "" when unknown

	LengthSeconds   int // 0 when unknown or live
	PositionSeconds int

	ArtworkURL string
	TrackRef   string // e.g. "spotify:track:<id>"
}

// Stopped returns the sentinel snapshot for "nothing is playing".
func Stopped() Snapshot {
	return Snapshot{Status: StateStopped}
}

// IsPlaying reports whether the snapshot describes an audible track.
// Paused players and tracks without artist or title count as stopped.
func (s Snapshot) IsPlaying() bool {
	return s.Status == StatePlaying && s.Artist != "" && s.Title != ""
}

// Normalize clamps timing fields so that 0 <= position <= length when the
// length is known.
func (s Snapshot) Normalize() Snapshot {
	if s.LengthSeconds < 0 {
		s.LengthSeconds = 0
	}
	if s.PositionSeconds < 0 {
		s.PositionSeconds = 0
	}
	if s.LengthSeconds > 0 && s.PositionSeconds > s.LengthSeconds {
		s.PositionSeconds = s.LengthSeconds
	}
	return s
}

// Source queries the player once per call. "No player running" is not an
// error: it yields Stopped().
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

const (
	spotifyTrackPathPrefix = "/com/spotify/track/"
	spotifyTrackURIPrefix  = "spotify:track:"
)

// NormalizeTrackRef converts the D-Bus object path form of a Spotify track id
// (/com/spotify/track/<id>) into its URI form. Other values pass through.
func NormalizeTrackRef(ref string) string {
	if id, ok := strings.CutPrefix(ref, spotifyTrackPathPrefix); ok && id != "" {
		return spotifyTrackURIPrefix + id
	}
	return ref
}
