package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_IsPlaying(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want bool
	}{
		{"playing with metadata", Snapshot{Status: StatePlaying, Artist: "A", Title: "T"}, true},
		{"paused", Snapshot{Status: StatePaused, Artist: "A", Title: "T"}, false},
		{"stopped sentinel", Stopped(), false},
		{"missing artist", Snapshot{Status: StatePlaying, Title: "T"}, false},
		{"missing title", Snapshot{Status: StatePlaying, Artist: "A"}, false},
		{"empty album is fine", Snapshot{Status: StatePlaying, Artist: "A", Title: "T", Album: ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.IsPlaying())
		})
	}
}

func TestSnapshot_Normalize(t *testing.T) {
	tests := []struct {
		name        string
		in          Snapshot
		wantLength  int
		wantPosition int
	}{
		{"unchanged", Snapshot{LengthSeconds: 200, PositionSeconds: 50}, 200, 50},
		{"position past end", Snapshot{LengthSeconds: 200, PositionSeconds: 201}, 200, 200},
		{"unknown length keeps position", Snapshot{LengthSeconds: 0, PositionSeconds: 500}, 0, 500},
		{"negative values", Snapshot{LengthSeconds: -1, PositionSeconds: -5}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantLength, got.LengthSeconds)
			assert.Equal(t, tt.wantPosition, got.PositionSeconds)
		})
	}
}

func TestNormalizeTrackRef(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/com/spotify/track/4uLU6hMCjMI75M1A2tKUQC", "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{"/org/mpris/MediaPlayer2/Track/1", "/org/mpris/MediaPlayer2/Track/1"},
		{"/com/spotify/track/", "/com/spotify/track/"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTrackRef(tt.in); got != tt.want {
			t.Errorf("NormalizeTrackRef(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
