package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArtwork(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"empty uses fallback", "", "spotify"},
		{"front-end image rewritten", "https://open.spotify.com/image/ab67616d0000b273", "https://i.scdn.co/image/ab67616d0000b273"},
		{"cdn passes through", "https://i.scdn.co/image/ab67", "https://i.scdn.co/image/ab67"},
		{"other host passes through", "https://example.com/cover.jpg", "https://example.com/cover.jpg"},
		{"file url passes through", "file:///tmp/cover.png", "file:///tmp/cover.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Artwork(tt.url, "spotify"))
		})
	}
}

func TestTrackLink(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"},
		{"deezer:track:123", "https://open.deezer.com/track/123"},
		{"spotify:album:4uLU6hMCjMI75M1A2tKUQC", ""},
		{"spotify:track:", ""},
		{"/com/spotify/track/4uLU", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TrackLink(tt.ref); got != tt.want {
			t.Errorf("TrackLink(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestStyle_Build(t *testing.T) {
	start := time.Unix(1700000000, 0)
	a := DefaultStyle().Build(Track{
		Artist:     "Artist",
		Title:      "Title",
		Album:      "Album",
		Start:      start,
		Length:     200 * time.Second,
		ArtworkURL: "https://open.spotify.com/image/abc",
		TrackRef:   "spotify:track:xyz",
	})

	assert.Equal(t, "Title", a.Details)
	assert.Equal(t, "by Artist • Album", a.State)
	assert.Equal(t, start, a.Start)
	assert.Equal(t, start.Add(200*time.Second), a.End)
	assert.Equal(t, "https://i.scdn.co/image/abc", a.LargeImageKey)
	assert.Equal(t, "Title", a.LargeImageText)
	assert.Equal(t, "spotify", a.SmallImageKey)
	assert.Equal(t, "Spotify", a.SmallImageText)
	assert.Equal(t, []Button{{Label: "Listen on Spotify", URL: "https://open.spotify.com/track/xyz"}}, a.Buttons)
}

func TestStyle_BuildWithoutOptionalFields(t *testing.T) {
	a := DefaultStyle().Build(Track{Artist: "A", Title: "T", Start: time.Unix(10, 0)})

	assert.Equal(t, "by A • Unknown Album", a.State)
	assert.True(t, a.End.IsZero(), "unknown length has no end timestamp")
	assert.Equal(t, "spotify", a.LargeImageKey)
	assert.Empty(t, a.Buttons)
}

func TestStyle_BuildCustom(t *testing.T) {
	s := Style{SmallImageKey: "mpd", SmallImageText: "MPD", FallbackImageKey: "note"}
	a := s.Build(Track{Artist: "A", Title: "T", TrackRef: "spotify:track:x"})

	assert.Equal(t, "mpd", a.SmallImageKey)
	assert.Equal(t, "MPD", a.SmallImageText)
	assert.Equal(t, "note", a.LargeImageKey)
	assert.Empty(t, a.Buttons, "no label means no button")
}
