package presence

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const unknownAlbum = "Unknown Album"

// Style holds the configurable parts of an activity.
type Style struct {
	SmallImageKey    string
	SmallImageText   string
	ButtonLabel      string
	FallbackImageKey string
}

// DefaultStyle returns the look used for Spotify.
func DefaultStyle() Style {
	return Style{
		SmallImageKey:    "spotify",
		SmallImageText:   "Spotify",
		ButtonLabel:      "Listen on Spotify",
		FallbackImageKey: "spotify",
	}
}

// Track is the information an activity is built from.
type Track struct {
	Artist     string
	Title      string
	Album      string
	Start      time.Time
	Length     time.Duration // 0 when unknown
	ArtworkURL string
	TrackRef   string
}

// Build returns the activity for t.
func (s Style) Build(t Track) Activity {
	album := t.Album
	if album == "" {
		album = unknownAlbum
	}

	a := Activity{
		Details:        t.Title,
		State:          fmt.Sprintf("by %s • %s", t.Artist, album),
		Start:          t.Start,
		LargeImageKey:  Artwork(t.ArtworkURL, s.FallbackImageKey),
		LargeImageText: t.Title,
		SmallImageKey:  s.SmallImageKey,
		SmallImageText: s.SmallImageText,
	}
	if t.Length > 0 {
		a.End = t.Start.Add(t.Length)
	}
	if link := TrackLink(t.TrackRef); link != "" && s.ButtonLabel != "" {
		a.Buttons = []Button{{Label: s.ButtonLabel, URL: link}}
	}
	return a
}

const (
	spotifyFrontendImage = "https://open.spotify.com/image/"
	spotifyImageCDN      = "https://i.scdn.co/image/"
)

// Artwork returns the image key for an artwork URL. Spotify front-end image
// links are rewritten to the CDN host Discord can fetch; an empty URL yields
// fallback.
func Artwork(url, fallback string) string {
	if url == "" {
		return fallback
	}
	if id, ok := strings.CutPrefix(url, spotifyFrontendImage); ok {
		return spotifyImageCDN + id
	}
	return url
}

var trackRefPattern = regexp.MustCompile(`^([a-z0-9]+):track:([A-Za-z0-9]+)$`)

// TrackLink derives https://open.<service>.com/track/<id> from a
// "<service>:track:<id>" reference, or "" when ref has another shape.
func TrackLink(ref string) string {
	m := trackRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("https://open.%s.com/track/%s", m[1], m[2])
}
