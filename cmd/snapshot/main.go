// Prints what the configured player reports right now and the Discord
// activity that would be sent for it. Makes no network calls.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/llehouerou/nowscrobble/internal/app"
	"github.com/llehouerou/nowscrobble/internal/config"
	"github.com/llehouerou/nowscrobble/internal/presence"
	"github.com/llehouerou/nowscrobble/internal/session"
)

func main() {
	configPath := flag.String("config", "", "config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Player: %s (%s)", cfg.Player.Name, cfg.Player.Backend)

	src, closeSrc, err := app.OpenSource(cfg.Player)
	if err != nil {
		log.Fatalf("Failed to open player source: %v", err)
	}
	if closeSrc != nil {
		defer closeSrc() //nolint:errcheck // exiting anyway
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := src.Snapshot(ctx)
	if err != nil {
		log.Fatalf("Failed to query player: %v", err)
	}
	snap = snap.Normalize()

	log.Printf("Status:   %s", snap.Status)
	log.Printf("Artist:   %q", snap.Artist)
	log.Printf("Title:    %q", snap.Title)
	log.Printf("Album:    %q", snap.Album)
	log.Printf("Position: %ds / %ds", snap.PositionSeconds, snap.LengthSeconds)
	log.Printf("Artwork:  %q", snap.ArtworkURL)
	log.Printf("TrackRef: %q", snap.TrackRef)

	if !snap.IsPlaying() {
		log.Println("Nothing playing: presence would be cleared")
		return
	}

	started := time.Unix(time.Now().Unix()-int64(snap.PositionSeconds), 0)
	activity := app.StyleFrom(cfg.Presence).Build(presence.Track{
		Artist:     snap.Artist,
		Title:      snap.Title,
		Album:      snap.Album,
		Start:      started,
		Length:     time.Duration(snap.LengthSeconds) * time.Second,
		ArtworkURL: snap.ArtworkURL,
		TrackRef:   snap.TrackRef,
	})

	log.Println("Activity:")
	log.Printf("  details:     %q", activity.Details)
	log.Printf("  state:       %q", activity.State)
	log.Printf("  start:       %s", activity.Start.Format(time.TimeOnly))
	if !activity.End.IsZero() {
		log.Printf("  end:         %s", activity.End.Format(time.TimeOnly))
	}
	log.Printf("  large image: %q (%q)", activity.LargeImageKey, activity.LargeImageText)
	log.Printf("  small image: %q (%q)", activity.SmallImageKey, activity.SmallImageText)
	for _, b := range activity.Buttons {
		log.Printf("  button:      %q -> %s", b.Label, b.URL)
	}

	id := session.IdentityOf(snap)
	log.Printf("Scrobble after %s of playback", scrobblePoint(snap.LengthSeconds))
	log.Printf("Session identity: %s / %s / %s", id.Artist, id.Title, id.Album)
}

func scrobblePoint(length int) string {
	for p := 0; p <= length; p++ {
		if session.ShouldScrobble(length, p) {
			return (time.Duration(p) * time.Second).String()
		}
	}
	return "never (unknown length)"
}
