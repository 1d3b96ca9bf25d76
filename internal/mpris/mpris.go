// Package mpris reads the playback state of a media player over the MPRIS
// D-Bus interface.
package mpris

import (
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/nowscrobble/internal/playback"
)

const (
	busNamePrefix = "org.mpris.MediaPlayer2."
	objectPath    = "/org/mpris/MediaPlayer2"
	playerIface   = "org.mpris.MediaPlayer2.Player"

	propertiesGet = "org.freedesktop.DBus.Properties.Get"

	errServiceUnknown = "org.freedesktop.DBus.Error.ServiceUnknown"
	errNameHasNoOwner = "org.freedesktop.DBus.Error.NameHasNoOwner"
)

// Metadata keys read from the player.
const (
	keyArtist  = "xesam:artist"
	keyTitle   = "xesam:title"
	keyAlbum   = "xesam:album"
	keyLength  = "mpris:length"
	keyArtURL  = "mpris:artUrl"
	keyTrackID = "mpris:trackid"
)

// BusName returns the well-known bus name of player, e.g. "spotify".
func BusName(player string) string {
	return busNamePrefix + player
}

// snapshotFrom converts raw player properties into a snapshot.
func snapshotFrom(status string, meta map[string]dbus.Variant, position types.Microseconds) playback.Snapshot {
	s := playback.Snapshot{
		Status:          parseStatus(types.PlaybackStatus(status)),
		Artist:          artistOf(meta[keyArtist]),
		Title:           stringOf(meta[keyTitle]),
		Album:           stringOf(meta[keyAlbum]),
		LengthSeconds:   seconds(microsecondsOf(meta[keyLength])),
		PositionSeconds: seconds(position),
		ArtworkURL:      stringOf(meta[keyArtURL]),
		TrackRef:        playback.NormalizeTrackRef(stringOf(meta[keyTrackID])),
	}
	return s.Normalize()
}

func parseStatus(s types.PlaybackStatus) playback.State {
	switch s {
	case types.PlaybackStatusPlaying:
		return playback.StatePlaying
	case types.PlaybackStatusPaused:
		return playback.StatePaused
	case types.PlaybackStatusStopped:
		return playback.StateStopped
	}
	return playback.StateStopped
}

func seconds(us types.Microseconds) int {
	if us <= 0 {
		return 0
	}
	return int(us / 1_000_000)
}

func stringOf(v dbus.Variant) string {
	switch s := v.Value().(type) {
	case string:
		return s
	case dbus.ObjectPath:
		return string(s)
	}
	return ""
}

// artistOf accepts the list form mandated by xesam and the plain string some
// players send.
func artistOf(v dbus.Variant) string {
	switch a := v.Value().(type) {
	case []string:
		return strings.Join(a, ", ")
	case string:
		return a
	}
	return ""
}

// microsecondsOf accepts the integer widths players use for mpris:length.
func microsecondsOf(v dbus.Variant) types.Microseconds {
	switch n := v.Value().(type) {
	case int64:
		return types.Microseconds(n)
	case uint64:
		return types.Microseconds(n)
	case int32:
		return types.Microseconds(n)
	case uint32:
		return types.Microseconds(n)
	case float64:
		return types.Microseconds(n)
	}
	return 0
}
