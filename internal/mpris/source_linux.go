//go:build linux

package mpris

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/nowscrobble/internal/playback"
)

// Source queries one MPRIS player on the session bus.
type Source struct {
	conn   *dbus.Conn
	player string
	obj    dbus.BusObject
}

// New connects to the session bus. The player does not have to be running.
func New(player string) (*Source, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Source{
		conn:   conn,
		player: player,
		obj:    conn.Object(BusName(player), objectPath),
	}, nil
}

// Snapshot reads the player's status, metadata and position. A player that
// is not on the bus yields playback.Stopped() and no error.
func (s *Source) Snapshot(ctx context.Context) (playback.Snapshot, error) {
	status, err := s.property(ctx, "PlaybackStatus")
	if err != nil {
		if isPlayerGone(err) {
			return playback.Stopped(), nil
		}
		return playback.Snapshot{}, fmt.Errorf("%s PlaybackStatus: %w", s.player, err)
	}
	statusStr, _ := status.Value().(string)

	metaVar, err := s.property(ctx, "Metadata")
	if err != nil {
		if isPlayerGone(err) {
			return playback.Stopped(), nil
		}
		return playback.Snapshot{}, fmt.Errorf("%s Metadata: %w", s.player, err)
	}
	meta, _ := metaVar.Value().(map[string]dbus.Variant)

	// Some players do not implement Position; the snapshot then starts at 0.
	var position types.Microseconds
	if pos, err := s.property(ctx, "Position"); err == nil {
		position = microsecondsOf(pos)
	}

	return snapshotFrom(statusStr, meta, position), nil
}

// Close releases the bus connection.
func (s *Source) Close() error {
	return s.conn.Close()
}

func (s *Source) property(ctx context.Context, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := s.obj.CallWithContext(ctx, propertiesGet, 0, playerIface, name).Store(&v)
	return v, err
}

func isPlayerGone(err error) bool {
	var dbusErr dbus.Error
	if !errors.As(err, &dbusErr) {
		return false
	}
	return dbusErr.Name == errServiceUnknown || dbusErr.Name == errNameHasNoOwner
}
