//go:build !linux

package mpris

import (
	"context"
	"errors"

	"github.com/llehouerou/nowscrobble/internal/playback"
)

// ErrUnsupported is returned on platforms without a D-Bus session bus.
var ErrUnsupported = errors.New("mpris: only supported on linux, use the playerctl backend")

// Source is unavailable on non-Linux platforms.
type Source struct{}

// New always fails on non-Linux platforms.
func New(_ string) (*Source, error) {
	return nil, ErrUnsupported
}

// Snapshot always reports a stopped player.
func (s *Source) Snapshot(context.Context) (playback.Snapshot, error) {
	return playback.Stopped(), nil
}

// Close is a no-op on non-Linux platforms.
func (s *Source) Close() error {
	return nil
}
