// Package playerctl reads the playback state by running the playerctl CLI.
package playerctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/llehouerou/nowscrobble/internal/playback"
)

const metadataFormat = "{{ artist }}|{{ title }}|{{ album }}|{{ mpris:length }}|{{ position }}|{{ mpris:artUrl }}|{{ mpris:trackid }}"

// ErrNotInstalled is returned when the playerctl binary is not in PATH.
var ErrNotInstalled = errors.New("playerctl not found in PATH")

// runFunc runs a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Source queries one player through playerctl.
type Source struct {
	player string
	run    runFunc
}

// New returns a Source for player. It fails if playerctl is not installed.
func New(player string) (*Source, error) {
	if _, err := exec.LookPath("playerctl"); err != nil {
		return nil, ErrNotInstalled
	}
	return &Source{player: player, run: runCommand}, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// Snapshot runs playerctl status and metadata. playerctl exits non-zero when
// the player is not running, which yields playback.Stopped().
func (s *Source) Snapshot(ctx context.Context) (playback.Snapshot, error) {
	if ctx.Err() != nil {
		return playback.Snapshot{}, ctx.Err()
	}

	playerArg := "--player=" + s.player

	out, err := s.run(ctx, "playerctl", playerArg, "status")
	if err != nil {
		if ctx.Err() != nil {
			return playback.Snapshot{}, ctx.Err()
		}
		return playback.Stopped(), nil //nolint:nilerr // no player running
	}
	status := playback.ParseState(strings.TrimSpace(string(out)))
	if status == playback.StateStopped {
		return playback.Stopped(), nil
	}

	out, err = s.run(ctx, "playerctl", playerArg, "metadata", "--format", metadataFormat)
	if err != nil {
		if ctx.Err() != nil {
			return playback.Snapshot{}, ctx.Err()
		}
		return playback.Stopped(), nil //nolint:nilerr // player exited between calls
	}

	snap, err := parseMetadata(string(out))
	if err != nil {
		return playback.Snapshot{}, err
	}
	snap.Status = status
	return snap.Normalize(), nil
}

// parseMetadata parses one line produced by metadataFormat. Lengths and
// positions are in microseconds.
//
// The last four fields never contain a separator, so they are taken from the
// right. Extra separators in the text fields are kept in the title.
func parseMetadata(line string) (playback.Snapshot, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "|")
	if len(fields) < 7 {
		return playback.Snapshot{}, fmt.Errorf("playerctl metadata: want 7 fields, got %d", len(fields))
	}
	head, tail := fields[:len(fields)-4], fields[len(fields)-4:]
	return playback.Snapshot{
		Artist:          head[0],
		Title:           strings.Join(head[1:len(head)-1], "|"),
		Album:           head[len(head)-1],
		LengthSeconds:   microsToSeconds(tail[0]),
		PositionSeconds: microsToSeconds(tail[1]),
		ArtworkURL:      tail[2],
		TrackRef:        playback.NormalizeTrackRef(tail[3]),
	}, nil
}

// microsToSeconds truncates a microsecond count; anything unparsable is 0.
func microsToSeconds(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		n = int64(f)
	}
	if n <= 0 {
		return 0
	}
	return int(n / 1_000_000)
}
