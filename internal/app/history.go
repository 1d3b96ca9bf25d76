package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/llehouerou/nowscrobble/internal/state"
	"github.com/llehouerou/nowscrobble/internal/ui/render"
)

// HistoryReader reads the scrobble log.
type HistoryReader interface {
	RecentScrobbles(ctx context.Context, limit int) ([]state.ScrobbleRecord, error)
}

const (
	colWhen   = 16
	colArtist = 24
	colTitle  = 32
	colAlbum  = 24
	colLength = 6
)

// PrintHistory writes the last limit scrobbles as a table, newest first.
func PrintHistory(ctx context.Context, w io.Writer, store HistoryReader, limit int, now time.Time) error {
	records, err := store.RecentScrobbles(ctx, limit)
	if err != nil {
		return fmt.Errorf("read scrobble log: %w", err)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No scrobbles recorded yet.")
		return err
	}

	header := strings.Join([]string{
		render.Column("WHEN", colWhen),
		render.Column("ARTIST", colArtist),
		render.Column("TITLE", colTitle),
		render.Column("ALBUM", colAlbum),
		render.Column("LENGTH", colLength),
		"STATUS",
	}, "  ")
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, render.Rule(len(header))); err != nil {
		return err
	}

	for _, r := range records {
		line := strings.Join([]string{
			render.Column(humanize.RelTime(r.StartedAt, now, "ago", "from now"), colWhen),
			render.Column(r.Artist, colArtist),
			render.Column(r.Title, colTitle),
			render.Column(r.Album, colAlbum),
			render.Column(formatLength(r.Duration), colLength),
			status(r),
		}, "  ")
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "\n%s scrobble(s) shown\n", humanize.Comma(int64(len(records))))
	return err
}

func status(r state.ScrobbleRecord) string {
	if r.Error == "" {
		return "ok"
	}
	return "failed: " + render.Truncate(r.Error, 60)
}

func formatLength(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	secs := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
