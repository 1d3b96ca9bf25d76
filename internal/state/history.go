package state

import (
	"context"
	"database/sql"
	"time"

	"github.com/llehouerou/nowscrobble/internal/db"
)

// maxHistory is the number of scrobble log rows kept.
const maxHistory = 1000

// ScrobbleRecord is one scrobble attempt.
type ScrobbleRecord struct {
	ID         int64
	Artist     string
	Title      string
	Album      string
	StartedAt  time.Time
	Duration   time.Duration
	Error      string // "" when accepted
	RecordedAt time.Time
}

// RecordScrobble appends r to the log and prunes the oldest rows.
func (m *Manager) RecordScrobble(ctx context.Context, r ScrobbleRecord) error {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}
	return db.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scrobble_log (artist, title, album, started_at, duration_seconds, error, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, r.Artist, r.Title, nullString(r.Album), r.StartedAt.Unix(),
			nullSeconds(r.Duration), nullString(r.Error), r.RecordedAt.Unix())
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM scrobble_log WHERE id NOT IN (
				SELECT id FROM scrobble_log ORDER BY recorded_at DESC, id DESC LIMIT ?
			)
		`, maxHistory)
		return err
	})
}

// RecentScrobbles returns up to limit records, newest first.
func (m *Manager) RecentScrobbles(ctx context.Context, limit int) ([]ScrobbleRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, artist, title, album, started_at, duration_seconds, error, recorded_at
		FROM scrobble_log
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ScrobbleRecord
	for rows.Next() {
		var r ScrobbleRecord
		var album, errMsg sql.NullString
		var duration sql.NullInt64
		var startedAt, recordedAt int64

		if err := rows.Scan(&r.ID, &r.Artist, &r.Title, &album, &startedAt, &duration, &errMsg, &recordedAt); err != nil {
			return nil, err
		}

		r.Album = db.NullStringValue(album)
		r.Error = db.NullStringValue(errMsg)
		r.Duration = time.Duration(db.NullInt64Value(duration)) * time.Second
		r.StartedAt = time.Unix(startedAt, 0)
		r.RecordedAt = time.Unix(recordedAt, 0)

		records = append(records, r)
	}

	return records, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullSeconds(d time.Duration) sql.NullInt64 {
	secs := int64(d / time.Second)
	return sql.NullInt64{Int64: secs, Valid: secs > 0}
}
