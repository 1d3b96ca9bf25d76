package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/nowscrobble/internal/errmsg"
	"github.com/llehouerou/nowscrobble/internal/lastfm"
	"github.com/llehouerou/nowscrobble/internal/notify"
	"github.com/llehouerou/nowscrobble/internal/session"
	"github.com/llehouerou/nowscrobble/internal/state"
)

// ScrobbleRecorder appends to the scrobble log.
type ScrobbleRecorder interface {
	RecordScrobble(ctx context.Context, r state.ScrobbleRecord) error
}

// recorder turns engine events into scrobble log rows and failure
// notifications.
type recorder struct {
	store    ScrobbleRecorder // nil disables the log
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func newRecorder(store ScrobbleRecorder, notifier notify.Notifier, log *zap.Logger) *recorder {
	return &recorder{store: store, notifier: notifier, log: log, now: time.Now}
}

// Run consumes sub until ctx is done or the subscription ends.
func (r *recorder) Run(ctx context.Context, sub *session.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done:
			return nil
		case ev := <-sub.Started:
			r.log.Debug("session started", zap.Time("started_at", ev.Session.StartedAt))
		case ev := <-sub.Scrobbled:
			r.handleScrobbled(ctx, ev)
		case ev := <-sub.Stopped:
			r.log.Debug("session ended",
				zap.String("title", ev.Session.Identity.Title),
				zap.Bool("scrobbled", ev.Session.Scrobbled))
		}
	}
}

func (r *recorder) handleScrobbled(ctx context.Context, ev session.TrackScrobbled) {
	// Nothing was sent without a credential.
	if errors.Is(ev.Err, lastfm.ErrNotAuthenticated) {
		return
	}

	s := ev.Session
	if ev.Err != nil && !errors.Is(ev.Err, lastfm.ErrSessionInvalid) {
		if _, err := r.notifier.Notify(notify.ScrobbleFailed(s.Identity.Artist, s.Identity.Title, ev.Err)); err != nil {
			r.log.Debug("notification failed", zap.Error(err))
		}
	}

	if r.store == nil {
		return
	}
	rec := state.ScrobbleRecord{
		Artist:     s.Identity.Artist,
		Title:      s.Identity.Title,
		Album:      s.Identity.Album,
		StartedAt:  s.StartedAt,
		Duration:   s.Length(),
		RecordedAt: r.now(),
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}
	if err := r.store.RecordScrobble(ctx, rec); err != nil {
		r.log.Warn(errmsg.FormatWith(errmsg.OpHistoryRecord, s.Identity.Title, err))
	}
}
