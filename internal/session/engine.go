package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/nowscrobble/internal/errmsg"
	"github.com/llehouerou/nowscrobble/internal/lastfm"
	"github.com/llehouerou/nowscrobble/internal/playback"
	"github.com/llehouerou/nowscrobble/internal/presence"
)

// Scrobbler submits listens to the scrobbling service. Calls without a
// credential return lastfm.ErrNotAuthenticated without network traffic.
type Scrobbler interface {
	UpdateNowPlaying(ctx context.Context, t lastfm.Track) error
	Scrobble(ctx context.Context, t lastfm.Track) error
}

// Reauthenticator is asked for a new credential after the service rejected
// the current one. RequestReauth must not block.
type Reauthenticator interface {
	RequestReauth()
}

const defaultCallTimeout = 10 * time.Second

// Engine is the track-session state machine. Tick is safe to call from
// multiple goroutines; calls are serialized.
type Engine struct {
	source    playback.Source
	presence  presence.Sink
	scrobbler Scrobbler
	reauth    Reauthenticator

	style       presence.Style
	now         func() time.Time
	log         *zap.Logger
	callTimeout time.Duration

	mu      sync.Mutex
	current *Session

	subs   []*Subscription
	subsMu sync.RWMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithReauthenticator sets who is notified when the credential is rejected.
func WithReauthenticator(r Reauthenticator) Option {
	return func(e *Engine) { e.reauth = r }
}

// WithStyle sets how presence activities are rendered.
func WithStyle(s presence.Style) Option {
	return func(e *Engine) { e.style = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithCallTimeout bounds each presence and scrobbler call.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) { e.callTimeout = d }
}

// NewEngine returns an Idle engine.
func NewEngine(src playback.Source, sink presence.Sink, scrobbler Scrobbler, opts ...Option) *Engine {
	e := &Engine{
		source:      src,
		presence:    sink,
		scrobbler:   scrobbler,
		style:       presence.DefaultStyle(),
		now:         time.Now,
		log:         zap.NewNop(),
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns Tracking while a session is active.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return StateIdle
	}
	return StateTracking
}

// Current returns a copy of the active session.
func (e *Engine) Current() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return Session{}, false
	}
	return *e.current, true
}

// Tick reads one snapshot and applies it. It never fails: source, presence
// and scrobbler errors are logged and the affected call is dropped.
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.source.Snapshot(ctx)
	if err != nil {
		e.log.Warn(errmsg.Format(errmsg.OpPlayerQuery, err))
		snap = playback.Stopped()
	}
	snap = snap.Normalize()

	if !snap.IsPlaying() {
		e.stop(ctx)
		return
	}

	if id := IdentityOf(snap); e.current == nil || e.current.Identity != id {
		e.start(ctx, snap)
	}

	if !e.current.Scrobbled && ShouldScrobble(e.current.LengthSeconds, snap.PositionSeconds) {
		e.scrobble(ctx)
	}
}

func (e *Engine) start(ctx context.Context, snap playback.Snapshot) {
	startedAt := time.Unix(e.now().Unix()-int64(snap.PositionSeconds), 0)
	e.current = &Session{
		Identity:      IdentityOf(snap),
		StartedAt:     startedAt,
		LengthSeconds: snap.LengthSeconds,
		ArtworkURL:    snap.ArtworkURL,
		TrackRef:      snap.TrackRef,
	}
	s := *e.current

	log := e.log.With(zap.String("artist", s.Identity.Artist), zap.String("title", s.Identity.Title))
	log.Info("now playing", zap.String("album", s.Identity.Album), zap.Int("length", s.LengthSeconds))

	e.call(ctx, func(ctx context.Context) error {
		return e.scrobbler.UpdateNowPlaying(ctx, trackOf(s))
	}, errmsg.OpLastfmNowPlaying)

	activity := e.style.Build(presence.Track{
		Artist:     s.Identity.Artist,
		Title:      s.Identity.Title,
		Album:      s.Identity.Album,
		Start:      s.StartedAt,
		Length:     s.Length(),
		ArtworkURL: s.ArtworkURL,
		TrackRef:   s.TrackRef,
	})
	e.call(ctx, func(ctx context.Context) error {
		return e.presence.SetActivity(ctx, activity)
	}, errmsg.OpPresenceSet)

	e.publish(func(sub *Subscription) { sub.sendStarted(TrackStarted{Session: s}) })
}

func (e *Engine) scrobble(ctx context.Context) {
	// Marked before the call: a failed scrobble is dropped, not retried.
	e.current.Scrobbled = true
	s := *e.current

	var err error
	e.call(ctx, func(ctx context.Context) error {
		err = e.scrobbler.Scrobble(ctx, trackOf(s))
		return err
	}, errmsg.OpLastfmScrobble)
	if err == nil {
		e.log.Info("scrobbled", zap.String("artist", s.Identity.Artist), zap.String("title", s.Identity.Title))
	}

	e.publish(func(sub *Subscription) { sub.sendScrobbled(TrackScrobbled{Session: s, Err: err}) })
}

func (e *Engine) stop(ctx context.Context) {
	if e.current == nil {
		return
	}
	s := *e.current
	e.current = nil

	e.call(ctx, e.presence.ClearActivity, errmsg.OpPresenceClear)
	e.log.Info("playback stopped, presence cleared")

	e.publish(func(sub *Subscription) { sub.sendStopped(TrackStopped{Session: s}) })
}

// call runs fn with the per-call timeout and logs its error. A rejected
// credential triggers reauthentication; a missing one is expected while
// reauthentication is pending.
func (e *Engine) call(ctx context.Context, fn func(context.Context) error, op errmsg.Op) {
	ctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	err := fn(ctx)
	msg := errmsg.Format(op, err)
	switch {
	case err == nil:
	case errors.Is(err, lastfm.ErrNotAuthenticated):
		e.log.Debug(msg)
	case errors.Is(err, lastfm.ErrSessionInvalid):
		e.log.Warn(msg)
		if e.reauth != nil {
			e.reauth.RequestReauth()
		}
	default:
		e.log.Warn(msg)
	}
}

// Subscribe returns a subscription to session events.
func (e *Engine) Subscribe() *Subscription {
	sub := newSubscription()
	e.subsMu.Lock()
	e.subs = append(e.subs, sub)
	e.subsMu.Unlock()
	return sub
}

// Close ends all subscriptions.
func (e *Engine) Close() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, sub := range e.subs {
		sub.close()
	}
	e.subs = nil
}

func (e *Engine) publish(send func(*Subscription)) {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for _, sub := range e.subs {
		send(sub)
	}
}

func trackOf(s Session) lastfm.Track {
	return lastfm.Track{
		Artist:    s.Identity.Artist,
		Title:     s.Identity.Title,
		Album:     s.Identity.Album,
		StartedAt: s.StartedAt,
		Duration:  s.Length(),
	}
}
