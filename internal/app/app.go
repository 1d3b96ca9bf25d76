// Package app wires the scrobbler together and runs it until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/nowscrobble/internal/config"
	"github.com/llehouerou/nowscrobble/internal/credentials"
	"github.com/llehouerou/nowscrobble/internal/discord"
	"github.com/llehouerou/nowscrobble/internal/errmsg"
	"github.com/llehouerou/nowscrobble/internal/lastfm"
	"github.com/llehouerou/nowscrobble/internal/logging"
	"github.com/llehouerou/nowscrobble/internal/mpris"
	"github.com/llehouerou/nowscrobble/internal/notify"
	"github.com/llehouerou/nowscrobble/internal/playback"
	"github.com/llehouerou/nowscrobble/internal/playerctl"
	"github.com/llehouerou/nowscrobble/internal/presence"
	"github.com/llehouerou/nowscrobble/internal/session"
	"github.com/llehouerou/nowscrobble/internal/state"
	"github.com/llehouerou/nowscrobble/internal/ui/authprompt"
)

// shutdownTimeout bounds clearing the presence on exit.
const shutdownTimeout = 2 * time.Second

// Options are the command line inputs.
type Options struct {
	ConfigPath string
	History    int       // > 0 prints that many log entries and exits
	Stdout     io.Writer // history output (default: os.Stdout)
}

// Error is a fatal error tagged with the operation that failed.
type Error struct {
	Op  errmsg.Op
	Err error
}

func (e *Error) Error() string { return errmsg.Format(e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

func fail(op errmsg.Op, err error) error {
	return &Error{Op: op, Err: err}
}

// Run loads the configuration, authenticates if needed and polls the player
// until ctx is canceled. Any returned error is fatal.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fail(errmsg.OpConfigLoad, err)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return fail(errmsg.OpInitialize, err)
	}
	defer func() { _ = log.Sync() }()

	if opts.History > 0 {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		return showHistory(ctx, out, opts.History)
	}

	if err := cfg.Validate(); err != nil {
		return fail(errmsg.OpConfigLoad, err)
	}
	log.Info("starting",
		zap.String("config", cfg.Path),
		zap.String("player", cfg.Player.Backend+":"+cfg.Player.Name),
		zap.Duration("interval", cfg.Player.PollInterval))

	st, err := state.Open()
	if err != nil {
		if cfg.Credentials.Backend == config.CredentialsState {
			return fail(errmsg.OpInitialize, fmt.Errorf("open state database: %w", err))
		}
		log.Warn("state database unavailable, scrobble log disabled", zap.Error(err))
	} else {
		defer st.Close()
	}

	var backend credentials.Backend = config.NewSessionFile(cfg.Path)
	var usernames UsernameStore
	if cfg.Credentials.Backend == config.CredentialsState {
		backend = st
		usernames = st
	}
	store := credentials.New(backend)
	if _, err := store.Load(); err != nil {
		return fail(errmsg.OpCredentialLoad, err)
	}

	clientOpts := []lastfm.Option{lastfm.WithLogger(log.Named("lastfm"))}
	if cfg.Lastfm.Endpoint != "" {
		clientOpts = append(clientOpts, lastfm.WithEndpoint(cfg.Lastfm.Endpoint))
	}
	client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.Secret, store, clientOpts...)

	notifier := openNotifier(cfg, log)

	lookup := func(sk string) (string, error) {
		return lastfm.LookupUsername(cfg.Lastfm.APIKey, cfg.Lastfm.Secret, sk)
	}
	authOpts := []AuthOption{
		WithUserLookup(lookup),
		WithNotifier(notifier),
		WithAuthLogger(log.Named("auth")),
	}
	if !cfg.UseAuthCallback() {
		authOpts = append(authOpts, WithCallbackAddr(""))
	}
	if usernames != nil {
		authOpts = append(authOpts, WithUsernameStore(usernames))
	}
	auth := NewAuthenticator(client, store, authprompt.New(), authOpts...)

	if !client.IsAuthenticated() {
		if _, err := auth.Authenticate(ctx); err != nil {
			return fail(errmsg.OpLastfmAuth, err)
		}
	} else {
		go announceUser(log, lookup, store.SessionKey(), usernames)
	}

	src, closeSrc, err := OpenSource(cfg.Player)
	if err != nil {
		return fail(errmsg.OpPlayerQuery, err)
	}
	if closeSrc != nil {
		defer closeSrc() //nolint:errcheck // best effort on exit
	}

	dc := discord.New(cfg.Discord.ClientID, discord.WithLogger(log.Named("discord")))
	if err := dc.Connect(ctx); err != nil {
		return fail(errmsg.OpPresenceConnect, err)
	}
	defer dc.Close()

	reauth := NewReauthenticator(auth, notifier, log.Named("auth"))
	engine := session.NewEngine(src, dc, client,
		session.WithReauthenticator(reauth),
		session.WithStyle(StyleFrom(cfg.Presence)),
		session.WithLogger(log.Named("session")),
	)

	var history ScrobbleRecorder
	if st != nil {
		history = st
	}

	rt := &runtime{
		engine:    engine,
		presence:  dc,
		scheduler: NewScheduler(cfg.Player.PollInterval, engine, log.Named("scheduler")),
		reauth:    reauth,
		recorder:  newRecorder(history, notifier, log.Named("history")),
		log:       log,
	}
	return rt.run(ctx)
}

// runtime holds the wired components of a running scrobbler.
type runtime struct {
	engine    *session.Engine
	presence  presence.Sink
	scheduler *Scheduler
	reauth    *Reauthenticator
	recorder  *recorder
	log       *zap.Logger
}

func (rt *runtime) run(ctx context.Context) error {
	sub := rt.engine.Subscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.scheduler.Run(gctx) })
	g.Go(func() error { return rt.reauth.Run(gctx) })
	g.Go(func() error { return rt.recorder.Run(gctx, sub) })

	err := g.Wait()
	rt.engine.Close()
	rt.clearPresence()

	if err != nil {
		return fail(errmsg.OpLastfmAuth, err)
	}
	rt.log.Info("stopped")
	return nil
}

func (rt *runtime) clearPresence() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.presence.ClearActivity(ctx); err != nil {
		rt.log.Debug(errmsg.Format(errmsg.OpPresenceClear, err))
	}
}

// OpenSource creates the player source selected by cfg. The returned close
// function may be nil.
func OpenSource(cfg config.PlayerConfig) (playback.Source, func() error, error) {
	switch cfg.Backend {
	case config.BackendMPRIS:
		src, err := mpris.New(cfg.Name)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case config.BackendPlayerctl:
		src, err := playerctl.New(cfg.Name)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown player backend %q", cfg.Backend)
	}
}

// StyleFrom converts the presence settings into an activity style.
func StyleFrom(cfg config.PresenceConfig) presence.Style {
	return presence.Style{
		SmallImageKey:    cfg.SmallImageKey,
		SmallImageText:   cfg.SmallImageText,
		ButtonLabel:      cfg.ButtonLabel,
		FallbackImageKey: cfg.FallbackImageKey,
	}
}

func openNotifier(cfg *config.Config, log *zap.Logger) notify.Notifier {
	if !cfg.NotificationsEnabled() {
		return notify.Disabled()
	}
	n, err := notify.New()
	if err != nil {
		log.Debug("desktop notifications unavailable", zap.Error(err))
		return notify.Disabled()
	}
	return n
}

// announceUser logs the account a stored key belongs to. It is informative
// only; failures are logged at debug level.
func announceUser(log *zap.Logger, lookup func(string) (string, error), key string, usernames UsernameStore) {
	name, err := lookup(key)
	if err != nil {
		log.Debug(errmsg.Format(errmsg.OpLastfmProfile, err))
		return
	}
	log.Info("scrobbling to last.fm", zap.String("user", name))
	if usernames != nil {
		if err := usernames.SetLastfmUsername(name); err != nil {
			log.Debug("save username failed", zap.Error(err))
		}
	}
}

func showHistory(ctx context.Context, out io.Writer, limit int) error {
	st, err := state.Open()
	if err != nil {
		return fail(errmsg.OpHistoryLoad, err)
	}
	defer st.Close()

	if err := PrintHistory(ctx, out, st, limit, time.Now()); err != nil {
		return fail(errmsg.OpHistoryLoad, err)
	}
	return nil
}

// IsCanceled reports whether err only reflects a requested shutdown.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
