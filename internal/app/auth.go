package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/nowscrobble/internal/lastfm"
	"github.com/llehouerou/nowscrobble/internal/notify"
)

const (
	// authTimeout bounds the whole browser round trip.
	authTimeout = 10 * time.Minute

	// manualCallbackURL is used when no local callback server runs: the
	// token then shows up in the address bar of the redirect.
	manualCallbackURL = "https://example.com/"

	unknownUser = "unknown"
)

// TokenPrompt asks the user for the token issued after authorization.
type TokenPrompt interface {
	Ask(ctx context.Context, authURL string, tokens <-chan string) (string, error)
}

// SessionExchanger trades an authorized token for a session.
type SessionExchanger interface {
	APIKey() string
	GetSession(ctx context.Context, token string) (lastfm.Session, error)
}

// SessionSaver persists a new session key.
type SessionSaver interface {
	Save(key string) error
}

// UsernameStore remembers the linked account name.
type UsernameStore interface {
	SetLastfmUsername(username string) error
}

// Authenticator runs the interactive authorization flow.
type Authenticator struct {
	client SessionExchanger
	store  SessionSaver
	prompt TokenPrompt

	callbackAddr string // "" disables the local callback server
	openBrowser  func(url string) error
	lookupUser   func(sessionKey string) (string, error)
	usernames    UsernameStore
	notifier     notify.Notifier
	log          *zap.Logger
}

// AuthOption configures an Authenticator.
type AuthOption func(*Authenticator)

// WithCallbackAddr sets where the callback server listens. An empty address
// means the user always pastes the token.
func WithCallbackAddr(addr string) AuthOption {
	return func(a *Authenticator) { a.callbackAddr = addr }
}

// WithBrowser overrides how the authorization page is opened.
func WithBrowser(open func(url string) error) AuthOption {
	return func(a *Authenticator) { a.openBrowser = open }
}

// WithUserLookup sets how the account name is resolved when the session
// response does not carry it.
func WithUserLookup(lookup func(sessionKey string) (string, error)) AuthOption {
	return func(a *Authenticator) { a.lookupUser = lookup }
}

// WithUsernameStore records the account name after linking.
func WithUsernameStore(s UsernameStore) AuthOption {
	return func(a *Authenticator) { a.usernames = s }
}

// WithNotifier sets the desktop notifier.
func WithNotifier(n notify.Notifier) AuthOption {
	return func(a *Authenticator) { a.notifier = n }
}

// WithAuthLogger sets the logger.
func WithAuthLogger(l *zap.Logger) AuthOption {
	return func(a *Authenticator) { a.log = l }
}

// DefaultCallbackAddr is the loopback address of the callback server.
func DefaultCallbackAddr() string {
	return net.JoinHostPort("localhost", strconv.Itoa(lastfm.AuthCallbackPort))
}

// NewAuthenticator creates an Authenticator. The callback server is enabled
// on DefaultCallbackAddr unless overridden.
func NewAuthenticator(client SessionExchanger, store SessionSaver, prompt TokenPrompt, opts ...AuthOption) *Authenticator {
	a := &Authenticator{
		client:       client,
		store:        store,
		prompt:       prompt,
		callbackAddr: DefaultCallbackAddr(),
		openBrowser:  lastfm.OpenBrowser,
		notifier:     notify.Disabled(),
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate obtains a token from the user, exchanges it for a session
// and saves the key. It returns the linked account name.
func (a *Authenticator) Authenticate(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	callback := manualCallbackURL
	var tokens <-chan string
	if a.callbackAddr != "" {
		srv, err := lastfm.StartAuthServer(a.callbackAddr)
		if err != nil {
			a.log.Warn("auth callback server unavailable, paste the token instead", zap.Error(err))
		} else {
			defer srv.Shutdown()
			callback = srv.CallbackURL()
			tokens = srv.TokenChan()
		}
	}

	authURL := lastfm.AuthURL(a.client.APIKey(), callback)
	a.log.Info("last.fm authorization required", zap.String("url", authURL))
	if err := a.openBrowser(authURL); err != nil {
		a.log.Debug("could not open browser", zap.Error(err))
	}

	token, err := a.prompt.Ask(ctx, authURL, tokens)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("no token within %v: %w", authTimeout, err)
		}
		return "", fmt.Errorf("read token: %w", err)
	}

	sess, err := a.client.GetSession(ctx, token)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	if sess.Key == "" {
		return "", errors.New("get session: empty session key")
	}
	if err := a.store.Save(sess.Key); err != nil {
		return "", err
	}

	username := a.resolveUsername(sess)
	a.log.Info("last.fm account linked", zap.String("user", username))
	if a.usernames != nil && username != unknownUser {
		if err := a.usernames.SetLastfmUsername(username); err != nil {
			a.log.Warn("save username failed", zap.Error(err))
		}
	}
	if _, err := a.notifier.Notify(notify.Linked(username)); err != nil {
		a.log.Debug("notification failed", zap.Error(err))
	}
	return username, nil
}

func (a *Authenticator) resolveUsername(sess lastfm.Session) string {
	if sess.Name != "" {
		return sess.Name
	}
	if a.lookupUser == nil {
		return unknownUser
	}
	name, err := a.lookupUser(sess.Key)
	if err != nil || name == "" {
		a.log.Warn("username lookup failed", zap.Error(err))
		return unknownUser
	}
	return name
}
