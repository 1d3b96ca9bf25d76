package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultEndpoint is the Last.fm API root.
	DefaultEndpoint = "https://ws.audioscrobbler.com/2.0/"

	maxResponseBytes = 1 << 20
)

// Credentials is the session key holder used by Client.
type Credentials interface {
	// SessionKey returns the active session key, or "" when none is held.
	SessionKey() string
	// Invalidate clears the session key if it still equals stale.
	Invalidate(stale string) error
}

// Client sends signed requests to the Last.fm API.
type Client struct {
	apiKey   string
	secret   string
	endpoint string
	creds    Credentials
	http     *http.Client
	log      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API root.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a client for the given API credentials.
func New(apiKey, secret string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		secret:   secret,
		endpoint: DefaultEndpoint,
		creds:    creds,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIKey returns the application API key.
func (c *Client) APIKey() string {
	return c.apiKey
}

// IsAuthenticated returns true if a session key is held.
func (c *Client) IsAuthenticated() bool {
	return c.creds.SessionKey() != ""
}

// UpdateNowPlaying sends a "now playing" notification.
func (c *Client) UpdateNowPlaying(ctx context.Context, track Track) error {
	sk := c.creds.SessionKey()
	if sk == "" {
		return ErrNotAuthenticated
	}

	params := map[string]string{
		"method":  "track.updateNowPlaying",
		"api_key": c.apiKey,
		"sk":      sk,
		"artist":  track.Artist,
		"track":   track.Title,
	}
	if track.Album != "" {
		params["album"] = track.Album
	}

	if err := c.post(ctx, params); err != nil {
		return fmt.Errorf("update now playing: %w", c.checkSession(sk, err))
	}
	return nil
}

// Scrobble submits a track play.
func (c *Client) Scrobble(ctx context.Context, track Track) error {
	sk := c.creds.SessionKey()
	if sk == "" {
		return ErrNotAuthenticated
	}

	params := map[string]string{
		"method":    "track.scrobble",
		"api_key":   c.apiKey,
		"sk":        sk,
		"artist":    track.Artist,
		"track":     track.Title,
		"timestamp": strconv.FormatInt(track.StartedAt.Unix(), 10),
	}
	if track.Album != "" {
		params["album"] = track.Album
	}
	if secs := int64(track.Duration / time.Second); secs > 0 {
		params["duration"] = strconv.FormatInt(secs, 10)
	}

	if err := c.post(ctx, params); err != nil {
		return fmt.Errorf("scrobble: %w", c.checkSession(sk, err))
	}
	return nil
}

// GetSession exchanges an authorized token for a session.
func (c *Client) GetSession(ctx context.Context, token string) (Session, error) {
	params := map[string]string{
		"method":  "auth.getSession",
		"api_key": c.apiKey,
		"token":   token,
	}
	query := c.signed(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}

	var out struct {
		Session Session `json:"session"`
	}
	if err := c.do(req, &out); err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	if out.Session.Key == "" {
		return Session{}, errors.New("get session: response has no session key")
	}
	return out.Session, nil
}

// checkSession invalidates the credential when err reports an invalid session.
func (c *Client) checkSession(sk string, err error) error {
	if !errors.Is(err, ErrSessionInvalid) {
		return err
	}
	c.log.Warn("last.fm session key rejected, invalidating")
	if ierr := c.creds.Invalidate(sk); ierr != nil {
		return errors.Join(err, fmt.Errorf("invalidate session: %w", ierr))
	}
	return err
}

// signed adds api_sig and format to params and returns them as url.Values.
func (c *Client) signed(params map[string]string) url.Values {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("api_sig", Sign(params, c.secret))
	values.Set(formatParam, "json")
	return values
}

func (c *Client) post(ctx context.Context, params map[string]string) error {
	body := c.signed(params).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, nil)
}

// do executes req and decodes the JSON body into out when non-nil.
// Error payloads are returned as *APIError whatever the HTTP status.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var apiErr APIError
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Code != 0 {
		return &apiErr
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
