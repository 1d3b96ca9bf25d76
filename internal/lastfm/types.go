package lastfm

import (
	"errors"
	"fmt"
	"time"
)

// CodeInvalidSession is the service error code for an expired or revoked session key.
const CodeInvalidSession = 9

var (
	// ErrNotAuthenticated is returned without any network call when no session key is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionInvalid matches an APIError carrying CodeInvalidSession.
	ErrSessionInvalid = errors.New("session key invalid")
)

// Track contains track metadata for now playing and scrobble calls.
type Track struct {
	Artist    string
	Title     string
	Album     string
	StartedAt time.Time     // When playback started; required for scrobbles
	Duration  time.Duration // Sent only when positive
}

// Session is the result of exchanging an authorized token.
type Session struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// APIError is an error payload returned by the service.
type APIError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lastfm error %d: %s", e.Code, e.Message)
}

// Is reports ErrSessionInvalid for invalid session key responses.
func (e *APIError) Is(target error) bool {
	return target == ErrSessionInvalid && e.Code == CodeInvalidSession
}
