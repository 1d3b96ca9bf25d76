// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Last.fm operations
	OpLastfmAuth       Op = "authenticate with Last.fm"
	OpLastfmNowPlaying Op = "update Last.fm now playing"
	OpLastfmScrobble   Op = "scrobble to Last.fm"
	OpLastfmProfile    Op = "look up Last.fm user"

	// Credential operations
	OpCredentialLoad Op = "load session key"

	// Player operations
	OpPlayerQuery Op = "query player"

	// Presence operations
	OpPresenceConnect Op = "connect to Discord"
	OpPresenceSet     Op = "set Discord activity"
	OpPresenceClear   Op = "clear Discord activity"

	// History
	OpHistoryRecord Op = "record scrobble"
	OpHistoryLoad   Op = "load scrobble history"

	// Initialization
	OpConfigLoad Op = "load configuration"
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
