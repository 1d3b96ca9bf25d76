// Package notify provides desktop notifications via D-Bus.
package notify

import "fmt"

const (
	appName        = "nowscrobble"
	appDisplayName = "nowscrobble"
)

// Urgency represents notification priority levels per freedesktop spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification contains data for a desktop notification.
type Notification struct {
	Title      string  // Summary text (required)
	Body       string  // Body text (optional, supports basic markup)
	Icon       string  // Path to image file or icon name (optional)
	Timeout    int32   // ms, -1 = server default, 0 = never expire
	ReplacesID uint32  // 0 = new notification, >0 = replace existing
	Urgency    Urgency // Low, Normal, Critical
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID.
	// Returns 0 and nil error if notifications are disabled or unavailable.
	Notify(n Notification) (uint32, error)
	// Close closes a notification by ID.
	Close(id uint32) error
}

// stubNotifier discards notifications. It is used when notifications are
// disabled or no notification service is available.
type stubNotifier struct{}

func (s *stubNotifier) Notify(_ Notification) (uint32, error) {
	return 0, nil
}

func (s *stubNotifier) Close(_ uint32) error {
	return nil
}

// Disabled returns a Notifier that sends nothing.
func Disabled() Notifier {
	return &stubNotifier{}
}

// ReauthRequired asks the user to authorize the application again.
func ReauthRequired() Notification {
	return Notification{
		Title:   "Last.fm session expired",
		Body:    "Scrobbling is paused. Authorize nowscrobble again in the terminal.",
		Icon:    "dialog-warning",
		Timeout: -1,
		Urgency: UrgencyCritical,
	}
}

// Linked confirms a successful authorization.
func Linked(username string) Notification {
	body := "Scrobbling to Last.fm."
	if username != "" {
		body = fmt.Sprintf("Scrobbling to Last.fm as %s.", username)
	}
	return Notification{
		Title:   "Last.fm linked",
		Body:    body,
		Icon:    "emblem-ok-symbolic",
		Timeout: 5000,
		Urgency: UrgencyNormal,
	}
}

// ScrobbleFailed reports a scrobble that was dropped.
func ScrobbleFailed(artist, title string, err error) Notification {
	return Notification{
		Title:   "Scrobble failed",
		Body:    fmt.Sprintf("%s - %s: %v", artist, title, err),
		Icon:    "dialog-error",
		Timeout: 5000,
		Urgency: UrgencyLow,
	}
}
