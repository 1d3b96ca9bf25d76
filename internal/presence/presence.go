// Package presence builds the "now playing" activity shown to Discord.
package presence

import (
	"context"
	"time"
)

// Button is a clickable link under the activity.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Activity is the payload of a presence update. Zero fields are omitted.
type Activity struct {
	Details string
	State   string

	Start time.Time
	End   time.Time // zero when the track length is unknown

	LargeImageKey  string
	LargeImageText string
	SmallImageKey  string
	SmallImageText string

	Buttons []Button
}

// Sink displays or clears an activity. Both calls are idempotent.
type Sink interface {
	SetActivity(ctx context.Context, a Activity) error
	ClearActivity(ctx context.Context) error
}
