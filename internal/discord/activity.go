package discord

import (
	"encoding/json"

	"github.com/llehouerou/nowscrobble/internal/presence"
)

type handshake struct {
	V        int    `json:"v"`
	ClientID string `json:"client_id"`
}

type command struct {
	Cmd   string          `json:"cmd"`
	Args  json.RawMessage `json:"args,omitempty"`
	Nonce string          `json:"nonce,omitempty"`
}

type response struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

// errorData is the payload of ERROR events and close frames.
type errorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type setActivityArgs struct {
	PID      int           `json:"pid"`
	Activity *wireActivity `json:"activity"` // null clears
}

type wireActivity struct {
	Details    string            `json:"details,omitempty"`
	State      string            `json:"state,omitempty"`
	Timestamps *wireTimestamps   `json:"timestamps,omitempty"`
	Assets     *wireAssets       `json:"assets,omitempty"`
	Buttons    []presence.Button `json:"buttons,omitempty"`
	Instance   bool              `json:"instance"`
}

// Timestamps are unix seconds.
type wireTimestamps struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

type wireAssets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Discord rejects activity strings shorter than 2 or longer than 128 bytes.
const (
	minTextLen = 2
	maxTextLen = 128
)

func toWire(a presence.Activity) *wireActivity {
	w := &wireActivity{
		Details: fitText(a.Details),
		State:   fitText(a.State),
		Buttons: a.Buttons,
	}
	if !a.Start.IsZero() || !a.End.IsZero() {
		w.Timestamps = &wireTimestamps{}
		if !a.Start.IsZero() {
			w.Timestamps.Start = a.Start.Unix()
		}
		if !a.End.IsZero() {
			w.Timestamps.End = a.End.Unix()
		}
	}
	assets := wireAssets{
		LargeImage: a.LargeImageKey,
		LargeText:  fitText(a.LargeImageText),
		SmallImage: a.SmallImageKey,
		SmallText:  fitText(a.SmallImageText),
	}
	if assets != (wireAssets{}) {
		w.Assets = &assets
	}
	return w
}

// fitText pads short strings and truncates long ones on a rune boundary.
func fitText(s string) string {
	if s == "" {
		return ""
	}
	if len(s) < minTextLen {
		return s + " "
	}
	if len(s) <= maxTextLen {
		return s
	}
	runes := []rune(s)
	for len(string(runes)) > maxTextLen-3 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
