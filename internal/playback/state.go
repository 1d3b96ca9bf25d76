package playback

// State represents the player's reported status.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// ParseState maps an MPRIS PlaybackStatus string ("Playing", "Paused",
// "Stopped") to a State. Unknown values map to StateStopped.
func ParseState(s string) State {
	switch s {
	case "Playing":
		return StatePlaying
	case "Paused":
		return StatePaused
	default:
		return StateStopped
	}
}
