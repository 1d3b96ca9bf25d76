package session

// TrackStarted is emitted when a new session begins.
type TrackStarted struct {
	Session Session
}

// TrackScrobbled is emitted once per session when the scrobble threshold is
// reached. Err is the submission result; the session is marked scrobbled
// either way.
type TrackScrobbled struct {
	Session Session
	Err     error
}

// TrackStopped is emitted when playback stops after a session.
type TrackStopped struct {
	Session Session
}
