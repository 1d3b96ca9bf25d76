package session

const eventBufferSize = 16

// Subscription provides event channels for a subscriber.
type Subscription struct {
	Started   <-chan TrackStarted
	Scrobbled <-chan TrackScrobbled
	Stopped   <-chan TrackStopped
	Done      <-chan struct{}

	startedCh   chan TrackStarted
	scrobbledCh chan TrackScrobbled
	stoppedCh   chan TrackStopped
	doneCh      chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		startedCh:   make(chan TrackStarted, eventBufferSize),
		scrobbledCh: make(chan TrackScrobbled, eventBufferSize),
		stoppedCh:   make(chan TrackStopped, eventBufferSize),
		doneCh:      make(chan struct{}),
	}
	s.Started = s.startedCh
	s.Scrobbled = s.scrobbledCh
	s.Stopped = s.stoppedCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// The send methods never block: events are dropped when a buffer is full so a
// slow subscriber cannot stall a tick.

func (s *Subscription) sendStarted(e TrackStarted) {
	select {
	case s.startedCh <- e:
	default:
	}
}

func (s *Subscription) sendScrobbled(e TrackScrobbled) {
	select {
	case s.scrobbledCh <- e:
	default:
	}
}

func (s *Subscription) sendStopped(e TrackStopped) {
	select {
	case s.stoppedCh <- e:
	default:
	}
}
