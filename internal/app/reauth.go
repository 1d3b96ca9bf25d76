package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/llehouerou/nowscrobble/internal/notify"
)

// Flow obtains a fresh credential.
type Flow interface {
	Authenticate(ctx context.Context) (string, error)
}

// Reauthenticator runs the authorization flow in the background when the
// service rejects the stored session key. At most one flow runs at a time
// and requests made while one is running are coalesced into it.
type Reauthenticator struct {
	flow     Flow
	notifier notify.Notifier
	log      *zap.Logger
	requests chan struct{}
}

// NewReauthenticator creates a Reauthenticator around flow.
func NewReauthenticator(flow Flow, notifier notify.Notifier, log *zap.Logger) *Reauthenticator {
	if notifier == nil {
		notifier = notify.Disabled()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reauthenticator{
		flow:     flow,
		notifier: notifier,
		log:      log,
		requests: make(chan struct{}, 1),
	}
}

// RequestReauth asks for a new flow. It never blocks.
func (r *Reauthenticator) RequestReauth() {
	select {
	case r.requests <- struct{}{}:
	default:
	}
}

// Run serves requests until ctx is done. A failed flow ends Run with an
// error; the caller treats it as fatal.
func (r *Reauthenticator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.requests:
		}

		r.log.Warn("last.fm session rejected, re-authentication required")
		if _, err := r.notifier.Notify(notify.ReauthRequired()); err != nil {
			r.log.Debug("notification failed", zap.Error(err))
		}

		if _, err := r.flow.Authenticate(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("re-authenticate: %w", err)
		}

		// Rejections of the old key that raced the flow are already handled.
		select {
		case <-r.requests:
		default:
		}
	}
}
