package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Ticker is driven by the Scheduler.
type Ticker interface {
	Tick(ctx context.Context)
}

// Scheduler calls Tick once at startup and then every interval until ctx is
// done. Ticks never overlap: a tick that comes due while one is running is
// dropped.
type Scheduler struct {
	interval time.Duration
	target   Ticker
	log      *zap.Logger
}

// NewScheduler creates a scheduler for target.
func NewScheduler(interval time.Duration, target Ticker, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{interval: interval, target: target, log: log}
}

// Run blocks until ctx is done. The tick in progress is allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Debug("scheduler started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.target.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("scheduler stopped")
			return nil
		case <-ticker.C:
			s.target.Tick(ctx)
		}
	}
}
