package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is used when the sweeper is built with no interval.
const DefaultSweepInterval = time.Minute

// Sweepable drops idle state older than its own timeout.
type Sweepable interface {
	Sweep(now time.Time) int
}

// Sweeper periodically evicts idle storefront sessions.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewSweeper(target Sweepable, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		target:   target,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps on every tick until ctx is done. It always returns nil so it can
// sit in an errgroup next to the HTTP server.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("session sweeper starting", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper shutting down")
			return nil
		case <-ticker.C:
			if removed := s.target.Sweep(s.now()); removed > 0 {
				s.logger.Debug("sweep finished", zap.Int("removed", removed))
			}
		}
	}
}
