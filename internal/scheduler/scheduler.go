package scheduler

import (
	"context"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"
)

// Syncer runs a full product sync.
type Syncer interface {
	SyncAll(ctx context.Context, category string) (int, error)
}

// DefaultInterval replaces a non-positive interval.
const DefaultInterval = time.Hour

// SyncScheduler triggers a full sync once per interval. Failures are logged
// and the next tick proceeds as normal.
type SyncScheduler struct {
	syncer    Syncer
	clock     clock.Clock
	interval  time.Duration
	onStartup bool
	logger    *zap.Logger
}

func New(syncer Syncer, clk clock.Clock, interval time.Duration, onStartup bool, logger *zap.Logger) *SyncScheduler {
	if interval <= 0 {
		logger.Warn("Invalid sync interval, using default",
			zap.Duration("interval", interval),
			zap.Duration("default", DefaultInterval),
		)
		interval = DefaultInterval
	}
	return &SyncScheduler{
		syncer:    syncer,
		clock:     clk,
		interval:  interval,
		onStartup: onStartup,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *SyncScheduler) Run(ctx context.Context) {
	s.logger.Info("Product sync scheduler started",
		zap.Duration("interval", s.interval),
		zap.Bool("on_startup", s.onStartup),
	)

	if s.onStartup {
		s.runOnce(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Product sync scheduler stopped")
			return
		case <-s.clock.After(s.interval):
			s.runOnce(ctx)
		}
	}
}

func (s *SyncScheduler) runOnce(ctx context.Context) {
	n, err := s.syncer.SyncAll(ctx, "")
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("Scheduled product sync failed", zap.Error(err))
		return
	}
	s.logger.Info("Scheduled product sync finished", zap.Int("upserted", n))
}
