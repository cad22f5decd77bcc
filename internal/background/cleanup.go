package background

import (
	"context"
	"log/slog"
	"time"
)

// AttemptSweeper is the cleanup side of the failed-attempt limiter
type AttemptSweeper interface {
	CleanupExpiredRecords(retention time.Duration) int
}

// CleanupManager periodically evicts stale failed-attempt records so the
// limiter's memory stays bounded by recent activity.
type CleanupManager struct {
	limiter   AttemptSweeper
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	limiter AttemptSweeper,
	logger *slog.Logger,
	interval time.Duration,
	retention time.Duration,
) *CleanupManager {
	return &CleanupManager{
		limiter:   limiter,
		logger:    logger,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic sweep. It blocks until Stop is called or the
// context is cancelled.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.runSweep()
		case <-cm.stopCh:
			cm.logger.Info("attempt record sweeper stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("attempt record sweeper context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runSweep() {
	removed := cm.limiter.CleanupExpiredRecords(cm.retention)
	if removed > 0 {
		cm.logger.Info("evicted stale attempt records", slog.Int("records", removed))
	}
}

// Stop signals the sweeper to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
