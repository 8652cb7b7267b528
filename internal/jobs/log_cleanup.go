package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const LogCleanupJob = "system_log_cleanup"

type LogPruner interface {
	DeleteSystemLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LogCleanup deletes persisted system logs older than the retention.
type LogCleanup struct {
	pruner    LogPruner
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewLogCleanup(pruner LogPruner, retention time.Duration, logger *slog.Logger) *LogCleanup {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogCleanup{
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
		logger:    logger.With("action", LogCleanupJob),
	}
}

func (c *LogCleanup) Run(ctx context.Context) error {
	cutoff := c.now().UTC().Add(-c.retention)
	deleted, err := c.pruner.DeleteSystemLogsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete system logs: %w", err)
	}
	if deleted > 0 {
		c.logger.Info("log cleanup completed", "deleted", deleted, "cutoff", cutoff)
	}
	return nil
}
