package store

import (
	"context"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
)

// Janitor periodically purges terminal commands older than the retention window.
type Janitor struct {
	store     CommandStore
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewJanitor returns a janitor; a non-positive retention disables purging.
func NewJanitor(s CommandStore, retention, interval time.Duration) *Janitor {
	return &Janitor{store: s, retention: retention, interval: interval, now: time.Now}
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	if j.retention <= 0 || j.interval <= 0 {
		logger.Info("Command retention sweep disabled", nil)
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge pass and returns the number of removed commands.
func (j *Janitor) RunOnce(ctx context.Context) int {
	cutoff := j.now().Add(-j.retention)
	n, err := j.store.PurgeTerminalBefore(ctx, cutoff)
	if err != nil {
		logger.Error("Command retention sweep failed", err, logger.Fields{"cutoff": cutoff.Format(time.RFC3339)})
		return 0
	}
	if n > 0 {
		logger.Info("Purged expired commands", logger.Fields{"purged": n})
	}
	return n
}
