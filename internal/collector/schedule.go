package collector

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/logging"
)

// ScheduleCleanup triggers a collection pass if enough whole days have
// elapsed since the persisted last run (or none is recorded). The pass runs
// detached; the new last-run marker is persisted before it completes, so a
// crash mid-pass does not make the next start immediately re-run it.
// The bool result reports whether a pass was triggered.
func (c *Collector) ScheduleCleanup(ctx context.Context, ownerID string) (bool, error) {
	cfg, err := c.settings.Load(ctx)
	if err != nil {
		return false, err
	}

	last, found, err := c.marks.LastCleanup(ctx, ownerID)
	if err != nil {
		return false, err
	}

	if found {
		elapsedDays := int(time.Since(last).Hours() / 24)
		if elapsedDays < cfg.CleanupIntervalDays {
			logging.Debug("Cleanup not due for owner %s: %d of %d days elapsed",
				ownerID, elapsedDays, cfg.CleanupIntervalDays)
			return false, nil
		}
	}

	if err := c.marks.SetLastCleanup(ctx, ownerID, time.Now()); err != nil {
		return false, err
	}

	// Fire and forget. The detached pass must log its own outcome; a
	// silent failure here would be untraceable data loss.
	go func() {
		run, err := c.CollectOrphans(context.Background(), ownerID)
		if err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				logging.Info("Scheduled cleanup for owner %s skipped: pass already in flight", ownerID)
				return
			}
			logging.Error("Scheduled cleanup for owner %s failed: %v", ownerID, err)
			return
		}
		logging.Info("Scheduled cleanup for owner %s: deleted %d assets, freed %d bytes",
			ownerID, len(run.DeletedPaths), run.FreedBytes)
	}()

	return true, nil
}
