// Package collector reclaims disk space by deleting stored assets that no
// record or slot references. Passes are single-flight across the process
// and rate-limited by a persisted last-run marker.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/logging"
	"fintrack/internal/metrics"
	"fintrack/internal/settings"
)

// Sentinel errors.
var (
	// ErrAlreadyRunning means a collection pass is already in flight.
	// The caller may retry later; passes are never queued.
	ErrAlreadyRunning = errors.New("cleanup already running")

	// ErrReferenceRead means the reference set could not be built. The
	// pass aborts with zero deletions: an incomplete reference set could
	// delete assets that are still in use.
	ErrReferenceRead = errors.New("failed to read reference set")
)

// Image files are identified by extension allow-list; anything else under
// the asset root is left alone.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// ReferenceSource lists the asset paths referenced by an owner's records.
// *database.Database satisfies it.
type ReferenceSource interface {
	ListReceiptPaths(ctx context.Context, ownerID string) ([]string, error)
}

// SlotSource reports the active slot's variant paths. *profile.Facade
// satisfies it.
type SlotSource interface {
	ActivePaths() []string
}

// RunMarks persists the per-owner last-run timestamp used for rate
// limiting. *database.Database satisfies it.
type RunMarks interface {
	LastCleanup(ctx context.Context, ownerID string) (time.Time, bool, error)
	SetLastCleanup(ctx context.Context, ownerID string, t time.Time) error
}

// SettingsSource loads the current image settings. *settings.Store
// satisfies it.
type SettingsSource interface {
	Load(ctx context.Context) (settings.ImageSettings, error)
}

// CleanupRun summarizes one collection pass. DeletedPaths is ordered by
// deletion order.
type CleanupRun struct {
	StartedAt     time.Time `json:"startedAt"`
	ScannedCount  int       `json:"scannedCount"`
	DeletedPaths  []string  `json:"deletedPaths"`
	FreedBytes    int64     `json:"freedBytes"`
	SkippedErrors int       `json:"skippedErrors"`
}

// Collector scans the durable asset directory and deletes orphans.
type Collector struct {
	assetDir string
	refs     ReferenceSource
	marks    RunMarks
	slots    SlotSource
	settings SettingsSource
	cache    *cache.Cache

	mu      sync.Mutex
	running bool
}

// New creates a Collector. slots may be nil before a session facade exists;
// the reference set then contains record paths only.
func New(assetDir string, refs ReferenceSource, marks RunMarks, slots SlotSource, settingsSrc SettingsSource, scratch *cache.Cache) *Collector {
	return &Collector{
		assetDir: assetDir,
		refs:     refs,
		marks:    marks,
		slots:    slots,
		settings: settingsSrc,
		cache:    scratch,
	}
}

// SetSlotSource wires the session facade in after construction.
func (c *Collector) SetSlotSource(slots SlotSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots = slots
}

// IsRunning reports whether a pass is currently in flight.
func (c *Collector) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// tryStart attempts to claim the single-flight guard.
func (c *Collector) tryStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return false
	}
	c.running = true
	return true
}

func (c *Collector) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

// CollectOrphans runs one collection pass for an owner. It fails fast with
// ErrAlreadyRunning if a pass is in flight anywhere in the process.
func (c *Collector) CollectOrphans(ctx context.Context, ownerID string) (*CleanupRun, error) {
	if !c.tryStart() {
		metrics.CleanupRunsTotal.WithLabelValues("already_running").Inc()
		return nil, ErrAlreadyRunning
	}
	defer c.finish()

	metrics.CleanupIsRunning.Set(1)
	defer metrics.CleanupIsRunning.Set(0)

	run := &CleanupRun{StartedAt: time.Now()}

	cfg, err := c.settings.Load(ctx)
	if err != nil {
		metrics.CleanupRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if !cfg.AutoCleanupEnabled {
		logging.Debug("Auto cleanup disabled, skipping pass for owner %s", ownerID)
		metrics.CleanupRunsTotal.WithLabelValues("skipped").Inc()
		return run, nil
	}

	logging.Info("Starting orphan collection for owner %s", ownerID)

	stored, scanErrors := c.scanAssets()
	run.ScannedCount = len(stored)
	run.SkippedErrors += scanErrors
	metrics.CleanupFilesScanned.Add(float64(len(stored)))

	refs, err := c.referenceSet(ctx, ownerID)
	if err != nil {
		metrics.CleanupRunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrReferenceRead, err)
	}

	for _, path := range stored {
		if refs[filepath.Clean(path)] {
			continue
		}
		size, deleted, failed := c.deleteOrphan(path)
		if failed {
			run.SkippedErrors++
			continue
		}
		if !deleted {
			continue
		}
		run.DeletedPaths = append(run.DeletedPaths, path)
		run.FreedBytes += size
	}

	c.enforceCacheLimit()

	duration := time.Since(run.StartedAt)
	metrics.CleanupRunsTotal.WithLabelValues("success").Inc()
	metrics.CleanupLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.CleanupLastRunDuration.Set(duration.Seconds())
	metrics.CleanupFilesDeleted.Add(float64(len(run.DeletedPaths)))
	metrics.CleanupBytesFreed.Add(float64(run.FreedBytes))
	metrics.CleanupFileErrors.Add(float64(run.SkippedErrors))

	logging.Info("Orphan collection complete: scanned %d, deleted %d, freed %d bytes, %d errors in %v",
		run.ScannedCount, len(run.DeletedPaths), run.FreedBytes, run.SkippedErrors, duration)

	return run, nil
}

// scanAssets enumerates every image file under the asset root. Per-file
// errors are logged and counted, never fatal.
func (c *Collector) scanAssets() ([]string, int) {
	var paths []string
	var errCount int

	err := filepath.WalkDir(c.assetDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			logging.Warn("scan error at %s: %v", path, err)
			errCount++
			return nil
		}
		if d.IsDir() || !isImagePath(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		// WalkDir only returns an error from the callback; counted above.
		logging.Warn("asset scan terminated early: %v", err)
	}

	return paths, errCount
}

// referenceSet builds the set of in-use asset paths: every non-empty
// receipt path plus the active slot pair. It reads through the same record
// path the rest of the system uses, never a cached copy.
func (c *Collector) referenceSet(ctx context.Context, ownerID string) (map[string]bool, error) {
	receiptPaths, err := c.refs.ListReceiptPaths(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	refs := make(map[string]bool, len(receiptPaths)+2)
	for _, path := range receiptPaths {
		if path != "" {
			refs[filepath.Clean(path)] = true
		}
	}

	c.mu.Lock()
	slots := c.slots
	c.mu.Unlock()
	if slots != nil {
		for _, path := range slots.ActivePaths() {
			if path != "" {
				refs[filepath.Clean(path)] = true
			}
		}
	}

	return refs, nil
}

// deleteOrphan removes one orphan and returns its size. A file that
// vanished since the scan is treated as already collected, not an error.
func (c *Collector) deleteOrphan(path string) (size int64, deleted, failed bool) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, false
		}
		logging.Warn("failed to stat orphan %s: %v", path, err)
		return 0, false, true
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return 0, false, false
		}
		logging.Warn("failed to delete orphan %s: %v", path, err)
		return 0, false, true
	}

	logging.Debug("Deleted orphan asset: %s (%d bytes)", path, info.Size())
	return info.Size(), true, false
}

func (c *Collector) enforceCacheLimit() {
	if c.cache == nil {
		return
	}
	cleared, freed, err := c.cache.EnforceLimit()
	if err != nil {
		logging.Warn("cache limit enforcement failed: %v", err)
		return
	}
	if cleared {
		logging.Info("Ephemeral cache cleared during collection: %d bytes freed", freed)
	}
}

func isImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}
