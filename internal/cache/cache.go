// Package cache manages the bounded scratch directory for transient derived
// images. Durable variants never live here; the whole directory can be
// cleared at any time.
package cache

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"fintrack/internal/logging"
	"fintrack/internal/metrics"

	"github.com/google/uuid"
)

// HighWaterBytes is the size threshold above which the cache is cleared
// entirely. Eviction is deliberately coarse: clear-all is easy to reason
// about and this cache only ever holds recreatable scratch files.
const HighWaterBytes = 50 * 1024 * 1024

// Cache is the ephemeral scratch directory.
type Cache struct {
	dir     string
	enabled bool
}

// New creates a Cache rooted at dir. A disabled cache rejects writes and
// reports size zero.
func New(dir string, enabled bool) *Cache {
	if enabled {
		logging.Debug("Ephemeral cache enabled, dir: %s", dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.Warn("failed to create cache dir: %v", err)
		}
	} else {
		logging.Debug("Ephemeral cache disabled")
	}
	return &Cache{dir: dir, enabled: enabled}
}

// IsEnabled reports whether the cache accepts writes.
func (c *Cache) IsEnabled() bool {
	return c.enabled
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// WriteTemp streams r into a fresh scratch file and returns its path.
// Scratch files have no stable identity, so names are random.
func (c *Cache) WriteTemp(ext string, r io.Reader) (string, error) {
	if !c.enabled {
		return "", fmt.Errorf("ephemeral cache is disabled")
	}

	path := filepath.Join(c.dir, uuid.NewString()+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		if closeErr := f.Close(); closeErr != nil {
			logging.Warn("failed to close scratch file %s: %v", path, closeErr)
		}
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("failed to remove partial scratch file %s: %v", path, rmErr)
		}
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close scratch file: %w", err)
	}
	return path, nil
}

// Size returns the total bytes held by the cache.
func (c *Cache) Size() (int64, error) {
	if !c.enabled {
		return 0, nil
	}

	var total int64
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			logging.Warn("cache size walk error at %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk cache dir: %w", err)
	}

	metrics.CacheSizeBytes.Set(float64(total))
	return total, nil
}

// Clear deletes every file in the cache and returns the freed bytes.
// Already-gone files are not an error.
func (c *Cache) Clear() (int64, error) {
	if !c.enabled {
		return 0, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache dir: %w", err)
	}

	var freed int64
	for _, entry := range entries {
		path := filepath.Join(c.dir, entry.Name())
		if info, err := entry.Info(); err == nil && !entry.IsDir() {
			freed += info.Size()
		}
		if err := os.RemoveAll(path); err != nil {
			logging.Warn("failed to remove cache entry %s: %v", path, err)
		}
	}

	metrics.CacheClearsTotal.Inc()
	metrics.CacheSizeBytes.Set(0)
	logging.Info("Ephemeral cache cleared: %d bytes freed", freed)
	return freed, nil
}

// EnforceLimit clears the cache when it exceeds the high-water mark.
// It returns whether a clear happened and how many bytes were freed.
func (c *Cache) EnforceLimit() (bool, int64, error) {
	size, err := c.Size()
	if err != nil {
		return false, 0, err
	}
	if size <= HighWaterBytes {
		return false, 0, nil
	}

	logging.Info("Ephemeral cache over high-water mark (%d > %d bytes), clearing", size, int64(HighWaterBytes))
	freed, err := c.Clear()
	return err == nil, freed, err
}
