package collector

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"fintrack/internal/logging"
	"fintrack/internal/workers"

	"golang.org/x/sync/errgroup"
)

// StorageStats is a snapshot of the asset store for introspection.
type StorageStats struct {
	AssetCount  int   `json:"assetCount"`
	AssetBytes  int64 `json:"assetBytes"`
	OrphanCount int   `json:"orphanCount"`
	OrphanBytes int64 `json:"orphanBytes"`
	CacheBytes  int64 `json:"cacheBytes"`
}

// Stats computes storage statistics without deleting anything. The asset
// scan, cache sizing and reference read run concurrently.
func (c *Collector) Stats(ctx context.Context, ownerID string) (*StorageStats, error) {
	stats := &StorageStats{}

	var mu sync.Mutex
	sizes := make(map[string]int64)
	var refs map[string]bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForIO(8))

	g.Go(func() error {
		return filepath.WalkDir(c.assetDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				logging.Warn("stats scan error at %s: %v", path, err)
				return nil
			}
			if d.IsDir() || !isImagePath(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			mu.Lock()
			sizes[path] = info.Size()
			mu.Unlock()
			return nil
		})
	})

	g.Go(func() error {
		built, err := c.referenceSet(gctx, ownerID)
		if err != nil {
			return err
		}
		mu.Lock()
		refs = built
		mu.Unlock()
		return nil
	})

	if c.cache != nil {
		g.Go(func() error {
			size, err := c.cache.Size()
			if err != nil {
				logging.Warn("cache size for stats failed: %v", err)
				return nil
			}
			mu.Lock()
			stats.CacheBytes = size
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for path, size := range sizes {
		stats.AssetCount++
		stats.AssetBytes += size
		if !refs[filepath.Clean(path)] {
			stats.OrphanCount++
			stats.OrphanBytes += size
		}
	}

	return stats, nil
}
