package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fintrack/internal/settings"
)

// LoadImageSettings reads the persisted image settings row. The bool result
// reports whether a row existed; on first run there is none.
func (d *Database) LoadImageSettings(ctx context.Context) (settings.ImageSettings, bool, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s settings.ImageSettings
	var found bool
	err := d.timed("load_settings", func() error {
		var gallery, compress, cache, cleanup int
		err := d.db.QueryRowContext(queryCtx, `
			SELECT quality_percent, max_dimension_px, auto_save_to_gallery, auto_compress,
			       cache_enabled, auto_cleanup_enabled, cleanup_interval_days
			FROM image_settings WHERE id = 1`).
			Scan(&s.QualityPercent, &s.MaxDimensionPx, &gallery, &compress,
				&cache, &cleanup, &s.CleanupIntervalDays)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		s.AutoSaveToGallery = gallery != 0
		s.AutoCompress = compress != 0
		s.CacheEnabled = cache != 0
		s.AutoCleanupEnabled = cleanup != 0
		found = true
		return nil
	})
	return s, found, err
}

// SaveImageSettings writes the image settings row, creating it if needed.
func (d *Database) SaveImageSettings(ctx context.Context, s settings.ImageSettings) error {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.timed("save_settings", func() error {
		_, err := d.db.ExecContext(queryCtx, `
			INSERT INTO image_settings (id, quality_percent, max_dimension_px, auto_save_to_gallery,
				auto_compress, cache_enabled, auto_cleanup_enabled, cleanup_interval_days, updated_at)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				quality_percent = excluded.quality_percent,
				max_dimension_px = excluded.max_dimension_px,
				auto_save_to_gallery = excluded.auto_save_to_gallery,
				auto_compress = excluded.auto_compress,
				cache_enabled = excluded.cache_enabled,
				auto_cleanup_enabled = excluded.auto_cleanup_enabled,
				cleanup_interval_days = excluded.cleanup_interval_days,
				updated_at = excluded.updated_at`,
			s.QualityPercent, s.MaxDimensionPx, boolInt(s.AutoSaveToGallery),
			boolInt(s.AutoCompress), boolInt(s.CacheEnabled), boolInt(s.AutoCleanupEnabled),
			s.CleanupIntervalDays, time.Now().Unix(),
		)
		return err
	})
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
