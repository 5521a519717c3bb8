package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetProfilePhotoPath returns the stored profile photo path for an owner.
// An owner without a profile row or with a cleared photo yields "".
func (d *Database) GetProfilePhotoPath(ctx context.Context, ownerID string) (string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var path string
	err := d.timed("get_profile_photo", func() error {
		err := d.db.QueryRowContext(queryCtx,
			`SELECT photo_path FROM profiles WHERE owner_id = ?`, ownerID).Scan(&path)
		if errors.Is(err, sql.ErrNoRows) {
			path = ""
			return nil
		}
		return err
	})
	return path, err
}

// SetProfilePhotoPath stores the profile photo path for an owner.
// Pass "" to clear it.
func (d *Database) SetProfilePhotoPath(ctx context.Context, ownerID, path string) error {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.timed("set_profile_photo", func() error {
		_, err := d.db.ExecContext(queryCtx, `
			INSERT INTO profiles (owner_id, photo_path, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(owner_id) DO UPDATE SET photo_path = excluded.photo_path, updated_at = excluded.updated_at`,
			ownerID, path, time.Now().Unix(),
		)
		return err
	})
}
