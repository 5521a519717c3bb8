package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// LastCleanup returns the persisted last-run marker for an owner.
// The bool result reports whether a marker exists.
func (d *Database) LastCleanup(ctx context.Context, ownerID string) (time.Time, bool, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var t time.Time
	var found bool
	err := d.timed("last_cleanup", func() error {
		var unix int64
		err := d.db.QueryRowContext(queryCtx,
			`SELECT last_run FROM cleanup_marks WHERE owner_id = ?`, ownerID).Scan(&unix)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		t = time.Unix(unix, 0)
		found = true
		return nil
	})
	return t, found, err
}

// SetLastCleanup persists the last-run marker for an owner.
func (d *Database) SetLastCleanup(ctx context.Context, ownerID string, t time.Time) error {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.timed("set_last_cleanup", func() error {
		_, err := d.db.ExecContext(queryCtx, `
			INSERT INTO cleanup_marks (owner_id, last_run) VALUES (?, ?)
			ON CONFLICT(owner_id) DO UPDATE SET last_run = excluded.last_run`,
			ownerID, t.Unix(),
		)
		return err
	})
}
