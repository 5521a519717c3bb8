package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordKind distinguishes income from expense records.
type RecordKind string

// Record kinds.
const (
	RecordIncome  RecordKind = "income"
	RecordExpense RecordKind = "expense"
)

// Valid reports whether k is a known record kind.
func (k RecordKind) Valid() bool {
	return k == RecordIncome || k == RecordExpense
}

// Record is one financial record. ReceiptPath, when non-empty, points at a
// stored asset and keeps that asset reachable for the collector.
type Record struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Kind        RecordKind `json:"kind"`
	AmountCents int64      `json:"amountCents"`
	Category    string     `json:"category"`
	Note        string     `json:"note"`
	ReceiptPath string     `json:"receiptPath,omitempty"`
	OccurredAt  time.Time  `json:"occurredAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateRecord inserts a new record, assigning an ID if none is set.
func (d *Database) CreateRecord(ctx context.Context, rec *Record) error {
	if !rec.Kind.Valid() {
		return fmt.Errorf("invalid record kind %q", rec.Kind)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = now
	}

	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.timed("create_record", func() error {
		_, err := d.db.ExecContext(queryCtx, `
			INSERT INTO records (id, owner_id, kind, amount_cents, category, note, receipt_path, occurred_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.OwnerID, string(rec.Kind), rec.AmountCents, rec.Category, rec.Note,
			rec.ReceiptPath, rec.OccurredAt.Unix(), rec.CreatedAt.Unix(), rec.UpdatedAt.Unix(),
		)
		return err
	})
}

// ListRecords returns all records for an owner, newest first.
func (d *Database) ListRecords(ctx context.Context, ownerID string) ([]Record, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var records []Record
	err := d.timed("list_records", func() error {
		rows, err := d.db.QueryContext(queryCtx, `
			SELECT id, owner_id, kind, amount_cents, category, note, receipt_path, occurred_at, created_at, updated_at
			FROM records WHERE owner_id = ? ORDER BY occurred_at DESC, id`,
			ownerID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rec Record
			var kind string
			var occurred, created, updated int64
			if err := rows.Scan(&rec.ID, &rec.OwnerID, &kind, &rec.AmountCents, &rec.Category,
				&rec.Note, &rec.ReceiptPath, &occurred, &created, &updated); err != nil {
				return err
			}
			rec.Kind = RecordKind(kind)
			rec.OccurredAt = time.Unix(occurred, 0)
			rec.CreatedAt = time.Unix(created, 0)
			rec.UpdatedAt = time.Unix(updated, 0)
			records = append(records, rec)
		}
		return rows.Err()
	})
	return records, err
}

// DeleteRecord removes a record by ID. Deleting a missing record is not an
// error; the returned bool reports whether a row was removed.
func (d *Database) DeleteRecord(ctx context.Context, ownerID, id string) (bool, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var deleted bool
	err := d.timed("delete_record", func() error {
		res, err := d.db.ExecContext(queryCtx,
			`DELETE FROM records WHERE owner_id = ? AND id = ?`, ownerID, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// ListReceiptPaths returns every non-empty receipt path referenced by the
// owner's records. This is the record-store half of the collector's
// reference set.
func (d *Database) ListReceiptPaths(ctx context.Context, ownerID string) ([]string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var paths []string
	err := d.timed("list_receipt_paths", func() error {
		rows, err := d.db.QueryContext(queryCtx,
			`SELECT receipt_path FROM records WHERE owner_id = ? AND receipt_path != ''`, ownerID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var path string
			if err := rows.Scan(&path); err != nil {
				return err
			}
			paths = append(paths, path)
		}
		return rows.Err()
	})
	return paths, err
}
