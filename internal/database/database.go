package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"fintrack/internal/logging"
	"fintrack/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages all persistent state for the service.
type Database struct {
	db     *sql.DB
	dbPath string
}

// New creates a new Database instance.
// dbPath must be the full path to the database file; the parent directory
// must already exist and be writable (startup.LoadConfig validates this).
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL mode and a busy timeout prevent "database is locked" errors when
	// the collector and the HTTP layer touch the store concurrently.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	-- Financial records (income and expenses)
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		receipt_path TEXT NOT NULL DEFAULT '',
		occurred_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_records_owner ON records(owner_id);
	CREATE INDEX IF NOT EXISTS idx_records_owner_occurred ON records(owner_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_records_receipt ON records(receipt_path) WHERE receipt_path != '';

	-- Profile photo pointer, one row per owner
	CREATE TABLE IF NOT EXISTS profiles (
		owner_id TEXT PRIMARY KEY,
		photo_path TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Persisted image settings, single row
	CREATE TABLE IF NOT EXISTS image_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		quality_percent INTEGER NOT NULL,
		max_dimension_px INTEGER NOT NULL,
		auto_save_to_gallery INTEGER NOT NULL,
		auto_compress INTEGER NOT NULL,
		cache_enabled INTEGER NOT NULL,
		auto_cleanup_enabled INTEGER NOT NULL,
		cleanup_interval_days INTEGER NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Last completed cleanup scheduling marker, one row per owner
	CREATE TABLE IF NOT EXISTS cleanup_marks (
		owner_id TEXT PRIMARY KEY,
		last_run INTEGER NOT NULL
	);
	`

	queryCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.timed("initialize_schema", func() error {
		_, err := d.db.ExecContext(queryCtx, schema)
		return err
	})
}

// timed runs fn and records query metrics for the given operation.
func (d *Database) timed(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.DBQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBQueryTotal.WithLabelValues(op, "error").Inc()
	} else {
		metrics.DBQueryTotal.WithLabelValues(op, "success").Inc()
	}
	return err
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(pingCtx)
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}
