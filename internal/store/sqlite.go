package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/amishk599/applynow/internal/model"
)

// Ensure SQLiteStore implements model.Store.
var _ model.Store = (*SQLiteStore)(nil)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id             TEXT PRIMARY KEY,
		link           TEXT NOT NULL UNIQUE,
		company        TEXT NOT NULL,
		title          TEXT NOT NULL DEFAULT '',
		location       TEXT NOT NULL DEFAULT '',
		job_type       TEXT NOT NULL DEFAULT '',
		description    TEXT NOT NULL DEFAULT '',
		salary_min     INTEGER,
		salary_max     INTEGER,
		work_model     TEXT,
		industry       TEXT,
		seniority      TEXT,
		technologies   TEXT NOT NULL DEFAULT '[]',
		is_winnipeg    INTEGER NOT NULL DEFAULT 0,
		department     TEXT NOT NULL DEFAULT 'other',
		min_experience INTEGER,
		archived       INTEGER NOT NULL DEFAULT 0,
		last_seen      INTEGER NOT NULL,
		date_added     INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_company_idx ON jobs (company)`,
	`CREATE TABLE IF NOT EXISTS notification_events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id     TEXT NOT NULL REFERENCES jobs (id),
		event_type TEXT NOT NULL,
		notified   INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	// At most one unsent event per (job, type).
	`CREATE UNIQUE INDEX IF NOT EXISTS notification_events_unsent_idx
		ON notification_events (job_id, event_type) WHERE notified = 0`,
	`CREATE INDEX IF NOT EXISTS notification_events_pending_idx
		ON notification_events (notified, event_type, created_at)`,
	`CREATE TABLE IF NOT EXISTS alert_filters (
		user_id     INTEGER PRIMARY KEY,
		is_active   INTEGER NOT NULL DEFAULT 1,
		is_winnipeg INTEGER NOT NULL DEFAULT 1,
		salary_min  INTEGER,
		salary_max  INTEGER,
		created_at  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alert_filter_values (
		user_id   INTEGER NOT NULL REFERENCES alert_filters (user_id),
		dimension TEXT NOT NULL,
		value     TEXT NOT NULL,
		PRIMARY KEY (user_id, dimension, value)
	)`,
}

// SQLiteStore persists jobs, the notification queue and alert filters in a
// SQLite database.
type SQLiteStore struct {
	sqliteQueries
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists. Use ":memory:" for a throwaway database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps an in-memory
	// database alive for the life of the store.
	db.SetMaxOpenConns(1)

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating sqlite schema: %w", err)
		}
	}

	return &SQLiteStore{sqliteQueries: sqliteQueries{db: db}, db: db}, nil
}

// WithTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error and committed otherwise.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx model.StoreTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite tx: %w", err)
	}

	if err := fn(&sqliteQueries{db: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite tx: %w", err)
	}
	return nil
}

// SaveAlertFilter upserts f and its restriction sets atomically.
func (s *SQLiteStore) SaveAlertFilter(ctx context.Context, f *model.AlertFilter) error {
	return s.WithTx(ctx, func(tx model.StoreTx) error {
		return tx.SaveAlertFilter(ctx, f)
	})
}

// ListJobs returns stored jobs, newest first.
func (s *SQLiteStore) ListJobs(ctx context.Context, includeArchived bool) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY date_added DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()
	return collectSQLiteJobs(rows)
}

// Stats counts jobs, pending events and active alert filters.
func (s *SQLiteStore) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM jobs),
			(SELECT COUNT(*) FROM jobs WHERE archived = 0),
			(SELECT COUNT(*) FROM notification_events WHERE notified = 0 AND event_type = ?),
			(SELECT COUNT(*) FROM alert_filters WHERE is_active = 1)`,
		string(model.EventNew),
	).Scan(&st.Jobs, &st.ActiveJobs, &st.PendingEvents, &st.ActiveAlerts)
	if err != nil {
		return model.Stats{}, fmt.Errorf("counting stats: %w", err)
	}
	return st, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
