package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/applynow/internal/model"
)

// Ensure PostgresStore implements model.Store.
var _ model.Store = (*PostgresStore)(nil)

var postgresSchema = []string{
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
		work_model     TEXT NOT NULL DEFAULT '',
		industry       TEXT NOT NULL DEFAULT '',
		seniority      TEXT NOT NULL DEFAULT '',
		technologies   TEXT[] NOT NULL DEFAULT '{}',
		is_winnipeg    BOOLEAN NOT NULL DEFAULT FALSE,
		department     TEXT NOT NULL DEFAULT 'other',
		min_experience INTEGER,
		archived       BOOLEAN NOT NULL DEFAULT FALSE,
		last_seen      TIMESTAMPTZ NOT NULL,
		date_added     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_company_idx ON jobs (company)`,
	`CREATE TABLE IF NOT EXISTS notification_events (
		id         BIGSERIAL PRIMARY KEY,
		job_id     TEXT NOT NULL,
		event_type TEXT NOT NULL,
		notified   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS notification_events_unsent_idx
		ON notification_events (job_id, event_type) WHERE notified = FALSE`,
	`CREATE INDEX IF NOT EXISTS notification_events_pending_idx
		ON notification_events (created_at, id) WHERE notified = FALSE`,
	`CREATE TABLE IF NOT EXISTS alert_filters (
		user_id     BIGINT PRIMARY KEY,
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		is_winnipeg BOOLEAN NOT NULL DEFAULT TRUE,
		salary_min  INTEGER,
		salary_max  INTEGER,
		departments TEXT[] NOT NULL DEFAULT '{}',
		companies   TEXT[] NOT NULL DEFAULT '{}',
		work_models TEXT[] NOT NULL DEFAULT '{}',
		seniorities TEXT[] NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// postgresDB is satisfied by both *pgxpool.Pool and pgx.Tx.
type postgresDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the pooled PostgreSQL backend.
type PostgresStore struct {
	postgresQueries
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL, verifies the connection and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("creating postgres schema: %w", err)
		}
	}

	return &PostgresStore{postgresQueries: postgresQueries{db: pool}, pool: pool}, nil
}

// WithTx runs fn inside a transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx model.StoreTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&postgresQueries{db: tx})
	})
}

// ListJobs returns stored jobs, newest first.
func (s *PostgresStore) ListJobs(ctx context.Context, includeArchived bool) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if !includeArchived {
		query += ` WHERE NOT archived`
	}
	query += ` ORDER BY date_added DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()
	return collectPostgresJobs(rows)
}

// Stats counts jobs, pending events and active alert filters.
func (s *PostgresStore) Stats(ctx context.Context) (model.Stats, error) {
	var st model.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM jobs),
			(SELECT COUNT(*) FROM jobs WHERE NOT archived),
			(SELECT COUNT(*) FROM notification_events WHERE NOT notified AND event_type = $1),
			(SELECT COUNT(*) FROM alert_filters WHERE is_active)`,
		string(model.EventNew),
	).Scan(&st.Jobs, &st.ActiveJobs, &st.PendingEvents, &st.ActiveAlerts)
	if err != nil {
		return model.Stats{}, fmt.Errorf("counting stats: %w", err)
	}
	return st, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type postgresQueries struct {
	db postgresDB
}

func scanPostgresJob(row pgx.Row) (*model.Job, error) {
	var (
		j                                model.Job
		workModel, seniority, department string
	)
	err := row.Scan(
		&j.ID, &j.Link, &j.Company, &j.Title, &j.Location, &j.JobType, &j.Description,
		&j.SalaryMin, &j.SalaryMax, &workModel, &j.Industry, &seniority, &j.Technologies,
		&j.IsWinnipeg, &department, &j.MinExperience, &j.Archived, &j.LastSeen, &j.DateAdded,
	)
	if err != nil {
		return nil, err
	}
	j.WorkModel = model.WorkModel(workModel)
	j.Seniority = model.Seniority(seniority)
	j.Department = model.Department(department)
	j.LastSeen = j.LastSeen.UTC()
	j.DateAdded = j.DateAdded.UTC()
	if j.Technologies == nil {
		j.Technologies = []string{}
	}
	return &j, nil
}

func collectPostgresJobs(rows pgx.Rows) ([]model.Job, error) {
	var jobs []model.Job
	for rows.Next() {
		j, err := scanPostgresJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating job rows: %w", err)
	}
	return jobs, nil
}

func (q *postgresQueries) jobWhere(ctx context.Context, where string, arg any) (*model.Job, error) {
	row := q.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE `+where, arg)
	j, err := scanPostgresJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return j, err
}

func (q *postgresQueries) JobByLink(ctx context.Context, link string) (*model.Job, error) {
	j, err := q.jobWhere(ctx, "link = $1", link)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("loading job by link %s: %w", link, err)
	}
	return j, err
}

func (q *postgresQueries) JobByID(ctx context.Context, id string) (*model.Job, error) {
	j, err := q.jobWhere(ctx, "id = $1", id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("loading job %s: %w", id, err)
	}
	return j, err
}

func (q *postgresQueries) JobsByCompany(ctx context.Context, company string) ([]model.Job, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE company = $1 ORDER BY date_added ASC`, company)
	if err != nil {
		return nil, fmt.Errorf("listing jobs for %s: %w", company, err)
	}
	defer rows.Close()
	return collectPostgresJobs(rows)
}

func (q *postgresQueries) InsertJob(ctx context.Context, j *model.Job) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		j.ID, j.Link, j.Company, j.Title, j.Location, j.JobType, j.Description,
		j.SalaryMin, j.SalaryMax, string(j.WorkModel), j.Industry, string(j.Seniority),
		nonNil(j.Technologies), j.IsWinnipeg, string(j.Department), j.MinExperience,
		j.Archived, j.LastSeen, j.DateAdded,
	)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", j.Link, err)
	}
	return nil
}

func (q *postgresQueries) UpdateJob(ctx context.Context, j *model.Job) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE jobs SET
			title = $2, location = $3, job_type = $4, description = $5,
			salary_min = $6, salary_max = $7, work_model = $8, industry = $9,
			seniority = $10, technologies = $11, is_winnipeg = $12,
			department = $13, min_experience = $14, archived = $15, last_seen = $16
		WHERE id = $1`,
		j.ID, j.Title, j.Location, j.JobType, j.Description,
		j.SalaryMin, j.SalaryMax, string(j.WorkModel), j.Industry,
		string(j.Seniority), nonNil(j.Technologies), j.IsWinnipeg,
		string(j.Department), j.MinExperience, j.Archived, j.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", j.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating job %s: %w", j.ID, model.ErrNotFound)
	}
	return nil
}

// Enqueue relies on the partial unique index over unsent rows.
func (q *postgresQueries) Enqueue(ctx context.Context, jobID string, t model.EventType) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		INSERT INTO notification_events (job_id, event_type, notified, created_at)
		VALUES ($1, $2, FALSE, $3)
		ON CONFLICT (job_id, event_type) WHERE notified = FALSE DO NOTHING`,
		jobID, string(t), time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("enqueueing %s event for %s: %w", t, jobID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (q *postgresQueries) Pending(ctx context.Context) ([]model.NotificationEvent, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, job_id, event_type, notified, created_at
		FROM notification_events
		WHERE NOT notified AND event_type = $1
		ORDER BY created_at ASC, id ASC`,
		string(model.EventNew),
	)
	if err != nil {
		return nil, fmt.Errorf("loading pending events: %w", err)
	}
	defer rows.Close()

	var events []model.NotificationEvent
	for rows.Next() {
		var (
			ev     model.NotificationEvent
			evType string
		)
		if err := rows.Scan(&ev.ID, &ev.JobID, &evType, &ev.Notified, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pending event: %w", err)
		}
		ev.Type = model.EventType(evType)
		ev.CreatedAt = ev.CreatedAt.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending events: %w", err)
	}
	return events, nil
}

func (q *postgresQueries) MarkSent(ctx context.Context, jobIDs []string) error {
	if len(jobIDs) == 0 {
		return nil
	}
	_, err := q.db.Exec(ctx,
		`UPDATE notification_events SET notified = TRUE WHERE NOT notified AND job_id = ANY($1)`,
		jobIDs,
	)
	if err != nil {
		return fmt.Errorf("marking %d jobs as notified: %w", len(jobIDs), err)
	}
	return nil
}

const postgresFilterColumns = `user_id, is_active, is_winnipeg, salary_min, salary_max,
	departments, companies, work_models, seniorities, created_at`

func scanPostgresFilter(row pgx.Row) (*model.AlertFilter, error) {
	var f model.AlertFilter
	err := row.Scan(
		&f.UserID, &f.IsActive, &f.IsWinnipeg, &f.SalaryMin, &f.SalaryMax,
		&f.Departments, &f.Companies, &f.WorkModels, &f.Seniorities, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}

func (q *postgresQueries) ActiveAlertFilters(ctx context.Context) ([]model.AlertFilter, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+postgresFilterColumns+`
		FROM alert_filters
		WHERE is_active
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("loading active alert filters: %w", err)
	}
	defer rows.Close()

	var filters []model.AlertFilter
	for rows.Next() {
		f, err := scanPostgresFilter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alert filter: %w", err)
		}
		filters = append(filters, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alert filters: %w", err)
	}
	return filters, nil
}

func (q *postgresQueries) AlertFilter(ctx context.Context, userID int64) (*model.AlertFilter, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+postgresFilterColumns+` FROM alert_filters WHERE user_id = $1`, userID)
	f, err := scanPostgresFilter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading alert filter for %d: %w", userID, err)
	}
	return f, nil
}

func (q *postgresQueries) SaveAlertFilter(ctx context.Context, f *model.AlertFilter) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.Exec(ctx, `
		INSERT INTO alert_filters (`+postgresFilterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			is_winnipeg = EXCLUDED.is_winnipeg,
			salary_min = EXCLUDED.salary_min,
			salary_max = EXCLUDED.salary_max,
			departments = EXCLUDED.departments,
			companies = EXCLUDED.companies,
			work_models = EXCLUDED.work_models,
			seniorities = EXCLUDED.seniorities`,
		f.UserID, f.IsActive, f.IsWinnipeg, f.SalaryMin, f.SalaryMax,
		nonNil(f.Departments), nonNil(f.Companies), nonNil(f.WorkModels), nonNil(f.Seniorities),
		f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving alert filter for %d: %w", f.UserID, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
