package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amishk599/applynow/internal/model"
)

// sqliteDB is satisfied by both *sql.DB and *sql.Tx.
type sqliteDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteQueries implements model.StoreTx on top of a connection or a transaction.
type sqliteQueries struct {
	db sqliteDB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row rowScanner) (*model.Job, error) {
	var (
		j                              model.Job
		salaryMin, salaryMax, minExp   sql.NullInt64
		workModel, industry, seniority sql.NullString
		technologies, department       string
		lastSeen, dateAdded            int64
	)
	err := row.Scan(
		&j.ID, &j.Link, &j.Company, &j.Title, &j.Location, &j.JobType, &j.Description,
		&salaryMin, &salaryMax, &workModel, &industry, &seniority, &technologies,
		&j.IsWinnipeg, &department, &minExp, &j.Archived, &lastSeen, &dateAdded,
	)
	if err != nil {
		return nil, err
	}

	j.SalaryMin = intFromNull(salaryMin)
	j.SalaryMax = intFromNull(salaryMax)
	j.MinExperience = intFromNull(minExp)
	j.WorkModel = model.WorkModel(workModel.String)
	j.Industry = industry.String
	j.Seniority = model.Seniority(seniority.String)
	j.Department = model.Department(department)
	j.LastSeen = fromUnixNano(lastSeen)
	j.DateAdded = fromUnixNano(dateAdded)
	if j.Technologies, err = decodeTechnologies(technologies); err != nil {
		return nil, err
	}
	return &j, nil
}

func collectSQLiteJobs(rows *sql.Rows) ([]model.Job, error) {
	var jobs []model.Job
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (q *sqliteQueries) jobWhere(ctx context.Context, where string, arg any) (*model.Job, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE `+where, arg)
	j, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return j, err
}

// JobByLink looks a job up by its canonical link.
func (q *sqliteQueries) JobByLink(ctx context.Context, link string) (*model.Job, error) {
	j, err := q.jobWhere(ctx, "link = ?", link)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("loading job by link %s: %w", link, err)
	}
	return j, err
}

// JobByID looks a job up by id.
func (q *sqliteQueries) JobByID(ctx context.Context, id string) (*model.Job, error) {
	j, err := q.jobWhere(ctx, "id = ?", id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("loading job %s: %w", id, err)
	}
	return j, err
}

// JobsByCompany returns every stored job of company, archived or not.
func (q *sqliteQueries) JobsByCompany(ctx context.Context, company string) ([]model.Job, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE company = ? ORDER BY date_added ASC`, company)
	if err != nil {
		return nil, fmt.Errorf("listing jobs for %s: %w", company, err)
	}
	defer rows.Close()
	return collectSQLiteJobs(rows)
}

// InsertJob stores a new job row.
func (q *sqliteQueries) InsertJob(ctx context.Context, j *model.Job) error {
	tech, err := encodeTechnologies(j.Technologies)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Link, j.Company, j.Title, j.Location, j.JobType, j.Description,
		nullInt(j.SalaryMin), nullInt(j.SalaryMax), nullString(string(j.WorkModel)),
		nullString(j.Industry), nullString(string(j.Seniority)), tech,
		j.IsWinnipeg, string(j.Department), nullInt(j.MinExperience), j.Archived,
		j.LastSeen.UnixNano(), j.DateAdded.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", j.Link, err)
	}
	return nil
}

// UpdateJob overwrites the mutable columns of an existing job.
func (q *sqliteQueries) UpdateJob(ctx context.Context, j *model.Job) error {
	tech, err := encodeTechnologies(j.Technologies)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET
			title = ?, location = ?, job_type = ?, description = ?,
			salary_min = ?, salary_max = ?, work_model = ?, industry = ?, seniority = ?,
			technologies = ?, is_winnipeg = ?, department = ?, min_experience = ?,
			archived = ?, last_seen = ?
		WHERE id = ?`,
		j.Title, j.Location, j.JobType, j.Description,
		nullInt(j.SalaryMin), nullInt(j.SalaryMax), nullString(string(j.WorkModel)),
		nullString(j.Industry), nullString(string(j.Seniority)),
		tech, j.IsWinnipeg, string(j.Department), nullInt(j.MinExperience),
		j.Archived, j.LastSeen.UnixNano(),
		j.ID,
	)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", j.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating job %s: %w", j.ID, model.ErrNotFound)
	}
	return nil
}

// Enqueue inserts an unsent event unless one already exists for (jobID, t).
func (q *sqliteQueries) Enqueue(ctx context.Context, jobID string, t model.EventType) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO notification_events (job_id, event_type, notified, created_at)
		SELECT ?, ?, 0, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM notification_events
			WHERE job_id = ? AND event_type = ? AND notified = 0
		)`,
		jobID, string(t), time.Now().UnixNano(), jobID, string(t),
	)
	if err != nil {
		return false, fmt.Errorf("enqueueing %s event for %s: %w", t, jobID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enqueueing %s event for %s: %w", t, jobID, err)
	}
	return n > 0, nil
}

// Pending returns unsent "new" events in FIFO order.
func (q *sqliteQueries) Pending(ctx context.Context) ([]model.NotificationEvent, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, job_id, event_type, notified, created_at
		FROM notification_events
		WHERE notified = 0 AND event_type = ?
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
			ev        model.NotificationEvent
			evType    string
			createdAt int64
		)
		if err := rows.Scan(&ev.ID, &ev.JobID, &evType, &ev.Notified, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning pending event: %w", err)
		}
		ev.Type = model.EventType(evType)
		ev.CreatedAt = fromUnixNano(createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkSent flags every unsent event of jobIDs as notified in a single statement.
func (q *sqliteQueries) MarkSent(ctx context.Context, jobIDs []string) error {
	if len(jobIDs) == 0 {
		return nil
	}

	args := make([]any, len(jobIDs))
	for i, id := range jobIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(jobIDs)), ",")

	_, err := q.db.ExecContext(ctx,
		`UPDATE notification_events SET notified = 1
		 WHERE notified = 0 AND job_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("marking %d jobs as notified: %w", len(jobIDs), err)
	}
	return nil
}

// ActiveAlertFilters returns every filter with is_active set, newest first.
func (q *sqliteQueries) ActiveAlertFilters(ctx context.Context) ([]model.AlertFilter, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT user_id, is_active, is_winnipeg, salary_min, salary_max, created_at
		FROM alert_filters
		WHERE is_active = 1
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("loading active alert filters: %w", err)
	}
	filters, err := collectSQLiteFilters(rows)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, nil
	}

	values, err := q.db.QueryContext(ctx, `
		SELECT v.user_id, v.dimension, v.value
		FROM alert_filter_values v
		JOIN alert_filters f ON f.user_id = v.user_id
		WHERE f.is_active = 1
		ORDER BY v.user_id, v.dimension, v.value`)
	if err != nil {
		return nil, fmt.Errorf("loading alert filter values: %w", err)
	}
	if err := attachSQLiteValues(values, filters); err != nil {
		return nil, err
	}
	return filters, nil
}

// AlertFilter returns the filter of one subscriber.
func (q *sqliteQueries) AlertFilter(ctx context.Context, userID int64) (*model.AlertFilter, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT user_id, is_active, is_winnipeg, salary_min, salary_max, created_at
		FROM alert_filters
		WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("loading alert filter for %d: %w", userID, err)
	}
	filters, err := collectSQLiteFilters(rows)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return nil, model.ErrNotFound
	}

	values, err := q.db.QueryContext(ctx, `
		SELECT user_id, dimension, value
		FROM alert_filter_values
		WHERE user_id = ?
		ORDER BY dimension, value`, userID)
	if err != nil {
		return nil, fmt.Errorf("loading alert filter values for %d: %w", userID, err)
	}
	if err := attachSQLiteValues(values, filters); err != nil {
		return nil, err
	}
	return &filters[0], nil
}

// SaveAlertFilter upserts the filter row and replaces its restriction sets.
// Callers outside a transaction go through SQLiteStore.SaveAlertFilter.
func (q *sqliteQueries) SaveAlertFilter(ctx context.Context, f *model.AlertFilter) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO alert_filters (user_id, is_active, is_winnipeg, salary_min, salary_max, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			is_active = excluded.is_active,
			is_winnipeg = excluded.is_winnipeg,
			salary_min = excluded.salary_min,
			salary_max = excluded.salary_max`,
		f.UserID, f.IsActive, f.IsWinnipeg, nullInt(f.SalaryMin), nullInt(f.SalaryMax), f.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving alert filter for %d: %w", f.UserID, err)
	}

	if _, err := q.db.ExecContext(ctx, `DELETE FROM alert_filter_values WHERE user_id = ?`, f.UserID); err != nil {
		return fmt.Errorf("clearing alert filter values for %d: %w", f.UserID, err)
	}
	for _, d := range model.Dimensions {
		for _, v := range f.Values(d) {
			_, err := q.db.ExecContext(ctx,
				`INSERT OR IGNORE INTO alert_filter_values (user_id, dimension, value) VALUES (?, ?, ?)`,
				f.UserID, string(d), v)
			if err != nil {
				return fmt.Errorf("saving %s value %q for %d: %w", d, v, f.UserID, err)
			}
		}
	}
	return nil
}

func collectSQLiteFilters(rows *sql.Rows) ([]model.AlertFilter, error) {
	defer rows.Close()

	var filters []model.AlertFilter
	for rows.Next() {
		var (
			f                    model.AlertFilter
			salaryMin, salaryMax sql.NullInt64
			createdAt            int64
		)
		if err := rows.Scan(&f.UserID, &f.IsActive, &f.IsWinnipeg, &salaryMin, &salaryMax, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning alert filter: %w", err)
		}
		f.SalaryMin = intFromNull(salaryMin)
		f.SalaryMax = intFromNull(salaryMax)
		f.CreatedAt = fromUnixNano(createdAt)
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

func attachSQLiteValues(rows *sql.Rows, filters []model.AlertFilter) error {
	defer rows.Close()

	byUser := make(map[int64]*model.AlertFilter, len(filters))
	for i := range filters {
		byUser[filters[i].UserID] = &filters[i]
	}
	for rows.Next() {
		var (
			userID           int64
			dimension, value string
		)
		if err := rows.Scan(&userID, &dimension, &value); err != nil {
			return fmt.Errorf("scanning alert filter value: %w", err)
		}
		f, ok := byUser[userID]
		if !ok {
			continue
		}
		d := model.Dimension(dimension)
		f.SetValues(d, append(f.Values(d), value))
	}
	return rows.Err()
}
