package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/shorui/internal/models"
)

// SQLiteStorage implements JobStore using SQLite.
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		client_id TEXT NOT NULL DEFAULT '',
		category_hint TEXT NOT NULL DEFAULT '',
		file_name TEXT NOT NULL DEFAULT '',
		document_id TEXT NOT NULL,
		force_index INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		detected_category TEXT NOT NULL DEFAULT '',
		result TEXT,
		verdict TEXT,
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_org_created ON jobs(organization_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`
	_, err := db.Exec(schema)
	return err
}

const jobColumns = `id, organization_id, client_id, category_hint, file_name, document_id, force_index,
	status, detected_category, result, verdict, error, created_at, updated_at`

// CreateJob inserts a job. CreatedAt and UpdatedAt are set to now.
func (s *SQLiteStorage) CreateJob(ctx context.Context, job *models.Job) error {
	if job.OrganizationID == "" {
		return fmt.Errorf("job %s: organization id is required", job.ID)
	}
	result, verdict, err := encodeOutcome(job)
	if err != nil {
		return err
	}
	now := s.now()
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.OrganizationID, job.ClientID, job.CategoryHint, job.FileName, job.DocumentID, job.Force,
		string(job.Status), job.DetectedCategory, result, verdict, job.Error, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob returns the job with id if it belongs to organizationID.
func (s *SQLiteStorage) GetJob(ctx context.Context, organizationID, id string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ? AND organization_id = ?`, id, organizationID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateJob writes the mutable state of a job: status, detected category, outcome, and error.
func (s *SQLiteStorage) UpdateJob(ctx context.Context, job *models.Job) error {
	result, verdict, err := encodeOutcome(job)
	if err != nil {
		return err
	}
	job.UpdatedAt = s.now()

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, detected_category = ?, result = ?, verdict = ?, error = ?, updated_at = ?
		 WHERE id = ? AND organization_id = ?`,
		string(job.Status), job.DetectedCategory, result, verdict, job.Error, job.UpdatedAt,
		job.ID, job.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}
	return nil
}

// ListJobs returns an organization's jobs, newest first.
func (s *SQLiteStorage) ListJobs(ctx context.Context, organizationID string, offset, limit int) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE organization_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		organizationID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CountJobs returns the number of jobs of an organization.
func (s *SQLiteStorage) CountJobs(ctx context.Context, organizationID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE organization_id = ?`, organizationID).Scan(&n)
	return n, err
}

func (s *SQLiteStorage) CountByStatus(ctx context.Context) (map[models.JobStatus]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.JobStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[models.JobStatus(status)] = n
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*models.Job, error) {
	var job models.Job
	var status string
	var result, verdict sql.NullString
	err := row.Scan(&job.ID, &job.OrganizationID, &job.ClientID, &job.CategoryHint, &job.FileName,
		&job.DocumentID, &job.Force, &status, &job.DetectedCategory, &result, &verdict, &job.Error,
		&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	if result.Valid && result.String != "" {
		job.Result = &models.AnalyzeResult{}
		if err := json.Unmarshal([]byte(result.String), job.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result of job %s: %w", job.ID, err)
		}
	}
	if verdict.Valid && verdict.String != "" {
		job.Verdict = &models.ValidationVerdict{}
		if err := json.Unmarshal([]byte(verdict.String), job.Verdict); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdict of job %s: %w", job.ID, err)
		}
	}
	return &job, nil
}

func encodeOutcome(job *models.Job) (result, verdict sql.NullString, err error) {
	if job.Result != nil {
		b, err := json.Marshal(job.Result)
		if err != nil {
			return result, verdict, fmt.Errorf("failed to marshal result: %w", err)
		}
		result = sql.NullString{String: string(b), Valid: true}
	}
	if job.Verdict != nil {
		b, err := json.Marshal(job.Verdict)
		if err != nil {
			return result, verdict, fmt.Errorf("failed to marshal verdict: %w", err)
		}
		verdict = sql.NullString{String: string(b), Valid: true}
	}
	return result, verdict, nil
}
