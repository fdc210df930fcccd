// Package storage persists intake jobs and reports on-disk usage of the stores.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/shorui/internal/models"
)

// ErrJobNotFound is returned when a job id does not exist, or belongs to another organization.
var ErrJobNotFound = errors.New("job not found")

// JobStore defines job persistence operations. Reads are scoped to an organization.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, organizationID, id string) (*models.Job, error)
	UpdateJob(ctx context.Context, job *models.Job) error
	ListJobs(ctx context.Context, organizationID string, offset, limit int) ([]*models.Job, error)
	CountJobs(ctx context.Context, organizationID string) (int64, error)
	// CountByStatus counts jobs across all organizations, keyed by status.
	CountByStatus(ctx context.Context) (map[models.JobStatus]int64, error)

	Close() error
}
