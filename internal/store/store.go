package store

import (
	"context"
	"errors"
	"time"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface over the jobs and results tables. Every
// operation touches a single fingerprint's rows; no cross-key transactions.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, fingerprint string) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, fingerprint string, status string, opts ...JobUpdateOption) error
	ListJobsSince(ctx context.Context, since time.Time) ([]*models.Job, error)
	DeleteJob(ctx context.Context, fingerprint string) error

	CreateResult(ctx context.Context, fingerprint string, report *models.Report) error
	GetResult(ctx context.Context, fingerprint string) (*models.Report, error)
	DeleteResult(ctx context.Context, fingerprint string) error
}

type jobUpdateParams struct {
	ErrorMessage *string
}

type JobUpdateOption func(*jobUpdateParams)

// WithErrorMessage records failure detail alongside a status update.
func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.ErrorMessage = &msg
	}
}
