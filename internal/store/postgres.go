package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (fingerprint, handle, status, blob_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.Fingerprint, job.Handle, job.Status, job.BlobKey, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, fingerprint string) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT fingerprint, handle, status, blob_key, error_message, created_at, updated_at
		 FROM jobs WHERE fingerprint = $1`, fingerprint,
	).Scan(&j.Fingerprint, &j.Handle, &j.Status, &j.BlobKey, &j.ErrorMessage,
		&j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

// validPredecessors lists, per target status, the statuses a row may hold
// for the transition to apply. PENDING may jump straight to a terminal state
// when the RUNNING update was lost.
var validPredecessors = map[string][]string{
	models.StatusRunning: {models.StatusPending},
	models.StatusSuccess: {models.StatusPending, models.StatusRunning},
	models.StatusFailure: {models.StatusPending, models.StatusRunning},
}

// UpdateJobStatus advances a job forward-only. The guard lives in the UPDATE
// predicate itself, so two completion paths racing on the same row can never
// interleave a check against a stale status: whichever statement runs second
// sees the first one's write.
func (s *PostgresStore) UpdateJobStatus(ctx context.Context, fingerprint string, status string, opts ...JobUpdateOption) error {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	preds, ok := validPredecessors[status]
	if !ok {
		return fmt.Errorf("%w: no transition into %s", ErrInvalidTransition, status)
	}

	now := time.Now().UTC()
	var tag pgconn.CommandTag
	var err error
	if params.ErrorMessage != nil {
		tag, err = s.pool.Exec(ctx,
			`UPDATE jobs SET status = $2, error_message = $3, updated_at = $4
			 WHERE fingerprint = $1 AND status = ANY($5)`,
			fingerprint, status, *params.ErrorMessage, now, preds)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE jobs SET status = $2, updated_at = $3
			 WHERE fingerprint = $1 AND status = ANY($4)`,
			fingerprint, status, now, preds)
	}
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either no such job or the row is already past every allowed
		// predecessor; re-read to tell the two apart.
		var current string
		err := s.pool.QueryRow(ctx,
			`SELECT status FROM jobs WHERE fingerprint = $1`, fingerprint).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get job status: %w", err)
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}
	return nil
}

func (s *PostgresStore) ListJobsSince(ctx context.Context, since time.Time) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fingerprint, handle, status, blob_key, error_message, created_at, updated_at
		 FROM jobs WHERE created_at >= $1 ORDER BY created_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.Fingerprint, &j.Handle, &j.Status, &j.BlobKey,
			&j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) DeleteJob(ctx context.Context, fingerprint string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE fingerprint = $1`, fingerprint)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Results ---

func (s *PostgresStore) CreateResult(ctx context.Context, fingerprint string, report *models.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (fingerprint, report, created_at) VALUES ($1, $2, $3)`,
		fingerprint, payload, time.Now().UTC())
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetResult(ctx context.Context, fingerprint string) (*models.Report, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM results WHERE fingerprint = $1`, fingerprint).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

func (s *PostgresStore) DeleteResult(ctx context.Context, fingerprint string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM results WHERE fingerprint = $1`, fingerprint)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
