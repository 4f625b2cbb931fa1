// Package dispatch is the orchestration core: it deduplicates uploads by
// content fingerprint, hands work to the computation engine, and keeps the
// job store, result store, and result cache consistent as tasks complete.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/cache"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/dataset"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/engine"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/store"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/pkg/models"
)

const errorMessageMaxLen = 2000

// Analyzer turns a parsed table into a report. Pure; never returns an error —
// expected input problems come back as FAILURE reports.
type Analyzer interface {
	Analyze(t *dataset.Table) *models.Report
}

// Engine is the slice of the computation engine the dispatcher and resolver
// depend on.
type Engine interface {
	Submit(fn engine.TaskFunc) uuid.UUID
	Status(handle uuid.UUID) (string, bool)
	Progress(handle uuid.UUID) (int, bool)
	Await(ctx context.Context, handle uuid.UUID, timeout time.Duration) (string, error)
	Result(handle uuid.UUID) (*models.Report, error, bool)
}

// BlobStore is the slice of blob storage the dispatcher depends on.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

// Submission is the outcome of one upload: either the cached report or a
// reference to the dispatched job.
type Submission struct {
	Fingerprint string
	Status      string
	Handle      uuid.UUID
	FromCache   bool
	Report      *models.Report
}

// Dispatcher owns all writes to the job store, result store, and result
// cache.
type Dispatcher struct {
	store     store.Store
	cache     cache.Cache
	blobs     BlobStore
	engine    Engine
	analyzer  Analyzer
	resultTTL time.Duration
}

func NewDispatcher(s store.Store, c cache.Cache, b BlobStore, e Engine, a Analyzer, resultTTL time.Duration) *Dispatcher {
	return &Dispatcher{
		store:     s,
		cache:     c,
		blobs:     b,
		engine:    e,
		analyzer:  a,
		resultTTL: resultTTL,
	}
}

// Submit fingerprints the upload and either short-circuits on a cached report
// or dispatches a new computation. The cache check happens before any durable
// write. Two near-simultaneous uploads of identical content may both reach
// dispatch; the duplicate collapses onto the existing job row.
func (d *Dispatcher) Submit(ctx context.Context, raw []byte, filename string) (*Submission, error) {
	fp, err := dataset.Fingerprint(raw)
	if err != nil {
		return nil, err
	}

	// Fast path. A cache read failure is a miss, not a request failure: the
	// cache is best-effort by contract.
	report, hit, err := d.cache.GetReport(ctx, fp)
	if err != nil {
		slog.Warn("result cache read failed", "fingerprint", fp, "error", err)
	}
	if hit {
		return &Submission{
			Fingerprint: fp,
			Status:      models.StatusSuccess,
			FromCache:   true,
			Report:      report,
		}, nil
	}

	blobKey := blobKeyFor(fp, filename)
	if err := d.blobs.Put(ctx, blobKey, raw, contentTypeFor(filename)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	// The handle must exist before the job row does, so a concurrent status
	// query never sees a row pointing at nothing.
	handle := d.engine.Submit(d.task(fp, blobKey, filename))

	now := time.Now().UTC()
	job := &models.Job{
		Fingerprint: fp,
		Handle:      handle,
		Status:      models.StatusPending,
		BlobKey:     blobKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := d.store.CreateJob(ctx, job); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			// Lost the dispatch race; report the existing job. The duplicate
			// task converges onto the same fingerprint and its redundant
			// writes are tolerated.
			existing, getErr := d.store.GetJob(ctx, fp)
			if getErr != nil {
				return nil, fmt.Errorf("get job after duplicate insert: %w", getErr)
			}
			return &Submission{
				Fingerprint: fp,
				Status:      existing.Status,
				Handle:      existing.Handle,
			}, nil
		}
		return nil, fmt.Errorf("create job: %w", err)
	}

	return &Submission{
		Fingerprint: fp,
		Status:      models.StatusPending,
		Handle:      handle,
	}, nil
}

// task builds the closure the engine runs out-of-band for one fingerprint.
func (d *Dispatcher) task(fp, blobKey, filename string) engine.TaskFunc {
	return func(ctx context.Context, progress func(int)) (*models.Report, error) {
		if err := d.store.UpdateJobStatus(ctx, fp, models.StatusRunning); err != nil {
			// A duplicate dispatch may have advanced the row already.
			slog.Warn("job running update failed", "fingerprint", fp, "error", err)
		}
		progress(20)

		raw, err := d.blobs.Get(ctx, blobKey)
		if err != nil {
			err = fmt.Errorf("read upload: %w", err)
			d.failJob(ctx, fp, err)
			return nil, err
		}

		tbl, err := dataset.Parse(raw, filename)
		if err != nil {
			err = fmt.Errorf("parse dataset: %w", err)
			d.failJob(ctx, fp, err)
			return nil, err
		}
		progress(50)

		report := d.analyzer.Analyze(tbl)
		if report.Failed() {
			// A reported failure becomes a failed job at this boundary so
			// the terminal state is inspectable the same way for every
			// failure mode.
			err := fmt.Errorf("analysis failed: %s", report.Summary)
			d.failJob(ctx, fp, err)
			return nil, err
		}
		progress(90)

		if err := d.store.CreateResult(ctx, fp, report); err != nil && !errors.Is(err, store.ErrDuplicateKey) {
			err = fmt.Errorf("persist result: %w", err)
			d.failJob(ctx, fp, err)
			return nil, err
		}

		if err := d.store.UpdateJobStatus(ctx, fp, models.StatusSuccess); err != nil {
			// The result row is durable; a lagging status row is recoverable
			// and must not fail the computation.
			slog.Error("job success update failed", "fingerprint", fp, "error", err)
		}

		if err := d.cache.SetReport(ctx, fp, report, d.resultTTL); err != nil {
			slog.Warn("result cache write failed", "fingerprint", fp, "error", err)
		}

		return report, nil
	}
}

// failJob records the failure on the job row. Best-effort: a secondary store
// error is logged so the primary fault is never hidden behind it.
func (d *Dispatcher) failJob(ctx context.Context, fp string, cause error) {
	msg := cause.Error()
	if len(msg) > errorMessageMaxLen {
		msg = msg[:errorMessageMaxLen]
	}
	if err := d.store.UpdateJobStatus(ctx, fp, models.StatusFailure, store.WithErrorMessage(msg)); err != nil {
		slog.Error("job failure update failed", "fingerprint", fp, "error", err, "cause", cause)
	}
}

func blobKeyFor(fp, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".csv"
	}
	return "uploads/" + fp + ext
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}
