package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/cache"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/engine"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/store"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/pkg/models"
)

var (
	// ErrResultMissing means a job reached SUCCESS but no result row exists.
	// A consistency fault, surfaced as an internal error, never as not-found.
	ErrResultMissing = errors.New("dispatch: result missing for successful job")

	// ErrHandleLost means the job row references a computation the engine no
	// longer knows, with no terminal status persisted (process restarted
	// mid-flight).
	ErrHandleLost = errors.New("dispatch: computation handle lost")
)

// JobState is an assembled status response for one fingerprint.
type JobState struct {
	Fingerprint string
	Status      string
	Report      *models.Report
	Detail      string
	Progress    int
}

// DeleteOutcome reports a best-effort delete. Failures lists the sub-deletes
// that did not go through; nothing is rolled back.
type DeleteOutcome struct {
	Fingerprint string
	Failures    []string
}

// Resolver answers status queries: it waits (bounded) on the computation
// recorded in the job row and assembles the response from the job store,
// result store, and result cache.
type Resolver struct {
	store   store.Store
	cache   cache.Cache
	blobs   BlobStore
	engine  Engine
	waitMax time.Duration
}

func NewResolver(s store.Store, c cache.Cache, b BlobStore, e Engine, waitMax time.Duration) *Resolver {
	return &Resolver{store: s, cache: c, blobs: b, engine: e, waitMax: waitMax}
}

// Resolve returns the job's state for fingerprint. With wait set it blocks
// until the computation is terminal or the timeout elapses; the timeout is
// clamped to the resolver's configured maximum so no status request can pin a
// handler slot indefinitely. A timed-out wait is not an error: the current
// non-terminal state is returned.
func (r *Resolver) Resolve(ctx context.Context, fingerprint string, timeout time.Duration, wait bool) (*JobState, error) {
	job, err := r.store.GetJob(ctx, fingerprint)
	if err != nil {
		return nil, err // store.ErrNotFound passes through
	}

	// A persisted terminal status answers without touching the engine, which
	// may long since have swept the task.
	if models.IsTerminal(job.Status) {
		return r.terminalState(ctx, job, job.Status, nil)
	}

	status, known := r.engine.Status(job.Handle)
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrHandleLost, fingerprint)
	}

	if !models.IsTerminal(status) && wait {
		awaited, err := r.engine.Await(ctx, job.Handle, r.clamp(timeout))
		switch {
		case errors.Is(err, engine.ErrAwaitTimeout):
			// Still pending; fall through with the last known state.
		case err != nil:
			return nil, fmt.Errorf("await computation: %w", err)
		default:
			status = awaited
		}
	}

	if !models.IsTerminal(status) {
		progress, _ := r.engine.Progress(job.Handle)
		return &JobState{
			Fingerprint: fingerprint,
			Status:      status,
			Progress:    progress,
		}, nil
	}

	_, detail, _ := r.engine.Result(job.Handle)
	return r.terminalState(ctx, job, status, detail)
}

// terminalState assembles the response for a finished computation.
func (r *Resolver) terminalState(ctx context.Context, job *models.Job, status string, detail error) (*JobState, error) {
	switch status {
	case models.StatusSuccess:
		report, hit, err := r.cache.GetReport(ctx, job.Fingerprint)
		if err == nil && hit {
			return &JobState{
				Fingerprint: job.Fingerprint,
				Status:      models.StatusSuccess,
				Report:      report,
				Progress:    100,
			}, nil
		}

		report, err = r.store.GetResult(ctx, job.Fingerprint)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrResultMissing, job.Fingerprint)
		}
		if err != nil {
			return nil, fmt.Errorf("get result: %w", err)
		}
		return &JobState{
			Fingerprint: job.Fingerprint,
			Status:      models.StatusSuccess,
			Report:      report,
			Progress:    100,
		}, nil

	case models.StatusFailure:
		msg := ""
		if detail != nil {
			msg = detail.Error()
		} else if job.ErrorMessage != nil {
			msg = *job.ErrorMessage
		}
		return &JobState{
			Fingerprint: job.Fingerprint,
			Status:      models.StatusFailure,
			Detail:      msg,
		}, nil

	default:
		return nil, fmt.Errorf("unexpected terminal state %q for %s", status, job.Fingerprint)
	}
}

// ListRecent returns jobs dispatched within the window, newest first.
func (r *Resolver) ListRecent(ctx context.Context, window time.Duration) ([]models.JobSummary, error) {
	jobs, err := r.store.ListJobsSince(ctx, time.Now().UTC().Add(-window))
	if err != nil {
		return nil, err
	}

	out := make([]models.JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, models.JobSummary{
			Fingerprint: j.Fingerprint,
			Status:      j.Status,
			Timestamp:   j.CreatedAt.Unix(),
		})
	}
	return out, nil
}

// Delete removes the job row, result row, cache entry, and uploaded blob for
// fingerprint, best-effort across all of them. Only a missing job is an
// error; every other sub-failure is collected in the outcome.
func (r *Resolver) Delete(ctx context.Context, fingerprint string) (*DeleteOutcome, error) {
	job, err := r.store.GetJob(ctx, fingerprint)
	if err != nil {
		return nil, err // store.ErrNotFound passes through
	}

	outcome := &DeleteOutcome{Fingerprint: fingerprint}

	if err := r.store.DeleteJob(ctx, fingerprint); err != nil && !errors.Is(err, store.ErrNotFound) {
		outcome.Failures = append(outcome.Failures, fmt.Sprintf("job: %v", err))
	}
	if err := r.store.DeleteResult(ctx, fingerprint); err != nil && !errors.Is(err, store.ErrNotFound) {
		outcome.Failures = append(outcome.Failures, fmt.Sprintf("result: %v", err))
	}
	if err := r.cache.DeleteReport(ctx, fingerprint); err != nil {
		outcome.Failures = append(outcome.Failures, fmt.Sprintf("cache: %v", err))
	}
	if err := r.blobs.Remove(ctx, job.BlobKey); err != nil {
		outcome.Failures = append(outcome.Failures, fmt.Sprintf("blob: %v", err))
	}

	return outcome, nil
}

func (r *Resolver) clamp(timeout time.Duration) time.Duration {
	if r.waitMax <= 0 {
		return timeout
	}
	if timeout <= 0 || timeout > r.waitMax {
		return r.waitMax
	}
	return timeout
}
