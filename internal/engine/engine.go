// Package engine runs analysis tasks on a bounded worker pool, decoupled from
// the request path. Callers hold an opaque handle and either poll Status or
// block on Await.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/pkg/models"
)

var (
	// ErrUnknownHandle is returned for handles the engine has no record of,
	// including tasks already swept after their retention window.
	ErrUnknownHandle = errors.New("engine: unknown handle")

	// ErrAwaitTimeout is returned when Await gives up before the task
	// reaches a terminal state.
	ErrAwaitTimeout = errors.New("engine: await timed out")
)

const sweepInterval = time.Minute

// TaskFunc is one unit of analysis work. The progress callback is optional
// telemetry (0-100); correctness never depends on it.
type TaskFunc func(ctx context.Context, progress func(int)) (*models.Report, error)

type task struct {
	mu         sync.Mutex
	status     string
	report     *models.Report
	err        error
	progress   int
	finishedAt time.Time
	done       chan struct{}
}

func (t *task) snapshot() (string, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.progress
}

// Engine owns the worker pool and the handle table. Safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	tasks     map[uuid.UUID]*task
	sem       *semaphore.Weighted
	retention time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Engine running at most workers tasks concurrently. Terminal
// tasks are retained for retention and then swept.
func New(workers int64, retention time.Duration) *Engine {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		tasks:     make(map[uuid.UUID]*task),
		sem:       semaphore.NewWeighted(workers),
		retention: retention,
		ctx:       ctx,
		cancel:    cancel,
	}
	if retention > 0 {
		e.wg.Add(1)
		go e.sweep()
	}
	return e
}

// Submit queues fn and returns its handle immediately. The handle is valid
// before Submit returns, so a job row written afterwards never references a
// handle the engine does not know.
func (e *Engine) Submit(fn TaskFunc) uuid.UUID {
	handle := uuid.New()
	t := &task{status: models.StatusPending, done: make(chan struct{})}

	e.mu.Lock()
	e.tasks[handle] = t
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(t, fn)
	}()

	return handle
}

func (e *Engine) run(t *task, fn TaskFunc) {
	defer close(t.done)

	if err := e.sem.Acquire(e.ctx, 1); err != nil {
		t.mu.Lock()
		t.status = models.StatusFailure
		t.err = err
		t.finishedAt = time.Now()
		t.mu.Unlock()
		return
	}
	defer e.sem.Release(1)

	t.mu.Lock()
	t.status = models.StatusRunning
	t.mu.Unlock()

	report, err := fn(e.ctx, func(p int) {
		t.mu.Lock()
		if p >= 0 && p <= 100 {
			t.progress = p
		}
		t.mu.Unlock()
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishedAt = time.Now()
	if err != nil {
		t.status = models.StatusFailure
		t.err = err
		return
	}
	t.status = models.StatusSuccess
	t.report = report
	t.progress = 100
}

// Status returns the task's current state. The bool is false for unknown
// handles.
func (e *Engine) Status(handle uuid.UUID) (string, bool) {
	t, ok := e.lookup(handle)
	if !ok {
		return "", false
	}
	status, _ := t.snapshot()
	return status, true
}

// Progress returns the task's last reported progress percentage.
func (e *Engine) Progress(handle uuid.UUID) (int, bool) {
	t, ok := e.lookup(handle)
	if !ok {
		return 0, false
	}
	_, p := t.snapshot()
	return p, true
}

// IsTerminal reports whether the task has finished. Unknown handles are not
// terminal here; the caller decides what a lost handle means.
func (e *Engine) IsTerminal(handle uuid.UUID) bool {
	status, ok := e.Status(handle)
	return ok && models.IsTerminal(status)
}

// Await blocks until the task reaches a terminal state, the timeout elapses,
// or ctx is cancelled. timeout <= 0 means wait indefinitely.
func (e *Engine) Await(ctx context.Context, handle uuid.UUID, timeout time.Duration) (string, error) {
	t, ok := e.lookup(handle)
	if !ok {
		return "", ErrUnknownHandle
	}

	var timer <-chan time.Time
	if timeout > 0 {
		tm := time.NewTimer(timeout)
		defer tm.Stop()
		timer = tm.C
	}

	select {
	case <-t.done:
		status, _ := t.snapshot()
		return status, nil
	case <-timer:
		return "", ErrAwaitTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Result returns the completed task's report or its failure detail. Calling
// Result on a non-terminal task returns neither.
func (e *Engine) Result(handle uuid.UUID) (*models.Report, error, bool) {
	t, ok := e.lookup(handle)
	if !ok {
		return nil, nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.report, t.err, true
}

// Close stops the sweeper and waits for in-flight tasks to finish.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) lookup(handle uuid.UUID) (*task, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tasks[handle]
	return t, ok
}

// sweep drops terminal tasks older than the retention window.
func (e *Engine) sweep() {
	defer e.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-e.retention)
			e.mu.Lock()
			for handle, t := range e.tasks {
				status, _ := t.snapshot()
				t.mu.Lock()
				finished := t.finishedAt
				t.mu.Unlock()
				if models.IsTerminal(status) && !finished.IsZero() && finished.Before(cutoff) {
					delete(e.tasks, handle)
				}
			}
			e.mu.Unlock()
		}
	}
}
