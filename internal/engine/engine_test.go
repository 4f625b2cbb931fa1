package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/pkg/models"
)

func successReport() *models.Report {
	return &models.Report{
		Status:      models.StatusSuccess,
		Summary:     "ok",
		Statistics:  map[string]string{},
		RecordCount: 1,
	}
}

func TestSubmitAwait_Success(t *testing.T) {
	e := New(2, 0)
	defer e.Close()

	handle := e.Submit(func(ctx context.Context, progress func(int)) (*models.Report, error) {
		progress(50)
		return successReport(), nil
	})

	status, err := e.Await(context.Background(), handle, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, status)

	report, detail, ok := e.Result(handle)
	require.True(t, ok)
	assert.NoError(t, detail)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.RecordCount)

	p, ok := e.Progress(handle)
	require.True(t, ok)
	assert.Equal(t, 100, p)
}

func TestSubmitAwait_Failure(t *testing.T) {
	e := New(1, 0)
	defer e.Close()

	boom := errors.New("column blew up")
	handle := e.Submit(func(ctx context.Context, progress func(int)) (*models.Report, error) {
		return nil, boom
	})

	status, err := e.Await(context.Background(), handle, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailure, status)

	report, detail, ok := e.Result(handle)
	require.True(t, ok)
	assert.Nil(t, report)
	assert.ErrorIs(t, detail, boom)
}

func TestAwait_Timeout(t *testing.T) {
	e := New(1, 0)
	defer e.Close()

	release := make(chan struct{})
	handle := e.Submit(func(ctx context.Context, progress func(int)) (*models.Report, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return successReport(), nil
	})

	_, err := e.Await(context.Background(), handle, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrAwaitTimeout)
	close(release)
}

func TestAwait_UnknownHandle(t *testing.T) {
	e := New(1, 0)
	defer e.Close()

	_, err := e.Await(context.Background(), uuid.New(), time.Second)
	assert.ErrorIs(t, err, ErrUnknownHandle)

	_, ok := e.Status(uuid.New())
	assert.False(t, ok)
}

func TestAwait_ContextCancelled(t *testing.T) {
	e := New(1, 0)
	defer e.Close()

	release := make(chan struct{})
	handle := e.Submit(func(ctx context.Context, progress func(int)) (*models.Report, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return successReport(), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Await(ctx, handle, 0)
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}

func TestIsTerminal(t *testing.T) {
	e := New(1, 0)
	defer e.Close()

	release := make(chan struct{})
	blocked := e.Submit(func(ctx context.Context, progress func(int)) (*models.Report, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return successReport(), nil
	})
	assert.False(t, e.IsTerminal(blocked))

	done := e.Submit(func(ctx context.Context, progress func(int)) (*models.Report, error) {
		return successReport(), nil
	})
	close(release)

	_, err := e.Await(context.Background(), done, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, e.IsTerminal(done))
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	e := New(1, 0)
	defer e.Close()

	gate := make(chan struct{})
	started := make(chan struct{}, 2)

	slow := func(ctx context.Context, progress func(int)) (*models.Report, error) {
		started <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
		}
		return successReport(), nil
	}

	h1 := e.Submit(slow)
	h2 := e.Submit(slow)

	// Only one task can hold the single worker slot.
	<-started
	select {
	case <-started:
		t.Fatal("second task ran while first held the only worker slot")
	case <-time.After(100 * time.Millisecond):
	}

	close(gate)
	_, err := e.Await(context.Background(), h1, 5*time.Second)
	require.NoError(t, err)
	_, err = e.Await(context.Background(), h2, 5*time.Second)
	require.NoError(t, err)
}
