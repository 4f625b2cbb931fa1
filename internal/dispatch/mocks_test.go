package dispatch_test

import (
	"context"
	"sync"
	"time"

	"github.com/oliviaenjoyslife2025/weather-data-analysis/internal/store"
	"github.com/oliviaenjoyslife2025/weather-data-analysis/pkg/models"
)

// memStore mirrors the Postgres store's semantics in memory, including the
// forward-only status transitions, and records every observed transition.
type memStore struct {
	mu         sync.Mutex
	jobs       map[string]*models.Job
	results    map[string]*models.Report
	jobInserts int
	history    map[string][]string

	failCreateResult error
	failUpdateStatus error
}

func newMemStore() *memStore {
	return &memStore{
		jobs:    make(map[string]*models.Job),
		results: make(map[string]*models.Report),
		history: make(map[string][]string),
	}
}

func (s *memStore) Ping(ctx context.Context) error { return nil }

func (s *memStore) CreateJob(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Fingerprint]; exists {
		return store.ErrDuplicateKey
	}
	copied := *job
	s.jobs[job.Fingerprint] = &copied
	s.jobInserts++
	s.history[job.Fingerprint] = append(s.history[job.Fingerprint], job.Status)
	return nil
}

func (s *memStore) GetJob(ctx context.Context, fp string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[fp]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *j
	return &copied, nil
}

// memPredecessors mirrors the guarded UPDATE's predicate: per target status,
// the statuses the row may hold for the transition to apply.
var memPredecessors = map[string][]string{
	models.StatusRunning: {models.StatusPending},
	models.StatusSuccess: {models.StatusPending, models.StatusRunning},
	models.StatusFailure: {models.StatusPending, models.StatusRunning},
}

func (s *memStore) UpdateJobStatus(ctx context.Context, fp string, status string, opts ...store.JobUpdateOption) error {
	if s.failUpdateStatus != nil {
		return s.failUpdateStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[fp]
	if !ok {
		return store.ErrNotFound
	}

	valid := false
	for _, allowed := range memPredecessors[status] {
		if allowed == j.Status {
			valid = true
			break
		}
	}
	if !valid {
		return store.ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now().UTC()
	s.history[fp] = append(s.history[fp], status)
	return nil
}

func (s *memStore) ListJobsSince(ctx context.Context, since time.Time) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if !j.CreatedAt.Before(since) {
			copied := *j
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memStore) DeleteJob(ctx context.Context, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[fp]; !ok {
		return store.ErrNotFound
	}
	delete(s.jobs, fp)
	return nil
}

func (s *memStore) CreateResult(ctx context.Context, fp string, report *models.Report) error {
	if s.failCreateResult != nil {
		return s.failCreateResult
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[fp]; exists {
		return store.ErrDuplicateKey
	}
	s.results[fp] = report
	return nil
}

func (s *memStore) GetResult(ctx context.Context, fp string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[fp]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (s *memStore) DeleteResult(ctx context.Context, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[fp]; !ok {
		return store.ErrNotFound
	}
	delete(s.results, fp)
	return nil
}

func (s *memStore) statusHistory(fp string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history[fp]...)
}

func (s *memStore) jobInsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobInserts
}

// memCache is an in-memory Cache without TTL handling.
type memCache struct {
	mu      sync.Mutex
	raw     map[string][]byte
	reports map[string]*models.Report
}

func newMemCache() *memCache {
	return &memCache{
		raw:     make(map[string][]byte),
		reports: make(map[string]*models.Report),
	}
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw[key] = value
	return nil
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.raw[key]
	return v, ok, nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.raw, key)
	return nil
}

func (c *memCache) Ping(ctx context.Context) error { return nil }

func (c *memCache) SetReport(ctx context.Context, fp string, report *models.Report, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[fp] = report
	return nil
}

func (c *memCache) GetReport(ctx context.Context, fp string) (*models.Report, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[fp]
	return r, ok, nil
}

func (c *memCache) DeleteReport(ctx context.Context, fp string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reports, fp)
	return nil
}

func (c *memCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	return 1, nil
}

func (c *memCache) hasReport(fp string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.reports[fp]
	return ok
}

// memBlob is an in-memory blob store counting writes.
type memBlob struct {
	mu       sync.Mutex
	objects  map[string][]byte
	putCalls int
}

func newMemBlob() *memBlob {
	return &memBlob{objects: make(map[string][]byte)}
}

func (b *memBlob) Put(ctx context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	b.putCalls++
	return nil
}

func (b *memBlob) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return data, nil
}

func (b *memBlob) Remove(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *memBlob) putCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.putCalls
}
