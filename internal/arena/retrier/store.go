package retrier

import (
	"context"
	"sort"
	"sync"
	"time"
)

// JobStore persists jobs so a restart between attempts keeps the retry obligation.
// A job is either due (waiting for NextRunAt), running (claimed under a lease) or gone.
type JobStore interface {
	// Schedule upserts job as due at job.NextRunAt and drops any running lease
	Schedule(ctx context.Context, job Job) error
	// ClaimDue atomically moves up to limit due jobs into the running set
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error)
	// Delete forgets a job
	Delete(ctx context.Context, outputID string) error
	// Get returns a stored job or ErrJobNotFound
	Get(ctx context.Context, outputID string) (Job, error)
	// RequeueExpired returns running jobs whose lease ran out to the due set
	RequeueExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryJobStore keeps jobs in process memory. Used for single-process runs and tests.
type MemoryJobStore struct {
	mu      sync.Mutex
	jobs    map[string]Job
	due     map[string]time.Time
	running map[string]time.Time
}

// NewMemoryJobStore creates an empty MemoryJobStore
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs:    make(map[string]Job),
		due:     make(map[string]time.Time),
		running: make(map[string]time.Time),
	}
}

func (m *MemoryJobStore) Schedule(ctx context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.OutputID] = job
	m.due[job.OutputID] = job.NextRunAt
	delete(m.running, job.OutputID)
	return nil
}

func (m *MemoryJobStore) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, at := range m.due {
		if !at.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if !m.due[ids[i]].Equal(m.due[ids[j]]) {
			return m.due[ids[i]].Before(m.due[ids[j]])
		}
		return ids[i] < ids[j]
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]Job, 0, len(ids))
	for _, id := range ids {
		delete(m.due, id)
		m.running[id] = now.Add(lease)
		out = append(out, m.jobs[id])
	}
	return out, nil
}

func (m *MemoryJobStore) Delete(ctx context.Context, outputID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, outputID)
	delete(m.due, outputID)
	delete(m.running, outputID)
	return nil
}

func (m *MemoryJobStore) Get(ctx context.Context, outputID string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[outputID]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

func (m *MemoryJobStore) RequeueExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, deadline := range m.running {
		if !deadline.After(now) {
			delete(m.running, id)
			m.due[id] = now
			n++
		}
	}
	return n, nil
}
