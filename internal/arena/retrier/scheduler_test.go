package retrier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/arena/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// fakeRunner fails per model according to failures; -1 means always fail
type fakeRunner struct {
	mu       sync.Mutex
	failures map[string]int
	errs     map[string]error
	calls    map[string]int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{failures: map[string]int{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (r *fakeRunner) Execute(ctx context.Context, prompt, modelID string) (executor.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[modelID]++
	if err, ok := r.errs[modelID]; ok {
		return executor.Result{}, err
	}
	n := r.failures[modelID]
	if n == -1 || r.calls[modelID] <= n {
		return executor.Result{}, &executor.TransientError{ModelID: modelID, Err: fmt.Errorf("boom %d", r.calls[modelID])}
	}
	return executor.Result{HTML: "<p>" + modelID + "</p>", CSS: "p{}"}, nil
}

func (r *fakeRunner) count(modelID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[modelID]
}

type fakeHooks struct {
	mu         sync.Mutex
	started    []string
	succeeded  map[string]executor.Result
	failed     map[string]string
	failErrors int // number of Failed calls that return an error first
	failCalls  int
}

func newFakeHooks() *fakeHooks {
	return &fakeHooks{succeeded: map[string]executor.Result{}, failed: map[string]string{}}
}

func (h *fakeHooks) Started(ctx context.Context, job Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = append(h.started, job.OutputID)
	return nil
}

func (h *fakeHooks) Succeeded(ctx context.Context, job Job, res executor.Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := h.succeeded[job.OutputID]; dup {
		return errors.New("succeeded twice")
	}
	h.succeeded[job.OutputID] = res
	return nil
}

func (h *fakeHooks) Failed(ctx context.Context, job Job, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failCalls++
	if h.failCalls <= h.failErrors {
		return errors.New("database unavailable")
	}
	h.failed[job.OutputID] = message
	return nil
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestScheduler(runner Runner, hooks Hooks) (*Scheduler, *MemoryJobStore, *fakeClock) {
	clock := &fakeClock{now: t0}
	store := NewMemoryJobStore()
	s := New(store, runner, hooks, Options{Policy: DefaultPolicy(), Now: clock.Now})
	return s, store, clock
}

func TestPolicy_Backoff(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 4*time.Second, p.Backoff(3))
	assert.Equal(t, 8*time.Second, p.Backoff(4))
	assert.Equal(t, time.Second, p.Backoff(0))
}

func TestScheduler_AlwaysFailingExhaustsAttempts(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["gpt-4o"] = -1
	hooks := newFakeHooks()
	s, store, clock := newTestScheduler(runner, hooks)
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, "out-1", "demo-1", "gpt-4o", "draw a clock"))

	var delays []time.Duration
	for i := 0; i < 10; i++ {
		n, err := s.Tick(ctx)
		require.NoError(t, err)
		s.Wait()
		if n == 0 {
			break
		}
		job, err := store.Get(ctx, "out-1")
		if errors.Is(err, ErrJobNotFound) {
			break
		}
		require.NoError(t, err)

		delays = append(delays, job.NextRunAt.Sub(clock.Now()))

		// not due yet: nothing is claimed
		n, err = s.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		clock.Set(job.NextRunAt)
	}

	assert.Equal(t, 5, runner.count("gpt-4o"))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, delays)
	assert.Equal(t, []string{"out-1"}, hooks.started)
	assert.Equal(t, "boom 5", hooks.failed["out-1"])
	assert.Empty(t, hooks.succeeded)

	_, err := store.Get(ctx, "out-1")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_SucceedsAfterRetries(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["grok-4"] = 2
	hooks := newFakeHooks()
	s, store, clock := newTestScheduler(runner, hooks)
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, "out-2", "demo-1", "grok-4", "p"))

	for i := 0; i < 3; i++ {
		_, err := s.Tick(ctx)
		require.NoError(t, err)
		s.Wait()
		if job, err := store.Get(ctx, "out-2"); err == nil {
			clock.Set(job.NextRunAt)
		}
	}

	assert.Equal(t, 3, runner.count("grok-4"))
	assert.Len(t, hooks.started, 1)
	require.Contains(t, hooks.succeeded, "out-2")
	assert.Equal(t, "<p>grok-4</p>", hooks.succeeded["out-2"].HTML)
	assert.Empty(t, hooks.failed)
}

func TestScheduler_PermanentErrorsSkipRetries(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unknown model", fmt.Errorf("%w: nope", domain.ErrUnknownModel)},
		{"provider not configured", fmt.Errorf("%w: xai", executor.ErrProviderNotConfigured)},
		{"explicit permanent", Permanent(errors.New("bad request"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			runner.errs["m"] = tt.err
			hooks := newFakeHooks()
			s, store, _ := newTestScheduler(runner, hooks)
			ctx := context.Background()

			require.NoError(t, s.Submit(ctx, "out", "demo", "m", "p"))
			_, err := s.Tick(ctx)
			require.NoError(t, err)
			s.Wait()

			assert.Equal(t, 1, runner.count("m"))
			assert.Equal(t, tt.err.Error(), hooks.failed["out"])
			_, err = store.Get(ctx, "out")
			assert.ErrorIs(t, err, ErrJobNotFound)
		})
	}
}

func TestScheduler_JobsAreIsolated(t *testing.T) {
	runner := newFakeRunner()
	runner.failures["model-a"] = -1
	hooks := newFakeHooks()
	s, _, _ := newTestScheduler(runner, hooks)
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, "out-a", "demo", "model-a", "p"))
	require.NoError(t, s.Submit(ctx, "out-b", "demo", "model-b", "p"))

	n, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	s.Wait()

	assert.Contains(t, hooks.succeeded, "out-b")
	assert.NotContains(t, hooks.failed, "out-a")
	assert.Equal(t, 1, runner.count("model-a"))
}

func TestScheduler_TerminalCallbackIsRetriedAlone(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["m"] = Permanent(errors.New("nope"))
	hooks := newFakeHooks()
	hooks.failErrors = 1
	s, store, clock := newTestScheduler(runner, hooks)
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, "out", "demo", "m", "p"))
	_, err := s.Tick(ctx)
	require.NoError(t, err)
	s.Wait()

	job, err := store.Get(ctx, "out")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, job.Outcome)

	clock.Set(job.NextRunAt)
	_, err = s.Tick(ctx)
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, 1, runner.count("m"))
	assert.Equal(t, "nope", hooks.failed["out"])
	_, err = store.Get(ctx, "out")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RecoverExpiredLeases(t *testing.T) {
	runner := newFakeRunner()
	hooks := newFakeHooks()
	clock := &fakeClock{now: t0}
	store := NewMemoryJobStore()
	s := New(store, runner, hooks, Options{Now: clock.Now, LeaseTimeout: time.Minute})
	ctx := context.Background()

	require.NoError(t, store.Schedule(ctx, Job{OutputID: "out", ModelID: "m", NextRunAt: t0}))
	// a worker claims it and dies
	claimed, err := store.ClaimDue(ctx, t0, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	n, err := s.RecoverExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	clock.Set(t0.Add(2 * time.Minute))
	n, err = s.RecoverExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	started, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, started)
	s.Wait()
	assert.Contains(t, hooks.succeeded, "out")
}

func TestScheduler_RunPicksUpSubmittedJobs(t *testing.T) {
	runner := newFakeRunner()
	hooks := newFakeHooks()
	s := New(NewMemoryJobStore(), runner, hooks, Options{PollInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	require.NoError(t, s.Submit(context.Background(), "out", "demo", "gpt-4o", "p"))
	assert.Eventually(t, func() bool {
		hooks.mu.Lock()
		defer hooks.mu.Unlock()
		_, ok := hooks.succeeded["out"]
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestScheduler_Tracked(t *testing.T) {
	s, _, _ := newTestScheduler(newFakeRunner(), newFakeHooks())
	ctx := context.Background()

	ok, err := s.Tracked(ctx, "out")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Submit(ctx, "out", "demo", "m", "p"))
	ok, err = s.Tracked(ctx, "out")
	require.NoError(t, err)
	assert.True(t, ok)
}

// blockingRunner holds every attempt until release is closed
type blockingRunner struct {
	mu          sync.Mutex
	calls       int
	inflight    int
	maxInflight int
	deadlines   []time.Duration
	entered     chan struct{}
	release     chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{entered: make(chan struct{}, 10), release: make(chan struct{})}
}

func (r *blockingRunner) Execute(ctx context.Context, prompt, modelID string) (executor.Result, error) {
	r.mu.Lock()
	r.calls++
	r.inflight++
	if r.inflight > r.maxInflight {
		r.maxInflight = r.inflight
	}
	if dl, ok := ctx.Deadline(); ok {
		r.deadlines = append(r.deadlines, time.Until(dl))
	}
	r.mu.Unlock()
	r.entered <- struct{}{}

	<-r.release

	r.mu.Lock()
	r.inflight--
	r.mu.Unlock()
	return executor.Result{HTML: "<p>ok</p>"}, nil
}

func TestScheduler_ExpiredLeaseDoesNotOverlapRunningAttempt(t *testing.T) {
	runner := newBlockingRunner()
	hooks := newFakeHooks()
	clock := &fakeClock{now: t0}
	store := NewMemoryJobStore()
	s := New(store, runner, hooks, Options{Now: clock.Now, LeaseTimeout: time.Minute})
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, "out", "demo", "m", "p"))
	n, err := s.Tick(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	<-runner.entered

	clock.Set(t0.Add(2 * time.Minute))
	requeued, err := s.RecoverExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, requeued)

	n, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	close(runner.release)
	s.Wait()

	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 1, runner.maxInflight)
	assert.Contains(t, hooks.succeeded, "out")
	_, err = store.Get(ctx, "out")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_AttemptDeadlineStaysInsideLease(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	s := New(NewMemoryJobStore(), runner, newFakeHooks(), Options{LeaseTimeout: time.Minute})
	ctx := context.Background()

	require.NoError(t, s.Submit(ctx, "out", "demo", "m", "p"))
	_, err := s.Tick(ctx)
	require.NoError(t, err)
	s.Wait()

	require.Len(t, runner.deadlines, 1)
	assert.Less(t, runner.deadlines[0], time.Minute)
	assert.Greater(t, runner.deadlines[0], time.Duration(0))
}
