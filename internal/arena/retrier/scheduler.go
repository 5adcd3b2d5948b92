// Package retrier runs generation jobs with bounded exponential backoff. Each job is keyed
// by its output id and is independent of every other job.
package retrier

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/arena/executor"
)

// Runner performs one generation attempt
type Runner interface {
	Execute(ctx context.Context, prompt, modelID string) (executor.Result, error)
}

// Hooks receive job lifecycle events. Started fires once before the first attempt;
// exactly one of Succeeded or Failed is applied when the job ends.
type Hooks interface {
	Started(ctx context.Context, job Job) error
	Succeeded(ctx context.Context, job Job, res executor.Result) error
	Failed(ctx context.Context, job Job, message string) error
}

// Options configures a Scheduler
type Options struct {
	Policy       Policy
	PollInterval time.Duration
	LeaseTimeout time.Duration
	BatchSize    int
	Now          func() time.Time
}

func (o *Options) setDefaults() {
	if o.Policy.MaxAttempts <= 0 {
		o.Policy = DefaultPolicy()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 250 * time.Millisecond
	}
	if o.LeaseTimeout <= 0 {
		o.LeaseTimeout = 5 * time.Minute
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Scheduler claims due jobs from a JobStore and runs each attempt on its own goroutine.
// Waiting between attempts is a stored timestamp, never a parked goroutine.
type Scheduler struct {
	store  JobStore
	runner Runner
	hooks  Hooks
	opts   Options

	wake chan struct{}
	wg   sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a Scheduler
func New(store JobStore, runner Runner, hooks Hooks, opts Options) *Scheduler {
	opts.setDefaults()
	return &Scheduler{
		store:    store,
		runner:   runner,
		hooks:    hooks,
		opts:     opts,
		wake:     make(chan struct{}, 1),
		inflight: make(map[string]struct{}),
	}
}

// Policy returns the retry policy in use
func (s *Scheduler) Policy() Policy {
	return s.opts.Policy
}

// Submit persists a new job that is due immediately
func (s *Scheduler) Submit(ctx context.Context, outputID, demoID, modelID, prompt string) error {
	now := s.opts.Now()
	job := Job{
		OutputID:  outputID,
		DemoID:    demoID,
		ModelID:   modelID,
		Prompt:    prompt,
		NextRunAt: now,
		CreatedAt: now,
	}
	if err := s.store.Schedule(ctx, job); err != nil {
		return err
	}
	log.Printf("[info] component=retrier operation=submit output_id=%s model=%s", outputID, modelID)
	s.notify()
	return nil
}

// Run polls for due jobs until ctx is cancelled, then waits for in-flight attempts
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	log.Printf("[info] component=retrier operation=run poll=%s max_attempts=%d", s.opts.PollInterval, s.opts.Policy.MaxAttempts)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return nil
		case <-ticker.C:
		case <-s.wake:
		}
		if _, err := s.Tick(ctx); err != nil {
			log.Printf("[error] component=retrier operation=tick error=%v", err)
		}
	}
}

// Tick claims every job due now and starts one attempt for each. It returns the number started.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	jobs, err := s.store.ClaimDue(ctx, s.opts.Now(), s.opts.BatchSize, s.opts.LeaseTimeout)
	if err != nil {
		return 0, err
	}
	// attempts are not cancelled by shutdown; Run waits for them instead
	attemptCtx := context.WithoutCancel(ctx)
	started := 0
	for _, job := range jobs {
		// reclaimed after its lease expired while our attempt still runs; that attempt owns it
		if !s.acquire(job.OutputID) {
			log.Printf("[warn] component=retrier operation=claim output_id=%s result=skipped reason=attempt_in_flight", job.OutputID)
			continue
		}
		started++
		s.wg.Add(1)
		go func(job Job) {
			defer s.wg.Done()
			defer s.release(job.OutputID)
			s.process(attemptCtx, job)
		}(job)
	}
	return started, nil
}

func (s *Scheduler) acquire(outputID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[outputID]; busy {
		return false
	}
	s.inflight[outputID] = struct{}{}
	return true
}

func (s *Scheduler) release(outputID string) {
	s.mu.Lock()
	delete(s.inflight, outputID)
	s.mu.Unlock()
}

// attemptTimeout bounds one attempt below the lease so another worker never reclaims a live job
func (s *Scheduler) attemptTimeout() time.Duration {
	return s.opts.LeaseTimeout * 9 / 10
}

// Wait blocks until every started attempt has finished
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RecoverExpired returns jobs whose lease expired (crashed worker) to the due set
func (s *Scheduler) RecoverExpired(ctx context.Context) (int, error) {
	n, err := s.store.RequeueExpired(ctx, s.opts.Now())
	if n > 0 {
		s.notify()
	}
	return n, err
}

// Tracked reports whether the store still holds a job for outputID
func (s *Scheduler) Tracked(ctx context.Context, outputID string) (bool, error) {
	_, err := s.store.Get(ctx, outputID)
	if errors.Is(err, ErrJobNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Scheduler) process(ctx context.Context, job Job) {
	if job.Outcome != "" {
		s.finish(ctx, job)
		return
	}

	if job.Attempt == 0 {
		if err := s.hooks.Started(ctx, job); err != nil {
			log.Printf("[warn] component=retrier operation=started output_id=%s error=%v", job.OutputID, err)
		}
	}

	job.Attempt++
	runCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout())
	res, err := s.runner.Execute(runCtx, job.Prompt, job.ModelID)
	cancel()
	if err == nil {
		job.Outcome = OutcomeSucceeded
		job.HTML = res.HTML
		job.CSS = res.CSS
		log.Printf("[info] component=retrier operation=attempt output_id=%s model=%s attempt=%d result=success", job.OutputID, job.ModelID, job.Attempt)
		s.finish(ctx, job)
		return
	}

	job.LastError = err.Error()
	if IsPermanent(err) || job.Attempt >= s.opts.Policy.MaxAttempts {
		job.Outcome = OutcomeFailed
		log.Printf("[warn] component=retrier operation=attempt output_id=%s model=%s attempt=%d result=failed error=%v", job.OutputID, job.ModelID, job.Attempt, err)
		s.finish(ctx, job)
		return
	}

	delay := s.opts.Policy.Backoff(job.Attempt)
	job.NextRunAt = s.opts.Now().Add(delay)
	log.Printf("[info] component=retrier operation=attempt output_id=%s model=%s attempt=%d result=retry backoff=%s error=%v", job.OutputID, job.ModelID, job.Attempt, delay, err)
	if err := s.store.Schedule(ctx, job); err != nil {
		log.Printf("[error] component=retrier operation=reschedule output_id=%s error=%v", job.OutputID, err)
	}
}

// finish applies the terminal callback. If the callback fails the job stays stored with its
// outcome so the next claim retries only the callback.
func (s *Scheduler) finish(ctx context.Context, job Job) {
	var err error
	switch job.Outcome {
	case OutcomeSucceeded:
		err = s.hooks.Succeeded(ctx, job, executor.Result{HTML: job.HTML, CSS: job.CSS})
	default:
		err = s.hooks.Failed(ctx, job, job.LastError)
	}

	if err != nil {
		log.Printf("[error] component=retrier operation=finish output_id=%s outcome=%s error=%v", job.OutputID, job.Outcome, err)
		job.NextRunAt = s.opts.Now().Add(s.opts.Policy.InitialBackoff)
		if err := s.store.Schedule(ctx, job); err != nil {
			log.Printf("[error] component=retrier operation=reschedule output_id=%s error=%v", job.OutputID, err)
		}
		return
	}

	if err := s.store.Delete(ctx, job.OutputID); err != nil {
		log.Printf("[error] component=retrier operation=delete output_id=%s error=%v", job.OutputID, err)
	}
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// IsPermanent reports whether err should end a job without further attempts
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe) ||
		errors.Is(err, domain.ErrUnknownModel) ||
		errors.Is(err, executor.ErrProviderNotConfigured)
}
