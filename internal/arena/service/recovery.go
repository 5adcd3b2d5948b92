package service

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRecoverySchedule runs the sweep every minute (cron with seconds)
const DefaultRecoverySchedule = "0 * * * * *"

// LeaseRecoverer returns jobs whose lease expired to the due set
type LeaseRecoverer interface {
	RecoverExpired(ctx context.Context) (int, error)
	Tracked(ctx context.Context, outputID string) (bool, error)
}

// RecoveryJob repairs work lost to a crash: expired job leases are requeued and outputs left
// pending or generating without any job are resubmitted.
type RecoveryJob struct {
	demos      DemoStore
	outputs    OutputStore
	jobs       JobSubmitter
	recoverer  LeaseRecoverer
	staleAfter time.Duration
	cron       *cron.Cron
}

// NewRecoveryJob creates a RecoveryJob. Outputs untouched for staleAfter are candidates.
func NewRecoveryJob(demos DemoStore, outputs OutputStore, jobs JobSubmitter, recoverer LeaseRecoverer, staleAfter time.Duration) *RecoveryJob {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &RecoveryJob{
		demos:      demos,
		outputs:    outputs,
		jobs:       jobs,
		recoverer:  recoverer,
		staleAfter: staleAfter,
	}
}

// Start registers the sweep on schedule and starts the cron runner
func (r *RecoveryJob) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultRecoverySchedule
	}
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			log.Printf("[error] component=recovery operation=sweep error=%v", err)
		}
	})
	if err != nil {
		return err
	}

	r.cron = c
	c.Start()
	log.Printf("[info] component=recovery operation=start schedule=%q", schedule)
	return nil
}

// Stop halts the cron runner and waits for a running sweep
func (r *RecoveryJob) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// RunOnce performs a single sweep and returns the number of jobs requeued or resubmitted
func (r *RecoveryJob) RunOnce(ctx context.Context) (int, error) {
	requeued, err := r.recoverer.RecoverExpired(ctx)
	if err != nil {
		return 0, err
	}

	stale, err := r.outputs.ListStale(ctx, r.staleAfter, 100)
	if err != nil {
		return requeued, err
	}

	resubmitted := 0
	for _, out := range stale {
		tracked, err := r.recoverer.Tracked(ctx, out.ID)
		if err != nil {
			return requeued + resubmitted, err
		}
		if tracked {
			continue
		}
		// the job may have finished and been deleted since the listing
		cur, err := r.outputs.Get(ctx, out.ID)
		if err != nil {
			log.Printf("[warn] component=recovery operation=load_output output_id=%s error=%v", out.ID, err)
			continue
		}
		if cur.IsTerminal() {
			continue
		}
		demo, err := r.demos.Get(ctx, out.DemoID)
		if err != nil {
			log.Printf("[warn] component=recovery operation=load_demo output_id=%s error=%v", out.ID, err)
			continue
		}
		// the original prompt is gone with the job; the demo's current prompt stands in
		if err := r.jobs.Submit(ctx, out.ID, out.DemoID, out.ModelID, demo.Prompt); err != nil {
			return requeued + resubmitted, err
		}
		resubmitted++
	}

	if requeued+resubmitted > 0 {
		log.Printf("[info] component=recovery operation=sweep requeued=%d resubmitted=%d", requeued, resubmitted)
	}
	return requeued + resubmitted, nil
}
