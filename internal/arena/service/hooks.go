package service

import (
	"context"
	"log"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/arena/executor"
	"github.com/demo-arena/arena-backend/internal/arena/repository"
	"github.com/demo-arena/arena-backend/internal/arena/retrier"
)

// OutputHooks writes job lifecycle changes to the output rows and announces them
type OutputHooks struct {
	outputs OutputStore
	events  Publisher
}

// NewOutputHooks creates OutputHooks. events may be nil.
func NewOutputHooks(outputs OutputStore, events Publisher) *OutputHooks {
	return &OutputHooks{outputs: outputs, events: events}
}

var _ retrier.Hooks = (*OutputHooks)(nil)

func (h *OutputHooks) Started(ctx context.Context, job retrier.Job) error {
	changed, err := h.outputs.SetGenerating(ctx, job.OutputID)
	if err != nil {
		return err
	}
	if changed {
		h.publish(ctx, job, domain.StatusGenerating)
	}
	return nil
}

func (h *OutputHooks) Succeeded(ctx context.Context, job retrier.Job, res executor.Result) error {
	changed, err := h.outputs.SetComplete(ctx, job.OutputID, res.HTML, res.CSS)
	if err != nil {
		return err
	}
	if changed {
		h.publish(ctx, job, domain.StatusComplete)
	}
	return nil
}

func (h *OutputHooks) Failed(ctx context.Context, job retrier.Job, message string) error {
	changed, err := h.outputs.SetError(ctx, job.OutputID, message)
	if err != nil {
		return err
	}
	if changed {
		h.publish(ctx, job, domain.StatusError)
	}
	return nil
}

func (h *OutputHooks) publish(ctx context.Context, job retrier.Job, status string) {
	if h.events == nil {
		return
	}
	err := h.events.Publish(ctx, repository.DemoEvent{
		Type:     repository.EventOutputUpdated,
		DemoID:   job.DemoID,
		OutputID: job.OutputID,
		ModelID:  job.ModelID,
		Status:   status,
	})
	if err != nil {
		log.Printf("[warn] component=hooks operation=publish output_id=%s error=%v", job.OutputID, err)
	}
}
