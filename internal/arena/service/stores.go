package service

import (
	"context"
	"time"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/arena/repository"
)

// DemoStore persists demos. Mutate must run fn under a per-demo lock and write back on change.
type DemoStore interface {
	Create(ctx context.Context, demo *domain.Demo) error
	Get(ctx context.Context, id string) (*domain.Demo, error)
	List(ctx context.Context, req domain.ListDemosRequest) (domain.DemoPage, error)
	Mutate(ctx context.Context, id string, fn func(*domain.Demo) (bool, error)) (*domain.Demo, error)
}

// OutputStore persists output versions. Setters only move non-terminal rows and report a change.
type OutputStore interface {
	CreatePending(ctx context.Context, demoID, modelID string) (*domain.Output, error)
	SetGenerating(ctx context.Context, id string) (bool, error)
	SetComplete(ctx context.Context, id, html, css string) (bool, error)
	SetError(ctx context.Context, id, message string) (bool, error)
	Get(ctx context.Context, id string) (*domain.Output, error)
	ListByDemo(ctx context.Context, demoID string) ([]domain.Output, error)
	ListStale(ctx context.Context, staleAfter time.Duration, limit int) ([]domain.Output, error)
}

// JobSubmitter hands one output to the retry scheduler
type JobSubmitter interface {
	Submit(ctx context.Context, outputID, demoID, modelID, prompt string) error
}

// Publisher fans demo events out to stream subscribers
type Publisher interface {
	Publish(ctx context.Context, ev repository.DemoEvent) error
}

var (
	_ DemoStore   = (*repository.DemoRepository)(nil)
	_ OutputStore = (*repository.OutputRepository)(nil)
	_ Publisher   = (*repository.EventBus)(nil)
)
