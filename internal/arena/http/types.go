package http

import (
	"context"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/arena/registry"
	"github.com/demo-arena/arena-backend/internal/arena/repository"
)

// DemoService is the orchestrator surface the handlers call
type DemoService interface {
	CreateDemo(ctx context.Context, ownerID, prompt string) (*domain.Demo, []domain.Output, error)
	ListDemos(ctx context.Context, req domain.ListDemosRequest) (domain.DemoPage, error)
	GetDemo(ctx context.Context, callerID, demoID string) (domain.DemoView, error)
	UpdatePrompt(ctx context.Context, callerID, demoID, prompt string) (*domain.Demo, error)
	UpdateSelectedModels(ctx context.Context, callerID, demoID string, modelIDs []string) (*domain.Demo, error)
	RegenerateModels(ctx context.Context, callerID, demoID string, modelIDs []string) ([]domain.Output, error)
	RegenerateSingle(ctx context.Context, callerID, demoID, modelID string) (*domain.Output, error)
	NavigateVersion(ctx context.Context, callerID, demoID, modelID string, dir domain.Direction) (domain.ResolvedOutput, error)
	Archive(ctx context.Context, callerID, demoID string) (*domain.Demo, error)
	Unarchive(ctx context.Context, callerID, demoID string) (*domain.Demo, error)
}

// Subscriber streams demo events
type Subscriber interface {
	Subscribe(ctx context.Context, demoID string) (<-chan repository.DemoEvent, func() error, error)
}

// Handler bundles the dependencies for demo HTTP endpoints
type Handler struct {
	svc      DemoService
	registry *registry.Registry
	events   Subscriber
}

// New creates a Handler. events may be nil, in which case streams only poll.
func New(svc DemoService, reg *registry.Registry, events Subscriber) *Handler {
	return &Handler{svc: svc, registry: reg, events: events}
}

type promptReq struct {
	Prompt string `json:"prompt"`
}

type modelsReq struct {
	Models []string `json:"models"`
}

type navigateReq struct {
	Direction string `json:"direction"`
}

type modelInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Provider       string `json:"provider"`
	DefaultEnabled bool   `json:"default_enabled"`
}
