package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/arena/registry"
	"github.com/demo-arena/arena-backend/internal/arena/repository"
	"github.com/demo-arena/arena-backend/internal/arena/resolver"
)

// DemoService orchestrates demos: it records pending versions, hands them to the retry
// scheduler and serves the resolved read model.
type DemoService struct {
	demos    DemoStore
	outputs  OutputStore
	jobs     JobSubmitter
	registry *registry.Registry
	events   Publisher
}

// NewDemoService creates a new DemoService. events may be nil.
func NewDemoService(demos DemoStore, outputs OutputStore, jobs JobSubmitter, reg *registry.Registry, events Publisher) *DemoService {
	return &DemoService{
		demos:    demos,
		outputs:  outputs,
		jobs:     jobs,
		registry: reg,
		events:   events,
	}
}

// Registry returns the model registry the service dispatches against
func (s *DemoService) Registry() *registry.Registry {
	return s.registry
}

// CreateDemo stores a demo for the default-enabled models and schedules one generation per
// model. It returns as soon as the pending outputs exist.
func (s *DemoService) CreateDemo(ctx context.Context, ownerID, prompt string) (*domain.Demo, []domain.Output, error) {
	logger := NewLogger(ctx)

	if strings.TrimSpace(ownerID) == "" {
		return nil, nil, domain.ErrNotAuthorized
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, nil, domain.ErrInvalidPrompt
	}

	demo := &domain.Demo{
		OwnerID:         ownerID,
		Prompt:          prompt,
		SelectedModels:  s.registry.DefaultEnabled(),
		SelectedOutputs: map[string]string{},
	}
	if err := s.demos.Create(ctx, demo); err != nil {
		logger.LogError("create_demo", err)
		return nil, nil, err
	}

	outputs, err := s.startAll(ctx, demo, demo.SelectedModels)
	if err != nil {
		logger.LogError("create_demo", err)
		return nil, nil, err
	}

	logger.LogInfof("create_demo", "demo_id=%s owner_id=%s models=%d", demo.ID, ownerID, len(outputs))
	return demo, outputs, nil
}

// RegenerateModels adds a new version for each model using the current prompt and clears
// those models' pins so the newest version shows once ready.
func (s *DemoService) RegenerateModels(ctx context.Context, callerID, demoID string, modelIDs []string) ([]domain.Output, error) {
	logger := NewLogger(ctx)

	ids := uniqueIDs(modelIDs)
	if len(ids) == 0 {
		return nil, domain.ErrNoModels
	}

	demo, err := s.demos.Mutate(ctx, demoID, func(d *domain.Demo) (bool, error) {
		if !d.IsOwnedBy(callerID) {
			return false, domain.ErrNotAuthorized
		}
		changed := false
		for _, id := range ids {
			if _, ok := d.SelectedOutputs[id]; ok {
				delete(d.SelectedOutputs, id)
				changed = true
			}
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}

	outputs, err := s.startAll(ctx, demo, ids)
	if err != nil {
		logger.LogError("regenerate_models", err)
		return nil, err
	}

	logger.LogInfof("regenerate_models", "demo_id=%s models=%s", demoID, strings.Join(ids, ","))
	return outputs, nil
}

// RegenerateSingle is RegenerateModels for one model
func (s *DemoService) RegenerateSingle(ctx context.Context, callerID, demoID, modelID string) (*domain.Output, error) {
	if strings.TrimSpace(modelID) == "" {
		return nil, domain.ErrNoModels
	}
	outputs, err := s.RegenerateModels(ctx, callerID, demoID, []string{modelID})
	if err != nil {
		return nil, err
	}
	return &outputs[0], nil
}

// UpdatePrompt changes the prompt used by future generations
func (s *DemoService) UpdatePrompt(ctx context.Context, callerID, demoID, prompt string) (*domain.Demo, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.ErrInvalidPrompt
	}

	demo, err := s.demos.Mutate(ctx, demoID, func(d *domain.Demo) (bool, error) {
		if !d.IsOwnedBy(callerID) {
			return false, domain.ErrNotAuthorized
		}
		if d.Prompt == prompt {
			return false, nil
		}
		d.Prompt = prompt
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, repository.DemoEvent{Type: repository.EventDemoUpdated, DemoID: demoID})
	return s.withDefaults(demo), nil
}

// UpdateSelectedModels replaces the set of model tiles shown. Outputs are untouched.
func (s *DemoService) UpdateSelectedModels(ctx context.Context, callerID, demoID string, modelIDs []string) (*domain.Demo, error) {
	ids := uniqueIDs(modelIDs)

	demo, err := s.demos.Mutate(ctx, demoID, func(d *domain.Demo) (bool, error) {
		if !d.IsOwnedBy(callerID) {
			return false, domain.ErrNotAuthorized
		}
		d.SelectedModels = ids
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, repository.DemoEvent{Type: repository.EventDemoUpdated, DemoID: demoID})
	return demo, nil
}

// NavigateVersion moves modelID's displayed version one step and pins it. At either end, or
// with fewer than two versions, nothing changes.
func (s *DemoService) NavigateVersion(ctx context.Context, callerID, demoID, modelID string, dir domain.Direction) (domain.ResolvedOutput, error) {
	if dir != domain.DirectionPrev && dir != domain.DirectionNext {
		return domain.ResolvedOutput{}, domain.ErrInvalidDirection
	}

	// listed before Mutate: the row lock holds a pool connection. Versions are append-only.
	all, err := s.outputs.ListByDemo(ctx, demoID)
	if err != nil {
		return domain.ResolvedOutput{}, err
	}
	versions := resolver.Versions(all, modelID)

	demo, err := s.demos.Mutate(ctx, demoID, func(d *domain.Demo) (bool, error) {
		if !d.IsOwnedBy(callerID) {
			return false, domain.ErrNotAuthorized
		}
		if len(versions) <= 1 {
			return false, nil
		}

		cur := resolver.CurrentIndex(versions, d.SelectedOutputs[modelID])
		next := cur
		switch dir {
		case domain.DirectionPrev:
			if cur > 0 {
				next = cur - 1
			}
		case domain.DirectionNext:
			if cur < len(versions)-1 {
				next = cur + 1
			}
		}
		if next == cur {
			return false, nil
		}
		if d.SelectedOutputs == nil {
			d.SelectedOutputs = map[string]string{}
		}
		d.SelectedOutputs[modelID] = versions[next].ID
		return true, nil
	})
	if err != nil {
		return domain.ResolvedOutput{}, err
	}

	res := domain.ResolvedOutput{ModelID: modelID}
	if len(versions) == 0 {
		return res, nil
	}
	idx := resolver.CurrentIndex(versions, demo.SelectedOutputs[modelID])
	out := versions[idx]
	res.Output = &out
	res.VersionIndex = idx + 1
	res.VersionCount = len(versions)
	return res, nil
}

// Archive hides a demo from default listings
func (s *DemoService) Archive(ctx context.Context, callerID, demoID string) (*domain.Demo, error) {
	return s.setArchived(ctx, callerID, demoID, true)
}

// Unarchive returns a demo to default listings
func (s *DemoService) Unarchive(ctx context.Context, callerID, demoID string) (*domain.Demo, error) {
	return s.setArchived(ctx, callerID, demoID, false)
}

func (s *DemoService) setArchived(ctx context.Context, callerID, demoID string, archived bool) (*domain.Demo, error) {
	demo, err := s.demos.Mutate(ctx, demoID, func(d *domain.Demo) (bool, error) {
		if !d.IsOwnedBy(callerID) {
			return false, domain.ErrNotAuthorized
		}
		if d.Archived == archived {
			return false, nil
		}
		d.Archived = archived
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	NewLogger(ctx).LogInfof("set_archived", "demo_id=%s archived=%t", demoID, archived)
	return s.withDefaults(demo), nil
}

// ListDemos returns one page of the owner's demos, newest first
func (s *DemoService) ListDemos(ctx context.Context, req domain.ListDemosRequest) (domain.DemoPage, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return domain.DemoPage{}, domain.ErrNotAuthorized
	}
	page, err := s.demos.List(ctx, req)
	if err != nil {
		return domain.DemoPage{}, err
	}
	for i := range page.Demos {
		s.withDefaults(&page.Demos[i])
	}
	return page, nil
}

// GetDemo resolves a demo for any caller holding its id
func (s *DemoService) GetDemo(ctx context.Context, callerID, demoID string) (domain.DemoView, error) {
	demo, err := s.demos.Get(ctx, demoID)
	if err != nil {
		return domain.DemoView{}, err
	}
	outputs, err := s.outputs.ListByDemo(ctx, demoID)
	if err != nil {
		return domain.DemoView{}, fmt.Errorf("failed to load outputs: %w", err)
	}
	return resolver.BuildView(*s.withDefaults(demo), outputs, callerID, s.registry), nil
}

// startAll creates one pending output per model and submits its job. A submit failure is
// written to that output so it never stays pending.
func (s *DemoService) startAll(ctx context.Context, demo *domain.Demo, modelIDs []string) ([]domain.Output, error) {
	logger := NewLogger(ctx)
	outputs := make([]domain.Output, 0, len(modelIDs))

	for _, modelID := range modelIDs {
		out, err := s.outputs.CreatePending(ctx, demo.ID, modelID)
		if err != nil {
			return outputs, err
		}

		if err := s.jobs.Submit(ctx, out.ID, demo.ID, modelID, demo.Prompt); err != nil {
			logger.LogWarnf("submit_job", "demo_id=%s output_id=%s model=%s error=%v", demo.ID, out.ID, modelID, err)
			msg := "failed to schedule generation: " + err.Error()
			if _, serr := s.outputs.SetError(ctx, out.ID, msg); serr != nil {
				logger.LogError("submit_job", serr)
			}
			out.Status = domain.StatusError
			out.ErrorMessage = msg
		}

		outputs = append(outputs, *out)
		s.publish(ctx, repository.DemoEvent{
			Type:     repository.EventOutputCreated,
			DemoID:   demo.ID,
			OutputID: out.ID,
			ModelID:  modelID,
			Status:   out.Status,
		})
	}
	return outputs, nil
}

// withDefaults fills the selection of demos stored before per-demo selection existed
func (s *DemoService) withDefaults(d *domain.Demo) *domain.Demo {
	if d.SelectedModels == nil {
		d.SelectedModels = s.registry.DefaultEnabled()
	}
	if d.SelectedOutputs == nil {
		d.SelectedOutputs = map[string]string{}
	}
	return d
}

func (s *DemoService) publish(ctx context.Context, ev repository.DemoEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		NewLogger(ctx).LogWarnf("publish_event", "demo_id=%s type=%s error=%v", ev.DemoID, ev.Type, err)
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
