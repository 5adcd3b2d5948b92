package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/demo-arena/arena-backend/internal/arena/domain"
	"github.com/demo-arena/arena-backend/internal/arena/registry"
	"github.com/demo-arena/arena-backend/internal/arena/repository"
	"github.com/stretchr/testify/require"
)

type memDemos struct {
	mu    sync.Mutex
	demos map[string]domain.Demo
	seq   int
	// locked is set while a Mutate callback runs, mirroring the row lock
	locked atomic.Bool
}

func newMemDemos() *memDemos {
	return &memDemos{demos: map[string]domain.Demo{}}
}

func copyDemo(d domain.Demo) domain.Demo {
	if d.SelectedModels != nil {
		d.SelectedModels = append([]string{}, d.SelectedModels...)
	}
	pins := make(map[string]string, len(d.SelectedOutputs))
	for k, v := range d.SelectedOutputs {
		pins[k] = v
	}
	d.SelectedOutputs = pins
	return d
}

func (m *memDemos) Create(ctx context.Context, demo *domain.Demo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if demo.ID == "" {
		demo.ID = fmt.Sprintf("demo-%d", m.seq)
	}
	demo.CreatedAt = time.Unix(int64(m.seq), 0)
	demo.UpdatedAt = demo.CreatedAt
	m.demos[demo.ID] = copyDemo(*demo)
	return nil
}

func (m *memDemos) Get(ctx context.Context, id string) (*domain.Demo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.demos[id]
	if !ok {
		return nil, domain.ErrDemoNotFound
	}
	c := copyDemo(d)
	return &c, nil
}

func (m *memDemos) List(ctx context.Context, req domain.ListDemosRequest) (domain.DemoPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := domain.DemoPage{Demos: []domain.Demo{}}
	for _, d := range m.demos {
		if d.OwnerID == req.OwnerID && (req.IncludeArchived || !d.Archived) {
			page.Demos = append(page.Demos, copyDemo(d))
		}
	}
	sort.Slice(page.Demos, func(i, j int) bool { return page.Demos[i].CreatedAt.After(page.Demos[j].CreatedAt) })
	return page, nil
}

func (m *memDemos) Mutate(ctx context.Context, id string, fn func(*domain.Demo) (bool, error)) (*domain.Demo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.demos[id]
	if !ok {
		return nil, domain.ErrDemoNotFound
	}
	c := copyDemo(d)
	m.locked.Store(true)
	changed, err := fn(&c)
	m.locked.Store(false)
	if err != nil {
		return nil, err
	}
	if changed {
		m.demos[id] = copyDemo(c)
	}
	return &c, nil
}

type memOutputs struct {
	mu      sync.Mutex
	outputs map[string]domain.Output
	seq     int
	onList  func()
}

func newMemOutputs() *memOutputs {
	return &memOutputs{outputs: map[string]domain.Output{}}
}

func (m *memOutputs) CreatePending(ctx context.Context, demoID, modelID string) (*domain.Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	o := domain.Output{
		ID:        fmt.Sprintf("out-%02d", m.seq),
		DemoID:    demoID,
		ModelID:   modelID,
		Status:    domain.StatusPending,
		CreatedAt: time.Unix(int64(m.seq), 0),
	}
	m.outputs[o.ID] = o
	return &o, nil
}

func (m *memOutputs) set(id string, fn func(*domain.Output)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outputs[id]
	if !ok || o.IsTerminal() {
		return false
	}
	fn(&o)
	m.outputs[id] = o
	return true
}

func (m *memOutputs) SetGenerating(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	o, ok := m.outputs[id]
	m.mu.Unlock()
	if !ok || o.Status != domain.StatusPending {
		return false, nil
	}
	return m.set(id, func(o *domain.Output) { o.Status = domain.StatusGenerating }), nil
}

func (m *memOutputs) SetComplete(ctx context.Context, id, html, css string) (bool, error) {
	return m.set(id, func(o *domain.Output) {
		o.Status = domain.StatusComplete
		o.HTML = html
		o.CSS = css
	}), nil
}

func (m *memOutputs) SetError(ctx context.Context, id, message string) (bool, error) {
	return m.set(id, func(o *domain.Output) {
		o.Status = domain.StatusError
		o.ErrorMessage = message
	}), nil
}

func (m *memOutputs) Get(ctx context.Context, id string) (*domain.Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outputs[id]
	if !ok {
		return nil, domain.ErrOutputNotFound
	}
	return &o, nil
}

func (m *memOutputs) ListByDemo(ctx context.Context, demoID string) ([]domain.Output, error) {
	if m.onList != nil {
		m.onList()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Output
	for _, o := range m.outputs {
		if o.DemoID == demoID {
			out = append(out, o)
		}
	}
	// deliberately unordered: shuffle by map iteration
	return out, nil
}

func (m *memOutputs) ListStale(ctx context.Context, staleAfter time.Duration, limit int) ([]domain.Output, error) {
	olderThan := time.Now().Add(-staleAfter)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Output
	for _, o := range m.outputs {
		if !o.IsTerminal() && o.UpdatedAt.Before(olderThan) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type submission struct {
	OutputID, DemoID, ModelID, Prompt string
}

type fakeJobs struct {
	mu   sync.Mutex
	subs []submission
	err  error
}

func (f *fakeJobs) Submit(ctx context.Context, outputID, demoID, modelID, prompt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subs = append(f.subs, submission{outputID, demoID, modelID, prompt})
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []repository.DemoEvent
}

func (f *fakeEvents) Publish(ctx context.Context, ev repository.DemoEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

var errSubmit = errors.New("redis unavailable")

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]registry.Model{
		{ID: "gpt-4o", Name: "GPT-4o", Provider: registry.ProviderOpenAI, DefaultEnabled: true},
		{ID: "claude-haiku-4-5-20251001", Name: "Haiku 4.5", Provider: registry.ProviderAnthropic, DefaultEnabled: true},
		{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: registry.ProviderGoogle},
		{ID: "grok-4", Name: "Grok 4", Provider: registry.ProviderXAI, DefaultEnabled: true},
	}, []registry.Alias{
		{ID: "claude-3-5-haiku-latest", Name: "Haiku 3.5", ReplacedBy: "claude-haiku-4-5-20251001"},
	})
	require.NoError(t, err)
	return reg
}

type fixture struct {
	svc     *DemoService
	demos   *memDemos
	outputs *memOutputs
	jobs    *fakeJobs
	events  *fakeEvents
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		demos:   newMemDemos(),
		outputs: newMemOutputs(),
		jobs:    &fakeJobs{},
		events:  &fakeEvents{},
	}
	f.svc = NewDemoService(f.demos, f.outputs, f.jobs, testRegistry(t), f.events)
	return f
}
