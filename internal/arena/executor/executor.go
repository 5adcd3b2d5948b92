// Package executor runs one generation: resolve the model's provider, call it once and
// split the reply into HTML and CSS.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/demo-arena/arena-backend/internal/arena/registry"
	"golang.org/x/time/rate"
)

// ErrProviderNotConfigured is returned when the model's provider has no client (missing API key)
var ErrProviderNotConfigured = errors.New("provider not configured")

// TransientError wraps a failed provider call. Its message is the provider's message.
type TransientError struct {
	ModelID string
	Err     error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Backends holds one client per provider. Nil entries are unconfigured providers.
type Backends struct {
	OpenAI    Backend
	Anthropic Backend
	Google    Backend
	XAI       Backend
}

// Options tunes an Executor
type Options struct {
	// Timeout bounds a single provider call; zero means DefaultTimeout
	Timeout time.Duration
	// RateLimit is the per-provider request rate per second; zero disables throttling
	RateLimit float64
	// Burst is the limiter burst size when RateLimit is set
	Burst int
}

// Executor issues generation calls
type Executor struct {
	registry *registry.Registry
	backends Backends
	limiters map[registry.Provider]*rate.Limiter
	timeout  time.Duration
	metrics  *Metrics
}

// New creates an Executor
func New(reg *registry.Registry, backends Backends, opts Options) *Executor {
	e := &Executor{
		registry: reg,
		backends: backends,
		limiters: make(map[registry.Provider]*rate.Limiter),
		timeout:  opts.Timeout,
		metrics:  &Metrics{},
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		for _, p := range []registry.Provider{registry.ProviderOpenAI, registry.ProviderAnthropic, registry.ProviderGoogle, registry.ProviderXAI} {
			e.limiters[p] = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
		}
	}
	return e
}

// Metrics returns the executor's call counters
func (e *Executor) Metrics() *Metrics {
	return e.metrics
}

func (e *Executor) backendFor(p registry.Provider) Backend {
	switch p {
	case registry.ProviderOpenAI:
		return e.backends.OpenAI
	case registry.ProviderAnthropic:
		return e.backends.Anthropic
	case registry.ProviderGoogle:
		return e.backends.Google
	case registry.ProviderXAI:
		return e.backends.XAI
	default:
		return nil
	}
}

// Execute generates output for prompt with modelID. Retired ids are dispatched to their
// replacement. Unknown models fail with domain.ErrUnknownModel before any call is made.
func (e *Executor) Execute(ctx context.Context, prompt, modelID string) (Result, error) {
	res, err := e.registry.Resolve(modelID)
	if err != nil {
		return Result{}, err
	}

	backend := e.backendFor(res.Provider)
	if backend == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrProviderNotConfigured, res.Provider)
	}

	// the timeout covers the limiter wait as well as the call
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if l, ok := e.limiters[res.Provider]; ok {
		if err := l.Wait(callCtx); err != nil {
			return Result{}, &TransientError{ModelID: modelID, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	start := time.Now()
	text, err := backend.Complete(callCtx, SystemPrompt, prompt, res.CanonicalID)
	duration := time.Since(start)
	e.metrics.record(duration, err)

	if err != nil {
		log.Printf("[warn] component=executor model=%s provider=%s latency=%s error=%v", modelID, res.Provider, duration, err)
		return Result{}, &TransientError{ModelID: modelID, Err: err}
	}

	log.Printf("[info] component=executor model=%s provider=%s latency=%s bytes=%d", modelID, res.Provider, duration, len(text))
	return ParseOutput(text), nil
}
