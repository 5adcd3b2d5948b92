package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/demo-arena/arena-backend/config"
	"github.com/demo-arena/arena-backend/internal/arena/executor"
	"github.com/demo-arena/arena-backend/internal/arena/registry"
	"github.com/demo-arena/arena-backend/internal/arena/repository"
	"github.com/demo-arena/arena-backend/internal/arena/retrier"
	"github.com/demo-arena/arena-backend/internal/arena/service"
	"github.com/demo-arena/arena-backend/internal/db"
)

// App holds every long-lived component of the arena process
type App struct {
	Config    *config.Config
	DB        *db.DB
	Redis     *redis.Client
	Registry  *registry.Registry
	Executor  *executor.Executor
	Scheduler *retrier.Scheduler
	Events    *repository.EventBus
	Service   *service.DemoService
	Recovery  *service.RecoveryJob
}

// NewApp opens the database and Redis and wires the arena components together
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	rdb, err := OpenRedis(ctx, cfg.Redis)
	if err != nil {
		database.Close()
		return nil, err
	}

	backends, err := NewBackends(ctx, cfg.Providers)
	if err != nil {
		database.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       database,
		Redis:    rdb,
		Registry: registry.Default(),
	}
	app.Executor = executor.New(app.Registry, backends, executor.Options{
		Timeout:   cfg.Providers.Timeout,
		RateLimit: cfg.Providers.RateLimit,
	})

	demos := repository.NewDemoRepository(database.Pool)
	outputs := repository.NewOutputRepository(database.Pool)

	var jobs retrier.JobStore
	var publisher service.Publisher
	if rdb != nil {
		jobs = retrier.NewRedisJobStore(rdb)
		app.Events = repository.NewEventBus(rdb)
		publisher = app.Events
	} else {
		log.Println("[warn] component=bootstrap REDIS_ADDR not set, jobs are kept in memory and lost on restart")
		jobs = retrier.NewMemoryJobStore()
	}

	app.Scheduler = retrier.New(jobs, app.Executor, service.NewOutputHooks(outputs, publisher), retrier.Options{
		Policy: retrier.Policy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff,
			Base:           cfg.Retry.Base,
		},
		PollInterval: cfg.Retry.PollInterval,
		LeaseTimeout: cfg.Retry.LeaseTimeout,
	})
	app.Service = service.NewDemoService(demos, outputs, app.Scheduler, app.Registry, publisher)
	app.Recovery = service.NewRecoveryJob(demos, outputs, app.Scheduler, app.Scheduler, cfg.Retry.StaleAfter)

	return app, nil
}

// NewBackends builds one client per provider that has credentials
func NewBackends(ctx context.Context, cfg config.ProvidersConfig) (executor.Backends, error) {
	var b executor.Backends
	if cfg.OpenAI.APIKey != "" {
		b.OpenAI = executor.NewOpenAIClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.Timeout)
	}
	if cfg.Anthropic.APIKey != "" {
		b.Anthropic = executor.NewAnthropicClient(cfg.Anthropic.BaseURL, cfg.Anthropic.APIKey, cfg.Timeout)
	}
	switch {
	case cfg.GoogleUseADC:
		g, err := executor.NewGoogleClientWithDefaultCredentials(ctx, cfg.Google.BaseURL, cfg.Timeout)
		if err != nil {
			return b, fmt.Errorf("google default credentials: %w", err)
		}
		b.Google = g
	case cfg.Google.APIKey != "":
		b.Google = executor.NewGoogleClient(cfg.Google.BaseURL, cfg.Google.APIKey, cfg.Timeout)
	}
	if cfg.XAI.APIKey != "" {
		b.XAI = executor.NewXAIClient(cfg.XAI.BaseURL, cfg.XAI.APIKey, cfg.Timeout)
	}
	return b, nil
}

// Close releases the database pool and the Redis client
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.DB.Close()
}
