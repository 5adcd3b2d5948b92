package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/demo-arena/arena-backend/internal/bootstrap"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API together with the generation scheduler",
	RunE:  runServe,
}

var serveNoWorker bool

func init() {
	serveCmd.Flags().BoolVar(&serveNoWorker, "no-worker", false, "serve HTTP only; run the scheduler in a separate worker process")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if serveNoWorker {
		if err := requireSharedJobStore(app, "serve --no-worker"); err != nil {
			return err
		}
	}

	router, err := bootstrap.BuildRouter(ctx, app)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[info] component=server listening on %s env=%s", srv.Addr, cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Println("[info] component=server shutting down")
		return srv.Shutdown(sctx)
	})

	if !serveNoWorker {
		startWorker(gctx, g, app)
	}

	return g.Wait()
}

// startWorker runs the scheduler loop and the recovery cron until ctx ends
func startWorker(ctx context.Context, g *errgroup.Group, app *bootstrap.App) {
	g.Go(func() error {
		return app.Scheduler.Run(ctx)
	})

	g.Go(func() error {
		if err := app.Recovery.Start(app.Config.Retry.RecoverySchedule); err != nil {
			return err
		}
		<-ctx.Done()
		app.Recovery.Stop()
		return nil
	})
}

// requireSharedJobStore fails when jobs would live in process memory, where a split
// API/worker deployment can never run them
func requireSharedJobStore(app *bootstrap.App, mode string) error {
	if app.Redis == nil {
		return fmt.Errorf("%s needs REDIS_ADDR: an in-memory job store is not shared between processes", mode)
	}
	return nil
}
