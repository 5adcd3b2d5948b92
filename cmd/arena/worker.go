package main

import (
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the generation scheduler and the recovery sweep without HTTP",
	Long:  "Worker claims due generation jobs from Redis. It requires REDIS_ADDR so that jobs submitted by the API process are visible.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		_, app, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := requireSharedJobStore(app, "worker"); err != nil {
			return err
		}

		log.Println("[info] component=worker started")
		g, gctx := errgroup.WithContext(ctx)
		startWorker(gctx, g, app)
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
