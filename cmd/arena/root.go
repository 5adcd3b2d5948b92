package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/demo-arena/arena-backend/config"
	"github.com/demo-arena/arena-backend/internal/bootstrap"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

var envFile string

var rootCmd = &cobra.Command{
	Use:           "arena",
	Short:         "Demo arena backend",
	Long:          "Arena fans a prompt out to many generation models and keeps every version of their outputs.",
	Version:       Version,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile == "" {
			return nil
		}
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("[warn] component=cli env file %s not loaded: %v", envFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "extra dotenv file loaded before .env")
}

// loadApp reads configuration and wires every component
func loadApp(ctx context.Context) (*config.Config, *bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	app, err := bootstrap.NewApp(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, app, nil
}
