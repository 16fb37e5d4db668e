package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"speaker-events-finder/internal/api"
	"speaker-events-finder/internal/config"
	"speaker-events-finder/internal/services"
)

var configPath string

// newFinder builds the search pipeline. Tests replace it with a stub.
var newFinder = func(ctx context.Context, cfg *config.Config, metrics *services.Metrics) (api.Finder, error) {
	pipeline, err := services.NewPipelineFromConfig(ctx, cfg, metrics)
	if err != nil {
		return nil, err
	}
	return pipeline, nil
}

var rootCmd = &cobra.Command{
	Use:          "speaker-search <command>",
	Short:        "Find where a speaker is speaking next",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default $SPEAKER_SEARCH_CONFIG)")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
