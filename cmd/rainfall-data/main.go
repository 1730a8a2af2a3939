package main

import (
	"fmt"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/i474232898/rainfall-data/internal/config"
	"github.com/i474232898/rainfall-data/internal/logging"
)

const appName = "rainfall-data"

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Rainfall and wind data from Open-Meteo",
		Long:          "Fetches hourly precipitation, rain and wind data, aggregates it into daily totals and exports CSV and chart data.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd(), newFetchCmd(), newCacheCmd())
	return rootCmd
}

// loadConfig reads configuration and installs the process-wide logger.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(logging.New(os.Stderr, cfg, version, appName))
	return cfg, nil
}
