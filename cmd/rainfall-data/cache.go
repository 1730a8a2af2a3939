package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i474232898/rainfall-data/internal/app"
)

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the API response cache",
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Drop expired cached responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cache, err := app.OpenCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cache.Close()

			n, err := cache.Purge(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge %s cache: %w", cfg.CacheBackend, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired responses from the %s cache\n", n, cfg.CacheBackend)
			return nil
		},
	}

	cacheCmd.AddCommand(purgeCmd)
	return cacheCmd
}
