package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexeiaccio/notion-forum/internal/app"
	"github.com/alexeiaccio/notion-forum/internal/cache"
)

func NewRevalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revalidate <path>...",
		Short: "Drop cache entries",
		Long: `Drop entries from the configured cache backend so the next request
recomputes them. Paths look like page/{id}, page/{id}/comments/{c1}/{c2}
or user/{id}. No Notion key is needed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if !strings.HasPrefix(path, "page/") && !strings.HasPrefix(path, "user/") {
					return fmt.Errorf("%q is not a cache path", path)
				}
			}

			cfg := loadConfig()
			logger := newLogger(cfg)
			backend, err := app.OpenCacheBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("opening %s cache: %w", cfg.CacheBackend, err)
			}
			if backend == nil {
				return fmt.Errorf("cache backend is %q, nothing to revalidate", cfg.CacheBackend)
			}
			defer backend.Close()

			cache.New(backend, logger).Revalidate(cmd.Context(), args...)
			for _, path := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "revalidated %s\n", path)
			}
			return nil
		},
	}
}
