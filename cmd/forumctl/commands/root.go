// Package commands implements forumctl, the operator CLI for the forum API:
// identifier conversion, one-off page and comment fetches, cache
// revalidation and session token minting.
package commands

import (
	"encoding/json"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alexeiaccio/notion-forum/internal/config"
	"github.com/alexeiaccio/notion-forum/internal/logging"
)

var logLevel string

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forumctl",
		Short: "Operate the Notion forum API",
		Long: `forumctl talks to the same Notion workspace and cache backend as the
forum API, using the same environment variables (a .env file in the
working directory is loaded first).

Examples:
  forumctl id canonical 0f1e2d3c4b5a69788796a5b4c3d2e1f0
  forumctl page 0f1e2d3c4b5a69788796a5b4c3d2e1f0
  forumctl revalidate page/0f1e2d3c4b5a69788796a5b4c3d2e1f0
  forumctl token <user-id> --name Ada --ttl 24h`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(NewIDCmd())
	cmd.AddCommand(NewPageCmd())
	cmd.AddCommand(NewCommentCmd())
	cmd.AddCommand(NewRevalidateCmd())
	cmd.AddCommand(NewTokenCmd())
	return cmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads .env and the environment.
func loadConfig() config.Config {
	_ = godotenv.Load()
	return config.Load()
}

func newLogger(cfg config.Config) zerolog.Logger {
	return logging.New(os.Stderr, logLevel, cfg.LogFormat)
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
