package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexeiaccio/notion-forum/internal/app"
)

// withService builds the forum service from the environment for one command.
func withService(cmd *cobra.Command, run func(*app.Service) error) error {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	service, cleanup, err := app.Build(cmd.Context(), cfg, newLogger(cfg))
	if err != nil {
		return fmt.Errorf("building service: %w", err)
	}
	defer cleanup()
	return run(service)
}

func NewPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page <page-id>",
		Short: "Print a page with its content and comment headers",
		Long: `Print a page as the API serves it. The result goes through the
configured cache, so a fetch also warms page/{id}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(service *app.Service) error {
				page, err := service.GetPage(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), page)
			})
		},
	}
}

func NewCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <page-id> <comment-id>...",
		Short: "Print the comment a breadcrumb points at",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(service *app.Service) error {
				comment, err := service.GetComment(cmd.Context(), args)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), comment)
			})
		},
	}
}
