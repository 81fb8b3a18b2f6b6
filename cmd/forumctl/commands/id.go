package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexeiaccio/notion-forum/internal/util"
)

func NewIDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id",
		Short: "Convert identifiers between compact and canonical form",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "compact <id>...",
		Short: "Strip hyphens from identifiers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				fmt.Fprintln(cmd.OutOrStdout(), util.Compact(id))
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "canonical <id>...",
		Short: "Hyphenate identifiers as 8-4-4-4-12",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if !util.IsCompact(util.Compact(id)) {
					return fmt.Errorf("%q is not a 32 character hex id", id)
				}
				fmt.Fprintln(cmd.OutOrStdout(), util.Canonical(id))
			}
			return nil
		},
	})
	return cmd
}
