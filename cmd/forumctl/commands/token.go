package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/alexeiaccio/notion-forum/internal/app"
)

var (
	tokenName string
	tokenTTL  time.Duration
)

func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a session token for a user",
		Long: `Mint a bearer token for the API. The role is read from the role
database now and embedded in the token.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(service *app.Service) error {
				ttl := tokenTTL
				if ttl <= 0 {
					ttl = loadConfig().TokenTTL
				}
				token, session, err := service.IssueToken(cmd.Context(), args[0], tokenName, ttl)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"token":     token,
					"userId":    session.UserID,
					"role":      session.Role,
					"expiresIn": ttl.String(),
				})
			})
		},
	}
	cmd.Flags().StringVar(&tokenName, "name", "", "Display name carried in the token")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default FORUM_TOKEN_TTL)")
	return cmd
}
