package cmd

import (
	"fmt"
	"time"

	"github.com/docgate/docgate/internal/collection"
	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/tokens"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		username string
		email    string
		ttl      time.Duration
	)
	c := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if ttl <= 0 {
				ttl = cfg.JWT.AccessTokenTTL
			}
			tok, err := tokens.GenerateAccessToken(cfg, &collection.Principal{Username: username, Email: email}, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	c.Flags().StringVarP(&username, "username", "u", "", "username recorded as created_by/updated_by/deleted_by")
	c.Flags().StringVarP(&email, "email", "e", "", "optional email claim")
	c.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_TTL_MINUTES)")
	_ = c.MarkFlagRequired("username")
	return c
}
