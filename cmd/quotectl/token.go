package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/khoslavarun/QuoteBuilder/internal/config"
	"github.com/khoslavarun/QuoteBuilder/internal/middleware"
	"github.com/khoslavarun/QuoteBuilder/internal/model"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token signed with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !model.ValidRole(role) {
				return fmt.Errorf("role must be %s or %s, got %q", model.RoleAdmin, model.RoleAnalyst, role)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			tok, err := middleware.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL).Issue(subject, role, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), tok.Value)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", tok.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "sub", "operator", "token subject")
	cmd.Flags().StringVar(&role, "role", model.RoleAdmin, "admin or analyst")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	return cmd
}
