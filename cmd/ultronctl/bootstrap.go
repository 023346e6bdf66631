package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ultron-ftp/backend/internal/auth"
	"github.com/ultron-ftp/backend/internal/profiles"
)

func newBootstrapAdminCmd(opts *rootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the administrator account and profile if missing",
		Long: `Create the administrator account and profile if missing.

Defaults to ADMIN_EMAIL / ADMIN_PASSWORD. An existing account keeps its password;
only its profile is reset to the administrator profile.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, pool, logger, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if email == "" {
				email, password = cfg.Admin.Email, cfg.Admin.Password
			}
			if email == "" {
				return errors.New("no admin email: pass --email or set ADMIN_EMAIL")
			}
			b := auth.NewBootstrapper(auth.NewRepository(pool), profiles.NewRepository(pool), logger)
			u, err := b.EnsureAdmin(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin ready: %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email (default ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "admin password, used only when the account is created")
	return cmd
}
