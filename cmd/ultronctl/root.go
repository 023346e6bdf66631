package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ultron-ftp/backend/config"
	"github.com/ultron-ftp/backend/pkg/database"
)

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ultronctl",
		Short:         "Operator tooling for the ULTRON FTP backend",
		Long:          `Operator tooling for the ULTRON FTP backend. Reads the same environment (and .env) as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newBootstrapAdminCmd(opts),
		newExportCmd(opts),
		newCertificateCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// connect loads configuration and opens the database pool.
func (o *rootOptions) connect(ctx context.Context) (*config.Config, *pgxpool.Pool, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := o.logger()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, pool, logger, nil
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, pool, logger, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := database.Migrate(ctx, pool, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
