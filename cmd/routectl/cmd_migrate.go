package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"fixmystreet/internal/config"
	"fixmystreet/internal/db"
)

// migrateFunc is db.Migrate; tests replace it.
type migrateFunc func(ctx context.Context, dsn string, logger *slog.Logger) ([]*goose.MigrationResult, error)

var runMigrations migrateFunc = db.Migrate

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var provider config.SecretProvider
			if os.Getenv("APP_ENV") != "local" {
				provider = config.NewSSMProvider(os.Getenv("AWS_REGION"))
			}
			cfg, err := config.LoadConfig(provider, config.ComponentMigrate)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			results, err := runMigrations(cmd.Context(), cfg.Database.URL.Unmask(), logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "Database is up to date.")
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(out, "applied %d %s (%s)\n", r.Source.Version, r.Source.Path, r.Duration)
			}
			return nil
		},
	}
}
