package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/phrazzld/scry-review/internal/platform/postgres"
	"github.com/spf13/cobra"
)

// migrateCommands are the goose commands that make sense against the
// embedded migration set.
var migrateCommands = []string{"up", "up-by-one", "up-to", "down", "down-to", "redo", "reset", "status", "version"}

var errNoDatabaseURL = errors.New("database.url (SCRY_DATABASE_URL) is required for migrations")

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <command> [version]",
		Short:     "Run database migrations against the Postgres review store",
		Long:      "Run goose migrations. Commands: up, up-by-one, up-to, down, down-to, redo, reset, status, version.",
		ValidArgs: migrateCommands,
		Args:      cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(migrateCommands, args[0]) {
				return fmt.Errorf("unknown migrate command %q", args[0])
			}

			cfg, err := loadAppConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errNoDatabaseURL
			}
			logger, err := setupAppLogger(cfg)
			if err != nil {
				return err
			}

			db, err := setupAppDatabase(cmd.Context(), cfg.Database.URL, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					logger.Error("Error closing database connection", "error", err)
				}
			}()

			return runMigrations(cmd.Context(), db, logger, args[0], args[1:]...)
		},
	}
}

// runMigrations executes a goose command against db.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger, command string, args ...string) error {
	logger.Info("Executing migrations", "command", command)

	if err := postgres.Migrate(ctx, db, command, logger, args...); err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	logger.Info("Migrations completed", "command", command)
	return nil
}
