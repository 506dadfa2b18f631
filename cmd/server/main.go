// Package main implements the entry point for the scry-review server, which
// tracks learners' review progress and serves their due queues over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree: serve and migrate.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scry-review",
		Short:         "Spaced-repetition review scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP session API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAppConfig()
			if err != nil {
				return err
			}
			logger, err := setupAppLogger(cfg)
			if err != nil {
				return err
			}

			app, err := newApplication(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			if autoMigrate && app.db != nil {
				if err := runMigrations(cmd.Context(), app.db, logger, "up"); err != nil {
					app.cleanup()
					return err
				}
			}

			return app.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "migrate", false,
		"apply pending migrations before serving (postgres driver only)")
	return cmd
}
