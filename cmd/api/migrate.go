package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/internal/persistence"
)

var errNoDatabase = errors.New("DATABASE_URL is required for this command")

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				for i := 0; i < steps; i++ {
					if err := persistence.RollbackMigration(ctx, rt.pg.Pool, rt.logger); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), func(ctx context.Context, rt *runtime) error {
					return persistence.RunMigrations(ctx, rt.pg.Pool, rt.logger)
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(cmd.Context(), func(ctx context.Context, rt *runtime) error {
					return persistence.MigrationStatus(ctx, rt.pg.Pool)
				})
			},
		},
	)
	return cmd
}

// withDatabase runs fn against Postgres without applying migrations first.
func withDatabase(ctx context.Context, fn func(ctx context.Context, rt *runtime) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer rt.close()
	if !rt.pg.Enabled() {
		return errNoDatabase
	}
	return fn(ctx, rt)
}
