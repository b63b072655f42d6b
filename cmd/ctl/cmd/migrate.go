package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/db"
	"github.com/templui/codekeeper/internal/logger"
)

func MigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, database *sqlx.DB, driver string) error {
				return db.RunMigrations(ctx, database.DB, driver)
			})
		},
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, database *sqlx.DB, driver string) error {
				return db.MigrateDown(ctx, database.DB, driver)
			})
		},
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, database *sqlx.DB, driver string) error {
				states, err := db.MigrationStatus(ctx, database.DB, driver)
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), states)
				return nil
			})
		},
	})

	return migrate
}

func printStatus(w io.Writer, states []db.MigrationState) {
	for _, s := range states {
		mark := "pending"
		if s.Applied {
			mark = "applied"
		}
		fmt.Fprintf(w, "%-8s %5d  %s\n", mark, s.Version, s.Path)
	}
}

func withDB(ctx context.Context, fn func(ctx context.Context, database *sqlx.DB, driver string) error) error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), "")

	database, err := db.Init(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	return fn(ctx, database, cfg.DBDriver)
}
