package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"arithmetic-practice-service/internal/config"
	pgmigrations "arithmetic-practice-service/internal/infra/postgres/migrations"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewMigrateCmd applies, or with --rollback reverts, the practice_history migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the history archive schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if rollback {
				return rollbackMigrationsWithConfig(cmd.Context(), cfg)
			}
			return runMigrationsWithConfig(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last applied migration group")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	db, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	group, err := pgmigrations.Up(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Printf("history archive schema is up to date")
		return nil
	}
	log.Printf("history archive migrated to %s", group)
	return nil
}

func rollbackMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	db, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	group, err := pgmigrations.Down(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Printf("no migrations to roll back")
		return nil
	}
	log.Printf("history archive rolled back %s", group)
	return nil
}

func openArchive(cfg config.Config) (*bun.DB, error) {
	if cfg.Postgres.URL == "" {
		return nil, fmt.Errorf("postgres url not configured")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}
