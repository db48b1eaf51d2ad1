package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Up applies pending migrations under the migration lock. A zero group means
// nothing was pending.
func Up(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	var group *migrate.MigrationGroup
	err := withLock(ctx, db, func(m *migrate.Migrator) error {
		var err error
		group, err = m.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		return nil
	})
	return group, err
}

// Down rolls back the most recently applied group.
func Down(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	var group *migrate.MigrationGroup
	err := withLock(ctx, db, func(m *migrate.Migrator) error {
		var err error
		group, err = m.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
		return nil
	})
	return group, err
}

func withLock(ctx context.Context, db *bun.DB, fn func(*migrate.Migrator) error) error {
	m := migrate.NewMigrator(db, Migrations)
	if err := m.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Lock(ctx); err != nil {
		return fmt.Errorf("lock migrations: %w", err)
	}
	defer m.Unlock(ctx) //nolint:errcheck
	return fn(m)
}
