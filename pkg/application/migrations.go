package application

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationTableDDL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

func NewMigrationManager(pool *pgxpool.Pool) MigrationManager {
	return &migrationManager{pool: pool}
}

type migrationManager struct {
	pool    *pgxpool.Pool
	schemas []*embed.FS
}

func (m *migrationManager) Register(fsys ...*embed.FS) {
	m.schemas = append(m.schemas, fsys...)
}

// Run applies every registered .sql file that has not been applied yet, in
// lexicographic order, each inside its own transaction.
func (m *migrationManager) Run(ctx context.Context) error {
	if _, err := m.pool.Exec(ctx, migrationTableDDL); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	type migration struct {
		name string
		sql  []byte
	}
	var pending []migration

	for _, fsys := range m.schemas {
		err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".sql") {
				return nil
			}
			content, err := fsys.ReadFile(path)
			if err != nil {
				return err
			}
			pending = append(pending, migration{name: d.Name(), sql: content})
			return nil
		})
		if err != nil {
			return fmt.Errorf("reading migrations: %w", err)
		}
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].name < pending[j].name })

	for _, mig := range pending {
		var applied bool
		err := m.pool.QueryRow(
			ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)",
			mig.name,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("checking migration %s: %w", mig.name, err)
		}
		if applied {
			continue
		}

		tx, err := m.pool.Begin(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, string(mig.sql)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("applying migration %s: %w", mig.name, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1)", mig.name); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("recording migration %s: %w", mig.name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}
