package store

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"log/slog"
)

//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations executes the embedded .sql files in lexical order. Every
// statement must be idempotent (CREATE IF NOT EXISTS); there is no
// version table, the full set reruns on every boot.
func RunMigrations(ctx context.Context, p *Postgres, log *slog.Logger) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	applied := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := migrations.ReadFile("migrations/" + e.Name())
		if err != nil {
			return err
		}
		if _, err := p.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("migration %s: %w", e.Name(), err)
		}
		log.Debug("migration.applied", "file", e.Name())
		applied++
	}

	log.Info("migrations.complete", "applied", applied)
	return nil
}
