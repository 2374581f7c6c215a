package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/couchcryptid/quake-data-etl/migrations"
)

const migrationLockID int64 = 0x5155414b455f4d47 // "QUAKE_MG"

// Migrate applies embedded migrations that have not run yet. All of them run
// in one transaction under an advisory lock, so concurrent starts are safe.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	files, err := migrations.Ordered()
	if err != nil {
		return eris.Wrap(err, "postgres: load migrations")
	}
	if len(files) == 0 {
		return errors.New("postgres: no embedded migrations found")
	}

	started := time.Now()
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin migration")
	}

	applied, err := applyPending(ctx, tx, files, logger)
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit migration")
	}

	logger.Info("schema migration complete",
		"applied", applied,
		"skipped", len(files)-applied,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

func applyPending(ctx context.Context, tx pgx.Tx, files []migrations.File, logger *slog.Logger) (int, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
		return 0, eris.Wrap(err, "postgres: acquire migration lock")
	}
	if _, err := tx.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return 0, eris.Wrap(err, "postgres: create schema_migrations")
	}

	applied := 0
	for _, f := range files {
		var done bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, f.Name,
		).Scan(&done); err != nil {
			return 0, eris.Wrapf(err, "postgres: check migration %s", f.Name)
		}
		if done {
			continue
		}

		logger.Info("applying migration", "file", f.Name)
		// No arguments, so pgx sends the multi-statement file over the simple protocol.
		if _, err := tx.Exec(ctx, f.SQL); err != nil {
			return 0, eris.Wrapf(err, "postgres: apply migration %s", f.Name)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, f.Name); err != nil {
			return 0, eris.Wrapf(err, "postgres: record migration %s", f.Name)
		}
		applied++
	}
	return applied, nil
}
