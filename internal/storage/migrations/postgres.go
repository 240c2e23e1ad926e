package migrations

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresLockKey serializes migration runs of servers sharing a database.
const postgresLockKey int64 = 0x6469616d6f6e64

const createPostgresHistory = `CREATE TABLE IF NOT EXISTS schema_migrations (
    name       TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// RunPostgresMigrations brings the ledger state schema up to date and
// returns the files applied by this run.
//
// Each file runs in its own transaction together with its schema_migrations
// row: a file is applied once, and a file that fails leaves nothing behind.
func RunPostgresMigrations(ctx context.Context, db *pgxpool.Pool, logger *log.Logger) ([]string, error) {
	migs, err := Postgres()
	if err != nil {
		return nil, err
	}
	return applyPostgres(ctx, db, migs, logger)
}

func applyPostgres(ctx context.Context, db *pgxpool.Pool, migs []Migration, logger *log.Logger) ([]string, error) {
	if logger == nil {
		logger = log.Default()
	}
	if _, err := db.Exec(ctx, createPostgresHistory); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []string
	for _, m := range migs {
		done, err := applyPostgresFile(ctx, db, m)
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		if done {
			logger.Printf("Applied postgres migration %s", m.Name)
			applied = append(applied, m.Name)
		}
	}
	logger.Printf("Postgres ledger schema current (%d files, %d new)", len(migs), len(applied))
	return applied, nil
}

// applyPostgresFile reports whether m was applied now; false means an
// earlier run already recorded it.
func applyPostgresFile(ctx context.Context, db *pgxpool.Pool, m Migration) (bool, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", postgresLockKey); err != nil {
		return false, fmt.Errorf("lock: %w", err)
	}

	var recorded bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)", m.Name,
	).Scan(&recorded); err != nil {
		return false, fmt.Errorf("check history: %w", err)
	}
	if recorded {
		return false, nil
	}

	// No arguments: pgx sends the file over the simple protocol, which
	// accepts several statements.
	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1)", m.Name); err != nil {
		return false, fmt.Errorf("record history: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
