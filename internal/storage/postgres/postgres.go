package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSchemaNotReady is returned by CheckSchema when ledger tables are missing.
var ErrSchemaNotReady = errors.New("postgres ledger schema not ready")

// ledgerTables are the relations StateStore and EventStore use.
var ledgerTables = []string{"token_state", "multisig_owners", "blacklist_entries", "holdings", "ledger_events"}

// Pool is the ledger's connection pool.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to the ledger database. Sessions are tagged with the
// diamond-token application name.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = "diamond-token"
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// CheckSchema verifies that every ledger table exists. Run it after
// migrations, before the stores serve traffic.
func (p *Pool) CheckSchema(ctx context.Context) error {
	var missing []string
	for _, table := range ledgerTables {
		var found *string
		if err := p.QueryRow(ctx, "SELECT to_regclass($1)::text", table).Scan(&found); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if found == nil {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrSchemaNotReady, strings.Join(missing, ", "))
	}
	return nil
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation = "23505"
)

// isDuplicateKeyError reports a unique constraint violation, e.g. a record
// id appended twice.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
