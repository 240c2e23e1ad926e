package migrations

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func tableExists(t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()
	var found *string
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT to_regclass($1)::text", name).Scan(&found))
	return found != nil
}

func TestRunPostgresMigrations_AppliesOnce(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)

	applied, err := RunPostgresMigrations(ctx, pool, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_ledger_state.sql", "002_ledger_events.sql"}, applied)
	assert.True(t, tableExists(t, pool, "token_state"))
	assert.True(t, tableExists(t, pool, "ledger_events"))

	applied, err = RunPostgresMigrations(ctx, pool, logger)
	require.NoError(t, err)
	assert.Empty(t, applied)

	var n int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestRunPostgresMigrations_FailedFileRollsBack(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)

	migs := []Migration{
		{Name: "001_ok.sql", SQL: "CREATE TABLE kept (x INT)"},
		{Name: "002_broken.sql", SQL: "CREATE TABLE half_done (x INT); SELECT 1/0;"},
	}
	applied, err := applyPostgres(ctx, pool, migs, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_broken.sql")
	assert.Equal(t, []string{"001_ok.sql"}, applied)

	assert.True(t, tableExists(t, pool, "kept"))
	assert.False(t, tableExists(t, pool, "half_done"))

	var recorded bool
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = '002_broken.sql')").Scan(&recorded))
	assert.False(t, recorded)
}
