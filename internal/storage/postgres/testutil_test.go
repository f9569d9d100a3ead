package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"wallet-sync/internal/storage/migrations"
)

const postgresImage = "postgres:16-alpine"

// startPostgres runs a throwaway PostgreSQL, migrates it and returns a pool.
// The container and pool are released via t.Cleanup.
func startPostgres(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test: needs docker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("walletsync"),
		tcpostgres.WithUsername("walletsync"),
		tcpostgres.WithPassword("walletsync"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn, WithMaxConns(4))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ms, err := migrations.Postgres()
	require.NoError(t, err)
	_, err = Migrate(ctx, pool, ms)
	require.NoError(t, err)

	return pool
}

// truncateTables resets every table so subtests can share one container.
func truncateTables(t *testing.T, pool *Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`TRUNCATE wallets, balance_snapshots, wallet_events, rule_evaluations RESTART IDENTITY`)
	require.NoError(t, err)
}
