package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"wallet-sync/internal/storage/migrations"
)

const clickhouseImage = "clickhouse/clickhouse-server:24.8-alpine"

// startClickHouse runs a throwaway ClickHouse and returns a connection to a
// freshly migrated "walletsync" database. Cleanup is registered on t.
func startClickHouse(t *testing.T) *Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test: needs docker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        clickhouseImage,
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_USER":                      "default",
				"CLICKHOUSE_PASSWORD":                  "",
				"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1",
			},
			WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate clickhouse: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "clickhouse")
	require.NoError(t, err)

	ms, err := migrations.ClickHouse()
	require.NoError(t, err)

	// Migrate creates the database itself.
	conn, err := Migrate(ctx, fmt.Sprintf("%s/walletsync?dial_timeout=10s", endpoint), ms)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}
