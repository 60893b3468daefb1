//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestHistoryWithMySQL drives the history commands against a MySQL backend.
func TestHistoryWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "impactcov",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/impactcov", host, port.Port())
	exerciseHistoryBackend(t, "mysql", connStr)
}

// TestHistoryWithPostgres drives the history commands against a PostgreSQL backend.
func TestHistoryWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	exerciseHistoryBackend(t, "postgresql", connStr)
}

// exerciseHistoryBackend migrates, records one cover run, reads it back,
// exports it and clears it.
func exerciseHistoryBackend(t *testing.T, backend, connStr string) {
	t.Helper()
	root := newGoProject(t)
	env := []string{
		"IMPACTCOV_HISTORY_BACKEND=" + backend,
		"IMPACTCOV_HISTORY_DB_CONNECT=" + connStr,
	}

	res := runImpactcov(t, root, env, "history", "clear")
	require.Equal(t, 0, res.Code)

	res = runImpactcov(t, root, env, "history", "migrate")
	require.Equal(t, 0, res.Code)

	res = runImpactcov(t, root, nil, "init", "--framework", "go")
	require.Equal(t, 0, res.Code)

	res = runImpactcov(t, root, env, "cover")
	require.Equal(t, 0, res.Code)

	res = runImpactcov(t, root, env, "history", "status")
	require.Equal(t, 0, res.Code)
	assert.Contains(t, res.Output, "History Backend: "+backend)
	assert.Contains(t, res.Output, "Connected: true")
	assert.Contains(t, res.Output, "Total Runs: 1")
	assert.Contains(t, res.Output, "Last Run ID: 1 (cover)")

	exportBase := t.TempDir() + "/history"
	res = runImpactcov(t, root, env, "history", "export", "--output-file", exportBase)
	require.Equal(t, 0, res.Code)
	assert.Contains(t, res.Output, "Exported 1 runs to:")
	assert.FileExists(t, exportBase+".coverage.parquet")

	res = runImpactcov(t, root, env, "history", "clear")
	require.Equal(t, 0, res.Code)
}
