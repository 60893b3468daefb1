package iocache

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/impactcov/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_NoneBackend(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)
	require.NotNil(t, store)

	runID, err := store.BeginRun(schema.CoverRun, time.Now(), map[string]any{"framework": "jest"})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), runID)

	assert.NoError(t, store.EndRun(1, time.Now(), 0, 10, 0))
	assert.NoError(t, store.RecordCoverage(1, []schema.CoverageRecord{{TestID: "t", File: "a.ts", Lines: []int{1}}}))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, "none", status.Backend)

	runs, err := store.GetAllRuns()
	assert.NoError(t, err)
	assert.Nil(t, runs)

	assert.NoError(t, store.Close())
}

func TestHistoryStore_SQLite(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	start := time.Now().Add(-time.Second)
	runID, err := store.BeginRun(schema.CoverRun, start, map[string]any{"framework": "jest", "no_filter": false})
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))

	records := []schema.CoverageRecord{
		{TestID: "math adds", File: "/repo/src/a.ts", Lines: []int{1, 2, 3}},
		{TestID: "math subtracts", File: "/repo/src/a.ts", Lines: []int{5}},
	}
	require.NoError(t, store.RecordCoverage(runID, records))
	require.NoError(t, store.EndRun(runID, time.Now(), 1, len(records), 0))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, "cover", run.Kind)
	require.NotNil(t, run.EndTime)
	require.NotNil(t, run.RunDurationMs)
	assert.GreaterOrEqual(t, *run.RunDurationMs, int32(1000))
	require.NotNil(t, run.ExitCode)
	assert.Equal(t, int32(1), *run.ExitCode)
	assert.Equal(t, int32(2), run.RecordsWritten)
	require.NotNil(t, run.ConfigParams)
	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(*run.ConfigParams), &params))
	assert.Equal(t, "jest", params["framework"])

	rows, err := store.GetAllCoverageRows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, schema.CoverageRow{RunID: runID, TestID: "math adds", FilePath: "/repo/src/a.ts", LineCount: 3, Lines: "[1,2,3]"}, rows[0])
	assert.Equal(t, "[5]", rows[1].Lines)
}

func TestHistoryStore_SQLiteStatus(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 0, status.TotalRuns)
	assert.Equal(t, int64(0), status.TableSizes[runsTable])

	first := time.Now().Add(-time.Hour)
	_, err = store.BeginRun(schema.CoverRun, first, nil)
	require.NoError(t, err)
	lastID, err := store.BeginRun(schema.TestRun, time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordCoverage(lastID, []schema.CoverageRecord{{TestID: "t", File: "f", Lines: []int{1}}}))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, lastID, status.LastRunID)
	assert.Equal(t, "run", status.LastRunKind)
	assert.WithinDuration(t, first, status.OldestRunTime, time.Millisecond)
	assert.True(t, status.LastRunTime.After(status.OldestRunTime))
	assert.Equal(t, 1, status.TotalRecords)
	assert.Equal(t, int64(2), status.TableSizes[runsTable])
	assert.Equal(t, int64(1), status.TableSizes[coverageTable])
}

func TestHistoryStore_RecordCoverageFileGranularity(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runID, err := store.BeginRun(schema.CoverRun, time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordCoverage(runID, []schema.CoverageRecord{{TestID: "t", File: "f"}}))

	rows, err := store.GetAllCoverageRows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int32(0), rows[0].LineCount)
	assert.Equal(t, "[]", rows[0].Lines)
}

func TestHistoryStore_EndRunUnknownID(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	err = store.EndRun(42, time.Now(), 0, 0, 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "run 42")
}

func TestHistoryStore_SQLiteFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".impactcov", "history.db")
	store, err := NewHistoryStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.FileExists(t, path)
}

func TestNewHistoryStore_Unsupported(t *testing.T) {
	_, err := NewHistoryStore(schema.DatabaseBackend("oracle"), "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`impactcov_runs`", quoteTableName(runsTable, schema.MySQLBackend))
	assert.Equal(t, `"impactcov_runs"`, quoteTableName(runsTable, schema.PostgreSQLBackend))
	assert.Equal(t, `"impactcov_runs"`, quoteTableName(runsTable, schema.SQLiteBackend))
}

func TestRebind(t *testing.T) {
	query := "UPDATE t SET a = ?, b = ? WHERE id = ?"
	assert.Equal(t, query, rebind(schema.MySQLBackend, query))
	assert.Equal(t, "UPDATE t SET a = $1, b = $2 WHERE id = $3", rebind(schema.PostgreSQLBackend, query))
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN("user:pass@tcp(localhost:3306)/impactcov")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")

	_, err = mysqlDSN("not a dsn")
	assert.Error(t, err)
}
