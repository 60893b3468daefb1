//go:build basic

package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sqliteEnv = []string{"IMPACTCOV_HISTORY_BACKEND=sqlite"}

// TestGoProjectWorkflow walks init, cover, impacted, diff coverage, run and
// history on a real Go module.
func TestGoProjectWorkflow(t *testing.T) {
	root := newGoProject(t)

	res := runImpactcov(t, root, nil, "init", "--framework", "go")
	require.Equal(t, 0, res.Code)
	assert.Equal(t, "Created impactcov.config.json\n", res.Output)
	res = runImpactcov(t, root, nil, "init")
	assert.Equal(t, "impactcov.config.json already exists.\n", res.Output)

	res = runImpactcov(t, root, sqliteEnv, "cover", "--workers", "2")
	require.Equal(t, 0, res.Code)
	assert.Contains(t, res.Output, "Captured 2 Go tests with 2 workers")
	assert.Contains(t, res.Output, "Per-test coverage map updated at .impactcov/coverage-map.jsonl")
	assert.FileExists(t, filepath.Join(root, ".impactcov", "coverage-map.jsonl"))

	res = runImpactcov(t, root, nil, "impacted", "--files", "calc/add.go", "--json")
	require.Equal(t, 0, res.Code)
	var impacted struct {
		Changed       []string `json:"changed"`
		ImpactedTests []string `json:"impactedTests"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Output), &impacted))
	assert.Equal(t, []string{"calc/add.go"}, impacted.Changed)
	assert.Equal(t, []string{"example.com/calc/calc/TestAdd"}, impacted.ImpactedTests)

	// A feature branch adds an untested function next to Sub.
	git(t, root, "checkout", "-q", "-b", "feature")
	writeFile(t, root, "calc/sub.go", `package calc

func Sub(a, b int) int {
	return a - b
}

func Neg(a int) int {
	return -a
}
`)
	git(t, root, "commit", "-q", "-am", "add Neg")

	res = runImpactcov(t, root, nil, "report", "diff-coverage", "--since", "main", "--threshold", "90")
	assert.Equal(t, 2, res.Code, "uncovered changed lines fail the gate")
	res = runImpactcov(t, root, nil, "report", "diff-coverage", "--since", "main", "--threshold", "0", "--output", "json")
	require.Equal(t, 0, res.Code)
	var diffCov struct {
		TotalLines   int  `json:"totalLines"`
		CoveredLines int  `json:"coveredLines"`
		Pass         bool `json:"pass"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Output), &diffCov))
	assert.Equal(t, 3, diffCov.TotalLines)
	assert.Equal(t, 0, diffCov.CoveredLines)
	assert.True(t, diffCov.Pass)

	res = runImpactcov(t, root, sqliteEnv, "run", "--since", "main", "--report", "run.json")
	require.Equal(t, 0, res.Code)
	data, err := os.ReadFile(filepath.Join(root, "run.json"))
	require.NoError(t, err)
	var summary struct {
		ImpactedTests []string `json:"impactedTests"`
		TestsRun      int      `json:"testsRun"`
		TestsSkipped  int      `json:"testsSkipped"`
	}
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, []string{"example.com/calc/calc/TestSub"}, summary.ImpactedTests)
	assert.Equal(t, 1, summary.TestsRun)
	assert.Equal(t, 1, summary.TestsSkipped)

	res = runImpactcov(t, root, sqliteEnv, "history", "status")
	require.Equal(t, 0, res.Code)
	assert.Contains(t, res.Output, "History Backend: sqlite")
	assert.Contains(t, res.Output, "Total Runs: 2")
	assert.Contains(t, res.Output, "Last Run ID: 2 (run)")

	exportBase := filepath.Join(t.TempDir(), "history")
	res = runImpactcov(t, root, sqliteEnv, "history", "export", "--output-file", exportBase)
	require.Equal(t, 0, res.Code)
	assert.FileExists(t, exportBase+".runs.parquet")
	assert.FileExists(t, exportBase+".coverage.parquet")

	res = runImpactcov(t, root, sqliteEnv, "history", "clear")
	require.Equal(t, 0, res.Code)
	assert.NoFileExists(t, filepath.Join(root, ".impactcov", "history.db"))
}

// TestMissingProjectConfig checks the fatal path before init.
func TestMissingProjectConfig(t *testing.T) {
	root := newGoProject(t)
	res := runImpactcov(t, root, nil, "impacted", "--files", "calc/add.go")
	assert.Equal(t, 1, res.Code)
}

// TestHistoryMigrateSQLite runs the embedded migrations up and down.
func TestHistoryMigrateSQLite(t *testing.T) {
	root := t.TempDir()
	res := runImpactcov(t, root, sqliteEnv, "history", "migrate")
	require.Equal(t, 0, res.Code)
	res = runImpactcov(t, root, sqliteEnv, "history", "migrate", "--target-version", "0")
	require.Equal(t, 0, res.Code)
}

func TestVersion(t *testing.T) {
	res := runImpactcov(t, t.TempDir(), nil, "version")
	assert.Equal(t, 0, res.Code)
}
