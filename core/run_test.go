package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/internal/iocache"
	"github.com/huangsam/impactcov/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSelectorArgs(t *testing.T) {
	ids := []string{"adds a+b", "trims", "adds a+b"}
	tests := []struct {
		name      string
		framework schema.Framework
		ids       []string
		want      []string
		ok        bool
	}{
		{"mocha", schema.MochaFramework, ids, []string{"--grep", `adds a\+b|trims`}, true},
		{"jest", schema.JestFramework, ids, []string{"-t", `adds a\+b|trims`}, true},
		{"vitest", schema.VitestFramework, []string{"x"}, []string{"-t", "x"}, true},
		{"go", schema.GoFramework, []string{"example.com/pkg/TestAdd", "example.com/pkg/sub/TestTrim"}, []string{"-run", "^(TestAdd|TestTrim)$"}, true},
		{"unknown", schema.UnknownFramework, ids, nil, false},
		{"empty", schema.UnknownFramework, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectorArgs(tt.framework, tt.ids)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func readLastRunFile(t *testing.T, path string) schema.RunSummary {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var summary schema.RunSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	return summary
}

func specWith(name string, args ...string) any {
	return mock.MatchedBy(func(spec contract.ProcessSpec) bool {
		return spec.Name == name && assert.ObjectsAreEqual(args, spec.Args)
	})
}

func TestExecuteRun_Impacted(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	seedMathRecords(t, env)
	env.runner.On("Run", mock.Anything, specWith("npm", "test", "--", "-t", "math adds|math subtracts")).Return(0, nil).Once()

	err := ExecuteRun(context.Background(), env.cfg, env.rt, RunOptions{Files: []string{"src/math.ts"}})
	require.NoError(t, err)
	env.runner.AssertExpectations(t)

	summary := readLastRunFile(t, contract.LastRunPath(env.root()))
	assert.Equal(t, []string{"math adds", "math subtracts"}, summary.ImpactedTests)
	assert.Equal(t, 2, summary.TestsRun)
	assert.Equal(t, 2, summary.TestsSkipped)
	assert.False(t, summary.RanAll)
	assert.Equal(t, 0, summary.ExitCode)

	var printed schema.RunSummary
	require.NoError(t, json.Unmarshal([]byte(env.output(t)), &printed))
	assert.Equal(t, summary.TestsRun, printed.TestsRun)
}

func TestExecuteRun_NothingImpactedNoFallback(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	seedMathRecords(t, env)
	noFallback := false

	err := ExecuteRun(context.Background(), env.cfg, env.rt, RunOptions{Files: []string{"README.md"}, AllOnMiss: &noFallback})
	require.NoError(t, err)
	assert.Contains(t, env.stdout.String(), "No impacted tests found; nothing to run.")
	env.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)

	summary := readLastRunFile(t, contract.LastRunPath(env.root()))
	assert.Empty(t, summary.ImpactedTests)
	assert.Equal(t, 0, summary.TestsRun)
	assert.NoFileExists(t, env.cfg.OutputFile)
}

func TestExecuteRun_FallbackRunsAll(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	seedMathRecords(t, env)
	env.runner.On("Run", mock.Anything, specWith("npm", "test", "--")).Return(0, nil).Once()

	err := ExecuteRun(context.Background(), env.cfg, env.rt, RunOptions{Files: []string{"README.md"}})
	require.NoError(t, err)
	assert.Contains(t, env.stdout.String(), "falling back to running all tests")
	env.runner.AssertExpectations(t)

	summary := readLastRunFile(t, contract.LastRunPath(env.root()))
	assert.True(t, summary.RanAll)
	assert.Equal(t, 0, summary.TestsSkipped)
}

func TestExecuteRun_UnknownFrameworkRunsAll(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	env.cfg.Project.Test = contract.TestConfig{Framework: "ava", Command: "npx ava"}
	seedMathRecords(t, env)
	env.runner.On("Run", mock.Anything, specWith("npx", "ava")).Return(0, nil).Once()

	require.NoError(t, ExecuteRun(context.Background(), env.cfg, env.rt, RunOptions{Files: []string{"src/strings.ts"}}))
	assert.Contains(t, env.stderr.String(), `Warn: Unknown framework "ava"`)

	summary := readLastRunFile(t, contract.LastRunPath(env.root()))
	assert.True(t, summary.RanAll)
	assert.Equal(t, []string{"strings trim"}, summary.ImpactedTests)
}

func TestExecuteRun_FailingTestsKeepStatus(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	seedMathRecords(t, env)
	env.runner.On("Run", mock.Anything, mock.Anything).Return(7, nil).Once()

	err := ExecuteRun(context.Background(), env.cfg, env.rt, RunOptions{Files: []string{"src/strings.ts"}, Report: "reports/run.json"})
	require.Error(t, err)
	assert.Equal(t, 7, contract.ExitCodeOf(err))

	report := readLastRunFile(t, filepath.Join(env.root(), "reports", "run.json"))
	assert.Equal(t, 7, report.ExitCode)
	assert.Equal(t, []string{"strings trim"}, report.ImpactedTests)
}

func TestExecuteRun_TracksHistory(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	seedMathRecords(t, env)
	store := &iocache.MockHistoryStore{}
	manager := &iocache.MockHistoryManager{}
	manager.On("GetHistoryStore").Return(store)
	env.rt.History = manager

	store.On("BeginRun", schema.TestRun, mock.AnythingOfType("time.Time"), mock.MatchedBy(func(params map[string]any) bool {
		return params["framework"] == "jest" && params["base"] == "origin/main" && params["ran_all"] == false
	})).Return(int64(42), nil).Once()
	store.On("EndRun", int64(42), mock.AnythingOfType("time.Time"), 0, 0, 1).Return(nil).Once()
	env.runner.On("Run", mock.Anything, mock.Anything).Return(0, nil).Once()

	require.NoError(t, ExecuteRun(context.Background(), env.cfg, env.rt, RunOptions{Files: []string{"src/strings.ts"}}))
	store.AssertExpectations(t)
}

func TestExecuteRun_TrackingFailureOnlyWarns(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	seedMathRecords(t, env)
	store := &iocache.MockHistoryStore{}
	manager := &iocache.MockHistoryManager{}
	manager.On("GetHistoryStore").Return(store)
	env.rt.History = manager

	store.On("BeginRun", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), assert.AnError).Once()
	env.runner.On("Run", mock.Anything, mock.Anything).Return(0, nil).Once()

	require.NoError(t, ExecuteRun(context.Background(), env.cfg, env.rt, RunOptions{Files: []string{"src/strings.ts"}}))
	store.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPersistRunSummary_AbsoluteReport(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	report := filepath.Join(t.TempDir(), "nested", "summary.json")
	summary := schema.RunSummary{Base: "main", DurationMs: time.Second.Milliseconds()}

	require.NoError(t, persistRunSummary(env.cfg, summary, report))
	assert.Equal(t, summary, readLastRunFile(t, report))
	assert.Equal(t, summary, readLastRunFile(t, contract.LastRunPath(env.root())))
}
