package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const reportDiff = `diff --git a/src/a.ts b/src/a.ts
--- a/src/a.ts
+++ b/src/a.ts
@@ -1,0 +1,5 @@
+const a = 1;
+const b = 2;
+
+const c = 3;
+const d = 4;
diff --git a/src/a.test.ts b/src/a.test.ts
--- a/src/a.test.ts
+++ b/src/a.test.ts
@@ -1,0 +1,1 @@
+it("works", () => {});
`

func newReportEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t, schema.JestFramework)
	env.seed(t,
		schema.CoverageRecord{TestID: "a works", File: env.root() + "/src/a.ts", Lines: []int{1, 2}},
		schema.CoverageRecord{TestID: "a works", File: env.root() + "/src/a.test.ts", Lines: []int{1}},
	)
	env.git.On("GetUnifiedDiff", mock.Anything, env.root(), mock.Anything).Return([]byte(reportDiff), nil)
	return env
}

func TestGetDiffCoverageResult(t *testing.T) {
	env := newReportEnv(t)

	result, err := GetDiffCoverageResult(context.Background(), env.cfg, env.rt, DiffCoverageOptions{})
	require.NoError(t, err)
	assert.Equal(t, "origin/main", result.Base)
	assert.Equal(t, 4, result.TotalLines, "blank lines and test files do not count")
	assert.Equal(t, 2, result.CoveredLines)
	assert.Equal(t, 50, result.DiffCoverage)
	assert.Equal(t, float64(85), result.Threshold)
	assert.False(t, result.Pass)
	require.Len(t, result.Files, 1)
	assert.Equal(t, []int{4, 5}, result.Files[0].Uncovered)
}

func TestGetDiffCoverageResult_FileGranularity(t *testing.T) {
	env := newReportEnv(t)
	env.cfg.Project.Impact.FileGranularity = "file"

	result, err := GetDiffCoverageResult(context.Background(), env.cfg, env.rt, DiffCoverageOptions{})
	require.NoError(t, err)
	assert.Equal(t, 100, result.DiffCoverage)
	assert.True(t, result.Pass)
}

func TestGetDiffCoverageResult_InvalidThreshold(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	threshold := -1.0
	_, err := GetDiffCoverageResult(context.Background(), env.cfg, env.rt, DiffCoverageOptions{Threshold: &threshold})
	assert.ErrorContains(t, err, "threshold must be between 0 and 100")
	env.git.AssertNotCalled(t, "GetUnifiedDiff", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteDiffCoverage_Pass(t *testing.T) {
	env := newReportEnv(t)
	threshold := 50.0

	require.NoError(t, ExecuteDiffCoverage(context.Background(), env.cfg, env.rt, DiffCoverageOptions{Since: "v2", Threshold: &threshold}))
	env.git.AssertCalled(t, "GetUnifiedDiff", mock.Anything, env.root(), "v2")

	var got schema.DiffCoverageResult
	require.NoError(t, json.Unmarshal([]byte(env.output(t)), &got))
	assert.True(t, got.Pass)
	assert.Equal(t, "v2", got.Base)
}

func TestExecuteDiffCoverage_Fail(t *testing.T) {
	env := newReportEnv(t)

	err := ExecuteDiffCoverage(context.Background(), env.cfg, env.rt, DiffCoverageOptions{})
	require.Error(t, err)
	assert.Equal(t, schema.ExitDiffCoverageFailed, contract.ExitCodeOf(err))
	assert.EqualError(t, err, "diff coverage 50% is below threshold 85%")
	assert.FileExists(t, env.cfg.OutputFile, "the verdict is printed before failing")
}

func TestExecuteDiffCoverage_EmptyDiffPasses(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	env.git.On("GetUnifiedDiff", mock.Anything, env.root(), "origin/main").Return([]byte{}, nil)

	result, err := GetDiffCoverageResult(context.Background(), env.cfg, env.rt, DiffCoverageOptions{})
	require.NoError(t, err)
	assert.Equal(t, 100, result.DiffCoverage)
	assert.True(t, result.Pass)
}

func TestCoverageSummaryAndTestsForFile(t *testing.T) {
	env := newReportEnv(t)

	summary, err := GetCoverageSummary(env.cfg)
	require.NoError(t, err)
	assert.Equal(t, schema.CoverageSummary{Records: 2, Tests: 1, Files: 2, Lines: 3}, summary)

	tests, err := GetTestsForFile(env.cfg, "src/a.ts")
	require.NoError(t, err)
	assert.Equal(t, []string{"a works"}, tests)

	require.NoError(t, ExecuteCoverageSummary(env.cfg))
	assert.JSONEq(t, `{"records":2,"tests":1,"files":2,"lines":3}`, env.output(t))
}
