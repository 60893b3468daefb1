package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func stubGitMetadata(env *testEnv) {
	env.git.On("GetHeadCommit", mock.Anything, env.root()).Return("abc123", nil)
	env.git.On("GetBranch", mock.Anything, env.root()).Return("feature/x", nil)
	env.git.On("GetRemoteURL", mock.Anything, env.root()).Return("git@example.com:org/app.git", nil)
}

func readReport(t *testing.T, env *testEnv) schema.BuildPayload {
	t.Helper()
	data, err := os.ReadFile(contract.ReportPath(env.root()))
	require.NoError(t, err)
	var payload schema.BuildPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	return payload
}

func TestBuildUploadPayload(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	stubGitMetadata(env)
	require.NoError(t, writeJSONFile(contract.LastRunPath(env.root()), schema.RunSummary{
		Base: "origin/main", TestsRun: 3, TestsSkipped: 9, DurationMs: 1200,
	}))

	payload, err := BuildUploadPayload(context.Background(), env.cfg, env.rt, UploadOptions{BuildID: "b-1", ResultsURL: "https://ci/results"})
	require.NoError(t, err)
	assert.Equal(t, schema.BuildInfo{ID: "b-1", Commit: "abc123", Branch: "feature/x", Repo: "git@example.com:org/app.git"}, payload.Build)
	assert.Equal(t, &schema.BuildStats{TestsRun: 3, TestsSkipped: 9, DurationMs: 1200}, payload.Stats)
	assert.Equal(t, &schema.BuildDiff{Base: "origin/main"}, payload.Diff)
	assert.Equal(t, "https://ci/results", payload.ResultsURL)
}

func TestBuildUploadPayload_Defaults(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	env.git.On("GetHeadCommit", mock.Anything, env.root()).Return("abc123", nil)
	env.git.On("GetBranch", mock.Anything, env.root()).Return("", errors.New("detached"))
	env.git.On("GetRemoteURL", mock.Anything, env.root()).Return("", errors.New("no remote"))

	payload, err := BuildUploadPayload(context.Background(), env.cfg, env.rt, UploadOptions{})
	require.NoError(t, err)
	_, err = uuid.Parse(payload.Build.ID)
	assert.NoError(t, err, "a build ID is generated when none is given")
	assert.Empty(t, payload.Build.Branch)
	assert.Equal(t, &schema.BuildStats{}, payload.Stats)
	assert.Nil(t, payload.Diff)
}

func TestBuildUploadPayload_HeadError(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	env.git.On("GetHeadCommit", mock.Anything, env.root()).Return("", errors.New("not a git repository"))

	_, err := BuildUploadPayload(context.Background(), env.cfg, env.rt, UploadOptions{})
	assert.ErrorContains(t, err, "failed to resolve HEAD commit")
	assert.Equal(t, schema.ExitFatal, contract.ExitCodeOf(err))
}

func TestExecuteUpload_Disabled(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	stubGitMetadata(env)
	disabled := false
	env.cfg.Project.Upload.Enabled = &disabled

	require.NoError(t, ExecuteUpload(context.Background(), env.cfg, env.rt, UploadOptions{BuildID: "b-1"}))
	assert.Equal(t, "Upload disabled in impactcov.config.json; skipping upload. Report saved at .impactcov/report.json\n", env.stdout.String())
	assert.Equal(t, "b-1", readReport(t, env).Build.ID)
	env.uploader.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteUpload_NoEndpoint(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	stubGitMetadata(env)

	require.NoError(t, ExecuteUpload(context.Background(), env.cfg, env.rt, UploadOptions{}))
	assert.Contains(t, env.stdout.String(), "No endpoint configured; skipping upload.")
	assert.FileExists(t, contract.ReportPath(env.root()))
}

func TestExecuteUpload_Success(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	stubGitMetadata(env)
	env.cfg.Project.CI = &contract.CIConfig{Endpoint: "https://ingest.example.com", ProjectToken: "from-config"}

	env.uploader.On("Send", mock.Anything, "https://ingest.example.com", "from-config", mock.MatchedBy(func(body []byte) bool {
		var payload schema.BuildPayload
		return json.Unmarshal(body, &payload) == nil && payload.Build.ID == "b-2" && payload.Build.Commit == "abc123"
	})).Return(202, nil).Once()

	require.NoError(t, ExecuteUpload(context.Background(), env.cfg, env.rt, UploadOptions{BuildID: "b-2"}))
	assert.Equal(t, "Upload succeeded.\n", env.stdout.String())
	env.uploader.AssertExpectations(t)
}

func TestExecuteUpload_FlagsOverrideConfig(t *testing.T) {
	env := newTestEnv(t, schema.JestFramework)
	stubGitMetadata(env)
	env.cfg.Project.CI = &contract.CIConfig{Endpoint: "https://config.example.com", ProjectToken: "from-config"}
	env.uploader.On("Send", mock.Anything, "https://flag.example.com", "from-flag", mock.Anything).Return(200, nil).Once()

	require.NoError(t, ExecuteUpload(context.Background(), env.cfg, env.rt, UploadOptions{Endpoint: "https://flag.example.com", Token: "from-flag"}))
	env.uploader.AssertExpectations(t)
}

func TestExecuteUpload_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   string
	}{
		{"non-2xx", 500, nil, "upload failed with status 500"},
		{"redirect", 302, nil, "upload failed with status 302"},
		{"transport", 0, errors.New("connection refused"), "upload failed: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, schema.JestFramework)
			stubGitMetadata(env)
			env.cfg.Project.CI = &contract.CIConfig{Endpoint: "https://ingest.example.com"}
			env.uploader.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(tt.status, tt.err).Once()

			err := ExecuteUpload(context.Background(), env.cfg, env.rt, UploadOptions{})
			require.Error(t, err)
			assert.Equal(t, schema.ExitUploadFailed, contract.ExitCodeOf(err))
			assert.EqualError(t, err, tt.want)
			assert.FileExists(t, contract.ReportPath(env.root()), "the report is kept for retries")
		})
	}
}
