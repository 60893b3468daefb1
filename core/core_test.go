package core

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/impactcov/core/covmap"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a temporary project wired to mock collaborators.
type testEnv struct {
	cfg      *contract.Config
	rt       *Runtime
	git      *contract.MockGitClient
	runner   *contract.MockProcessRunner
	uploader *contract.MockUploadSink
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
}

func newTestEnv(t *testing.T, framework schema.Framework) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		cfg: &contract.Config{
			RepoPath:   root,
			Project:    contract.DefaultProjectConfig(framework),
			Output:     schema.JSONOut,
			OutputFile: filepath.Join(root, "out.json"),
			Workers:    1,
		},
		git:      &contract.MockGitClient{},
		runner:   &contract.MockProcessRunner{},
		uploader: &contract.MockUploadSink{},
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
	}
	env.rt = &Runtime{
		Git:      env.git,
		Runner:   env.runner,
		Uploader: env.uploader,
		Stdout:   env.stdout,
		Stderr:   env.stderr,
	}
	return env
}

func (e *testEnv) root() string { return e.cfg.RepoPath }

func (e *testEnv) seed(t *testing.T, records ...schema.CoverageRecord) {
	t.Helper()
	require.NoError(t, covmap.NewStore(contract.CoverageMapPath(e.root())).Append(records))
}

func (e *testEnv) output(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(e.cfg.OutputFile)
	require.NoError(t, err)
	return string(data)
}

func TestExecuteInit(t *testing.T) {
	root := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, ExecuteInit(root, "", &out))
	assert.Equal(t, "Created impactcov.config.json\n", out.String())

	project, err := contract.LoadProjectConfig(filepath.Join(root, contract.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, "app", project.Project)
	assert.Equal(t, "jest", project.Test.Framework)
	assert.Equal(t, "npm test --", project.Test.Command)
	assert.Equal(t, "origin/main", project.Since())
	assert.Equal(t, float64(85), project.Threshold())

	out.Reset()
	require.NoError(t, ExecuteInit(root, schema.GoFramework, &out))
	assert.Equal(t, "impactcov.config.json already exists.\n", out.String())

	// The existing file is untouched
	project, err = contract.LoadProjectConfig(filepath.Join(root, contract.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, "jest", project.Test.Framework)
}

func TestExecuteInit_Go(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, ExecuteInit(root, schema.GoFramework, &bytes.Buffer{}))

	project, err := contract.LoadProjectConfig(filepath.Join(root, contract.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, "go test ./...", project.Test.Command)
	assert.Equal(t, "go", project.Language)
}

func TestExecuteInit_UnsupportedFramework(t *testing.T) {
	root := t.TempDir()
	err := ExecuteInit(root, schema.MochaFramework, &bytes.Buffer{})
	assert.ErrorContains(t, err, `unsupported init framework "mocha"`)
	assert.NoFileExists(t, filepath.Join(root, contract.ConfigFileName))
}

func TestRuntimeDefaults(t *testing.T) {
	rt := &Runtime{}
	assert.Nil(t, rt.historyStore())
	assert.Equal(t, os.Stdout, rt.stdout())
	assert.Equal(t, os.Stderr, rt.stderr())
	assert.NotNil(t, rt.logger())

	rt = NewRuntime(nil, nil)
	assert.NotNil(t, rt.Git)
	assert.NotNil(t, rt.Runner)
	assert.NotNil(t, rt.Uploader)
}
