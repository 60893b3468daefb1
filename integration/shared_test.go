//go:build basic || database

// Package integration builds the impactcov binary once and drives it against
// throwaway Go projects.
package integration

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	// sharedBinaryPath holds the path to an impactcov binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getBinary returns the path to the impactcov binary, building it once if needed.
func getBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "impactcov-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binaryPath := filepath.Join(tempDir, "impactcov")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if out, err := buildCmd.CombinedOutput(); err != nil {
			panic(fmt.Sprintf("failed to build impactcov: %v\n%s", err, out))
		}

		sharedBinaryPath = binaryPath
	})

	return sharedBinaryPath
}

// result is the outcome of one CLI invocation.
type result struct {
	Code   int
	Output string
}

// runImpactcov runs the binary inside dir. A non-zero exit is not an error;
// callers assert on Code.
func runImpactcov(t *testing.T, dir string, env []string, args ...string) result {
	t.Helper()
	cmd := exec.Command(getBinary(), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		t.Logf("%s exited %d\nstderr: %s", cmd.String(), exitErr.ExitCode(), exitErr.Stderr)
		return result{Code: exitErr.ExitCode(), Output: string(out)}
	}
	require.NoError(t, err)
	return result{Output: string(out)}
}

// git runs a git command in dir and fails the test on error.
func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=impactcov", "GIT_AUTHOR_EMAIL=ci@example.com",
		"GIT_COMMITTER_NAME=impactcov", "GIT_COMMITTER_EMAIL=ci@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newGoProject creates a committed Go module on branch main where TestAdd
// only reaches add.go and TestSub only reaches sub.go.
func newGoProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "go.mod", "module example.com/calc\n\ngo 1.22\n")
	writeFile(t, root, "calc/add.go", `package calc

func Add(a, b int) int {
	return a + b
}
`)
	writeFile(t, root, "calc/sub.go", `package calc

func Sub(a, b int) int {
	return a - b
}
`)
	writeFile(t, root, "calc/calc_test.go", `package calc

import "testing"

func TestAdd(t *testing.T) {
	if Add(2, 3) != 5 {
		t.Fatal("bad add")
	}
}

func TestSub(t *testing.T) {
	if Sub(5, 3) != 2 {
		t.Fatal("bad sub")
	}
}
`)
	git(t, root, "init", "-q", "-b", "main")
	git(t, root, "add", ".")
	git(t, root, "commit", "-q", "-m", "initial")
	return root
}
