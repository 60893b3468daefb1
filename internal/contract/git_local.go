package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout output.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git command failed in %q: %s. If this is not a Git repository, verify the path or run 'git init'", repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// GetRepoRoot implements the GitClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	return c.runTrimmed(ctx, contextPath, "rev-parse", "--show-toplevel")
}

// GetHeadCommit implements the GitClient interface.
func (c *LocalGitClient) GetHeadCommit(ctx context.Context, repoPath string) (string, error) {
	return c.runTrimmed(ctx, repoPath, "rev-parse", "HEAD")
}

// GetBranch implements the GitClient interface.
func (c *LocalGitClient) GetBranch(ctx context.Context, repoPath string) (string, error) {
	return c.runTrimmed(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
}

// GetRemoteURL implements the GitClient interface.
func (c *LocalGitClient) GetRemoteURL(ctx context.Context, repoPath string) (string, error) {
	return c.runTrimmed(ctx, repoPath, "config", "--get", "remote.origin.url")
}

// GetChangedFiles implements the GitClient interface.
// Uses Git's "..." (three-dot) syntax so only changes on HEAD since the
// merge base with base are reported.
func (c *LocalGitClient) GetChangedFiles(ctx context.Context, repoPath string, base string) ([]string, error) {
	return c.GetChangedFilesInRange(ctx, repoPath, base+"...HEAD")
}

// GetChangedFilesInRange implements the GitClient interface.
// Paths come back verbatim: quotePath is off and entries are NUL separated,
// so non-ASCII names are not C-quoted.
func (c *LocalGitClient) GetChangedFilesInRange(ctx context.Context, repoPath string, revRange string) ([]string, error) {
	out, err := c.Run(ctx, repoPath, "-c", "core.quotePath=false", "diff", "--name-only", "-z", revRange)
	if err != nil {
		return nil, err
	}
	return splitNUL(out), nil
}

// GetUnifiedDiff implements the GitClient interface.
func (c *LocalGitClient) GetUnifiedDiff(ctx context.Context, repoPath string, base string) ([]byte, error) {
	return c.Run(ctx, repoPath, "diff", "-U0", "--no-color", "--no-ext-diff", base+"...HEAD")
}

func (c *LocalGitClient) runTrimmed(ctx context.Context, repoPath string, args ...string) (string, error) {
	out, err := c.Run(ctx, repoPath, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// splitNUL splits -z output into its non-empty entries.
func splitNUL(out []byte) []string {
	parts := strings.Split(string(out), "\x00")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
