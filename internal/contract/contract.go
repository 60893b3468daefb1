// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"io"
	"time"

	"github.com/huangsam/impactcov/schema"
)

// GitClient defines the version-control operations impactcov depends on.
// This allows the core logic to be tested without needing a real git executable.
type GitClient interface {
	// --- Generic / Low-Level ---

	// Run executes a git command and returns its stdout.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// --- Repository Metadata ---

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// GetHeadCommit returns the current HEAD commit hash.
	GetHeadCommit(ctx context.Context, repoPath string) (string, error)

	// GetBranch returns the abbreviated name of the checked out branch.
	GetBranch(ctx context.Context, repoPath string) (string, error)

	// GetRemoteURL returns the URL of the origin remote.
	GetRemoteURL(ctx context.Context, repoPath string) (string, error)

	// --- Diffs ---

	// GetChangedFiles returns the files changed between the merge base of base and HEAD.
	GetChangedFiles(ctx context.Context, repoPath string, base string) ([]string, error)

	// GetChangedFilesInRange returns the files changed in an explicit revision range.
	GetChangedFilesInRange(ctx context.Context, repoPath string, revRange string) ([]string, error)

	// GetUnifiedDiff returns a zero-context unified diff between the merge base of base and HEAD.
	GetUnifiedDiff(ctx context.Context, repoPath string, base string) ([]byte, error)
}

// ProcessSpec describes an external command to execute.
type ProcessSpec struct {
	Name   string
	Args   []string
	Dir    string
	Env    []string // Full environment; nil inherits the current process environment
	Stdout io.Writer
	Stderr io.Writer
}

// ProcessRunner executes external processes such as the configured test command.
type ProcessRunner interface {
	// Run starts the process and waits for it. A non-zero exit status is
	// reported through the returned code, not as an error.
	Run(ctx context.Context, spec ProcessSpec) (int, error)
}

// UploadSink receives the JSON build summary.
type UploadSink interface {
	// Send posts the payload and returns the HTTP status code.
	Send(ctx context.Context, endpoint string, token string, payload []byte) (int, error)
}

// HistoryManager defines the interface for accessing the run-history store.
// This allows the persistence layer to be mocked for testing.
type HistoryManager interface {
	GetHistoryStore() HistoryStore
}

// HistoryStore defines the interface for tracking cover/run invocations.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(kind schema.RunKind, startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, exitCode int, recordsWritten int, testsSelected int) error

	// RecordCoverage stores the coverage records produced during a run
	RecordCoverage(runID int64, records []schema.CoverageRecord) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every tracked run ordered by ID
	GetAllRuns() ([]schema.HistoryRunRecord, error)

	// GetAllCoverageRows returns every tracked coverage row ordered by run
	GetAllCoverageRows() ([]schema.CoverageRow, error)

	// Close closes the underlying connection
	Close() error
}
