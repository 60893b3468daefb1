// Package schema has models and typed constants for all parts of impactcov.
package schema

// CoverageRecord is one persisted fact that a test executed lines of a file.
// Lines is omitted for file-granularity records.
type CoverageRecord struct {
	TestID string `json:"testId"`
	File   string `json:"file"`
	Lines  []int  `json:"lines,omitempty"`
}

// TestMatch is an impacted test together with the changed files that selected it.
type TestMatch struct {
	TestID string   `json:"testId"`
	Files  []string `json:"files"`
}

// ImpactResult is the outcome of resolving changed files against the coverage map.
type ImpactResult struct {
	Base                string      `json:"base"`
	Changed             []string    `json:"changed"`
	ImpactedTests       []string    `json:"impactedTests"`
	CoverageRecordCount int         `json:"coverageRecordCount"`
	Matches             []TestMatch `json:"-"`
}

// ChangedFile is a repository-relative path and the new-side line numbers added to it.
type ChangedFile struct {
	Path  string `json:"path"`
	Lines []int  `json:"lines"`
}

// FileDiffCoverage is the changed-line coverage of a single file.
type FileDiffCoverage struct {
	Path         string `json:"path"`
	ChangedLines int    `json:"changedLines"`
	CoveredLines int    `json:"coveredLines"`
	Uncovered    []int  `json:"uncovered,omitempty"`
}

// DiffCoverageResult is the verdict of the diff-coverage gate.
type DiffCoverageResult struct {
	Base         string             `json:"base,omitempty"`
	DiffCoverage int                `json:"diffCoverage"`
	Threshold    float64            `json:"threshold"`
	Pass         bool               `json:"pass"`
	CoveredLines int                `json:"coveredLines"`
	TotalLines   int                `json:"totalLines"`
	Files        []FileDiffCoverage `json:"files,omitempty"`
}

// RunSummary describes one impacted-test run.
type RunSummary struct {
	Base          string   `json:"base"`
	ImpactedTests []string `json:"impactedTests"`
	TestsRun      int      `json:"testsRun"`
	TestsSkipped  int      `json:"testsSkipped"`
	RanAll        bool     `json:"ranAll"`
	DurationMs    int64    `json:"durationMs"`
	ExitCode      int      `json:"exitCode"`
}

// BuildInfo identifies the build being reported.
type BuildInfo struct {
	ID     string `json:"id,omitempty"`
	Commit string `json:"commit"`
	Branch string `json:"branch,omitempty"`
	Repo   string `json:"repo,omitempty"`
}

// BuildStats carries test counts for the build.
type BuildStats struct {
	TestsRun     int   `json:"testsRun,omitempty"`
	TestsSkipped int   `json:"testsSkipped,omitempty"`
	DurationMs   int64 `json:"durationMs"`
}

// BuildDiff carries the diff the build was evaluated against.
type BuildDiff struct {
	Base         string   `json:"base,omitempty"`
	ChangedFiles []string `json:"changedFiles,omitempty"`
}

// BuildPayload is the JSON summary sent to the upload sink.
type BuildPayload struct {
	Build          BuildInfo   `json:"build"`
	Stats          *BuildStats `json:"stats,omitempty"`
	Diff           *BuildDiff  `json:"diff,omitempty"`
	CoverageMapURL string      `json:"coverageMapUrl,omitempty"`
	ResultsURL     string      `json:"resultsUrl,omitempty"`
}

// CoverageSummary aggregates what the coverage map currently knows.
type CoverageSummary struct {
	Records int `json:"records"`
	Tests   int `json:"tests"`
	Files   int `json:"files"`
	Lines   int `json:"lines"`
}
