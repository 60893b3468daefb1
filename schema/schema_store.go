package schema

import "time"

// HistoryRunRecord represents a row from the impactcov_runs table.
type HistoryRunRecord struct {
	RunID          int64
	Kind           string
	StartTime      time.Time
	EndTime        *time.Time
	RunDurationMs  *int32
	ExitCode       *int32
	RecordsWritten int32
	TestsSelected  int32
	ConfigParams   *string
}

// CoverageRow represents a row from the impactcov_coverage_records table.
type CoverageRow struct {
	RunID     int64
	TestID    string
	FilePath  string
	LineCount int32
	Lines     string
}
