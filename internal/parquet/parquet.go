// Package parquet exports impactcov run history to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/impactcov/schema"
	"github.com/parquet-go/parquet-go"
)

// Run is one tracked cover or run invocation.
// This struct maps to the impactcov_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// Kind is either "cover" or "run"
	Kind string `parquet:"kind,snappy,dict"`

	// StartTime is when the run began
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the wall time in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// ExitCode is the test command status (nullable while a run is open)
	ExitCode *int32 `parquet:"exit_code,optional,snappy"`

	RecordsWritten int32 `parquet:"records_written,snappy"`
	TestsSelected  int32 `parquet:"tests_selected,snappy"`

	// ConfigParams contains the JSON-encoded invocation parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// Coverage is one coverage record captured during a run.
// This struct maps to the impactcov_coverage_records database table.
type Coverage struct {
	RunID     int64  `parquet:"run_id,snappy"`
	TestID    string `parquet:"test_id,snappy"`
	FilePath  string `parquet:"file_path,snappy"`
	LineCount int32  `parquet:"line_count,snappy"`

	// Lines is the JSON array of executed line numbers
	Lines string `parquet:"lines,snappy"`
}

// WriteRunsParquet writes runs to a Parquet file at outputPath.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteCoverageParquet writes coverage rows to a Parquet file at outputPath.
func WriteCoverageParquet(data []Coverage, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet infers the schema from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// ConvertRunRecords converts schema.HistoryRunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.HistoryRunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:          record.RunID,
			Kind:           record.Kind,
			StartTime:      record.StartTime,
			EndTime:        record.EndTime,
			RunDurationMs:  record.RunDurationMs,
			ExitCode:       record.ExitCode,
			RecordsWritten: record.RecordsWritten,
			TestsSelected:  record.TestsSelected,
			ConfigParams:   record.ConfigParams,
		}
	}
	return result
}

// ConvertCoverageRows converts schema.CoverageRow to Coverage for Parquet export.
func ConvertCoverageRows(rows []schema.CoverageRow) []Coverage {
	result := make([]Coverage, len(rows))
	for i, row := range rows {
		result[i] = Coverage(row)
	}
	return result
}
