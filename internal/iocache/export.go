package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/internal/parquet"
)

// ExecuteHistoryExport writes the run history held by mgr to
// <outputFile>.runs.parquet and <outputFile>.coverage.parquet.
func ExecuteHistoryExport(mgr contract.HistoryManager, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	store := mgr.GetHistoryStore()
	if store == nil {
		return errors.New("run history is disabled. Set --history-backend to export")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total coverage records: %d\n", status.TotalRecords)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	coverage, err := store.GetAllCoverageRows()
	if err != nil {
		return fmt.Errorf("failed to retrieve coverage records: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	parquetRuns := parquet.ConvertRunRecords(runs)
	if err := parquet.WriteRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	coverageFile := outputFile + ".coverage.parquet"
	parquetCoverage := parquet.ConvertCoverageRows(coverage)
	if err := parquet.WriteCoverageParquet(parquetCoverage, coverageFile); err != nil {
		return fmt.Errorf("failed to write coverage records: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d coverage records to: %s\n", len(parquetCoverage), coverageFile)

	return nil
}
