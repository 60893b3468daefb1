package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteDiffCoverage outputs the diff-coverage verdict, dispatching based on the output format configured.
func WriteDiffCoverage(result schema.DiffCoverageResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeDiffCoverageCSV(w, result)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeDiffCoverageText(w, result, cfg, duration)
		}, "Wrote text")
	}
	return nil
}

// writeDiffCoverageText prints a per-file table followed by the gate verdict.
func writeDiffCoverageText(w io.Writer, result schema.DiffCoverageResult, cfg *contract.Config, duration time.Duration) error {
	if len(result.Files) > 0 {
		width := getMaxTablePathWidth(cfg, 60)
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Path", "Changed", "Covered", "Coverage", "Uncovered Lines"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignLeft}
		})
		var data [][]string
		for _, f := range result.Files {
			data = append(data, []string{
				contract.TruncatePath(f.Path, width),
				strconv.Itoa(f.ChangedLines),
				strconv.Itoa(f.CoveredLines),
				fmt.Sprintf("%d%%", filePercent(f)),
				formatLineRanges(f.Uncovered),
			})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if result.Base != "" {
		if _, err := fmt.Fprintf(w, "Base: %s\n", result.Base); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Diff coverage: %d%% (%d/%d changed lines, threshold %g%%) %s\n",
		result.DiffCoverage, result.CoveredLines, result.TotalLines, result.Threshold, contract.GetColorLabel(result.Pass)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Evaluated in %s\n", formatDuration(duration))
	return err
}

// writeDiffCoverageCSV writes one row per changed file.
func writeDiffCoverageCSV(w io.Writer, result schema.DiffCoverageResult) error {
	header := []string{"path", "changed_lines", "covered_lines", "coverage", "uncovered_lines"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, f := range result.Files {
			rec := []string{
				f.Path,
				strconv.Itoa(f.ChangedLines),
				strconv.Itoa(f.CoveredLines),
				strconv.Itoa(filePercent(f)),
				formatLineRanges(f.Uncovered),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// filePercent mirrors the evaluator's rounding for a single file.
func filePercent(f schema.FileDiffCoverage) int {
	if f.ChangedLines == 0 {
		return 100
	}
	return (f.CoveredLines*200 + f.ChangedLines) / (2 * f.ChangedLines)
}
