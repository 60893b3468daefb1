package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
	"github.com/olekukonko/tablewriter"
)

// WriteRunSummary outputs the summary of an impacted-test run.
func WriteRunSummary(summary schema.RunSummary, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, summary)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunSummaryCSV(w, summary)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunSummaryText(w, summary, duration)
		}, "Wrote text")
	}
	return nil
}

func writeRunSummaryText(w io.Writer, summary schema.RunSummary, duration time.Duration) error {
	if _, err := fmt.Fprintln(w, "Run summary:"); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Base", "Impacted", "Run", "Skipped", "Ran All", "Exit Code"})
	ranAll := "no"
	if summary.RanAll {
		ranAll = "yes"
	}
	row := []string{
		summary.Base,
		strconv.Itoa(len(summary.ImpactedTests)),
		strconv.Itoa(summary.TestsRun),
		strconv.Itoa(summary.TestsSkipped),
		ranAll,
		contract.GetColorLabel(summary.ExitCode == 0) + " (" + strconv.Itoa(summary.ExitCode) + ")",
	}
	if err := table.Append(row); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Run completed in %s\n", formatDuration(duration))
	return err
}

func writeRunSummaryCSV(w io.Writer, summary schema.RunSummary) error {
	header := []string{"base", "impacted_tests", "tests_run", "tests_skipped", "ran_all", "duration_ms", "exit_code"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		return cw.Write([]string{
			summary.Base,
			strings.Join(summary.ImpactedTests, "|"),
			strconv.Itoa(summary.TestsRun),
			strconv.Itoa(summary.TestsSkipped),
			strconv.FormatBool(summary.RanAll),
			strconv.FormatInt(summary.DurationMs, 10),
			strconv.Itoa(summary.ExitCode),
		})
	})
}
