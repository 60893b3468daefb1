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

// WriteImpactResult outputs the Impact Result, dispatching based on the output format configured.
func WriteImpactResult(result schema.ImpactResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeImpactCSV(w, result)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeImpactText(w, result, cfg, duration)
		}, "Wrote text")
	}
	return nil
}

// writeImpactText lists the changed files, then the impacted tests as a table.
func writeImpactText(w io.Writer, result schema.ImpactResult, cfg *contract.Config, duration time.Duration) error {
	if _, err := fmt.Fprintf(w, "Base: %s\n", result.Base); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Changed files (%d):\n", len(result.Changed)); err != nil {
		return err
	}
	for _, f := range result.Changed {
		if _, err := fmt.Fprintf(w, "  - %s\n", f); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "\nImpacted tests (%d):\n", len(result.ImpactedTests)); err != nil {
		return err
	}

	if len(result.ImpactedTests) > 0 {
		width := getMaxTablePathWidth(cfg, 40)
		table := tablewriter.NewWriter(w)
		table.Header([]string{"#", "Test", "Changed Files"})
		var data [][]string
		for i, id := range result.ImpactedTests {
			files := ""
			if i < len(result.Matches) && result.Matches[i].TestID == id {
				files = strings.Join(result.Matches[i].Files, ", ")
			}
			data = append(data, []string{
				strconv.Itoa(i + 1),
				contract.TruncatePath(id, width),
				files,
			})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Resolved against %d coverage records in %s\n", result.CoverageRecordCount, formatDuration(duration))
	return err
}

// writeImpactCSV writes one row per impacted test.
func writeImpactCSV(w io.Writer, result schema.ImpactResult) error {
	header := []string{"rank", "test_id", "changed_files", "base"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, id := range result.ImpactedTests {
			files := ""
			if i < len(result.Matches) && result.Matches[i].TestID == id {
				files = strings.Join(result.Matches[i].Files, "|")
			}
			if err := cw.Write([]string{strconv.Itoa(i + 1), id, files, result.Base}); err != nil {
				return err
			}
		}
		return nil
	})
}
