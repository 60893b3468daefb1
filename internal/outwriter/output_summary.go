package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
	"github.com/olekukonko/tablewriter"
)

// WriteCoverageSummary outputs what the coverage map currently holds.
func WriteCoverageSummary(summary schema.CoverageSummary, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, summary)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"records", "tests", "files", "lines"}, func(cw *csv.Writer) error {
				return cw.Write([]string{
					strconv.Itoa(summary.Records),
					strconv.Itoa(summary.Tests),
					strconv.Itoa(summary.Files),
					strconv.Itoa(summary.Lines),
				})
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			table := tablewriter.NewWriter(w)
			table.Header([]string{"Records", "Tests", "Files", "Lines"})
			if err := table.Append([]string{
				strconv.Itoa(summary.Records),
				strconv.Itoa(summary.Tests),
				strconv.Itoa(summary.Files),
				strconv.Itoa(summary.Lines),
			}); err != nil {
				return err
			}
			return table.Render()
		}, "Wrote text")
	}
}

// testsForFile is the JSON shape of WriteTestsForFile.
type testsForFile struct {
	File  string   `json:"file"`
	Tests []string `json:"tests"`
}

// WriteTestsForFile outputs the recorded tests that touched file.
func WriteTestsForFile(file string, tests []string, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, testsForFile{File: file, Tests: tests})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"file", "test_id"}, func(cw *csv.Writer) error {
				for _, t := range tests {
					if err := cw.Write([]string{file, t}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if _, err := fmt.Fprintf(w, "Tests covering %s (%d):\n", file, len(tests)); err != nil {
				return err
			}
			for _, t := range tests {
				if _, err := fmt.Fprintf(w, "  - %s\n", t); err != nil {
					return err
				}
			}
			return nil
		}, "Wrote text")
	}
}
