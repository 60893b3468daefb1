// Package diffcov computes how much of a diff's added code is covered by
// recorded tests.
package diffcov

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/huangsam/impactcov/core/impact"
	"github.com/huangsam/impactcov/schema"
	"github.com/sourcegraph/go-diff/diff"
)

const devNull = "/dev/null"

// ParseChangedLines extracts added, non-blank line numbers per file from a
// unified diff. Deleted files and files with no added lines are omitted.
func ParseChangedLines(unified []byte) ([]schema.ChangedFile, error) {
	if len(bytes.TrimSpace(unified)) == 0 {
		return []schema.ChangedFile{}, nil
	}
	fileDiffs, err := diff.NewMultiFileDiffReader(bytes.NewReader(unified)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	changes := []schema.ChangedFile{}
	for _, fd := range fileDiffs {
		if fd.NewName == devNull || fd.NewName == "" {
			continue
		}
		path := strings.TrimPrefix(fd.NewName, "b/")
		var lines []int
		for _, hunk := range fd.Hunks {
			lines = append(lines, addedLines(hunk)...)
		}
		if len(lines) == 0 {
			continue
		}
		slices.Sort(lines)
		changes = append(changes, schema.ChangedFile{Path: path, Lines: slices.Compact(lines)})
	}
	return changes, nil
}

// addedLines walks a hunk body tracking new-file line numbers.
func addedLines(hunk *diff.Hunk) []int {
	var lines []int
	current := int(hunk.NewStartLine)
	body := strings.TrimSuffix(string(hunk.Body), "\n")
	if body == "" {
		return nil
	}
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			current++ // context line whose leading space was stripped
			continue
		}
		switch line[0] {
		case '+':
			if strings.TrimSpace(line[1:]) != "" {
				lines = append(lines, current)
			}
			current++
		case ' ':
			current++
		case '-', '\\': // absent from the new file
		}
	}
	return lines
}

// Evaluate intersects changed lines with the union of recorded lines.
// eligible restricts which changed files count; nil counts every file.
func Evaluate(changes []schema.ChangedFile, records []schema.CoverageRecord, threshold float64, eligible func(string) bool) schema.DiffCoverageResult {
	return evaluate(changes, records, threshold, eligible, false)
}

// EvaluateFiles is Evaluate at file granularity: every changed line of a
// file counts as covered once any record touches that file.
func EvaluateFiles(changes []schema.ChangedFile, records []schema.CoverageRecord, threshold float64, eligible func(string) bool) schema.DiffCoverageResult {
	return evaluate(changes, records, threshold, eligible, true)
}

func evaluate(changes []schema.ChangedFile, records []schema.CoverageRecord, threshold float64, eligible func(string) bool, wholeFile bool) schema.DiffCoverageResult {
	result := schema.DiffCoverageResult{Threshold: threshold}
	for _, change := range changes {
		if eligible != nil && !eligible(change.Path) {
			continue
		}
		covered, touched := coveredLines(change.Path, records)
		file := schema.FileDiffCoverage{Path: change.Path, ChangedLines: len(change.Lines)}
		for _, line := range change.Lines {
			if _, ok := covered[line]; ok || (wholeFile && touched) {
				file.CoveredLines++
			} else {
				file.Uncovered = append(file.Uncovered, line)
			}
		}
		result.TotalLines += file.ChangedLines
		result.CoveredLines += file.CoveredLines
		result.Files = append(result.Files, file)
	}
	result.DiffCoverage = Percent(result.CoveredLines, result.TotalLines)
	result.Pass = float64(result.DiffCoverage) >= threshold
	return result
}

// Percent rounds half up. No changed lines counts as fully covered.
func Percent(covered, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Floor(float64(covered)*100/float64(total) + 0.5))
}

// coveredLines unions the recorded lines of path and reports whether any
// record matched it at all.
func coveredLines(path string, records []schema.CoverageRecord) (map[int]struct{}, bool) {
	covered := map[int]struct{}{}
	touched := false
	for _, rec := range records {
		if !impact.MatchesPath(rec.File, path) {
			continue
		}
		touched = true
		for _, l := range rec.Lines {
			covered[l] = struct{}{}
		}
	}
	return covered, touched
}
