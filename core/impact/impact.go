// Package impact maps changed files to the tests that covered them.
package impact

import (
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/huangsam/impactcov/schema"
)

// Normalize cleans a path and converts it to forward slashes so recorded
// paths from any OS compare the same way.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return ""
	}
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "./")
}

// MatchesPath reports whether recorded ends with changed on a path-segment
// boundary. "src/a.ts" matches "/repo/src/a.ts" but not "/repo/xsrc/a.ts".
func MatchesPath(recorded, changed string) bool {
	recorded, changed = Normalize(recorded), Normalize(changed)
	if changed == "" || changed == "." {
		return false
	}
	if recorded == changed {
		return true
	}
	if !strings.HasSuffix(recorded, changed) {
		return false
	}
	if strings.HasPrefix(changed, "/") {
		return true
	}
	return recorded[len(recorded)-len(changed)-1] == '/'
}

// normalizeChanged deduplicates changed files, keeping first-seen order.
func normalizeChanged(changed []string) []string {
	seen := make(map[string]struct{}, len(changed))
	out := make([]string, 0, len(changed))
	for _, c := range changed {
		n := Normalize(c)
		if n == "" || n == "." {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Resolve returns the impacted test IDs in order of first match.
func Resolve(changed []string, records []schema.CoverageRecord) []string {
	matches := ResolveDetailed(changed, records)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.TestID)
	}
	return ids
}

// ResolveDetailed is Resolve plus the changed files that implicated each test.
func ResolveDetailed(changed []string, records []schema.CoverageRecord) []schema.TestMatch {
	files := normalizeChanged(changed)
	if len(files) == 0 {
		return []schema.TestMatch{}
	}
	index := map[string]int{}
	matches := []schema.TestMatch{}
	for _, rec := range records {
		for _, file := range files {
			if !MatchesPath(rec.File, file) {
				continue
			}
			i, ok := index[rec.TestID]
			if !ok {
				i = len(matches)
				index[rec.TestID] = i
				matches = append(matches, schema.TestMatch{TestID: rec.TestID})
			}
			if !slices.Contains(matches[i].Files, file) {
				matches[i].Files = append(matches[i].Files, file)
			}
		}
	}
	return matches
}

// TestsForFile returns the tests whose records touch file.
func TestsForFile(file string, records []schema.CoverageRecord) []string {
	return Resolve([]string{file}, records)
}

// Summarize counts distinct tests, files and covered lines in records.
func Summarize(records []schema.CoverageRecord) schema.CoverageSummary {
	tests := map[string]struct{}{}
	files := map[string]map[int]struct{}{}
	for _, rec := range records {
		tests[rec.TestID] = struct{}{}
		key := Normalize(rec.File)
		if files[key] == nil {
			files[key] = map[int]struct{}{}
		}
		for _, l := range rec.Lines {
			files[key][l] = struct{}{}
		}
	}
	lines := 0
	for _, set := range files {
		lines += len(set)
	}
	return schema.CoverageSummary{Records: len(records), Tests: len(tests), Files: len(files), Lines: lines}
}
