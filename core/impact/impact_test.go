package impact

import (
	"testing"

	"github.com/huangsam/impactcov/schema"
	"github.com/stretchr/testify/assert"
)

func TestMatchesPath(t *testing.T) {
	tests := []struct {
		name     string
		recorded string
		changed  string
		want     bool
	}{
		{"absolute recorded path", "/abs/repo/src/a.ts", "src/a.ts", true},
		{"identical relative", "src/a.ts", "src/a.ts", true},
		{"windows separators", `C:\repo\src\a.ts`, "src/a.ts", true},
		{"dot prefix", "/repo/src/a.ts", "./src/a.ts", true},
		{"partial segment", "/repo/other/foo/bar.ts", "oo/bar.ts", false},
		{"prefix directory differs", "/repo/xsrc/a.ts", "src/a.ts", false},
		{"different file", "/repo/src/b.ts", "src/a.ts", false},
		{"empty changed", "/repo/src/a.ts", "", false},
		{"changed longer than recorded", "a.ts", "src/a.ts", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesPath(tt.recorded, tt.changed))
		})
	}
}

func TestResolve(t *testing.T) {
	records := []schema.CoverageRecord{
		{TestID: "T1", File: "fileA", Lines: []int{1, 2}},
		{TestID: "T2", File: "fileB", Lines: []int{5}},
	}

	assert.Equal(t, []string{"T1"}, Resolve([]string{"fileA"}, records))
	assert.ElementsMatch(t, []string{"T1", "T2"}, Resolve([]string{"fileB", "fileA"}, records))
	assert.Empty(t, Resolve([]string{}, records))
	assert.Empty(t, Resolve([]string{"fileC"}, records))
}

func TestResolve_AbsoluteRecord(t *testing.T) {
	records := []schema.CoverageRecord{{TestID: "T1", File: "/abs/repo/src/a.ts", Lines: []int{1, 2}}}
	assert.Equal(t, []string{"T1"}, Resolve([]string{"src/a.ts"}, records))
}

func TestResolve_DedupAndOrder(t *testing.T) {
	records := []schema.CoverageRecord{
		{TestID: "later", File: "/r/src/b.ts", Lines: []int{1}},
		{TestID: "first", File: "/r/src/a.ts", Lines: []int{1}},
		{TestID: "later", File: "/r/src/a.ts", Lines: []int{2}},
		{TestID: "first", File: "/r/src/a.ts", Lines: []int{3}},
	}
	got := Resolve([]string{"src/a.ts", "src/a.ts", "src/b.ts"}, records)
	assert.Equal(t, []string{"later", "first"}, got)

	detailed := ResolveDetailed([]string{"src/a.ts", "./src/a.ts", "src/b.ts"}, records)
	assert.Equal(t, []schema.TestMatch{
		{TestID: "later", Files: []string{"src/b.ts", "src/a.ts"}},
		{TestID: "first", Files: []string{"src/a.ts"}},
	}, detailed)
}

func TestTestsForFile(t *testing.T) {
	records := []schema.CoverageRecord{
		{TestID: "A", File: "/r/lib/x.js", Lines: []int{1}},
		{TestID: "B", File: "/r/lib/y.js", Lines: []int{1}},
	}
	assert.Equal(t, []string{"B"}, TestsForFile("lib/y.js", records))
}

func TestSummarize(t *testing.T) {
	records := []schema.CoverageRecord{
		{TestID: "A", File: "/r/x.js", Lines: []int{1, 2}},
		{TestID: "B", File: "/r/x.js", Lines: []int{2, 3}},
		{TestID: "B", File: "/r/y.js", Lines: []int{7}},
	}
	assert.Equal(t, schema.CoverageSummary{Records: 3, Tests: 2, Files: 2, Lines: 4}, Summarize(records))
	assert.Equal(t, schema.CoverageSummary{}, Summarize(nil))
}
