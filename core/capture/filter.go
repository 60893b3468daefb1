package capture

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Structural exclusions applied regardless of configured globs.
var (
	testDirPattern   = regexp.MustCompile(`(?i)(^|/)__(tests|mocks)__(/|$)`)
	plainTestDir     = regexp.MustCompile(`(?i)(^|/)test(/|$)`)
	testFilePattern  = regexp.MustCompile(`(?i)\.(test|spec)\.[jt]sx?$`)
	goTestFileSuffix = "_test.go"
)

// Filter decides which instrumented files may produce coverage records.
type Filter struct {
	Root     string   // Project root; files outside it are never recorded
	Include  []string // Doublestar globs over slash-separated relative paths
	Exclude  []string
	NoFilter bool // Bypass Include and Exclude, not the structural checks
}

// Validate reports malformed globs up front so Eligible never sees them.
func (f *Filter) Validate() error {
	for _, pattern := range append(append([]string{}, f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}
	return nil
}

// Rel converts a file path into a slash-separated path relative to Root.
// Relative inputs are taken as already relative to Root.
func (f *Filter) Rel(file string) string {
	path := file
	if filepath.IsAbs(file) && f.Root != "" {
		rel, err := filepath.Rel(f.Root, file)
		if err != nil {
			return ".."
		}
		path = rel
	}
	path = filepath.ToSlash(filepath.Clean(path))
	return strings.TrimPrefix(path, "./")
}

// Eligible reports whether a file may be recorded.
func (f *Filter) Eligible(file string) bool {
	rel := f.Rel(file)
	if rel == "" || rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	if isStructurallyExcluded(rel) {
		return false
	}
	if f.NoFilter {
		return true
	}
	if matchAny(f.Exclude, rel) {
		return false
	}
	if len(f.Include) == 0 {
		return true
	}
	return matchAny(f.Include, rel)
}

func isStructurallyExcluded(rel string) bool {
	switch {
	case strings.Contains(rel, "node_modules/"):
		return true
	case testDirPattern.MatchString(rel), plainTestDir.MatchString(rel):
		return true
	case testFilePattern.MatchString(rel), strings.HasSuffix(rel, goTestFileSuffix):
		return true
	}
	return false
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
