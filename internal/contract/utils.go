package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Well-known file names. Everything impactcov writes lives under DotDirName.
const (
	ConfigFileName      = "impactcov.config.json"
	DotDirName          = ".impactcov"
	CoverageMapFileName = "coverage-map.jsonl"
	ReportFileName      = "report.json"
	LastRunFileName     = "last-run.json"
	HistoryDBFileName   = "history.db"
	LogFileName         = "impactcov.log"
)

// Gate label constants.
const (
	PassValue = "PASS"
	FailValue = "FAIL"
)

// Color variables for console output.
var (
	PassColor = color.New(color.FgGreen, color.Bold)
	FailColor = color.New(color.FgRed, color.Bold)
	InfoColor = color.New(color.FgCyan)
)

// GetPlainLabel returns PASS or FAIL.
func GetPlainLabel(pass bool) string {
	if pass {
		return PassValue
	}
	return FailValue
}

// GetColorLabel returns a colored PASS or FAIL label for console output (table).
func GetColorLabel(pass bool) string {
	if pass {
		return PassColor.Sprint(PassValue)
	}
	return FailColor.Sprint(FailValue)
}

// DotDir returns the tool directory under the project root.
func DotDir(root string) string {
	return filepath.Join(root, DotDirName)
}

// CoverageMapPath returns the path of the JSONL coverage map.
func CoverageMapPath(root string) string {
	return filepath.Join(root, DotDirName, CoverageMapFileName)
}

// ReportPath returns the path of the upload report.
func ReportPath(root string) string {
	return filepath.Join(root, DotDirName, ReportFileName)
}

// LastRunPath returns the path of the last run summary.
func LastRunPath(root string) string {
	return filepath.Join(root, DotDirName, LastRunFileName)
}

// HistoryDBPath returns the path of the SQLite run-history database.
func HistoryDBPath(root string) string {
	return filepath.Join(root, DotDirName, HistoryDBFileName)
}

// LogPath returns the default log file path.
func LogPath(root string) string {
	return filepath.Join(root, DotDirName, LogFileName)
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 so there is room for the "..." prefix and at least one rune.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// SplitCommaList splits a comma-separated flag value, dropping empty items.
func SplitCommaList(s string) []string {
	var items []string
	for item := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// SplitCommand splits a configured command line on whitespace.
// Quoting is not interpreted.
func SplitCommand(command string) (string, []string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("test command is empty")
	}
	return fields[0], fields[1:], nil
}
