package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/tools/cover"
)

// ProfileCounterSource reads counters from a Go coverage profile written by
// one `go test -coverprofile` invocation. Resetting removes the profile so
// the next test starts from zero.
type ProfileCounterSource struct {
	ProfilePath string
	ModulePath  string // Import path prefix from go.mod
	ModuleDir   string // Directory holding go.mod
}

var _ CounterSource = &ProfileCounterSource{} // Compile-time check

// ReadModulePath returns the module path declared in dir/go.mod.
func ReadModulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("go.mod in %s has no module directive", dir)
	}
	return path, nil
}

// Reset implements the CounterSource interface.
func (s *ProfileCounterSource) Reset() error {
	if err := os.Remove(s.ProfilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Snapshot implements the CounterSource interface. A missing profile means
// the test executed nothing.
func (s *ProfileCounterSource) Snapshot() (Counters, error) {
	if _, err := os.Stat(s.ProfilePath); errors.Is(err, os.ErrNotExist) {
		return Counters{}, nil
	}
	profiles, err := cover.ParseProfiles(s.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse coverage profile: %w", err)
	}

	counters := Counters{}
	var partial *PartialError
	for _, profile := range profiles {
		file, err := s.resolve(profile.FileName)
		if err != nil {
			if partial == nil {
				partial = &PartialError{Files: map[string]error{}}
			}
			partial.Files[profile.FileName] = err
			continue
		}
		hits := counters[file]
		if hits == nil {
			hits = map[int]int{}
			counters[file] = hits
		}
		for _, block := range profile.Blocks {
			for line := block.StartLine; line <= block.EndLine; line++ {
				hits[line] += block.Count
			}
		}
	}
	if partial != nil {
		return counters, partial
	}
	return counters, nil
}

// resolve maps an import-path qualified profile entry to an absolute path.
func (s *ProfileCounterSource) resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	prefix := s.ModulePath + "/"
	if !strings.HasPrefix(name, prefix) {
		return "", fmt.Errorf("file is outside module %s", s.ModulePath)
	}
	return filepath.Join(s.ModuleDir, filepath.FromSlash(strings.TrimPrefix(name, prefix))), nil
}
