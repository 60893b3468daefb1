// Package covmap persists per-test coverage records as line-delimited JSON.
package covmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/huangsam/impactcov/schema"
)

// Store is an append-only coverage map backed by one JSONL file.
// Records are never rewritten; discarding the file is the only way to reset it.
type Store struct {
	path string
	mu   sync.Mutex // serializes appends from goroutines in this process
}

// NewStore returns a store for the given map file. The file is created lazily.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Append writes records as JSON lines using a single write call.
// Appending nothing is a no-op and does not create the file.
func (s *Store) Append(records []schema.CoverageRecord) error {
	if len(records) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record for %s: %w", rec.TestID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create coverage map directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open coverage map: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to coverage map: %w", err)
	}
	return f.Close()
}

// LoadAll reads every valid record in file order. A missing file yields no
// records and no error. Malformed or schema-invalid lines are skipped.
func (s *Store) LoadAll() ([]schema.CoverageRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []schema.CoverageRecord{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read coverage map: %w", err)
	}
	return Parse(data), nil
}

// Count returns the number of valid records currently stored.
func (s *Store) Count() (int, error) {
	records, err := s.LoadAll()
	return len(records), err
}

// Parse decodes JSONL content, dropping lines that are not valid records.
func Parse(data []byte) []schema.CoverageRecord {
	records := []schema.CoverageRecord{}
	for line := range bytes.SplitSeq(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if rec, ok := parseLine(line); ok {
			records = append(records, rec)
		}
	}
	return records
}

// parseLine validates shape before converting: testId and file must be
// strings, lines when present must be an array of numbers.
func parseLine(line []byte) (schema.CoverageRecord, bool) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return schema.CoverageRecord{}, false
	}
	testID, ok := raw["testId"].(string)
	if !ok {
		return schema.CoverageRecord{}, false
	}
	file, ok := raw["file"].(string)
	if !ok {
		return schema.CoverageRecord{}, false
	}
	rec := schema.CoverageRecord{TestID: testID, File: file}

	rawLines, present := raw["lines"]
	if !present {
		return rec, true
	}
	items, ok := rawLines.([]any)
	if !ok {
		return schema.CoverageRecord{}, false
	}
	rec.Lines = make([]int, 0, len(items))
	for _, item := range items {
		n, ok := item.(float64)
		if !ok {
			return schema.CoverageRecord{}, false
		}
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			continue // not a usable line number
		}
		rec.Lines = append(rec.Lines, int(n))
	}
	return rec, true
}
