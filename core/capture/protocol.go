// Package capture attributes coverage to individual tests by resetting shared
// counters before each test and snapshotting them afterwards.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/huangsam/impactcov/schema"
)

// Counters maps a file path to its per-line hit counts.
type Counters map[string]map[int]int

// CounterSource exposes the instrumentation's shared counters.
type CounterSource interface {
	// Reset zeroes every counter while keeping the set of known files.
	Reset() error
	// Snapshot returns the current counters. A *PartialError means some
	// files could not be read; the returned counters are still usable.
	Snapshot() (Counters, error)
}

// PartialError reports files whose counters could not be computed.
type PartialError struct {
	Files map[string]error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("coverage unavailable for %d file(s)", len(e.Files))
}

// Sink receives the records for one finished test.
type Sink interface {
	Append(records []schema.CoverageRecord) error
}

// Result is the outcome of capturing one test. Failures never propagate
// beyond it: FileErrors holds per-file problems and Err a whole-test one.
type Result struct {
	TestID     string
	Records    []schema.CoverageRecord
	FileErrors map[string]error
	Err        error
}

// OK reports whether the capture had no failures at all.
func (r Result) OK() bool {
	return r.Err == nil && len(r.FileErrors) == 0
}

// Protocol runs reset-run-snapshot around each test.
type Protocol struct {
	source CounterSource
	filter *Filter
	sink   Sink
	logger *slog.Logger
}

// NewProtocol wires a counter source, filter and sink together. A nil
// filter records every file; a nil logger discards diagnostics.
func NewProtocol(source CounterSource, filter *Filter, sink Sink, logger *slog.Logger) *Protocol {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Protocol{source: source, filter: filter, sink: sink, logger: logger}
}

// BeforeTest zeroes the shared counters.
func (p *Protocol) BeforeTest() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("counter reset panicked: %v", r)
		}
	}()
	if err = p.source.Reset(); err != nil {
		p.logger.Warn("coverage reset failed", "error", err)
	}
	return err
}

// AfterTest converts the counters into records for testID and appends them.
// It runs regardless of the test outcome and never panics.
func (p *Protocol) AfterTest(testID string) (res Result) {
	res.TestID = testID
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("coverage capture panicked: %v", r)
		}
		if res.Err != nil {
			p.logger.Warn("coverage capture failed", "test", testID, "error", res.Err)
		}
		for file, err := range res.FileErrors {
			p.logger.Warn("coverage skipped for file", "test", testID, "file", file, "error", err)
		}
	}()

	counters, err := p.source.Snapshot()
	var partial *PartialError
	if errors.As(err, &partial) {
		res.FileErrors = maps.Clone(partial.Files)
	} else if err != nil {
		res.Err = fmt.Errorf("snapshot failed: %w", err)
		return res
	}

	res.Records = p.buildRecords(testID, counters, &res)
	if len(res.Records) == 0 {
		return res
	}
	if err := p.sink.Append(res.Records); err != nil {
		res.Err = fmt.Errorf("append failed: %w", err)
	}
	return res
}

// buildRecords emits one record per eligible file with at least one hit line.
// Files are visited in sorted order so output is deterministic.
func (p *Protocol) buildRecords(testID string, counters Counters, res *Result) []schema.CoverageRecord {
	var records []schema.CoverageRecord
	for _, file := range slices.Sorted(maps.Keys(counters)) {
		rec, err := p.recordFor(testID, file, counters[file])
		if err != nil {
			if res.FileErrors == nil {
				res.FileErrors = map[string]error{}
			}
			res.FileErrors[file] = err
			continue
		}
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

func (p *Protocol) recordFor(testID, file string, hits map[int]int) (rec *schema.CoverageRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("line coverage panicked: %v", r)
		}
	}()
	if p.filter != nil && !p.filter.Eligible(file) {
		return nil, nil
	}
	var lines []int
	for line, count := range hits {
		if line <= 0 {
			return nil, fmt.Errorf("invalid line number %d", line)
		}
		if count > 0 {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}
	slices.Sort(lines)
	return &schema.CoverageRecord{TestID: testID, File: file, Lines: lines}, nil
}
