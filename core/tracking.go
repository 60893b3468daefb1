package core

import (
	"time"

	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
)

// runTracker mirrors one cover/run invocation into the history store.
// A nil store or a failed BeginRun turns every method into a no-op.
type runTracker struct {
	store contract.HistoryStore
	runID int64
}

// beginTracking starts a history run. Tracking failures only warn.
func beginTracking(rt *Runtime, kind schema.RunKind, params map[string]any) *runTracker {
	t := &runTracker{store: rt.historyStore()}
	if t.store == nil {
		return t
	}
	id, err := t.store.BeginRun(kind, time.Now(), params)
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		t.store = nil
		return t
	}
	t.runID = id
	return t
}

func (t *runTracker) active() bool {
	return t.store != nil && t.runID > 0
}

// recordCoverage stores the records appended during this run.
func (t *runTracker) recordCoverage(records []schema.CoverageRecord) {
	if !t.active() || len(records) == 0 {
		return
	}
	if err := t.store.RecordCoverage(t.runID, records); err != nil {
		contract.LogWarn("Failed to record coverage history", err)
	}
}

// end finalizes the run.
func (t *runTracker) end(exitCode, recordsWritten, testsSelected int) {
	if !t.active() {
		return
	}
	if err := t.store.EndRun(t.runID, time.Now(), exitCode, recordsWritten, testsSelected); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}
