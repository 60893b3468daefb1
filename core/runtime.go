// Package core has the orchestration logic behind every impactcov command.
package core

import (
	"io"
	"log/slog"
	"os"

	"github.com/huangsam/impactcov/internal/contract"
)

// Runtime bundles the collaborators the Execute* entrypoints talk to.
// Tests swap in the contract mocks.
type Runtime struct {
	Git      contract.GitClient
	Runner   contract.ProcessRunner
	Uploader contract.UploadSink
	History  contract.HistoryManager // Optional; nil disables run tracking
	Logger   *slog.Logger
	Stdout   io.Writer
	Stderr   io.Writer
}

// NewRuntime wires the local git binary, process runner and HTTP upload sink.
func NewRuntime(history contract.HistoryManager, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runtime{
		Git:      contract.NewLocalGitClient(),
		Runner:   contract.NewLocalProcessRunner(),
		Uploader: contract.NewHTTPUploadSink(),
		History:  history,
		Logger:   logger,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

func (rt *Runtime) logger() *slog.Logger {
	if rt.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return rt.Logger
}

func (rt *Runtime) stdout() io.Writer {
	if rt.Stdout == nil {
		return os.Stdout
	}
	return rt.Stdout
}

func (rt *Runtime) stderr() io.Writer {
	if rt.Stderr == nil {
		return os.Stderr
	}
	return rt.Stderr
}

// historyStore returns the run-history store, or nil when tracking is off.
func (rt *Runtime) historyStore() contract.HistoryStore {
	if rt.History == nil {
		return nil
	}
	return rt.History.GetHistoryStore()
}
