package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/huangsam/impactcov/core/capture"
	"github.com/huangsam/impactcov/core/covmap"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
)

// coverOutcome is what a capture strategy reports back to ExecuteCover.
type coverOutcome struct {
	exitCode int
	tests    int
}

// ExecuteCover runs the configured test command with per-test capture and
// appends the resulting records to the coverage map. A failing test run is
// warned about; the map is updated either way.
func ExecuteCover(ctx context.Context, cfg *contract.Config, rt *Runtime, opts capture.Options) error {
	start := time.Now()
	project := &cfg.Project
	store := covmap.NewStore(contract.CoverageMapPath(cfg.RepoPath))
	before, err := store.Count()
	if err != nil {
		return err
	}

	framework := capture.DetectFramework(project.Test.Framework, project.Test.Command)
	tracker := beginTracking(rt, schema.CoverRun, map[string]any{
		"framework":    string(framework),
		"command":      project.Test.Command,
		"test_pattern": opts.TestPattern,
		"no_filter":    opts.NoFilter,
		"repo_path":    cfg.RepoPath,
	})

	var outcome coverOutcome
	if framework == schema.GoFramework {
		outcome, err = runGoCover(ctx, cfg, rt, store, opts)
	} else {
		outcome, err = runScriptedCover(ctx, cfg, rt, opts)
	}
	if err != nil {
		tracker.end(schema.ExitFatal, 0, 0)
		if errors.Is(err, capture.ErrIncompatibleProvider) {
			return contract.NewExitError(schema.ExitProviderMismatch, err)
		}
		return err
	}
	if outcome.exitCode != 0 {
		contract.LogWarn("Test command exited non-zero", fmt.Errorf("status %d; coverage map still updated", outcome.exitCode))
	}

	appended := appendedSince(store, before)
	tracker.recordCoverage(appended)
	tracker.end(outcome.exitCode, len(appended), outcome.tests)

	duration := time.Since(start)
	rt.logger().Info("cover finished", "framework", framework, "records", len(appended), "exit_code", outcome.exitCode, "duration", duration)
	mapPath := filepath.ToSlash(filepath.Join(contract.DotDirName, contract.CoverageMapFileName))
	_, err = fmt.Fprintf(rt.stdout(), "Per-test coverage map updated at %s (run took %dms)\n", mapPath, duration.Milliseconds())
	return err
}

// runScriptedCover plans a JavaScript runner invocation and executes it once.
func runScriptedCover(ctx context.Context, cfg *contract.Config, rt *Runtime, opts capture.Options) (coverOutcome, error) {
	if err := newFilter(cfg, opts.NoFilter).Validate(); err != nil {
		return coverOutcome{}, err
	}
	inv, err := capture.PlanInvocation(&cfg.Project, cfg.RepoPath, opts)
	if err != nil {
		return coverOutcome{}, err
	}
	for _, w := range inv.Warnings {
		warn(rt, w)
	}
	rt.logger().Info("running test command",
		"framework", inv.Framework, "adapter", inv.Kind, "mapped", inv.Mapped,
		"command", inv.Name, "args", inv.Args, "script", inv.Script)

	code, err := rt.Runner.Run(ctx, contract.ProcessSpec{
		Name:   inv.Name,
		Args:   inv.Args,
		Dir:    cfg.RepoPath,
		Env:    contract.MergeEnv(inv.Env),
		Stdout: rt.stdout(),
		Stderr: rt.stderr(),
	})
	if err != nil {
		return coverOutcome{}, fmt.Errorf("failed to run test command: %w", err)
	}
	return coverOutcome{exitCode: code}, nil
}

// runGoCover captures each Go test in its own process.
func runGoCover(ctx context.Context, cfg *contract.Config, rt *Runtime, store *covmap.Store, opts capture.Options) (coverOutcome, error) {
	filter := newFilter(cfg, opts.NoFilter)
	if err := filter.Validate(); err != nil {
		return coverOutcome{}, err
	}
	env := contract.MergeEnv(cfg.Project.Test.Env)
	runner, warnings, err := capture.NewGoRunner(cfg.RepoPath, &cfg.Project, cfg.Workers, filter, store, rt.Runner, env, opts.StrictProvider, rt.logger())
	if err != nil {
		return coverOutcome{}, err
	}
	for _, w := range warnings {
		warn(rt, w)
	}

	tests, err := runner.Discover(ctx, opts.TestPattern)
	if err != nil {
		return coverOutcome{}, err
	}
	summary, err := runner.Run(ctx, tests)
	if err != nil {
		return coverOutcome{}, err
	}
	if _, err := fmt.Fprintf(rt.stdout(), "Captured %d Go tests with %d workers (%d failed, %d records, %d capture errors)\n",
		summary.Tests, runner.Workers, summary.Failed, summary.Records, len(summary.Failures)); err != nil {
		return coverOutcome{}, err
	}
	outcome := coverOutcome{tests: summary.Tests}
	if summary.Failed > 0 {
		outcome.exitCode = 1
	}
	return outcome, nil
}

// appendedSince returns the records beyond the first before entries.
func appendedSince(store *covmap.Store, before int) []schema.CoverageRecord {
	records, err := store.LoadAll()
	if err != nil || len(records) <= before {
		return nil
	}
	return records[before:]
}

// newFilter builds the capture filter from the project config.
func newFilter(cfg *contract.Config, noFilter bool) *capture.Filter {
	return &capture.Filter{
		Root:     cfg.RepoPath,
		Include:  cfg.Project.Coverage.Include,
		Exclude:  cfg.Project.Excludes(),
		NoFilter: noFilter,
	}
}

// warn prints a user-facing warning and mirrors it to the log file.
func warn(rt *Runtime, msg string) {
	rt.logger().Warn(msg)
	_, _ = fmt.Fprintf(rt.stderr(), "Warn: %s\n", msg)
}
