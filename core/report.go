package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/impactcov/core/diffcov"
	"github.com/huangsam/impactcov/core/impact"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/internal/outwriter"
	"github.com/huangsam/impactcov/schema"
)

// DiffCoverageOptions are the report diff-coverage switches.
type DiffCoverageOptions struct {
	Since     string
	Threshold *float64 // Nil defers to impact.diffCoverageThreshold
}

// ExecuteDiffCoverage evaluates changed-line coverage and prints the verdict.
// It runs as a CI gate: a failing verdict returns an ExitError with status 2.
func ExecuteDiffCoverage(ctx context.Context, cfg *contract.Config, rt *Runtime, opts DiffCoverageOptions) error {
	start := time.Now()
	result, err := GetDiffCoverageResult(ctx, cfg, rt, opts)
	if err != nil {
		return err
	}
	if err := outwriter.WriteDiffCoverage(result, cfg, time.Since(start)); err != nil {
		return err
	}
	if !result.Pass {
		return contract.NewExitError(schema.ExitDiffCoverageFailed,
			fmt.Errorf("diff coverage %d%% is below threshold %g%%", result.DiffCoverage, result.Threshold))
	}
	return nil
}

// GetDiffCoverageResult computes the diff-coverage verdict without printing it.
func GetDiffCoverageResult(ctx context.Context, cfg *contract.Config, rt *Runtime, opts DiffCoverageOptions) (schema.DiffCoverageResult, error) {
	base := opts.Since
	if base == "" {
		base = cfg.Project.Since()
	}
	threshold := cfg.Project.Threshold()
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	if threshold < 0 || threshold > 100 {
		return schema.DiffCoverageResult{}, fmt.Errorf("threshold must be between 0 and 100 (received %g)", threshold)
	}

	unified, err := rt.Git.GetUnifiedDiff(ctx, cfg.RepoPath, base)
	if err != nil {
		return schema.DiffCoverageResult{}, fmt.Errorf("failed to diff against %s: %w", base, err)
	}
	changes, err := diffcov.ParseChangedLines(unified)
	if err != nil {
		return schema.DiffCoverageResult{}, err
	}
	records, err := loadRecords(cfg.RepoPath)
	if err != nil {
		return schema.DiffCoverageResult{}, err
	}

	filter := newFilter(cfg, false)
	if err := filter.Validate(); err != nil {
		return schema.DiffCoverageResult{}, err
	}
	evaluate := diffcov.Evaluate
	if cfg.Project.Granularity() == "file" {
		evaluate = diffcov.EvaluateFiles
	}
	result := evaluate(changes, records, threshold, filter.Eligible)
	result.Base = base
	return result, nil
}

// GetTestsForFile lists the recorded tests that touched file.
func GetTestsForFile(cfg *contract.Config, file string) ([]string, error) {
	records, err := loadRecords(cfg.RepoPath)
	if err != nil {
		return nil, err
	}
	return impact.TestsForFile(file, records), nil
}

// GetCoverageSummary counts what the coverage map currently holds.
func GetCoverageSummary(cfg *contract.Config) (schema.CoverageSummary, error) {
	records, err := loadRecords(cfg.RepoPath)
	if err != nil {
		return schema.CoverageSummary{}, err
	}
	return impact.Summarize(records), nil
}

// ExecuteCoverageSummary prints the coverage map summary.
func ExecuteCoverageSummary(cfg *contract.Config) error {
	summary, err := GetCoverageSummary(cfg)
	if err != nil {
		return err
	}
	return outwriter.WriteCoverageSummary(summary, cfg)
}

// ExecuteTestsForFile prints the tests that touched file.
func ExecuteTestsForFile(cfg *contract.Config, file string) error {
	tests, err := GetTestsForFile(cfg, file)
	if err != nil {
		return err
	}
	return outwriter.WriteTestsForFile(file, tests, cfg)
}
