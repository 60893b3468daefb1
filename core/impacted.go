package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/impactcov/core/covmap"
	"github.com/huangsam/impactcov/core/impact"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/internal/outwriter"
	"github.com/huangsam/impactcov/schema"
)

// ImpactOptions selects where the changed-file set comes from.
// Files wins over Diff, which wins over Since.
type ImpactOptions struct {
	Since string
	Diff  string // Explicit revision range passed verbatim to git diff
	Files []string
}

// ExecuteImpacted resolves the impacted tests and prints the Impact Result.
func ExecuteImpacted(ctx context.Context, cfg *contract.Config, rt *Runtime, opts ImpactOptions) error {
	start := time.Now()
	result, err := GetImpactResult(ctx, cfg, rt, opts)
	if err != nil {
		return err
	}
	return outwriter.WriteImpactResult(result, cfg, time.Since(start))
}

// GetImpactResult computes the Impact Result without printing it.
func GetImpactResult(ctx context.Context, cfg *contract.Config, rt *Runtime, opts ImpactOptions) (schema.ImpactResult, error) {
	result, _, err := resolveImpact(ctx, cfg, rt, opts)
	return result, err
}

// resolveImpact is GetImpactResult that also hands back the loaded records.
func resolveImpact(ctx context.Context, cfg *contract.Config, rt *Runtime, opts ImpactOptions) (schema.ImpactResult, []schema.CoverageRecord, error) {
	base, changed, err := changedFiles(ctx, cfg, rt, opts)
	if err != nil {
		return schema.ImpactResult{}, nil, err
	}
	records, err := loadRecords(cfg.RepoPath)
	if err != nil {
		return schema.ImpactResult{}, nil, err
	}
	matches := impact.ResolveDetailed(changed, records)
	tests := make([]string, 0, len(matches))
	for _, m := range matches {
		tests = append(tests, m.TestID)
	}
	rt.logger().Debug("resolved impacted tests", "base", base, "changed", len(changed), "impacted", len(tests), "records", len(records))
	return schema.ImpactResult{
		Base:                base,
		Changed:             changed,
		ImpactedTests:       tests,
		CoverageRecordCount: len(records),
		Matches:             matches,
	}, records, nil
}

// changedFiles returns the base label and the changed-file set.
func changedFiles(ctx context.Context, cfg *contract.Config, rt *Runtime, opts ImpactOptions) (string, []string, error) {
	base := opts.Since
	if base == "" {
		base = cfg.Project.Since()
	}
	if len(opts.Files) > 0 {
		return base, opts.Files, nil
	}

	var (
		changed []string
		err     error
	)
	if opts.Diff != "" {
		base = opts.Diff
		changed, err = rt.Git.GetChangedFilesInRange(ctx, cfg.RepoPath, opts.Diff)
	} else {
		changed, err = rt.Git.GetChangedFiles(ctx, cfg.RepoPath, base)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to list changed files against %s: %w", base, err)
	}
	if changed == nil {
		changed = []string{}
	}
	return base, changed, nil
}

// loadRecords reads the whole coverage map under root.
func loadRecords(root string) ([]schema.CoverageRecord, error) {
	records, err := covmap.NewStore(contract.CoverageMapPath(root)).LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load coverage map: %w", err)
	}
	return records, nil
}
