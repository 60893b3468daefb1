package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/huangsam/impactcov/core/capture"
	"github.com/huangsam/impactcov/core/impact"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/internal/outwriter"
	"github.com/huangsam/impactcov/schema"
)

// RunOptions are the run command's switches.
type RunOptions struct {
	Since     string
	Files     []string
	AllOnMiss *bool  // Nil defers to impact.fallbackRunAll
	Report    string // Extra path for the run summary
}

// ExecuteRun runs only the impacted tests, or the full suite when nothing is
// impacted and fallback is on. The summary is persisted before a failing test
// status is returned as an ExitError.
func ExecuteRun(ctx context.Context, cfg *contract.Config, rt *Runtime, opts RunOptions) error {
	start := time.Now()
	project := &cfg.Project
	result, records, err := resolveImpact(ctx, cfg, rt, ImpactOptions{Since: opts.Since, Files: opts.Files})
	if err != nil {
		return err
	}

	fallback := project.FallbackRunAll()
	if opts.AllOnMiss != nil {
		fallback = *opts.AllOnMiss
	}
	summary := schema.RunSummary{Base: result.Base, ImpactedTests: result.ImpactedTests}
	out := rt.stdout()

	if len(result.ImpactedTests) == 0 {
		if !fallback {
			if _, err := fmt.Fprintln(out, "No impacted tests found; nothing to run."); err != nil {
				return err
			}
			summary.DurationMs = time.Since(start).Milliseconds()
			return persistRunSummary(cfg, summary, opts.Report)
		}
		if _, err := fmt.Fprintln(out, "No impacted tests found; falling back to running all tests."); err != nil {
			return err
		}
		summary.RanAll = true
	}

	name, args, err := contract.SplitCommand(project.Test.Command)
	if err != nil {
		return err
	}
	framework := capture.DetectFramework(project.Test.Framework, project.Test.Command)
	if !summary.RanAll {
		selector, ok := SelectorArgs(framework, result.ImpactedTests)
		if ok {
			args = append(args, selector...)
		} else {
			warn(rt, fmt.Sprintf("Unknown framework %q; cannot select tests, running the full suite.", project.Test.Framework))
			summary.RanAll = true
		}
	}

	tracker := beginTracking(rt, schema.TestRun, map[string]any{
		"framework": string(framework),
		"base":      result.Base,
		"ran_all":   summary.RanAll,
		"repo_path": cfg.RepoPath,
	})
	rt.logger().Info("running impacted tests", "command", name, "args", args, "impacted", len(result.ImpactedTests), "ran_all", summary.RanAll)
	code, err := rt.Runner.Run(ctx, contract.ProcessSpec{
		Name:   name,
		Args:   args,
		Dir:    cfg.RepoPath,
		Env:    contract.MergeEnv(project.Test.Env),
		Stdout: out,
		Stderr: rt.stderr(),
	})
	if err != nil {
		tracker.end(schema.ExitFatal, 0, len(result.ImpactedTests))
		return fmt.Errorf("failed to run test command: %w", err)
	}

	if !summary.RanAll {
		summary.TestsRun = len(result.ImpactedTests)
		summary.TestsSkipped = max(impact.Summarize(records).Tests-summary.TestsRun, 0)
	}
	summary.ExitCode = code
	duration := time.Since(start)
	summary.DurationMs = duration.Milliseconds()
	tracker.end(code, 0, summary.TestsRun)

	if err := persistRunSummary(cfg, summary, opts.Report); err != nil {
		return err
	}
	if err := outwriter.WriteRunSummary(summary, cfg, duration); err != nil {
		return err
	}
	if code != 0 {
		contract.LogWarn("Test command exited non-zero", fmt.Errorf("preserving status %d for CI diagnostics", code))
		return contract.NewExitError(code, fmt.Errorf("test command exited with status %d", code))
	}
	return nil
}

// SelectorArgs builds the arguments that restrict a runner to testIDs.
// Titles are regex-quoted; Go IDs are "<import path>/<TestName>".
func SelectorArgs(framework schema.Framework, testIDs []string) ([]string, bool) {
	if len(testIDs) == 0 {
		return nil, true
	}
	switch framework {
	case schema.MochaFramework:
		return []string{"--grep", quoteAlternation(testIDs)}, true
	case schema.JestFramework, schema.VitestFramework:
		return []string{"-t", quoteAlternation(testIDs)}, true
	case schema.GoFramework:
		names := make([]string, 0, len(testIDs))
		for _, id := range testIDs {
			names = append(names, id[strings.LastIndex(id, "/")+1:])
		}
		return []string{"-run", "^(" + quoteAlternation(names) + ")$"}, true
	default:
		return nil, false
	}
}

func quoteAlternation(items []string) string {
	quoted := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		quoted = append(quoted, regexp.QuoteMeta(item))
	}
	return strings.Join(quoted, "|")
}

// persistRunSummary writes last-run.json and the optional --report copy.
func persistRunSummary(cfg *contract.Config, summary schema.RunSummary, report string) error {
	if err := writeJSONFile(contract.LastRunPath(cfg.RepoPath), summary); err != nil {
		return err
	}
	if report == "" {
		return nil
	}
	if !filepath.IsAbs(report) {
		report = filepath.Join(cfg.RepoPath, report)
	}
	return writeJSONFile(report, summary)
}

// writeJSONFile writes v as indented JSON, creating parent directories.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
