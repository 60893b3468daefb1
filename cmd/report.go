package cmd

import (
	"github.com/huangsam/impactcov/core"
	"github.com/spf13/cobra"
)

// reportCmd groups the read-only coverage map reports.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report on the coverage map",
	Long: `Report on what the coverage map knows.

Subcommands:
  diff-coverage - Gate on the share of changed lines executed by any test
  summary       - Count records, tests, files and lines in the map
  file          - List the tests that executed a file`,
}

// reportDiffCoverageCmd is the CI gate.
var reportDiffCoverageCmd = &cobra.Command{
	Use:   "diff-coverage",
	Short: "Fail when too few changed lines are covered by recorded tests",
	Long: `Compute the percentage of added, non-blank lines since --since that at least one
recorded test executed. Exits with status 2 when it is below --threshold.

Examples:
  impactcov report diff-coverage
  impactcov report diff-coverage --since origin/main --threshold 90 --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := core.DiffCoverageOptions{}
		opts.Since, _ = cmd.Flags().GetString("since")
		if cmd.Flags().Changed("threshold") {
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			opts.Threshold = &threshold
		}
		return core.ExecuteDiffCoverage(rootCtx, cfg, newRuntime(), opts)
	},
}

var reportSummaryCmd = &cobra.Command{
	Use:     "summary",
	Short:   "Summarize the coverage map",
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteCoverageSummary(cfg)
	},
}

var reportFileCmd = &cobra.Command{
	Use:     "file <path>",
	Short:   "List the tests that executed a file",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		return core.ExecuteTestsForFile(cfg, args[0])
	},
}
