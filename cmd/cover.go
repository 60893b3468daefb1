package cmd

import (
	"github.com/huangsam/impactcov/core"
	"github.com/huangsam/impactcov/core/capture"
	"github.com/spf13/cobra"
)

// coverCmd captures per-test coverage into the coverage map.
var coverCmd = &cobra.Command{
	Use:   "cover [test-pattern]",
	Short: "Run the test suite and record which lines each test executes",
	Long: `Run the configured test command with per-test coverage capture and append the
results to .impactcov/coverage-map.jsonl.

JavaScript runners get a generated setup script (Mocha hook, Jest setup file,
Vitest setup file with the istanbul provider). Go projects run each test in its
own process, spread across --workers.

A failing test run still updates the map. With --strict-provider, an
incompatible Vitest provider aborts with exit status 3.

Examples:
  impactcov cover
  impactcov cover src/math --no-filter
  impactcov cover --coverage-provider v8 --strict-provider`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := capture.Options{}
		if len(args) == 1 {
			opts.TestPattern = args[0]
		}
		opts.NoFilter, _ = cmd.Flags().GetBool("no-filter")
		opts.CoverageProvider, _ = cmd.Flags().GetString("coverage-provider")
		opts.StrictProvider, _ = cmd.Flags().GetBool("strict-provider")
		return core.ExecuteCover(rootCtx, cfg, newRuntime(), opts)
	},
}
