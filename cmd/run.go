package cmd

import (
	"github.com/huangsam/impactcov/core"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/spf13/cobra"
)

// runCmd runs only the impacted tests.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run only the tests impacted by the change",
	Long: `Resolve the impacted tests and run just those through the framework's own
selector (mocha --grep, jest/vitest -t, go test -run).

When nothing is impacted the full suite runs if --all-on-miss is set (default:
impact.fallbackRunAll). The run summary is written to .impactcov/last-run.json
and to --report, and the test command's exit status is preserved.

Examples:
  impactcov run
  impactcov run --since origin/release --report out/impactcov-run.json
  impactcov run --all-on-miss=false`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := core.RunOptions{}
		opts.Since, _ = cmd.Flags().GetString("since")
		files, _ := cmd.Flags().GetString("files")
		opts.Files = contract.SplitCommaList(files)
		opts.Report, _ = cmd.Flags().GetString("report")
		if cmd.Flags().Changed("all-on-miss") {
			allOnMiss, _ := cmd.Flags().GetBool("all-on-miss")
			opts.AllOnMiss = &allOnMiss
		}
		return core.ExecuteRun(rootCtx, cfg, newRuntime(), opts)
	},
}
