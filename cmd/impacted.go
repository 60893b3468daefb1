package cmd

import (
	"github.com/huangsam/impactcov/core"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
	"github.com/spf13/cobra"
)

// impactedCmd lists the tests affected by a change.
var impactedCmd = &cobra.Command{
	Use:   "impacted",
	Short: "List the tests whose recorded coverage touches the changed files",
	Long: `Resolve the changed files against the coverage map and print the impacted tests.

Changed files come from --files when given, else from git diff over --diff, else
from git diff against --since (default impact.defaultSince).

Examples:
  impactcov impacted --json
  impactcov impacted --since v1.4.0
  impactcov impacted --diff main..feature
  impactcov impacted --files src/math.ts,src/strings.ts`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := core.ImpactOptions{}
		opts.Since, _ = cmd.Flags().GetString("since")
		opts.Diff, _ = cmd.Flags().GetString("diff")
		files, _ := cmd.Flags().GetString("files")
		opts.Files = contract.SplitCommaList(files)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			cfg.Output = schema.JSONOut
		}
		return core.ExecuteImpacted(rootCtx, cfg, newRuntime(), opts)
	},
}
