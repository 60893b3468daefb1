package cmd

import (
	"github.com/huangsam/impactcov/core"
	"github.com/spf13/cobra"
)

// uploadCmd publishes the build summary.
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Send the build summary to the ingest endpoint",
	Long: `Build a summary of this build (commit, branch, repo and the last run's stats),
save it to .impactcov/report.json and POST it to <endpoint>/ingest.

The upload is skipped when no endpoint is configured or upload.enabled is false.
Transport failures and non-2xx responses exit with status 11.

Examples:
  impactcov upload --build "$GITHUB_RUN_ID"
  impactcov upload --endpoint https://impact.example.com --token "$IMPACT_TOKEN"`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := core.UploadOptions{}
		opts.BuildID, _ = cmd.Flags().GetString("build")
		opts.Endpoint, _ = cmd.Flags().GetString("endpoint")
		opts.Token, _ = cmd.Flags().GetString("token")
		opts.CoverageMapURL, _ = cmd.Flags().GetString("coverage-map-url")
		opts.ResultsURL, _ = cmd.Flags().GetString("results-url")
		return core.ExecuteUpload(rootCtx, cfg, newRuntime(), opts)
	},
}
