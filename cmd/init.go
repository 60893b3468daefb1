package cmd

import (
	"github.com/huangsam/impactcov/core"
	"github.com/huangsam/impactcov/schema"
	"github.com/spf13/cobra"
)

// initCmd writes the starter project config.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter impactcov.config.json",
	Long: `Write a starter impactcov.config.json into the project root.

The default flavor targets Jest ("npm test --") with istanbul per-test coverage,
a diff-coverage threshold of 85% and uploads enabled. Use --framework go for a
Go-native project ("go test ./..."). An existing config is never overwritten.

Examples:
  impactcov init
  impactcov init --framework go --dir services/api`,
	Args:    cobra.NoArgs,
	PreRunE: dirSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		framework, _ := cmd.Flags().GetString("framework")
		return core.ExecuteInit(cfg.RepoPath, schema.Framework(framework), cmd.OutOrStdout())
	},
}
