// Package cmd defines the command-line interface for impactcov.
package cmd

import (
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(coverCmd)
	rootCmd.AddCommand(impactedCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the report subcommands to the parent report command
	reportCmd.AddCommand(reportDiffCoverageCmd)
	reportCmd.AddCommand(reportSummaryCmd)
	reportCmd.AddCommand(reportFileCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to impactcov.config.json (default: <dir>/impactcov.config.json)")
	rootCmd.PersistentFlags().String("dir", ".", "Project root directory")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("history-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Logging flags map onto the log.* settings keys
	rootCmd.PersistentFlags().String("log-file", "", "Diagnostic log file (default: <dir>/.impactcov/impactcov.log)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")
	if err := viper.BindPFlag(logFilenameKey, rootCmd.PersistentFlags().Lookup("log-file")); err != nil {
		contract.LogFatal("Error binding log-file flag", err)
	}
	if err := viper.BindPFlag(logVerboseKey, rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		contract.LogFatal("Error binding verbose flag", err)
	}

	initCmd.Flags().String("framework", string(schema.JestFramework), "Starter config flavor: jest or go")

	coverCmd.Flags().Bool("no-filter", false, "Record every instrumented file, ignoring include/exclude globs")
	coverCmd.Flags().String("coverage-provider", contract.DefaultVitestProvider, "Vitest coverage provider")
	coverCmd.Flags().Bool("strict-provider", false, "Fail when the coverage provider cannot produce per-test coverage")
	coverCmd.Flags().Int("workers", contract.DefaultWorkers, "Number of concurrent Go test workers")
	if err := viper.BindPFlag("workers", coverCmd.Flags().Lookup("workers")); err != nil {
		contract.LogFatal("Error binding cover flags", err)
	}

	impactedCmd.Flags().String("since", "", "Git ref to diff against (default: impact.defaultSince)")
	impactedCmd.Flags().String("diff", "", "Explicit revision range passed to git diff (e.g. main..HEAD)")
	impactedCmd.Flags().String("files", "", "Comma-separated changed files; overrides git")
	impactedCmd.Flags().Bool("json", false, "Shorthand for --output json")

	runCmd.Flags().String("since", "", "Git ref to diff against (default: impact.defaultSince)")
	runCmd.Flags().String("files", "", "Comma-separated changed files; overrides git")
	runCmd.Flags().Bool("all-on-miss", true, "Run the full suite when no tests are impacted (default: impact.fallbackRunAll)")
	runCmd.Flags().String("report", "", "Also write the run summary to this path")

	reportDiffCoverageCmd.Flags().String("since", "", "Git ref to diff against (default: impact.defaultSince)")
	reportDiffCoverageCmd.Flags().Float64("threshold", contract.DefaultThreshold, "Pass threshold in percent (default: impact.diffCoverageThreshold)")

	uploadCmd.Flags().String("build", "", "Build identifier (default: generated UUID)")
	uploadCmd.Flags().String("endpoint", "", "Ingest endpoint (default: ci.endpoint)")
	uploadCmd.Flags().String("token", "", "Project token (default: ci.projectToken)")
	uploadCmd.Flags().String("coverage-map-url", "", "Where the coverage map artifact was published")
	uploadCmd.Flags().String("results-url", "", "Where the test results were published")

	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
