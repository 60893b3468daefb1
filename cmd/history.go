package cmd

import (
	"fmt"

	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/internal/iocache"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyConfig resolves the project root and the history backend settings
// without loading impactcov.config.json.
func historyConfig(cmd *cobra.Command, args []string) error {
	if err := dirSetup(cmd, args); err != nil {
		return err
	}
	backend, err := contract.ParseHistoryBackend(input.HistoryBackend)
	if err != nil {
		return err
	}
	if err := contract.ValidateDatabaseConnectionString(backend, input.HistoryDBConnect); err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = iocache.ResolveConnString(backend, input.HistoryDBConnect, cfg.RepoPath)
	cfg.OutputFile = input.OutputFile
	return nil
}

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need history access without full shared setup.
func historySetup(cmd *cobra.Command, args []string) error {
	if err := historyConfig(cmd, args); err != nil {
		return err
	}
	if err := iocache.InitHistory(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize run history: %w", err)
	}
	return nil
}

// historyCmd focused on run history management.
//
// Note: History subcommands use minimal initialization (historySetup) instead of
// the full sharedSetup used by the test commands. This avoids loading the project
// config for simple database operations.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the run history of cover and run invocations",
	Long: `Manage the optional run history that mirrors every cover and run invocation.

When --history-backend is set, impactcov stores:
- Run metadata (kind, timestamps, duration, exit status, parameters)
- The coverage records appended by each cover run

The JSONL coverage map stays the source of truth; history is for trends and BI.

Supported backends: SQLite (<dir>/.impactcov/history.db), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all history
  migrate - Run database schema migrations

Examples:
  impactcov history status --history-backend sqlite
  impactcov history export --history-backend sqlite --output-file impactcov-history`,
}

// historyClearCmd clears the run history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all run history",
	Long: `Delete all stored runs and coverage history.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the history tables

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  impactcov history export --history-backend sqlite --output-file backup
  impactcov history clear --history-backend sqlite`,
	PreRunE: historyConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbFile := cfg.HistoryDBConnect // Resolved to the SQLite file path by historyConfig
		if err := iocache.ClearHistory(cfg.HistoryBackend, dbFile, cfg.HistoryDBConnect); err != nil {
			return fmt.Errorf("failed to clear run history: %w", err)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Run history cleared successfully.")
		return err
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show the backend, connection health, run counts, last and oldest run and
table sizes of the run history.

Examples:
  impactcov history status --history-backend sqlite`,
	PreRunE: historySetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := iocache.Manager.GetHistoryStore()
		if store == nil {
			return fmt.Errorf("run history is not initialized")
		}
		status, err := store.GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get run history status: %w", err)
		}
		iocache.PrintHistoryStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

// historyExportCmd exports run history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for BI tools and analytics",
	Long: `Export all stored history to Parquet.

Writes two files next to --output-file:
- <output-file>.runs.parquet     - one row per cover/run invocation
- <output-file>.coverage.parquet - one row per recorded coverage record

Examples:
  impactcov history export --history-backend sqlite --output-file history
  duckdb -c "SELECT kind, count(*) FROM read_parquet('history.runs.parquet') GROUP BY kind"`,
	PreRunE: historySetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return iocache.ExecuteHistoryExport(iocache.Manager, cfg.OutputFile, cmd.OutOrStdout())
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  impactcov history migrate --history-backend postgresql

  # Rollback to initial state
  impactcov history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historyConfig,
	RunE: func(cmd *cobra.Command, _ []string) error {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	},
}
