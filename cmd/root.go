package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/impactcov/core"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/internal/iocache"
	"github.com/huangsam/impactcov/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "impactcov",
	Short: "Run only the tests your change can affect.",
	Long: `impactcov records which lines every test executes, then uses that map to pick
the tests impacted by a Git diff and to gate pull requests on diff coverage.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetConfigName(".impactcov") // Tool settings, not impactcov.config.json
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")

	// Set environment variable prefix
	viper.SetEnvPrefix("IMPACTCOV")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("dir", ".")
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("history-backend", "")
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("color", "yes")
	setLogDefaults()
}

// loadToolSettings merges the optional .impactcov.yaml into viper. The
// project root from --dir is searched before the working directory.
func loadToolSettings() error {
	if dir := viper.GetString("dir"); dir != "" && dir != "." {
		viper.AddConfigPath(dir)
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return nil
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(ctx context.Context, _ *cobra.Command, _ []string) error {
	// 1. Merge defaults, the settings file, env and flags.
	if err := loadToolSettings(); err != nil {
		return err
	}

	// 2. Run all validation and complex parsing, including impactcov.config.json.
	client := contract.NewLocalGitClient()
	if err := contract.ProcessAndValidate(ctx, cfg, client, input); err != nil {
		return err
	}
	color.NoColor = !cfg.UseColors
	configureLogger(cfg.RepoPath)

	// 3. Initialize run history with validated config
	connStr := iocache.ResolveConnString(cfg.HistoryBackend, cfg.HistoryDBConnect, cfg.RepoPath)
	if err := iocache.InitHistory(cfg.HistoryBackend, connStr); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// dirSetup resolves only the project root. It serves commands that must work
// before impactcov.config.json exists.
func dirSetup(_ *cobra.Command, _ []string) error {
	if err := loadToolSettings(); err != nil {
		return err
	}
	abs, err := filepath.Abs(input.Dir)
	if err != nil {
		return fmt.Errorf("failed to resolve project directory %q: %w", input.Dir, err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return fmt.Errorf("project directory %q is not accessible", abs)
	}
	cfg.RepoPath = abs
	return nil
}

// newRuntime wires the local collaborators and the global history manager.
func newRuntime() *core.Runtime {
	return core.NewRuntime(iocache.Manager, globalLogger)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
