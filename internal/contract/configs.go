package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/impactcov/schema"
)

// Default values for configuration.
const (
	DefaultSince          = "origin/main"
	DefaultThreshold      = 80.0
	DefaultInitThreshold  = 85.0
	DefaultGranularity    = "line"
	DefaultCoverageTool   = "istanbul"
	DefaultVitestProvider = "istanbul"
	GoCoverageTool        = "gocover"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DefaultExcludes are applied when the project config sets no exclude globs.
var DefaultExcludes = []string{"**/node_modules/**", "**/test/**", "**/*.test.*", "**/*.spec.*"}

// TestConfig describes how the project's tests are executed.
type TestConfig struct {
	Framework string            `json:"framework" validate:"required"`
	Command   string            `json:"command" validate:"required"`
	TestMatch []string          `json:"testMatch,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// CoverageConfig describes the coverage collaborator and capture filters.
type CoverageConfig struct {
	Tool    string   `json:"tool" validate:"required"`
	PerTest bool     `json:"perTest"`
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
	Adapter string   `json:"adapter,omitempty" validate:"omitempty,oneof=hook setup provider"`
}

// ImpactConfig holds impact-analysis defaults.
type ImpactConfig struct {
	DefaultSince          string   `json:"defaultSince,omitempty"`
	FallbackRunAll        *bool    `json:"fallbackRunAll,omitempty"`
	FileGranularity       string   `json:"fileGranularity,omitempty" validate:"omitempty,oneof=file line"`
	DiffCoverageThreshold *float64 `json:"diffCoverageThreshold,omitempty" validate:"omitempty,min=0,max=100"`
}

// CIConfig holds the upload endpoint and credentials.
type CIConfig struct {
	Provider     string `json:"provider,omitempty"`
	ProjectToken string `json:"projectToken,omitempty"`
	Endpoint     string `json:"endpoint,omitempty" validate:"omitempty,url"`
}

// UploadConfig toggles uploads and lists artifacts to publish.
type UploadConfig struct {
	Enabled   *bool    `json:"enabled,omitempty"`
	Artifacts []string `json:"artifacts,omitempty"`
}

// ProjectConfig is the contents of impactcov.config.json.
type ProjectConfig struct {
	Project  string         `json:"project" validate:"required"`
	Language string         `json:"language,omitempty"`
	Monorepo bool           `json:"monorepo,omitempty"`
	Packages []string       `json:"packages,omitempty"`
	Test     TestConfig     `json:"test"`
	Coverage CoverageConfig `json:"coverage"`
	Impact   *ImpactConfig  `json:"impact,omitempty" validate:"omitempty"`
	CI       *CIConfig      `json:"ci,omitempty" validate:"omitempty"`
	Upload   *UploadConfig  `json:"upload,omitempty" validate:"omitempty"`
}

// Config holds the runtime configuration for every command.
// This struct remains the "final, validated" config.
type Config struct {
	RepoPath   string
	ConfigFile string
	Project    ProjectConfig

	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
	Workers    int

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, tool settings file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Dir              string `mapstructure:"dir"`
	Config           string `mapstructure:"config"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Fields from coverCmd.Flags() ---
	Workers int `mapstructure:"workers"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Project = c.Project.clone()
	return &clone
}

func (p ProjectConfig) clone() ProjectConfig {
	clone := p
	clone.Packages = append([]string(nil), p.Packages...)
	clone.Test.TestMatch = append([]string(nil), p.Test.TestMatch...)
	if p.Test.Env != nil {
		clone.Test.Env = make(map[string]string, len(p.Test.Env))
		for k, v := range p.Test.Env {
			clone.Test.Env[k] = v
		}
	}
	clone.Coverage.Include = append([]string(nil), p.Coverage.Include...)
	clone.Coverage.Exclude = append([]string(nil), p.Coverage.Exclude...)
	if p.Impact != nil {
		impact := *p.Impact
		clone.Impact = &impact
	}
	if p.CI != nil {
		ci := *p.CI
		clone.CI = &ci
	}
	if p.Upload != nil {
		upload := *p.Upload
		upload.Artifacts = append([]string(nil), p.Upload.Artifacts...)
		clone.Upload = &upload
	}
	return clone
}

// Since returns the configured base reference.
func (p *ProjectConfig) Since() string {
	if p.Impact != nil && p.Impact.DefaultSince != "" {
		return p.Impact.DefaultSince
	}
	return DefaultSince
}

// FallbackRunAll reports whether a run with no impacted tests runs the full suite.
func (p *ProjectConfig) FallbackRunAll() bool {
	if p.Impact != nil && p.Impact.FallbackRunAll != nil {
		return *p.Impact.FallbackRunAll
	}
	return true
}

// Granularity returns "line" or "file".
func (p *ProjectConfig) Granularity() string {
	if p.Impact != nil && p.Impact.FileGranularity != "" {
		return p.Impact.FileGranularity
	}
	return DefaultGranularity
}

// Threshold returns the diff-coverage threshold in percent.
func (p *ProjectConfig) Threshold() float64 {
	if p.Impact != nil && p.Impact.DiffCoverageThreshold != nil {
		return *p.Impact.DiffCoverageThreshold
	}
	return DefaultThreshold
}

// Excludes returns the exclude globs, falling back to DefaultExcludes.
func (p *ProjectConfig) Excludes() []string {
	if len(p.Coverage.Exclude) > 0 {
		return p.Coverage.Exclude
	}
	return DefaultExcludes
}

// Endpoint returns the upload endpoint, or an empty string.
func (p *ProjectConfig) Endpoint() string {
	if p.CI != nil {
		return p.CI.Endpoint
	}
	return ""
}

// Token returns the upload project token, or an empty string.
func (p *ProjectConfig) Token() string {
	if p.CI != nil {
		return p.CI.ProjectToken
	}
	return ""
}

// UploadEnabled reports whether uploads are allowed. Unset means enabled.
func (p *ProjectConfig) UploadEnabled() bool {
	if p.Upload != nil && p.Upload.Enabled != nil {
		return *p.Upload.Enabled
	}
	return true
}

// DefaultProjectConfig returns the starter config written by `impactcov init`.
func DefaultProjectConfig(framework schema.Framework) ProjectConfig {
	fallback := true
	enabled := true
	threshold := DefaultInitThreshold
	cfg := ProjectConfig{
		Project:  "app",
		Language: "javascript",
		Test:     TestConfig{Framework: string(schema.JestFramework), Command: "npm test --"},
		Coverage: CoverageConfig{Tool: DefaultCoverageTool, PerTest: true},
		Impact: &ImpactConfig{
			DefaultSince:          DefaultSince,
			FallbackRunAll:        &fallback,
			FileGranularity:       DefaultGranularity,
			DiffCoverageThreshold: &threshold,
		},
		CI:     &CIConfig{Provider: "github"},
		Upload: &UploadConfig{Enabled: &enabled, Artifacts: []string{filepath.ToSlash(filepath.Join(DotDirName, CoverageMapFileName))}},
	}
	if framework == schema.GoFramework {
		cfg.Language = "go"
		cfg.Test = TestConfig{Framework: string(schema.GoFramework), Command: "go test ./..."}
		cfg.Coverage.Tool = GoCoverageTool
	}
	return cfg
}

// projectValidate validates ProjectConfig, reporting fields by their JSON names.
var projectValidate = newProjectValidator()

func newProjectValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ErrConfigNotFound is returned when the project has no impactcov.config.json.
var ErrConfigNotFound = fmt.Errorf("%s not found. Run `impactcov init` to create one", ConfigFileName)

// LoadProjectConfig reads and validates the project config at path.
func LoadProjectConfig(path string) (ProjectConfig, error) {
	var cfg ProjectConfig
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, ErrConfigNotFound
	} else if err != nil {
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", filepath.Base(path), err)
	}
	if err := ValidateProjectConfig(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// ValidateProjectConfig checks the struct tags of cfg and flattens violations into one error.
func ValidateProjectConfig(cfg *ProjectConfig) error {
	err := projectValidate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// WriteProjectConfig writes cfg as indented JSON with a trailing newline.
func WriteProjectConfig(path string, cfg ProjectConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := resolveRepoPath(ctx, cfg, client, input); err != nil {
		return err
	}
	return loadProject(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend, "":
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseHistoryBackend validates a backend name. Empty means tracking is disabled.
func ParseHistoryBackend(raw string) (schema.DatabaseBackend, error) {
	if raw == "" {
		return schema.NoneBackend, nil
	}
	backend := schema.DatabaseBackend(strings.ToLower(raw))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", raw)
	}
	return backend, nil
}

// validateSimpleInputs processes and validates all non-path related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	backend, err := ParseHistoryBackend(input.HistoryBackend)
	if err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = input.HistoryDBConnect
	return ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect)
}

// resolveRepoPath turns --dir into an absolute project root. Inside a Git
// work tree the path is kept as given; git is not required for capture.
func resolveRepoPath(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	dir := input.Dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve project directory %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("project directory %q is not accessible: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project directory %q is not a directory", abs)
	}
	cfg.RepoPath = abs
	if client != nil {
		if _, err := client.GetRepoRoot(ctx, abs); err != nil {
			LogWarn("Project is not inside a Git work tree; diff-based commands will fail", err)
		}
	}
	return nil
}

// loadProject reads impactcov.config.json from --config or the project root.
func loadProject(cfg *Config, input *ConfigRawInput) error {
	path := input.Config
	if path == "" {
		path = filepath.Join(cfg.RepoPath, ConfigFileName)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.RepoPath, path)
	}
	project, err := LoadProjectConfig(path)
	if err != nil {
		return err
	}
	cfg.ConfigFile = path
	cfg.Project = project
	return nil
}
