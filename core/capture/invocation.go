package capture

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
)

// Environment variables read by the generated runner scripts.
const (
	EnvEnable   = "IMPACTCOV_ENABLE"
	EnvMapFile  = "IMPACTCOV_MAP_FILE"
	EnvCWD      = "IMPACTCOV_CWD"
	EnvInclude  = "IMPACTCOV_INCLUDE"
	EnvExclude  = "IMPACTCOV_EXCLUDE"
	EnvNoFilter = "IMPACTCOV_NO_FILTER"
)

// Options are the cover command's capture switches.
type Options struct {
	TestPattern      string
	NoFilter         bool
	CoverageProvider string // vitest only; empty means istanbul
	StrictProvider   bool
}

// Invocation is a fully planned test command.
type Invocation struct {
	Framework schema.Framework
	Kind      schema.AdapterKind
	Name      string
	Args      []string
	Env       map[string]string
	Script    string // Generated runner script, empty when none was needed
	Mapped    bool   // Per-test capture is active
	Warnings  []string
}

// DetectFramework matches the configured framework first, then the command name.
func DetectFramework(framework, command string) schema.Framework {
	framework = strings.ToLower(framework)
	name, _, _ := contract.SplitCommand(command)
	name = strings.ToLower(name)
	for _, fw := range []schema.Framework{schema.MochaFramework, schema.JestFramework, schema.VitestFramework} {
		if strings.Contains(framework, string(fw)) || strings.Contains(name, string(fw)) {
			return fw
		}
	}
	if framework == string(schema.GoFramework) || framework == "gotest" || name == "go" {
		return schema.GoFramework
	}
	return schema.UnknownFramework
}

// CaptureEnv returns the IMPACTCOV_* variables layered over test.env.
func CaptureEnv(project *contract.ProjectConfig, root string, noFilter bool) (map[string]string, error) {
	env := make(map[string]string, len(project.Test.Env)+6)
	for k, v := range project.Test.Env {
		env[k] = v
	}
	include := project.Coverage.Include
	if include == nil {
		include = []string{}
	}
	includeJSON, err := json.Marshal(include)
	if err != nil {
		return nil, err
	}
	excludeJSON, err := json.Marshal(project.Excludes())
	if err != nil {
		return nil, err
	}
	env[EnvEnable] = "1"
	env[EnvMapFile] = contract.CoverageMapPath(root)
	env[EnvCWD] = root
	env[EnvInclude] = string(includeJSON)
	env[EnvExclude] = string(excludeJSON)
	env[EnvNoFilter] = "0"
	if noFilter {
		env[EnvNoFilter] = "1"
	}
	return env, nil
}

// PlanInvocation builds the command line and environment for a JavaScript
// runner and writes the matching runner script under the project's tool
// directory. Go projects are planned by GoRunner instead.
func PlanInvocation(project *contract.ProjectConfig, root string, opts Options) (*Invocation, error) {
	name, args, err := contract.SplitCommand(project.Test.Command)
	if err != nil {
		return nil, err
	}
	if opts.TestPattern != "" {
		args = append(args, opts.TestPattern)
	}
	env, err := CaptureEnv(project, root, opts.NoFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode capture filters: %w", err)
	}

	inv := &Invocation{
		Framework: DetectFramework(project.Test.Framework, project.Test.Command),
		Name:      name,
		Env:       env,
	}
	dotDir := contract.DotDir(root)
	scriptArg := func(s RunnerScript) (string, error) {
		path, err := s.Write(dotDir, contract.CoverageMapFileName)
		if err != nil {
			return "", err
		}
		inv.Script = path
		inv.Mapped = true
		return filepath.ToSlash(filepath.Join(contract.DotDirName, s.FileName)), nil
	}

	switch inv.Framework {
	case schema.MochaFramework:
		inv.Kind = schema.HookBased
		arg, err := scriptArg(MochaScript)
		if err != nil {
			return nil, err
		}
		args = append([]string{"--require", arg}, args...)
	case schema.JestFramework:
		inv.Kind = schema.SetupBased
		arg, err := scriptArg(JestScript)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(args, "--coverage") {
			args = append(args, "--coverage")
		}
		args = append(args, "--setupFilesAfterEnv", arg)
	case schema.VitestFramework:
		inv.Kind = schema.ProviderBased
		provider := strings.ToLower(opts.CoverageProvider)
		if provider == "" {
			provider = contract.DefaultVitestProvider
		}
		if !slices.ContainsFunc(args, func(a string) bool { return strings.HasPrefix(a, "--coverage") }) {
			args = append(args, "--coverage")
		}
		if !slices.ContainsFunc(args, func(a string) bool { return strings.HasPrefix(a, "--coverage.provider=") }) {
			args = append(args, "--coverage.provider="+provider)
		}
		if err := CheckProvider(provider, contract.DefaultVitestProvider, opts.StrictProvider); err != nil {
			return nil, err
		}
		if provider == contract.DefaultVitestProvider {
			arg, err := scriptArg(VitestScript)
			if err != nil {
				return nil, err
			}
			args = append(args, "--setupFiles", arg)
		} else {
			inv.Warnings = append(inv.Warnings, fmt.Sprintf(
				"Vitest coverage provider set to %q. Per-test mapping requires istanbul; proceeding without per-test mapping for Vitest.", provider))
		}
	case schema.GoFramework:
		return nil, fmt.Errorf("go projects are captured natively, not through a runner script")
	default:
		inv.Warnings = append(inv.Warnings, fmt.Sprintf("Unknown framework %q; running without per-test mapping.", project.Test.Framework))
	}
	inv.Args = args
	return inv, nil
}
