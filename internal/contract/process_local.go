package contract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// LocalProcessRunner implements ProcessRunner with os/exec.
type LocalProcessRunner struct{}

var _ ProcessRunner = &LocalProcessRunner{} // Compile-time check

// NewLocalProcessRunner creates a new process runner.
func NewLocalProcessRunner() *LocalProcessRunner {
	return &LocalProcessRunner{}
}

// Run implements the ProcessRunner interface.
// Output streams default to the current process stdout and stderr.
func (r *LocalProcessRunner) Run(ctx context.Context, spec ProcessSpec) (int, error) {
	if spec.Name == "" {
		return -1, errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = os.Stdin
	cmd.Stdout = spec.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = spec.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		return 1, nil // terminated by signal
	} else if err != nil {
		return -1, fmt.Errorf("failed to start %q: %w", spec.Name, err)
	}
	return 0, nil
}

// MergeEnv returns the current environment overlaid with the given variables.
// Later entries win when the same key appears twice.
func MergeEnv(overlays ...map[string]string) []string {
	env := os.Environ()
	for _, overlay := range overlays {
		for k, v := range overlay {
			env = append(env, k+"="+v)
		}
	}
	return env
}
