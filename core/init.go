package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
)

// ExecuteInit writes a starter impactcov.config.json into root.
// An existing config is left untouched.
func ExecuteInit(root string, framework schema.Framework, w io.Writer) error {
	path := filepath.Join(root, contract.ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		_, err = fmt.Fprintf(w, "%s already exists.\n", contract.ConfigFileName)
		return err
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	switch framework {
	case schema.UnknownFramework, schema.JestFramework, schema.GoFramework:
	default:
		return fmt.Errorf("unsupported init framework %q. must be jest or go", framework)
	}
	if err := contract.WriteProjectConfig(path, contract.DefaultProjectConfig(framework)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	_, err := fmt.Fprintf(w, "Created %s\n", contract.ConfigFileName)
	return err
}
