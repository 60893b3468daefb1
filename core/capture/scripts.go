package capture

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/huangsam/impactcov/schema"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var scriptTemplates = template.Must(
	template.New("scripts").Delims("<%", "%>").ParseFS(templatesFS, "templates/*.tmpl"),
)

// RunnerScript describes a generated file injected into the test runner.
type RunnerScript struct {
	Framework schema.Framework
	FileName  string
	template  string
	global    string
}

// Runner scripts, one per JavaScript framework.
var (
	MochaScript  = RunnerScript{Framework: schema.MochaFramework, FileName: "istanbul-mocha-pertest-hook.cjs", template: "mocha.cjs.tmpl", global: "global"}
	JestScript   = RunnerScript{Framework: schema.JestFramework, FileName: "istanbul-jest-pertest-setup.cjs", template: "jest.cjs.tmpl", global: "global"}
	VitestScript = RunnerScript{Framework: schema.VitestFramework, FileName: "istanbul-vitest-pertest-setup.mjs", template: "vitest.mjs.tmpl", global: "globalThis"}
)

type scriptData struct {
	DotDir  string
	MapFile string
	Global  string
	Unknown string
}

// Render returns the script body.
func (s RunnerScript) Render(dotDir, mapFile string) ([]byte, error) {
	var buf bytes.Buffer
	data := scriptData{DotDir: dotDir, MapFile: mapFile, Global: s.global, Unknown: UnknownTestID}
	if err := scriptTemplates.ExecuteTemplate(&buf, s.template, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", s.FileName, err)
	}
	return buf.Bytes(), nil
}

// Write renders the script into dir and returns its path.
func (s RunnerScript) Write(dir, mapFile string) (string, error) {
	body, err := s.Render(filepath.Base(dir), mapFile)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, s.FileName)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
