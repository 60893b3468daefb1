package cmd

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"8", slog.LevelError},
		{"loud", slog.LevelWarn},
		{"", slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.in, slog.LevelWarn))
		})
	}
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"init", "cover", "impacted", "run", "report", "upload", "history", "mcp", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	sub, _, err := rootCmd.Find([]string{"report", "diff-coverage"})
	assert.NoError(t, err)
	assert.Equal(t, "diff-coverage", sub.Name())
	assert.NotNil(t, sub.Flags().Lookup("threshold"))

	sub, _, err = rootCmd.Find([]string{"history", "migrate"})
	assert.NoError(t, err)
	assert.NotNil(t, sub.Flags().Lookup("target-version"))
}
