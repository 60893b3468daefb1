// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/impactcov/core"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the impactcov MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, rt *core.Runtime, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"impactcov Test Impact Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		rt:      rt,
	}

	// --- 1. Tool: get_impacted_tests ---
	s.AddTool(mcp.NewTool("get_impacted_tests",
		mcp.WithDescription("List the tests whose recorded coverage touches the changed files."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithArray("files", mcp.Description("Explicit changed files. Overrides git when given."), mcp.WithStringItems()),
		mcp.WithString("since", mcp.Description("Git ref to diff against (defaults to impact.defaultSince).")),
	), h.handleGetImpactedTests)

	// --- 2. Tool: get_diff_coverage ---
	s.AddTool(mcp.NewTool("get_diff_coverage",
		mcp.WithDescription("Compute the percentage of changed lines executed by at least one recorded test."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("since", mcp.Description("Git ref to diff against (defaults to impact.defaultSince).")),
		mcp.WithNumber("threshold", mcp.Description("Pass threshold in percent (defaults to impact.diffCoverageThreshold)."), mcp.Min(0), mcp.Max(100)),
	), h.handleGetDiffCoverage)

	// --- 3. Tool: get_tests_for_file ---
	s.AddTool(mcp.NewTool("get_tests_for_file",
		mcp.WithDescription("List the recorded tests that executed a given file."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("file", mcp.Description("Repository-relative or absolute file path."), mcp.Required()),
	), h.handleGetTestsForFile)

	// --- 4. Tool: get_coverage_summary ---
	s.AddTool(mcp.NewTool("get_coverage_summary",
		mcp.WithDescription("Summarize what the per-test coverage map currently holds."),
		mcp.WithReadOnlyHintAnnotation(true),
	), h.handleGetCoverageSummary)

	return s
}

// StartMCPServer starts the impactcov MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, rt *core.Runtime, version string) error {
	s := NewMCPServer(baseCfg, rt, version)
	return server.ServeStdio(s)
}
