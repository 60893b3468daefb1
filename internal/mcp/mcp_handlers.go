package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/impactcov/core"
	"github.com/huangsam/impactcov/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	rt      *core.Runtime
}

func (h *toolHandler) handleGetImpactedTests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	opts := core.ImpactOptions{
		Since: request.GetString("since", ""),
	}
	for _, f := range request.GetStringSlice("files", nil) {
		if f = strings.TrimSpace(f); f != "" {
			opts.Files = append(opts.Files, f)
		}
	}

	result, err := core.GetImpactResult(ctx, cfg, h.rt, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("impact resolution failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetDiffCoverage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	opts := core.DiffCoverageOptions{
		Since: request.GetString("since", ""),
	}
	if _, ok := request.GetArguments()["threshold"]; ok {
		threshold := request.GetFloat("threshold", cfg.Project.Threshold())
		opts.Threshold = &threshold
	}

	result, err := core.GetDiffCoverageResult(ctx, cfg, h.rt, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diff coverage failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetTestsForFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file := strings.TrimSpace(request.GetString("file", ""))
	if file == "" {
		return mcp.NewToolResultError("file is required"), nil
	}

	tests, err := core.GetTestsForFile(h.baseCfg.Clone(), file)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(map[string]any{"file": file, "tests": tests}, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetCoverageSummary(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := core.GetCoverageSummary(h.baseCfg.Clone())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("summary failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
