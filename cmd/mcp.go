package cmd

import (
	"os"

	"github.com/huangsam/impactcov/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:     "mcp",
	Short:   "Start the impactcov MCP server",
	Long:    `Launch an MCP server on stdio that lets AI agents query impacted tests, diff coverage and the coverage map.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		// stdout carries the protocol
		rt := newRuntime()
		rt.Stdout = os.Stderr
		return mcp.StartMCPServer(rootCtx, cfg, rt, version)
	},
}
