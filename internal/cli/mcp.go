package cli

import (
	"github.com/spf13/cobra"

	"github.com/copytree/copytree/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run copytree as a Model Context Protocol server over stdio",
	Long: `Starts an MCP server exposing a single generate_context tool that runs
copytree's discovery, filtering, redaction, and rendering pipeline and
returns the resulting document as tool content. Intended for use as an MCP
stdio server entry from a chat-based assistant's tool configuration, not for
interactive use.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	return mcp.NewServer().Run(cmd.Context())
}
