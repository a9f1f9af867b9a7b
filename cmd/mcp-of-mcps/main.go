/*
Package main is the entry point for mcp-of-mcps.

mcp-of-mcps is a serverless MCP aggregator that fronts any number of
downstream MCP servers behind a single upstream endpoint exposing four
meta-tools, so an AI client pays the token cost of one small tool
surface instead of the sum of every downstream server's own.

Usage:

	mcp-of-mcps [command]

Available Commands:

	serve       Run the MCP aggregator (stdio transport)
	version     Show version information

Examples:

	# Run as an MCP server with an inline config
	mcp-of-mcps serve --config '{"servers":[{"name":"weather","command":"weather-mcp"}]}'
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lvmk/mcp-of-mcps/internal/cli"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mcp-of-mcps",
		Short: "Serverless MCP aggregator exposing downstream servers behind four meta-tools",
		Long: `mcp-of-mcps fronts any number of downstream MCP servers with a single
upstream endpoint. Instead of exposing every downstream tool directly, it
exposes four meta-tools:
  • semantic_search_tools     - find tools by natural-language description
  • get_mcps_servers_overview - list every connected server and its tools
  • get_tools_overview        - fetch full schemas and example usage
  • run_functions_code        - compose downstream tool calls in a sandboxed script`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.AddCommand(cli.NewServeCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
