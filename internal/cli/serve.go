/*
Package cli implements the mcp-of-mcps command surface: serve, which
runs the aggregator, and version, which reports build metadata.
*/
package cli

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lvmk/mcp-of-mcps/internal/config"
	"github.com/lvmk/mcp-of-mcps/internal/orchestrator"
)

// NewServeCmd creates the 'serve' command for running the MCP
// aggregator.
func NewServeCmd() *cobra.Command {
	var configLiteral string
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP aggregator (stdio transport)",
		Long: `Start the mcp-of-mcps aggregator: spawn every downstream server named in the
launch configuration, aggregate their tools behind four meta-tools, and
serve the result over stdio to the upstream MCP client.`,
		Example: `  # Inline JSON literal
  mcp-of-mcps serve --config '{"servers":[{"name":"weather","command":"weather-mcp"}]}'

  # From a file
  mcp-of-mcps serve --config-file ./servers.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(configLiteral, configFile)
			if err != nil {
				return fmt.Errorf("failed to resolve config: %w", err)
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&configLiteral, "config", "", "JSON config literal (mutually exclusive with --config-file)")
	cmd.Flags().StringVar(&configFile, "config-file", "", "path to a JSON config file (mutually exclusive with --config)")

	return cmd
}

// runServe runs the orchestrator under a context canceled on
// SIGINT/SIGTERM/SIGQUIT, so a shutdown signal unwinds the blocking
// upstream transport read rather than killing the process outright.
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := orchestrator.Run(ctx, cfg); err != nil {
		log.Printf("mcp-of-mcps: %v", err)
		return err
	}
	return nil
}
