// CLAUDE:SUMMARY mcp subcommand: serves the xptrail_timeline tool over stdio.
package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var version = "dev"

func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server on stdio exposing the xptrail_timeline tool.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, _, logger, err := g.setup()
			if err != nil {
				return err
			}
			srv := mcp.NewServer(&mcp.Implementation{Name: "xptrail", Version: version}, nil)
			tr.RegisterMCP(srv)

			logger.Info("xptrail: mcp server on stdio")
			return srv.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
