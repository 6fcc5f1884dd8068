package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/SamuelRCrider/legal-auditor/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeAudit, err := newAuditor(cfg)
		if err != nil {
			return err
		}
		defer closeAudit()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := mcpserver.NewAuditorServer(a)
		return server.NewStdioServer(srv.MCPServer()).Listen(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
