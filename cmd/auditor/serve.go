package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SamuelRCrider/legal-auditor/logger"
	"github.com/SamuelRCrider/legal-auditor/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		a, closeAudit, err := newAuditor(cfg)
		if err != nil {
			return err
		}
		defer closeAudit()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(a, server.Config{
			Addr:            cfg.Addr(),
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			RateLimit:       cfg.RateLimit.Requests,
			RateWindow:      cfg.RateLimit.Window,
		}, logger.WithComponent("http"))
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config and PORT)")
	rootCmd.AddCommand(serveCmd)
}
