package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SamuelRCrider/legal-auditor/config"
	"github.com/SamuelRCrider/legal-auditor/logger"
)

var (
	configPath string
	debug      bool
	logFormat  string

	// cfg is loaded before every command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "auditor",
	Short: "PII detection and compliance risk auditing",
	Long: "auditor scans chat messages, emails and code review comments for PII, " +
		"scores their compliance risk and cross-references findings against a clause library.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("debug") {
			loaded.Log.Debug = debug
		}
		if logFormat != "" {
			loaded.Log.Format = logFormat
		}
		logger.Setup(loaded.Log.Debug, loaded.Log.Format)

		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text or json)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
