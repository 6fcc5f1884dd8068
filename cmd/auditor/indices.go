package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SamuelRCrider/legal-auditor/store"
)

var setupRecreate bool

var setupIndicesCmd = &cobra.Command{
	Use:   "setup-indices",
	Short: "Create the store indices and ingest pipelines",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStore(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := store.WithTimeout(cmd.Context())
		defer cancel()

		if err := s.Setup(ctx, setupRecreate); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, name := range []string{store.PoliciesIndex, store.DocumentsIndex, store.ViolationsIndex} {
			fmt.Fprintf(out, "Index ready: %s\n", name)
		}
		return nil
	},
}

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Check that the configured store is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStore(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := store.WithTimeout(cmd.Context())
		defer cancel()

		out := cmd.OutOrStdout()
		es, ok := s.(*store.ElasticStore)
		if !ok {
			if err := s.Ping(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Connected to in-memory store")
			return nil
		}

		info, err := es.Info(ctx)
		if err != nil {
			return fmt.Errorf("elasticsearch connection failed: %w", err)
		}
		health, err := es.Health(ctx)
		if err != nil {
			return fmt.Errorf("elasticsearch health check failed: %w", err)
		}

		fmt.Fprintf(out, "Connected to Elasticsearch cluster %s (version %s)\n", info.ClusterName, info.Version.Number)
		fmt.Fprintf(out, "Cluster health: %s, %d nodes, %d active primary shards\n",
			health.Status, health.NumberOfNodes, health.ActivePrimaryShards)
		return nil
	},
}

func init() {
	setupIndicesCmd.Flags().BoolVar(&setupRecreate, "recreate", false, "Drop existing indices first")
	rootCmd.AddCommand(setupIndicesCmd)
	rootCmd.AddCommand(testConnectionCmd)
}
