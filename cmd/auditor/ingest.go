package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SamuelRCrider/legal-auditor/samples"
)

var ingestDocumentsCmd = &cobra.Command{
	Use:   "ingest-documents",
	Short: "Analyze and index the sample documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := samples.Documents()
		if err != nil {
			return err
		}

		a, closeAudit, err := newAuditor(cfg)
		if err != nil {
			return err
		}
		defer closeAudit()

		summary, err := a.IngestDocuments(cmd.Context(), docs)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Ingestion Summary:")
		fmt.Fprintf(out, "   Successful: %d\n", summary.Successful)
		fmt.Fprintf(out, "   Failed: %d\n", summary.Failed)
		fmt.Fprintf(out, "   High Risk: %d\n", summary.HighRisk)
		fmt.Fprintf(out, "   Flagged: %d\n", summary.Flagged)
		fmt.Fprintf(out, "   Total: %d\n", summary.Total)

		if summary.Failed == summary.Total && summary.Total > 0 {
			return fmt.Errorf("no document could be indexed; run setup-indices first")
		}
		return nil
	},
}

var ingestPoliciesCmd = &cobra.Command{
	Use:   "ingest-policies",
	Short: "Index the compliance clause library",
	RunE: func(cmd *cobra.Command, args []string) error {
		clauses, err := samples.Policies()
		if err != nil {
			return err
		}

		a, closeAudit, err := newAuditor(cfg)
		if err != nil {
			return err
		}
		defer closeAudit()

		indexed, err := a.IngestPolicies(cmd.Context(), clauses)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Ingestion Summary:")
		fmt.Fprintf(out, "   Successful: %d\n", indexed)
		fmt.Fprintf(out, "   Failed: %d\n", len(clauses)-indexed)
		fmt.Fprintf(out, "   Total: %d\n", len(clauses))
		return err
	},
}

func init() {
	rootCmd.AddCommand(ingestDocumentsCmd)
	rootCmd.AddCommand(ingestPoliciesCmd)
}
