package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/SamuelRCrider/legal-auditor/core"
)

var (
	scanRedact     bool
	scanJSON       bool
	scanPolicyPath string
)

var scanCmd = &cobra.Command{
	Use:   "scan [file|-]",
	Short: "Detect PII in a file or stdin and score its risk",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		if scanPolicyPath != "" {
			cfg.Scanner.PolicyPath = scanPolicyPath
		}
		analyzer, err := newAnalyzer(cfg)
		if err != nil {
			return err
		}

		result, err := analyzer.AnalyzeChecked(text)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case scanRedact:
			_, err = fmt.Fprintln(out, core.ApplyRedactions(text, result.Matches))
			return err
		case scanJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(scanReport{
				AnalysisResult:  result,
				RiskLevel:       result.RiskLevel(),
				Recommendations: core.Recommend(result.Kinds, result.RiskScore),
			})
		default:
			printScan(out, result)
			return nil
		}
	},
}

type scanReport struct {
	*core.AnalysisResult
	RiskLevel       core.RiskLevel `json:"risk_level"`
	Recommendations []string       `json:"recommendations"`
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

func printScan(w io.Writer, result *core.AnalysisResult) {
	if result.Count == 0 {
		fmt.Fprintln(w, "No PII found.")
	} else {
		fmt.Fprintln(w, "Matches Found:")
		for _, m := range result.Matches {
			fmt.Fprintf(w, " - %s (%.0f%%): %q -> %s at [%d:%d]\n",
				m.Kind, m.Confidence*100, m.Value, m.Redacted, m.StartIndex, m.EndIndex)
		}
	}

	fmt.Fprintf(w, "\nRisk: %.0f%% %s", result.RiskScore*100, result.RiskLevel())
	if result.Flagged {
		fmt.Fprint(w, " (flagged for review)")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "\nRecommendations:")
	for _, r := range core.Recommend(result.Kinds, result.RiskScore) {
		fmt.Fprintf(w, " - %s\n", r)
	}
}

func init() {
	scanCmd.Flags().BoolVar(&scanRedact, "redact", false, "Print the text with PII masked")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the analysis as JSON")
	scanCmd.Flags().StringVar(&scanPolicyPath, "policy", "", "YAML detection policy with extra rules")
	rootCmd.AddCommand(scanCmd)
}
