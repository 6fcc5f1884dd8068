package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AUDITOR_STORE", "memory")
	t.Setenv("AUDITOR_AUDIT_LOG", "")
	t.Setenv("AUDITOR_POLICY", "")
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags() {
	configPath, debug, logFormat = "", false, ""
	scanRedact, scanJSON, scanPolicyPath = false, false, ""
	setupRecreate = false
	servePort = 0
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	output, err := executeCommand(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, output, "auditor")
}

func TestHelpListsCommands(t *testing.T) {
	output, err := executeCommand(t, "")
	require.NoError(t, err)
	for _, name := range []string{"serve", "mcp", "scan", "ingest-documents", "ingest-policies", "setup-indices", "test-connection"} {
		assert.Contains(t, output, name)
	}
}

func TestScanFile(t *testing.T) {
	path := writeFile(t, "note.txt", "SSN 123-45-6789")

	output, err := executeCommand(t, "", "scan", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Matches Found:")
	assert.Contains(t, output, "SSN")
	assert.Contains(t, output, "XXX-XX-6789")
	assert.NotContains(t, output, "123-45-6789")
	assert.Contains(t, output, "Risk: 50% MEDIUM")
	assert.NotContains(t, output, "flagged for review")
}

func TestScanCleanText(t *testing.T) {
	output, err := executeCommand(t, "Team standup is at 10 AM.", "scan")
	require.NoError(t, err)
	assert.Contains(t, output, "No PII found.")
	assert.Contains(t, output, "No PII detected. Document appears safe.")
}

func TestScanRedactFromStdin(t *testing.T) {
	output, err := executeCommand(t, "card 4532-1234-5678-9012 today", "scan", "--redact", "-")
	require.NoError(t, err)
	assert.Equal(t, "card **** **** **** 9012 today\n", output)
}

func TestScanJSON(t *testing.T) {
	output, err := executeCommand(t, "SSN 123-45-6789, card 4532-1234-5678-9012", "scan", "--json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &report), output)
	assert.EqualValues(t, 2, report["pii_count"])
	assert.Equal(t, true, report["flagged"])
	assert.Equal(t, "HIGH", report["risk_level"])
	assert.NotEmpty(t, report["recommendations"])
}

func TestScanWithPolicy(t *testing.T) {
	policy := writeFile(t, "policy.yaml", `
metadata:
  version: "1.0"
rules:
  - id: account
    kind: ACCOUNT_ID
    type: regex
    pattern: 'ACC-\d{6}'
`)
	output, err := executeCommand(t, "Account ID: ACC-998877", "scan", "--json", "--policy", policy)
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &report), output)
	assert.Equal(t, []any{"ACCOUNT_ID"}, report["pii_types"])
}

func TestScanMissingFile(t *testing.T) {
	_, err := executeCommand(t, "", "scan", filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestIngestDocuments(t *testing.T) {
	output, err := executeCommand(t, "", "ingest-documents")
	require.NoError(t, err)
	assert.Contains(t, output, "Successful: 12")
	assert.Contains(t, output, "Failed: 0")
	assert.Contains(t, output, "Total: 12")
}

func TestIngestPolicies(t *testing.T) {
	output, err := executeCommand(t, "", "ingest-policies")
	require.NoError(t, err)
	assert.Contains(t, output, "Successful: 12")
}

func TestSetupIndices(t *testing.T) {
	output, err := executeCommand(t, "", "setup-indices", "--recreate")
	require.NoError(t, err)
	assert.Contains(t, output, "Index ready: monitored-documents")
	assert.Contains(t, output, "Index ready: compliance-policies")
}

func TestTestConnectionMemory(t *testing.T) {
	output, err := executeCommand(t, "", "test-connection")
	require.NoError(t, err)
	assert.Contains(t, output, "in-memory store")
}

func TestElasticsearchRequiresCredentials(t *testing.T) {
	t.Setenv("ELASTICSEARCH_URL", "")
	t.Setenv("ELASTICSEARCH_API_KEY", "")
	path := writeFile(t, "config.yaml", "store:\n  backend: elasticsearch\n")

	t.Setenv("AUDITOR_STORE", "")
	resetFlags()
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"test-connection", "--config", path})
	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ELASTICSEARCH_API_KEY")
}
