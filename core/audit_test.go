package core

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, buf *bytes.Buffer) []AuditLog {
	t.Helper()

	var entries []AuditLog
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry AuditLog
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestAuditRecordRedactsContent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewAuditLogger(AuditConfig{Level: AuditLogLevelVerbose, Writer: &buf})
	require.NoError(t, err)

	content := "SSN 123-45-6789, card 4532-1234-5678-9012"
	require.NoError(t, logger.Record("req-1", "doc-1", "slack", "bob", content, Analyze(content)))

	entries := readEntries(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]

	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, EventDocumentFlagged, entry.EventType)
	assert.Equal(t, SeverityWarning, entry.Severity)
	assert.Equal(t, "SSN XXX-XX-6789, card **** **** **** 9012", entry.Content)
	assert.NotContains(t, entry.Content, "123-45")
	require.NotNil(t, entry.RiskScore)
	assert.InDelta(t, 0.95, *entry.RiskScore, 1e-9)
	assert.True(t, entry.Flagged)
}

func TestAuditStandardTruncates(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewAuditLogger(AuditConfig{Writer: &buf})
	require.NoError(t, err)

	content := strings.Repeat("x", 150)
	require.NoError(t, logger.Record("", "doc-2", "email", "ann", content, Analyze(content)))

	entries := readEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, EventDocumentAnalyzed, entries[0].EventType)
	assert.Equal(t, strings.Repeat("x", 100)+"... [truncated]", entries[0].Content)
	assert.NotEmpty(t, entries[0].RequestID)
}

func TestAuditMinimalSkipsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewAuditLogger(AuditConfig{Level: AuditLogLevelMinimal, Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, logger.Record("", "d1", "", "", "hello", Analyze("hello")))
	require.NoError(t, logger.LogEvent(AuditLog{EventType: EventPolicyLookupFailed, Severity: SeverityError, Content: "secret"}))

	entries := readEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, EventPolicyLookupFailed, entries[0].EventType)
	assert.Empty(t, entries[0].Content)
}

func TestAuditNilLoggerIsNoop(t *testing.T) {
	var logger *AuditLogger
	assert.NoError(t, logger.LogEvent(AuditLog{EventType: EventViolationCreated}))
	assert.NoError(t, logger.Record("", "", "", "", "", EmptyAnalysis()))
	assert.NoError(t, logger.Close())
}

func TestAuditFileRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	logger, err := NewAuditLogger(AuditConfig{Path: path, RotationSize: 10})
	require.NoError(t, err)

	require.NoError(t, logger.LogEvent(AuditLog{EventType: EventViolationCreated}))
	require.NoError(t, logger.LogEvent(AuditLog{EventType: EventViolationUpdated}))
	require.NoError(t, logger.Close())

	rotated, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.Len(t, rotated, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), EventViolationUpdated)
}
