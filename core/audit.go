package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditLogLevel defines the verbosity of audit logging
type AuditLogLevel string

const (
	// AuditLogLevelMinimal logs only warnings and above, without content
	AuditLogLevelMinimal AuditLogLevel = "minimal"

	// AuditLogLevelStandard logs all events with truncated content
	AuditLogLevelStandard AuditLogLevel = "standard"

	// AuditLogLevelVerbose logs all details including full content
	AuditLogLevelVerbose AuditLogLevel = "verbose"
)

// AuditLogSeverity defines the severity of audit log events
type AuditLogSeverity string

const (
	SeverityInfo     AuditLogSeverity = "info"
	SeverityWarning  AuditLogSeverity = "warning"
	SeverityError    AuditLogSeverity = "error"
	SeverityCritical AuditLogSeverity = "critical"
)

// Audit event types
const (
	EventDocumentAnalyzed   = "document_analyzed"
	EventDocumentFlagged    = "document_flagged"
	EventPolicyLookupFailed = "policy_lookup_failed"
	EventViolationCreated   = "violation_created"
	EventViolationUpdated   = "violation_updated"
)

// contentPreviewLen bounds content carried at the standard level
const contentPreviewLen = 100

// AuditLog is one line of the audit trail
type AuditLog struct {
	RequestID string           `json:"request_id"`
	Timestamp string           `json:"timestamp"`
	EventType string           `json:"event_type"`
	Severity  AuditLogSeverity `json:"severity"`

	DocumentID string `json:"document_id,omitempty"`
	Source     string `json:"source,omitempty"`
	Author     string `json:"author,omitempty"`

	// Content is stored redacted; see Record
	Content   string   `json:"content,omitempty"`
	PIITypes  []Kind   `json:"pii_types,omitempty"`
	PIICount  int      `json:"pii_count,omitempty"`
	RiskScore *float64 `json:"risk_score,omitempty"`
	Flagged   bool     `json:"flagged,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// AuditConfig configures an AuditLogger
type AuditConfig struct {
	// Path of the JSONL file; ignored when Writer is set
	Path string

	Level AuditLogLevel

	// Size in bytes after which the file is rotated
	RotationSize int64

	// Number of days rotated files are kept
	RetentionDays int

	// Also echo entries to stdout
	Console bool

	// Writer replaces the file sink, mostly for tests
	Writer io.Writer
}

// AuditLogger appends analysis and review events to a JSONL trail
type AuditLogger struct {
	mu          sync.Mutex
	config      AuditConfig
	writer      io.Writer
	file        *os.File
	currentSize int64
}

// NewAuditLogger opens the audit trail described by config
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	if config.Level == "" {
		config.Level = AuditLogLevelStandard
	}
	if config.RotationSize == 0 {
		config.RotationSize = 100 * 1024 * 1024
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 90
	}

	l := &AuditLogger{config: config}
	if config.Writer != nil {
		l.writer = config.Writer
		return l, nil
	}
	if config.Path == "" {
		config.Path = "audit.log"
		l.config.Path = config.Path
	}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

// open the log file for appending
func (l *AuditLogger) open() error {
	dir := filepath.Dir(l.config.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.config.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to get log file info: %w", err)
	}

	l.file = f
	l.currentSize = info.Size()
	if l.config.Console {
		l.writer = io.MultiWriter(f, os.Stdout)
	} else {
		l.writer = f
	}
	return nil
}

// maybeRotateLog rotates the file once it passes the configured size
func (l *AuditLogger) maybeRotateLog() error {
	if l.file == nil || l.currentSize < l.config.RotationSize {
		return nil
	}

	l.file.Close()

	rotatedPath := fmt.Sprintf("%s.%s", l.config.Path, time.Now().Format("20060102-150405"))
	if err := os.Rename(l.config.Path, rotatedPath); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	l.cleanupOldLogs()

	return l.open()
}

// cleanupOldLogs removes rotated files older than the retention period
func (l *AuditLogger) cleanupOldLogs() {
	cutoff := time.Now().AddDate(0, 0, -l.config.RetentionDays)

	files, err := filepath.Glob(l.config.Path + ".*")
	if err != nil {
		return
	}

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(file)
		}
	}
}

// LogEvent writes one audit entry, applying level filtering
func (l *AuditLogger) LogEvent(entry AuditLog) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.maybeRotateLog(); err != nil {
		return err
	}

	if entry.Severity == "" {
		entry.Severity = SeverityInfo
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if entry.RequestID == "" {
		entry.RequestID = uuid.NewString()
	}

	switch l.config.Level {
	case AuditLogLevelMinimal:
		if entry.Severity == SeverityInfo {
			return nil
		}
		entry.Content = ""
	case AuditLogLevelStandard:
		if len(entry.Content) > contentPreviewLen {
			entry.Content = entry.Content[:contentPreviewLen] + "... [truncated]"
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	n, err := fmt.Fprintln(l.writer, string(data))
	if err != nil {
		return fmt.Errorf("failed to write to log: %w", err)
	}
	l.currentSize += int64(n)

	return nil
}

// Record logs the outcome of one analysis. Content is written with every
// match replaced by its redacted form, so the trail never holds raw PII.
func (l *AuditLogger) Record(requestID, documentID, source, author, content string, result *AnalysisResult) error {
	if l == nil || result == nil {
		return nil
	}

	score := result.RiskScore
	entry := AuditLog{
		RequestID:  requestID,
		EventType:  EventDocumentAnalyzed,
		Severity:   SeverityInfo,
		DocumentID: documentID,
		Source:     source,
		Author:     author,
		Content:    ApplyRedactions(content, result.Matches),
		PIITypes:   result.Kinds,
		PIICount:   result.Count,
		RiskScore:  &score,
		Flagged:    result.Flagged,
	}
	if result.Flagged {
		entry.EventType = EventDocumentFlagged
		entry.Severity = SeverityWarning
	}

	return l.LogEvent(entry)
}

// Close releases the underlying file
func (l *AuditLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
