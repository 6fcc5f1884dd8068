// Package store holds the document and policy store used by the auditor:
// the record types, the Store interface and its in-memory and
// Elasticsearch implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/SamuelRCrider/legal-auditor/core"
	"github.com/SamuelRCrider/legal-auditor/utils"
)

// Index names shared by every backend
const (
	PoliciesIndex   = "compliance-policies"
	DocumentsIndex  = "monitored-documents"
	ViolationsIndex = "flagged-violations"
)

// ErrNotFound is returned when a record id is unknown
var ErrNotFound = errors.New("record not found")

// Document is a monitored message enriched with its analysis
type Document struct {
	ID          string    `json:"-"`
	Content     string    `json:"content"`
	Source      string    `json:"source,omitempty"`
	Channel     string    `json:"channel,omitempty"`
	Author      string    `json:"author,omitempty"`
	AuthorEmail string    `json:"author_email,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	IngestedAt  time.Time `json:"ingested_at,omitempty"`

	PIIDetected []utils.MatchResult `json:"pii_detected"`
	PIITypes    []core.Kind         `json:"pii_types"`
	PIICount    int                 `json:"pii_count"`
	RiskScore   float64             `json:"risk_score"`
	Flagged     bool                `json:"flagged"`
	Reviewed    bool                `json:"reviewed"`
}

// ApplyAnalysis merges an analysis result into the document fields
func (d *Document) ApplyAnalysis(result *core.AnalysisResult) {
	d.PIIDetected = result.Matches
	d.PIITypes = result.Kinds
	d.PIICount = result.Count
	d.RiskScore = result.RiskScore
	d.Flagged = result.Flagged
}

// PolicyClause is one unit of regulatory or internal policy text
type PolicyClause struct {
	ID            string   `json:"-" yaml:"id,omitempty"`
	Title         string   `json:"title" yaml:"title"`
	Content       string   `json:"content" yaml:"content"`
	Framework     string   `json:"framework" yaml:"framework"`
	Section       string   `json:"section,omitempty" yaml:"section"`
	Article       string   `json:"article,omitempty" yaml:"article"`
	Category      string   `json:"category" yaml:"category"`
	EffectiveDate string   `json:"effective_date,omitempty" yaml:"effective_date"`
	Version       string   `json:"version,omitempty" yaml:"version"`
	Keywords      []string `json:"keywords,omitempty" yaml:"-"`
}

// PolicyHit is a ranked search result
type PolicyHit struct {
	ID     string
	Score  float64
	Clause PolicyClause
}

// PolicyQuery OR-combines free-text matches on clause content with an exact
// category filter
type PolicyQuery struct {
	Should     []string
	Categories []string
	Size       int
}

// DocumentFilter selects documents by exact field values
type DocumentFilter struct {
	Source  string
	Flagged *bool
	Size    int
}

// Violation statuses
const (
	StatusPending    = "PENDING"
	StatusInReview   = "IN_REVIEW"
	StatusReviewed   = "REVIEWED"
	StatusRemediated = "REMEDIATED"
	StatusDismissed  = "DISMISSED"
)

// Violation tracks the review of a flagged document
type Violation struct {
	ID                string     `json:"-"`
	DocumentID        string     `json:"document_id"`
	DocumentSource    string     `json:"document_source,omitempty"`
	DocumentAuthor    string     `json:"document_author,omitempty"`
	DocumentSnippet   string     `json:"document_snippet,omitempty"`
	ViolationType     string     `json:"violation_type,omitempty"`
	PolicyFramework   string     `json:"policy_framework,omitempty"`
	PolicyReference   string     `json:"policy_reference,omitempty"`
	Severity          string     `json:"severity,omitempty"`
	PIIInvolved       []string   `json:"pii_involved,omitempty"`
	PIICount          int        `json:"pii_count,omitempty"`
	RemediationAdvice string     `json:"remediation_advice,omitempty"`
	Status            string     `json:"status"`
	FlaggedAt         time.Time  `json:"flagged_at"`
	FlaggedBy         string     `json:"flagged_by"`
	ReviewedBy        string     `json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	ResolutionNotes   string     `json:"resolution_notes,omitempty"`
}

// ViolationUpdate carries the mutable fields of a violation
type ViolationUpdate struct {
	Status          string     `json:"status,omitempty"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
}

// Apply copies the set fields of u onto v
func (u ViolationUpdate) Apply(v *Violation) {
	if u.Status != "" {
		v.Status = u.Status
	}
	if u.ReviewedBy != "" {
		v.ReviewedBy = u.ReviewedBy
	}
	if u.ReviewedAt != nil {
		v.ReviewedAt = u.ReviewedAt
	}
	if u.ResolutionNotes != "" {
		v.ResolutionNotes = u.ResolutionNotes
	}
}

// Stats summarizes the monitored documents
type Stats struct {
	TotalDocuments   int            `json:"totalDocuments"`
	FlaggedDocuments int            `json:"flaggedDocuments"`
	HighRisk         int            `json:"highRisk"`
	TotalPolicies    int            `json:"totalPolicies"`
	PendingReview    int            `json:"pendingViolations"`
	PIITypeCounts    map[string]int `json:"piiTypeCounts"`
	SourceCounts     map[string]int `json:"sourceCounts"`
}

// Store is the document/policy store collaborator
type Store interface {
	// Setup creates indices and ingest pipelines; recreate drops existing ones
	Setup(ctx context.Context, recreate bool) error
	Ping(ctx context.Context) error

	IndexDocument(ctx context.Context, doc *Document) (string, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error)

	IndexPolicy(ctx context.Context, clause *PolicyClause) (string, error)
	ListPolicies(ctx context.Context, framework string) ([]*PolicyClause, error)
	SearchPolicies(ctx context.Context, query PolicyQuery) ([]PolicyHit, error)

	CreateViolation(ctx context.Context, v *Violation) (string, error)
	UpdateViolation(ctx context.Context, id string, update ViolationUpdate) (*Violation, error)
	ListViolations(ctx context.Context, status string) ([]*Violation, error)

	Stats(ctx context.Context) (*Stats, error)
}
