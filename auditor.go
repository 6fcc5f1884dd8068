// Package auditor ties the detection engine to the document and policy store:
// it analyzes and indexes documents, cross-references detected PII against
// the compliance clause library and tracks violations through review.
package auditor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/SamuelRCrider/legal-auditor/core"
	"github.com/SamuelRCrider/legal-auditor/logger"
	"github.com/SamuelRCrider/legal-auditor/store"
	"github.com/SamuelRCrider/legal-auditor/utils"
)

// Policy lookup is a fixed topical search, independent of which kinds were found
var (
	policyQueries    = []string{"personal data disclosure", "pii protection"}
	policyCategories = []string{"DATA_PROTECTION", "PHI_DISCLOSURE", "DATA_SECURITY"}
)

const policyMatchLimit = 5

// Defaults applied to manually submitted documents
const (
	DefaultSource  = "manual"
	DefaultAuthor  = "user"
	ManualChannel  = "manual-upload"
	manualEmailFmt = "%s@manual.input"
)

// Auditor runs the analysis pipeline against a store
type Auditor struct {
	store    store.Store
	analyzer *core.Analyzer
	audit    *core.AuditLogger
	log      *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures an Auditor
type Option func(*Auditor)

// WithAnalyzer replaces the built-in analyzer, e.g. one with a detection policy
func WithAnalyzer(analyzer *core.Analyzer) Option {
	return func(a *Auditor) {
		a.analyzer = analyzer
	}
}

// WithAuditLogger records every analysis and review event to the audit trail
func WithAuditLogger(audit *core.AuditLogger) Option {
	return func(a *Auditor) {
		a.audit = audit
	}
}

// WithLogger sets the operational logger
func WithLogger(log *slog.Logger) Option {
	return func(a *Auditor) {
		a.log = log
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Auditor) {
		a.now = now
	}
}

// New creates an Auditor backed by s
func New(s store.Store, opts ...Option) *Auditor {
	a := &Auditor{
		store:    s,
		analyzer: core.NewAnalyzer(nil),
		log:      logger.WithComponent("auditor"),
		tracer:   otel.Tracer("legal-auditor"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the backing store
func (a *Auditor) Store() store.Store {
	return a.store
}

// Analyzer returns the detection pipeline in use
func (a *Auditor) Analyzer() *core.Analyzer {
	return a.analyzer
}

// PolicyMatch is a clause returned by the policy lookup
type PolicyMatch struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Framework      string  `json:"framework"`
	Article        string  `json:"article"`
	RelevanceScore float64 `json:"relevance_score"`
}

// MatchPolicies looks up the clauses relevant to the detected kinds. Clean
// documents never trigger a lookup.
func (a *Auditor) MatchPolicies(ctx context.Context, kinds []core.Kind) ([]PolicyMatch, error) {
	if len(kinds) == 0 {
		return []PolicyMatch{}, nil
	}

	ctx, span := a.tracer.Start(ctx, "match_policies")
	defer span.End()
	span.SetAttributes(attribute.Int("pii.kinds", len(kinds)))

	hits, err := a.store.SearchPolicies(ctx, store.PolicyQuery{
		Should:     policyQueries,
		Categories: policyCategories,
		Size:       policyMatchLimit,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "policy search failed")
		return nil, core.NewError(core.ErrorCategoryStore, "search policies", err)
	}

	matches := make([]PolicyMatch, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, PolicyMatch{
			ID:             hit.ID,
			Title:          hit.Clause.Title,
			Framework:      hit.Clause.Framework,
			Article:        hit.Clause.Article,
			RelevanceScore: hit.Score,
		})
	}
	span.SetAttributes(attribute.Int("policies.matched", len(matches)))
	return matches, nil
}

// AnalyzeRequest is a document submitted for interactive analysis
type AnalyzeRequest struct {
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
	Author  string `json:"author,omitempty"`
}

// AnalyzeResponse is the interactive analysis outcome
type AnalyzeResponse struct {
	DocumentID      string              `json:"documentId"`
	Content         string              `json:"content"`
	PIIDetected     []utils.MatchResult `json:"piiDetected"`
	PIICount        int                 `json:"piiCount"`
	PIITypes        []core.Kind         `json:"piiTypes"`
	RiskScore       float64             `json:"riskScore"`
	RiskLevel       core.RiskLevel      `json:"riskLevel"`
	Flagged         bool                `json:"flagged"`
	MatchedPolicies []PolicyMatch       `json:"matchedPolicies"`
	Recommendations []string            `json:"recommendations"`
}

// AnalyzeDocument analyzes content, indexes the enriched document and
// attaches matched policies and recommendations. A failed policy lookup is
// logged and leaves the policy list empty; it does not fail the analysis.
func (a *Auditor) AnalyzeDocument(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	if req.Content == "" {
		return nil, core.Errorf(core.ErrorCategoryValidation, "analyze", "content is required")
	}
	if req.Source == "" {
		req.Source = DefaultSource
	}
	if req.Author == "" {
		req.Author = DefaultAuthor
	}

	ctx, span := a.tracer.Start(ctx, "analyze_document")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.source", req.Source),
		attribute.Int("document.bytes", len(req.Content)),
	)

	result, err := a.analyzer.AnalyzeChecked(req.Content)
	if err != nil {
		span.RecordError(err)
		return nil, core.NewError(core.ErrorCategoryValidation, "analyze", err)
	}

	doc := &store.Document{
		Content:     req.Content,
		Source:      req.Source,
		Channel:     ManualChannel,
		Author:      req.Author,
		AuthorEmail: fmt.Sprintf(manualEmailFmt, req.Author),
		Timestamp:   a.now().UTC(),
	}
	doc.ApplyAnalysis(result)

	id, err := a.store.IndexDocument(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index failed")
		return nil, core.NewError(core.ErrorCategoryStore, "index document", err)
	}
	span.SetAttributes(
		attribute.String("document.id", id),
		attribute.Float64("risk.score", result.RiskScore),
		attribute.Bool("risk.flagged", result.Flagged),
	)

	requestID := requestIDFrom(ctx)
	if err := a.audit.Record(requestID, id, req.Source, req.Author, req.Content, result); err != nil {
		a.log.Warn("audit record failed", "document_id", id, "error", err)
	}

	policies, err := a.MatchPolicies(ctx, result.Kinds)
	if err != nil {
		a.log.Warn("policy lookup failed, continuing without matches", "document_id", id, "error", err)
		_ = a.audit.LogEvent(core.AuditLog{
			RequestID:  requestID,
			EventType:  core.EventPolicyLookupFailed,
			Severity:   core.SeverityError,
			DocumentID: id,
			Metadata:   map[string]string{"error": err.Error()},
		})
		policies = []PolicyMatch{}
	}

	a.log.Info("document analyzed",
		"document_id", id,
		"pii_count", result.Count,
		"risk_score", result.RiskScore,
		"flagged", result.Flagged,
	)

	return &AnalyzeResponse{
		DocumentID:      id,
		Content:         req.Content,
		PIIDetected:     result.Matches,
		PIICount:        result.Count,
		PIITypes:        result.Kinds,
		RiskScore:       result.RiskScore,
		RiskLevel:       result.RiskLevel(),
		Flagged:         result.Flagged,
		MatchedPolicies: policies,
		Recommendations: core.Recommend(result.Kinds, result.RiskScore),
	}, nil
}

// IngestSummary reports the outcome of a bulk ingestion
type IngestSummary struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	HighRisk   int `json:"highRisk"`
	Flagged    int `json:"flagged"`
	Total      int `json:"total"`
}

// IngestDocuments analyzes and indexes each document. A document that fails
// to index is counted and skipped. The returned error is non-nil only when
// the context is cancelled.
func (a *Auditor) IngestDocuments(ctx context.Context, docs []store.Document) (IngestSummary, error) {
	ctx, span := a.tracer.Start(ctx, "ingest_documents")
	defer span.End()

	summary := IngestSummary{Total: len(docs)}

	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Content
	}
	results := a.analyzer.AnalyzeBatch(texts, 4)

	for i := range docs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		doc := docs[i]
		if doc.Timestamp.IsZero() {
			doc.Timestamp = a.now().UTC()
		}
		doc.ApplyAnalysis(results[i])

		id, err := a.store.IndexDocument(ctx, &doc)
		if err != nil {
			summary.Failed++
			span.RecordError(err)
			a.log.Error("failed to ingest document", "index", i+1, "source", doc.Source, "error", err)
			continue
		}
		summary.Successful++

		if results[i].RiskLevel() == core.RiskHigh {
			summary.HighRisk++
		}
		if results[i].Flagged {
			summary.Flagged++
		}
		if err := a.audit.Record("", id, doc.Source, doc.Author, doc.Content, results[i]); err != nil {
			a.log.Warn("audit record failed", "document_id", id, "error", err)
		}

		a.log.Debug("document ingested",
			"document_id", id,
			"source", doc.Source,
			"channel", doc.Channel,
			"pii_count", results[i].Count,
			"risk_level", results[i].RiskLevel(),
		)
	}

	span.SetAttributes(
		attribute.Int("ingest.successful", summary.Successful),
		attribute.Int("ingest.failed", summary.Failed),
	)
	return summary, nil
}

// IngestPolicies indexes the clause library and returns the number indexed
func (a *Auditor) IngestPolicies(ctx context.Context, clauses []store.PolicyClause) (int, error) {
	ctx, span := a.tracer.Start(ctx, "ingest_policies")
	defer span.End()

	indexed := 0
	var errs []error
	for i := range clauses {
		clause := clauses[i]
		if clause.Keywords == nil {
			clause.Keywords = store.ExtractKeywords(clause.Content)
		}
		if _, err := a.store.IndexPolicy(ctx, &clause); err != nil {
			span.RecordError(err)
			a.log.Error("failed to index policy", "title", clause.Title, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", clause.Title, err))
			continue
		}
		indexed++
	}

	if len(errs) > 0 {
		return indexed, core.NewError(core.ErrorCategoryStore, "ingest policies", errors.Join(errs...))
	}
	return indexed, nil
}

// CreateViolation records a flagged document for review. Status, flag time
// and reporter are always set here, whatever the caller supplied.
func (a *Auditor) CreateViolation(ctx context.Context, v store.Violation) (*store.Violation, error) {
	v.Status = store.StatusPending
	v.FlaggedAt = a.now().UTC()
	v.FlaggedBy = "agent"

	id, err := a.store.CreateViolation(ctx, &v)
	if err != nil {
		return nil, core.NewError(core.ErrorCategoryStore, "create violation", err)
	}
	v.ID = id

	_ = a.audit.LogEvent(core.AuditLog{
		RequestID:  requestIDFrom(ctx),
		EventType:  core.EventViolationCreated,
		Severity:   core.SeverityWarning,
		DocumentID: v.DocumentID,
		Metadata:   map[string]string{"violation_id": id, "severity": v.Severity},
	})
	return &v, nil
}

// UpdateViolation applies a review update. Moving to REVIEWED or REMEDIATED
// stamps the review time.
func (a *Auditor) UpdateViolation(ctx context.Context, id string, update store.ViolationUpdate) (*store.Violation, error) {
	if update.Status == store.StatusReviewed || update.Status == store.StatusRemediated {
		reviewedAt := a.now().UTC()
		update.ReviewedAt = &reviewedAt
	}

	v, err := a.store.UpdateViolation(ctx, id, update)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NewError(core.ErrorCategoryNotFound, "update violation", err)
		}
		return nil, core.NewError(core.ErrorCategoryStore, "update violation", err)
	}

	_ = a.audit.LogEvent(core.AuditLog{
		RequestID:  requestIDFrom(ctx),
		EventType:  core.EventViolationUpdated,
		DocumentID: v.DocumentID,
		Metadata:   map[string]string{"violation_id": id, "status": v.Status},
	})
	return v, nil
}

// ListViolations returns violations, optionally filtered by status
func (a *Auditor) ListViolations(ctx context.Context, status string) ([]*store.Violation, error) {
	out, err := a.store.ListViolations(ctx, status)
	if err != nil {
		return nil, core.NewError(core.ErrorCategoryStore, "list violations", err)
	}
	return out, nil
}

type requestIDKey struct{}

// ContextWithRequestID tags ctx with the id used for audit entries
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
