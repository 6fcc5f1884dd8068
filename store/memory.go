package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SamuelRCrider/legal-auditor/core"
)

// MemoryStore keeps every index in process memory. It backs local runs and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	documents  map[string]*Document
	policies   map[string]*PolicyClause
	violations map[string]*Violation

	// insertion order, for stable listings
	docOrder       []string
	policyOrder    []string
	violationOrder []string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents:  make(map[string]*Document),
		policies:   make(map[string]*PolicyClause),
		violations: make(map[string]*Violation),
	}
}

func (m *MemoryStore) Setup(_ context.Context, recreate bool) error {
	if !recreate {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.documents = make(map[string]*Document)
	m.policies = make(map[string]*PolicyClause)
	m.violations = make(map[string]*Violation)
	m.docOrder, m.policyOrder, m.violationOrder = nil, nil, nil
	return nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStore) IndexDocument(_ context.Context, doc *Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *doc
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.IngestedAt.IsZero() {
		stored.IngestedAt = time.Now().UTC()
	}

	if _, exists := m.documents[stored.ID]; !exists {
		m.docOrder = append(m.docOrder, stored.ID)
	}
	m.documents[stored.ID] = &stored
	return stored.ID, nil
}

func (m *MemoryStore) GetDocument(_ context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	out := *doc
	return &out, nil
}

// ListDocuments returns matching documents, newest first
func (m *MemoryStore) ListDocuments(_ context.Context, filter DocumentFilter) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*Document{}
	for i := len(m.docOrder) - 1; i >= 0; i-- {
		doc := m.documents[m.docOrder[i]]
		if filter.Source != "" && doc.Source != filter.Source {
			continue
		}
		if filter.Flagged != nil && doc.Flagged != *filter.Flagged {
			continue
		}
		cp := *doc
		out = append(out, &cp)
		if filter.Size > 0 && len(out) == filter.Size {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) IndexPolicy(_ context.Context, clause *PolicyClause) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *clause
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Keywords == nil {
		stored.Keywords = ExtractKeywords(stored.Content)
	}

	if _, exists := m.policies[stored.ID]; !exists {
		m.policyOrder = append(m.policyOrder, stored.ID)
	}
	m.policies[stored.ID] = &stored
	return stored.ID, nil
}

func (m *MemoryStore) ListPolicies(_ context.Context, framework string) ([]*PolicyClause, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*PolicyClause{}
	for _, id := range m.policyOrder {
		p := m.policies[id]
		if framework != "" && p.Framework != framework {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// SearchPolicies ranks clauses by the share of each query's terms found in
// the content, plus one for a category in the filter. Clauses matching
// nothing are not returned.
func (m *MemoryStore) SearchPolicies(_ context.Context, query PolicyQuery) ([]PolicyHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	categories := make(map[string]bool, len(query.Categories))
	for _, c := range query.Categories {
		categories[c] = true
	}

	var hits []PolicyHit
	for _, id := range m.policyOrder {
		p := m.policies[id]

		terms := make(map[string]bool)
		for _, t := range tokenize(p.Content) {
			terms[t] = true
		}

		score := 0.0
		for _, q := range query.Should {
			qterms := tokenize(q)
			if len(qterms) == 0 {
				continue
			}
			found := 0
			for _, t := range qterms {
				if terms[t] {
					found++
				}
			}
			score += float64(found) / float64(len(qterms))
		}
		if categories[p.Category] {
			score += 1.0
		}

		if score > 0 {
			hits = append(hits, PolicyHit{ID: id, Score: score, Clause: *p})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if query.Size > 0 && len(hits) > query.Size {
		hits = hits[:query.Size]
	}
	return hits, nil
}

func (m *MemoryStore) CreateViolation(_ context.Context, v *Violation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *v
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	m.violations[stored.ID] = &stored
	m.violationOrder = append(m.violationOrder, stored.ID)
	return stored.ID, nil
}

func (m *MemoryStore) UpdateViolation(_ context.Context, id string, update ViolationUpdate) (*Violation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.violations[id]
	if !ok {
		return nil, fmt.Errorf("violation %s: %w", id, ErrNotFound)
	}
	update.Apply(v)

	out := *v
	return &out, nil
}

// ListViolations returns violations newest first
func (m *MemoryStore) ListViolations(_ context.Context, status string) ([]*Violation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*Violation{}
	for i := len(m.violationOrder) - 1; i >= 0; i-- {
		v := m.violations[m.violationOrder[i]]
		if status != "" && v.Status != status {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{
		TotalDocuments: len(m.documents),
		TotalPolicies:  len(m.policies),
		PIITypeCounts:  make(map[string]int),
		SourceCounts:   make(map[string]int),
	}
	for _, doc := range m.documents {
		if doc.Flagged {
			stats.FlaggedDocuments++
		}
		if core.LevelFor(doc.RiskScore) == core.RiskHigh {
			stats.HighRisk++
		}
		for _, k := range doc.PIITypes {
			stats.PIITypeCounts[string(k)]++
		}
		if doc.Source != "" {
			stats.SourceCounts[doc.Source]++
		}
	}
	for _, v := range m.violations {
		if v.Status == StatusPending {
			stats.PendingReview++
		}
	}
	return stats, nil
}
