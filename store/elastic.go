package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/SamuelRCrider/legal-auditor/core"
)

// ElasticConfig holds the connection settings of an ElasticStore
type ElasticConfig struct {
	URL    string
	APIKey string

	// Transport overrides the HTTP transport, mostly for tests
	Transport http.RoundTripper
}

// ElasticStore persists documents, policies and violations in Elasticsearch
type ElasticStore struct {
	es *elasticsearch.Client
}

// NewElasticStore builds a client for the cluster at config.URL
func NewElasticStore(config ElasticConfig) (*ElasticStore, error) {
	if config.URL == "" || config.APIKey == "" {
		return nil, core.Errorf(core.ErrorCategoryConfig, "elasticsearch", "ELASTICSEARCH_URL and ELASTICSEARCH_API_KEY are required")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{config.URL},
		APIKey:    config.APIKey,
		Transport: config.Transport,
	})
	if err != nil {
		return nil, core.NewError(core.ErrorCategoryConfig, "elasticsearch", err)
	}

	return &ElasticStore{es: es}, nil
}

// ClusterInfo describes the connected cluster
type ClusterInfo struct {
	ClusterName string `json:"cluster_name"`
	Version     struct {
		Number string `json:"number"`
	} `json:"version"`
}

// Info returns the cluster name and version
func (s *ElasticStore) Info(ctx context.Context) (*ClusterInfo, error) {
	res, err := s.es.Info(s.es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("info request failed: %w", err)
	}

	var info ClusterInfo
	if err := decodeResponse(res, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ClusterHealth is the subset of the health API the CLI prints
type ClusterHealth struct {
	Status              string `json:"status"`
	NumberOfNodes       int    `json:"number_of_nodes"`
	ActivePrimaryShards int    `json:"active_primary_shards"`
}

// Health returns cluster health
func (s *ElasticStore) Health(ctx context.Context) (*ClusterHealth, error) {
	res, err := s.es.Cluster.Health(s.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}

	var health ClusterHealth
	if err := decodeResponse(res, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (s *ElasticStore) Ping(ctx context.Context) error {
	_, err := s.Info(ctx)
	return err
}

// Setup creates the three indices and the ingest pipelines
func (s *ElasticStore) Setup(ctx context.Context, recreate bool) error {
	for _, name := range indexOrder {
		res, err := s.es.Indices.Exists([]string{name}, s.es.Indices.Exists.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("check index %s: %w", name, err)
		}
		res.Body.Close()
		exists := res.StatusCode == http.StatusOK

		if exists && !recreate {
			continue
		}
		if exists {
			res, err := s.es.Indices.Delete([]string{name}, s.es.Indices.Delete.WithContext(ctx))
			if err != nil {
				return fmt.Errorf("delete index %s: %w", name, err)
			}
			if err := decodeResponse(res, nil); err != nil {
				return fmt.Errorf("delete index %s: %w", name, err)
			}
		}

		body, err := encodeBody(indexMappings[name])
		if err != nil {
			return err
		}
		res, err = s.es.Indices.Create(name,
			s.es.Indices.Create.WithBody(body),
			s.es.Indices.Create.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		if err := decodeResponse(res, nil); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}

	for _, id := range []string{DocumentPipeline, PolicyPipeline} {
		body, err := encodeBody(ingestPipelines[id])
		if err != nil {
			return err
		}
		res, err := s.es.Ingest.PutPipeline(id, body, s.es.Ingest.PutPipeline.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("put pipeline %s: %w", id, err)
		}
		if err := decodeResponse(res, nil); err != nil {
			return fmt.Errorf("put pipeline %s: %w", id, err)
		}
	}

	return nil
}

type indexResponse struct {
	ID string `json:"_id"`
}

func (s *ElasticStore) index(ctx context.Context, index, id, pipeline string, record any) (string, error) {
	body, err := encodeBody(record)
	if err != nil {
		return "", err
	}

	opts := []func(*esapi.IndexRequest){
		s.es.Index.WithContext(ctx),
		s.es.Index.WithRefresh("true"),
	}
	if id != "" {
		opts = append(opts, s.es.Index.WithDocumentID(id))
	}
	if pipeline != "" {
		opts = append(opts, s.es.Index.WithPipeline(pipeline))
	}

	res, err := s.es.Index(index, body, opts...)
	if err != nil {
		return "", fmt.Errorf("index into %s: %w", index, err)
	}

	var out indexResponse
	if err := decodeResponse(res, &out); err != nil {
		return "", fmt.Errorf("index into %s: %w", index, err)
	}
	return out.ID, nil
}

func (s *ElasticStore) get(ctx context.Context, index, id string, into any) error {
	res, err := s.es.Get(index, id, s.es.Get.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", index, id, err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return fmt.Errorf("%s/%s: %w", index, id, ErrNotFound)
	}

	var out struct {
		Source json.RawMessage `json:"_source"`
	}
	if err := decodeResponse(res, &out); err != nil {
		return fmt.Errorf("get %s/%s: %w", index, id, err)
	}
	return json.Unmarshal(out.Source, into)
}

type searchHit struct {
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

func (s *ElasticStore) search(ctx context.Context, index string, query any) (*searchResponse, error) {
	body, err := encodeBody(query)
	if err != nil {
		return nil, err
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(index),
		s.es.Search.WithBody(body),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}

	var out searchResponse
	if err := decodeResponse(res, &out); err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}
	return &out, nil
}

func (s *ElasticStore) IndexDocument(ctx context.Context, doc *Document) (string, error) {
	return s.index(ctx, DocumentsIndex, doc.ID, DocumentPipeline, doc)
}

func (s *ElasticStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := s.get(ctx, DocumentsIndex, id, &doc); err != nil {
		return nil, err
	}
	doc.ID = id
	return &doc, nil
}

func (s *ElasticStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error) {
	size := filter.Size
	if size <= 0 {
		size = 100
	}

	res, err := s.search(ctx, DocumentsIndex, documentQuery(filter, size))
	if err != nil {
		return nil, err
	}

	docs := make([]*Document, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc Document
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", hit.ID, err)
		}
		doc.ID = hit.ID
		docs = append(docs, &doc)
	}
	return docs, nil
}

// documentQuery filters on exact field values, newest first
func documentQuery(filter DocumentFilter, size int) map[string]any {
	var must []map[string]any
	if filter.Source != "" {
		must = append(must, map[string]any{"term": map[string]any{"source": filter.Source}})
	}
	if filter.Flagged != nil {
		must = append(must, map[string]any{"term": map[string]any{"flagged": *filter.Flagged}})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(must) > 0 {
		query = map[string]any{"bool": map[string]any{"filter": must}}
	}

	return map[string]any{
		"query": query,
		"size":  size,
		"sort":  []map[string]any{{"timestamp": map[string]any{"order": "desc"}}},
	}
}

func (s *ElasticStore) IndexPolicy(ctx context.Context, clause *PolicyClause) (string, error) {
	record := *clause
	if record.Keywords == nil {
		record.Keywords = ExtractKeywords(record.Content)
	}
	return s.index(ctx, PoliciesIndex, record.ID, PolicyPipeline, &record)
}

func (s *ElasticStore) ListPolicies(ctx context.Context, framework string) ([]*PolicyClause, error) {
	query := map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
		"size":  100,
	}
	if framework != "" {
		query["query"] = map[string]any{"term": map[string]any{"framework": framework}}
	}

	res, err := s.search(ctx, PoliciesIndex, query)
	if err != nil {
		return nil, err
	}

	clauses := make([]*PolicyClause, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var clause PolicyClause
		if err := json.Unmarshal(hit.Source, &clause); err != nil {
			return nil, fmt.Errorf("decode policy %s: %w", hit.ID, err)
		}
		clause.ID = hit.ID
		clauses = append(clauses, &clause)
	}
	return clauses, nil
}

func (s *ElasticStore) SearchPolicies(ctx context.Context, query PolicyQuery) ([]PolicyHit, error) {
	res, err := s.search(ctx, PoliciesIndex, policySearchBody(query))
	if err != nil {
		return nil, err
	}

	hits := make([]PolicyHit, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var clause PolicyClause
		if err := json.Unmarshal(hit.Source, &clause); err != nil {
			return nil, fmt.Errorf("decode policy %s: %w", hit.ID, err)
		}
		clause.ID = hit.ID
		hits = append(hits, PolicyHit{ID: hit.ID, Score: hit.Score, Clause: clause})
	}
	return hits, nil
}

// policySearchBody builds a bool/should query: one match clause per
// free-text query plus a terms filter on category
func policySearchBody(query PolicyQuery) map[string]any {
	should := make([]map[string]any, 0, len(query.Should)+1)
	for _, q := range query.Should {
		should = append(should, map[string]any{"match": map[string]any{"content": q}})
	}
	if len(query.Categories) > 0 {
		should = append(should, map[string]any{"terms": map[string]any{"category": query.Categories}})
	}

	size := query.Size
	if size <= 0 {
		size = 10
	}

	return map[string]any{
		"query": map[string]any{"bool": map[string]any{"should": should}},
		"size":  size,
	}
}

func (s *ElasticStore) CreateViolation(ctx context.Context, v *Violation) (string, error) {
	return s.index(ctx, ViolationsIndex, v.ID, "", v)
}

func (s *ElasticStore) UpdateViolation(ctx context.Context, id string, update ViolationUpdate) (*Violation, error) {
	body, err := encodeBody(map[string]any{"doc": update})
	if err != nil {
		return nil, err
	}

	res, err := s.es.Update(ViolationsIndex, id, body,
		s.es.Update.WithContext(ctx),
		s.es.Update.WithRefresh("true"),
	)
	if err != nil {
		return nil, fmt.Errorf("update violation %s: %w", id, err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil, fmt.Errorf("violation %s: %w", id, ErrNotFound)
	}
	if err := decodeResponse(res, nil); err != nil {
		return nil, fmt.Errorf("update violation %s: %w", id, err)
	}

	var v Violation
	if err := s.get(ctx, ViolationsIndex, id, &v); err != nil {
		return nil, err
	}
	v.ID = id
	return &v, nil
}

func (s *ElasticStore) ListViolations(ctx context.Context, status string) ([]*Violation, error) {
	query := map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
		"size":  100,
		"sort":  []map[string]any{{"flagged_at": map[string]any{"order": "desc"}}},
	}
	if status != "" {
		query["query"] = map[string]any{"term": map[string]any{"status": status}}
	}

	res, err := s.search(ctx, ViolationsIndex, query)
	if err != nil {
		return nil, err
	}

	out := make([]*Violation, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var v Violation
		if err := json.Unmarshal(hit.Source, &v); err != nil {
			return nil, fmt.Errorf("decode violation %s: %w", hit.ID, err)
		}
		v.ID = hit.ID
		out = append(out, &v)
	}
	return out, nil
}

type termsAgg struct {
	Buckets []struct {
		Key      string `json:"key"`
		DocCount int    `json:"doc_count"`
	} `json:"buckets"`
}

type filterAgg struct {
	DocCount int `json:"doc_count"`
}

func (s *ElasticStore) Stats(ctx context.Context) (*Stats, error) {
	res, err := s.search(ctx, DocumentsIndex, map[string]any{
		"size":             0,
		"track_total_hits": true,
		"aggs": map[string]any{
			"flagged":   map[string]any{"filter": map[string]any{"term": map[string]any{"flagged": true}}},
			"high_risk": map[string]any{"filter": map[string]any{"range": map[string]any{"risk_score": map[string]any{"gte": core.FlagThreshold}}}},
			"pii_types": map[string]any{"terms": map[string]any{"field": "pii_types", "size": 20}},
			"sources":   map[string]any{"terms": map[string]any{"field": "source", "size": 20}},
		},
	})
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalDocuments: res.Hits.Total.Value,
		PIITypeCounts:  make(map[string]int),
		SourceCounts:   make(map[string]int),
	}

	var flagged, highRisk filterAgg
	var types, sources termsAgg
	for name, into := range map[string]any{"flagged": &flagged, "high_risk": &highRisk, "pii_types": &types, "sources": &sources} {
		raw, ok := res.Aggregations[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, into); err != nil {
			return nil, fmt.Errorf("decode aggregation %s: %w", name, err)
		}
	}
	stats.FlaggedDocuments = flagged.DocCount
	stats.HighRisk = highRisk.DocCount
	for _, b := range types.Buckets {
		stats.PIITypeCounts[b.Key] = b.DocCount
	}
	for _, b := range sources.Buckets {
		stats.SourceCounts[b.Key] = b.DocCount
	}

	if stats.TotalPolicies, err = s.count(ctx, PoliciesIndex, nil); err != nil {
		return nil, err
	}
	pending := map[string]any{"term": map[string]any{"status": StatusPending}}
	if stats.PendingReview, err = s.count(ctx, ViolationsIndex, pending); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *ElasticStore) count(ctx context.Context, index string, query map[string]any) (int, error) {
	opts := []func(*esapi.CountRequest){
		s.es.Count.WithContext(ctx),
		s.es.Count.WithIndex(index),
	}
	if query != nil {
		body, err := encodeBody(map[string]any{"query": query})
		if err != nil {
			return 0, err
		}
		opts = append(opts, s.es.Count.WithBody(body))
	}

	res, err := s.es.Count(opts...)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", index, err)
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := decodeResponse(res, &out); err != nil {
		return 0, fmt.Errorf("count %s: %w", index, err)
	}
	return out.Count, nil
}

func encodeBody(v any) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return &buf, nil
}

// ResponseError is an error status returned by the cluster
type ResponseError struct {
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("elasticsearch returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("elasticsearch returned status %d: %s: %s", e.StatusCode, e.Type, e.Reason)
}

// decodeResponse closes the body and decodes it into out when non-nil
func decodeResponse(res *esapi.Response, out any) error {
	defer res.Body.Close()

	if res.IsError() {
		var body struct {
			Error struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&body)
		return &ResponseError{StatusCode: res.StatusCode, Type: body.Error.Type, Reason: body.Error.Reason}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// requestTimeout bounds a single store call made by the CLI helpers
const requestTimeout = 30 * time.Second

// WithTimeout derives a context bounded by the default store request timeout
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}
