package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditor "github.com/SamuelRCrider/legal-auditor"
	"github.com/SamuelRCrider/legal-auditor/logger"
	"github.com/SamuelRCrider/legal-auditor/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type brokenStore struct {
	*store.MemoryStore
}

var errDown = errors.New("cluster down")

func (b brokenStore) Stats(context.Context) (*store.Stats, error) { return nil, errDown }
func (b brokenStore) Ping(context.Context) error                  { return errDown }

func newTestServer(t *testing.T, s store.Store, config Config) *Server {
	t.Helper()
	a := auditor.New(s, auditor.WithLogger(logger.Discard()))
	return New(a, config, logger.Discard())
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), Config{})

	w := do(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["store"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestHealthReportsDisconnectedStore(t *testing.T) {
	srv := newTestServer(t, brokenStore{store.NewMemoryStore()}, Config{})

	w := do(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "disconnected", decode(t, w)["store"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := store.NewMemoryStore()
	_, err := s.IndexPolicy(context.Background(), &store.PolicyClause{
		Title: "Security of processing", Framework: "GDPR", Article: "32",
		Category: "DATA_SECURITY", Content: "Appropriate protection of personal data.",
	})
	require.NoError(t, err)
	srv := newTestServer(t, s, Config{})

	w := do(t, srv, http.MethodPost, "/api/analyze", `{"content":"SSN 123-45-6789, card 4532-1234-5678-9012","source":"slack","author":"bob"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.NotEmpty(t, body["documentId"])
	assert.EqualValues(t, 2, body["piiCount"])
	assert.Equal(t, []any{"SSN", "CREDIT_CARD"}, body["piiTypes"])
	assert.InDelta(t, 0.95, body["riskScore"], 1e-9)
	assert.Equal(t, "HIGH", body["riskLevel"])
	assert.Equal(t, true, body["flagged"])
	assert.Len(t, body["matchedPolicies"], 1)

	first := body["piiDetected"].([]any)[0].(map[string]any)
	assert.Equal(t, "[REDACTED]", first["value"])
	assert.Equal(t, "XXX-XX-6789", first["redacted"])

	policy := body["matchedPolicies"].([]any)[0].(map[string]any)
	assert.Equal(t, "GDPR", policy["framework"])
	assert.Contains(t, policy, "relevance_score")

	// the analyzed document is now listed
	w = do(t, srv, http.MethodGet, "/api/documents/"+body["documentId"].(string), "")
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode(t, w)
	assert.Equal(t, "slack", doc["source"])
	assert.Equal(t, "bob@manual.input", doc["author_email"])
	assert.Equal(t, "HIGH", doc["risk_level"])
}

func TestAnalyzeRequiresContent(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), Config{})

	for _, body := range []string{`{}`, `{"content":""}`, `not json`} {
		w := do(t, srv, http.MethodPost, "/api/analyze", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Content is required", decode(t, w)["error"])
	}
}

func TestDocumentListing(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	_, err := s.IndexDocument(ctx, &store.Document{Content: "a", Source: "slack", Flagged: true, RiskScore: 0.9})
	require.NoError(t, err)
	_, err = s.IndexDocument(ctx, &store.Document{Content: "b", Source: "email"})
	require.NoError(t, err)
	srv := newTestServer(t, s, Config{})

	w := do(t, srv, http.MethodGet, "/api/documents", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["total"])

	w = do(t, srv, http.MethodGet, "/api/documents?source=email", "")
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = do(t, srv, http.MethodGet, "/api/documents/flagged", "")
	body := decode(t, w)
	assert.EqualValues(t, 1, body["total"])
	doc := body["documents"].([]any)[0].(map[string]any)
	assert.Equal(t, "slack", doc["source"])
	assert.NotEmpty(t, doc["id"])

	w = do(t, srv, http.MethodGet, "/api/documents?flagged=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, http.MethodGet, "/api/documents?size=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDocumentNotFound(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), Config{})

	w := do(t, srv, http.MethodGet, "/api/documents/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w)["error"], "not found")
}

func TestPolicies(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	for _, c := range []store.PolicyClause{
		{Title: "Breach notification", Framework: "GDPR", Content: "Notify the supervisory authority of a personal data breach."},
		{Title: "Minimum necessary", Framework: "HIPAA", Content: "Limit PHI to the minimum necessary."},
	} {
		_, err := s.IndexPolicy(ctx, &c)
		require.NoError(t, err)
	}
	srv := newTestServer(t, s, Config{})

	w := do(t, srv, http.MethodGet, "/api/policies?framework=HIPAA", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["total"])

	w = do(t, srv, http.MethodPost, "/api/policies/search", `{"query":"data breach"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	hit := results[0].(map[string]any)
	assert.Equal(t, "Breach notification", hit["title"])
	assert.Contains(t, hit, "score")

	w = do(t, srv, http.MethodPost, "/api/policies/search", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestViolationEndpoints(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), Config{})

	w := do(t, srv, http.MethodPost, "/api/violations", `{"document_id":"doc-1","severity":"HIGH","violation_type":"SSN_EXPOSURE","status":"DISMISSED"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode(t, w)
	id := created["id"].(string)
	assert.Equal(t, "PENDING", created["status"])
	assert.Equal(t, "agent", created["flagged_by"])
	assert.Equal(t, "SSN_EXPOSURE", created["violation_type"])

	w = do(t, srv, http.MethodPatch, "/api/violations/"+id, `{"status":"REMEDIATED","reviewed_by":"dpo"}`)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode(t, w)
	assert.Equal(t, "REMEDIATED", updated["status"])
	assert.NotEmpty(t, updated["reviewed_at"])

	w = do(t, srv, http.MethodGet, "/api/violations?status=REMEDIATED", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = do(t, srv, http.MethodPatch, "/api/violations/unknown", `{"status":"REVIEWED"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, http.MethodPost, "/api/violations", `{"severity":"LOW"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats(t *testing.T) {
	s := store.NewMemoryStore()
	_, err := s.IndexDocument(context.Background(), &store.Document{Source: "slack", Flagged: true, RiskScore: 0.95})
	require.NoError(t, err)
	srv := newTestServer(t, s, Config{})

	w := do(t, srv, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["totalDocuments"])
	assert.EqualValues(t, 1, body["flaggedDocuments"])

	broken := newTestServer(t, brokenStore{store.NewMemoryStore()}, Config{})
	w = do(t, broken, http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "cluster down", decode(t, w)["error"])
}

func TestRateLimitMiddleware(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), Config{RateLimit: 2, RateWindow: time.Minute})

	for i := 0; i < 2; i++ {
		w := do(t, srv, http.MethodGet, "/api/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := do(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiterWindowReset(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Second)
	rl.now = func() time.Time { return now }

	exceeded, count, _ := rl.CheckLimit("client")
	assert.False(t, exceeded)
	assert.Equal(t, 1, count)

	exceeded, _, _ = rl.CheckLimit("client")
	assert.True(t, exceeded)

	exceeded, _, _ = rl.CheckLimit("other")
	assert.False(t, exceeded)

	now = now.Add(2 * time.Second)
	exceeded, count, _ = rl.CheckLimit("client")
	assert.False(t, exceeded)
	assert.Equal(t, 1, count)
}
