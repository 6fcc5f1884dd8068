// Package server exposes the auditor over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	auditor "github.com/SamuelRCrider/legal-auditor"
	"github.com/SamuelRCrider/legal-auditor/core"
	"github.com/SamuelRCrider/legal-auditor/store"
)

const (
	defaultListSize   = 100
	policySearchLimit = 10
)

// Config configures the HTTP server
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration

	// RateLimit is requests per RateWindow per client; zero disables limiting
	RateLimit  int
	RateWindow time.Duration
}

// Server serves the auditor API
type Server struct {
	auditor *auditor.Auditor
	store   store.Store
	config  Config
	log     *slog.Logger
	engine  *gin.Engine
}

// New builds the router for a
func New(a *auditor.Auditor, config Config, log *slog.Logger) *Server {
	s := &Server{
		auditor: a,
		store:   a.Store(),
		config:  config,
		log:     log,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger(log))
	if config.RateLimit > 0 {
		engine.Use(NewRateLimiter(config.RateLimit, config.RateWindow).Middleware())
	}
	s.RegisterRoutes(engine.Group("/api"))
	s.engine = engine

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/health", s.health)
	api.GET("/stats", s.stats)

	api.GET("/documents", s.listDocuments)
	api.GET("/documents/flagged", s.listFlaggedDocuments)
	api.GET("/documents/:id", s.getDocument)

	api.GET("/policies", s.listPolicies)
	api.POST("/policies/search", s.searchPolicies)

	api.POST("/analyze", s.analyze)

	api.GET("/violations", s.listViolations)
	api.POST("/violations", s.createViolation)
	api.PATCH("/violations/:id", s.updateViolation)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("legal auditor server listening", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("shutting down server")
	return srv.Shutdown(shutdownCtx)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError maps error categories onto status codes
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsCategory(err, core.ErrorCategoryValidation):
		status = http.StatusBadRequest
	case core.IsCategory(err, core.ErrorCategoryNotFound), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func (s *Server) health(c *gin.Context) {
	storeStatus := "connected"
	if err := s.store.Ping(c.Request.Context()); err != nil {
		storeStatus = "disconnected"
		s.log.Warn("store ping failed", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"store":     storeStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// documentView adds the id to the stored record
type documentView struct {
	ID string `json:"id"`
	*store.Document
	RiskLevel core.RiskLevel `json:"risk_level"`
}

func viewDocuments(docs []*store.Document) []documentView {
	out := make([]documentView, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentView{ID: d.ID, Document: d, RiskLevel: core.LevelFor(d.RiskScore)})
	}
	return out
}

func (s *Server) listDocuments(c *gin.Context) {
	filter := store.DocumentFilter{
		Source: c.Query("source"),
		Size:   defaultListSize,
	}
	if v := c.Query("flagged"); v != "" {
		flagged, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "flagged must be true or false"})
			return
		}
		filter.Flagged = &flagged
	}
	if v := c.Query("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "size must be a positive integer"})
			return
		}
		filter.Size = size
	}

	s.writeDocuments(c, filter)
}

func (s *Server) listFlaggedDocuments(c *gin.Context) {
	flagged := true
	s.writeDocuments(c, store.DocumentFilter{Flagged: &flagged, Size: defaultListSize})
}

func (s *Server) writeDocuments(c *gin.Context, filter store.DocumentFilter) {
	docs, err := s.store.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(docs), "documents": viewDocuments(docs)})
}

func (s *Server) getDocument(c *gin.Context) {
	doc, err := s.store.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentView{ID: doc.ID, Document: doc, RiskLevel: core.LevelFor(doc.RiskScore)})
}

type policyView struct {
	ID string `json:"id"`
	*store.PolicyClause
	Score *float64 `json:"score,omitempty"`
}

func (s *Server) listPolicies(c *gin.Context) {
	clauses, err := s.store.ListPolicies(c.Request.Context(), c.Query("framework"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]policyView, 0, len(clauses))
	for _, p := range clauses {
		out = append(out, policyView{ID: p.ID, PolicyClause: p})
	}
	c.JSON(http.StatusOK, gin.H{"total": len(out), "policies": out})
}

type policySearchRequest struct {
	Query string `json:"query"`
}

func (s *Server) searchPolicies(c *gin.Context) {
	var req policySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Query is required"})
		return
	}

	hits, err := s.store.SearchPolicies(c.Request.Context(), store.PolicyQuery{
		Should: []string{req.Query},
		Size:   policySearchLimit,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]policyView, 0, len(hits))
	for i := range hits {
		out = append(out, policyView{ID: hits[i].ID, PolicyClause: &hits[i].Clause, Score: &hits[i].Score})
	}
	c.JSON(http.StatusOK, gin.H{"total": len(out), "results": out})
}

func (s *Server) analyze(c *gin.Context) {
	var req auditor.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Content is required"})
		return
	}

	resp, err := s.auditor.AnalyzeDocument(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type violationView struct {
	ID string `json:"id"`
	*store.Violation
}

func (s *Server) listViolations(c *gin.Context) {
	violations, err := s.auditor.ListViolations(c.Request.Context(), c.Query("status"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]violationView, 0, len(violations))
	for _, v := range violations {
		out = append(out, violationView{ID: v.ID, Violation: v})
	}
	c.JSON(http.StatusOK, gin.H{"total": len(out), "violations": out})
}

func (s *Server) createViolation(c *gin.Context) {
	var v store.Violation
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid violation: " + err.Error()})
		return
	}
	if v.DocumentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "document_id is required"})
		return
	}

	created, err := s.auditor.CreateViolation(c.Request.Context(), v)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, violationView{ID: created.ID, Violation: created})
}

func (s *Server) updateViolation(c *gin.Context) {
	var update store.ViolationUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid update: " + err.Error()})
		return
	}

	id := c.Param("id")
	updated, err := s.auditor.UpdateViolation(c.Request.Context(), id, update)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, violationView{ID: id, Violation: updated})
}
