// Package mcpserver exposes the detection engine and policy lookup as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	auditor "github.com/SamuelRCrider/legal-auditor"
	"github.com/SamuelRCrider/legal-auditor/core"
)

// Version reported to MCP clients
const Version = "0.1.0"

// AuditorServer wraps the MCP server with the auditor tools.
type AuditorServer struct {
	auditor  *auditor.Auditor
	server   *server.MCPServer
	handlers map[string]server.ToolHandlerFunc
}

// NewAuditorServer creates an MCP server with all tools registered.
func NewAuditorServer(a *auditor.Auditor) *AuditorServer {
	s := &AuditorServer{
		auditor:  a,
		server:   server.NewMCPServer("legal-auditor", Version),
		handlers: make(map[string]server.ToolHandlerFunc),
	}

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server instance.
func (s *AuditorServer) MCPServer() *server.MCPServer {
	return s.server
}

func (s *AuditorServer) registerTools() {
	s.addTool("analyze_text",
		gomcp.NewTool("analyze_text",
			gomcp.WithDescription("Detect PII in text and score its compliance risk. Nothing is stored."),
			gomcp.WithString("text",
				gomcp.Required(),
				gomcp.Description("Text to analyze"),
			),
		),
		s.handleAnalyzeText,
	)

	s.addTool("redact_text",
		gomcp.NewTool("redact_text",
			gomcp.WithDescription("Return the text with every detected PII value masked"),
			gomcp.WithString("text",
				gomcp.Required(),
				gomcp.Description("Text to redact"),
			),
		),
		s.handleRedactText,
	)

	s.addTool("recommend",
		gomcp.NewTool("recommend",
			gomcp.WithDescription("Remediation advice for a set of PII kinds, most severe first"),
			gomcp.WithArray("kinds",
				gomcp.Required(),
				gomcp.Description("Detected kinds, e.g. SSN, EMAIL"),
				gomcp.WithStringItems(),
			),
			gomcp.WithNumber("risk_score",
				gomcp.Description("Risk score between 0 and 1; derived from kinds when omitted"),
			),
		),
		s.handleRecommend,
	)

	s.addTool("match_policies",
		gomcp.NewTool("match_policies",
			gomcp.WithDescription("Find compliance clauses relevant to detected PII kinds"),
			gomcp.WithArray("kinds",
				gomcp.Required(),
				gomcp.Description("Detected kinds, e.g. SSN, EMAIL"),
				gomcp.WithStringItems(),
			),
		),
		s.handleMatchPolicies,
	)
}

func (s *AuditorServer) addTool(name string, tool gomcp.Tool, handler server.ToolHandlerFunc) {
	s.handlers[name] = handler
	s.server.AddTool(tool, handler)
}

type analyzeOutput struct {
	*core.AnalysisResult
	RiskLevel       core.RiskLevel `json:"risk_level"`
	Recommendations []string       `json:"recommendations"`
}

func (s *AuditorServer) handleAnalyzeText(_ context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return gomcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.auditor.Analyzer().AnalyzeChecked(text)
	if err != nil {
		return gomcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	return jsonResult(analyzeOutput{
		AnalysisResult:  result,
		RiskLevel:       result.RiskLevel(),
		Recommendations: core.Recommend(result.Kinds, result.RiskScore),
	})
}

func (s *AuditorServer) handleRedactText(_ context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return gomcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.auditor.Analyzer().AnalyzeChecked(text)
	if err != nil {
		return gomcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	return gomcp.NewToolResultText(core.ApplyRedactions(text, result.Matches)), nil
}

func (s *AuditorServer) handleRecommend(_ context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	kinds, err := requireKinds(req)
	if err != nil {
		return gomcp.NewToolResultError(err.Error()), nil
	}

	score, _ := core.Score(kinds)
	score = req.GetFloat("risk_score", score)

	return jsonResult(core.Recommend(kinds, score))
}

func (s *AuditorServer) handleMatchPolicies(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	kinds, err := requireKinds(req)
	if err != nil {
		return gomcp.NewToolResultError(err.Error()), nil
	}

	matches, err := s.auditor.MatchPolicies(ctx, kinds)
	if err != nil {
		return gomcp.NewToolResultError(fmt.Sprintf("policy lookup failed: %v", err)), nil
	}
	return jsonResult(matches)
}

// requireKinds reads the kinds argument, upper-casing each entry
func requireKinds(req gomcp.CallToolRequest) ([]core.Kind, error) {
	raw, err := req.RequireStringSlice("kinds")
	if err != nil {
		return nil, err
	}

	kinds := make([]core.Kind, 0, len(raw))
	for _, k := range raw {
		k = strings.ToUpper(strings.TrimSpace(k))
		if k != "" {
			kinds = append(kinds, core.Kind(k))
		}
	}
	return kinds, nil
}

func jsonResult(v any) (*gomcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return gomcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return gomcp.NewToolResultText(string(data)), nil
}
