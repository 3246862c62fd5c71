package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MonsieurBarti/codegraph/pkg/export"
	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/query"
)

// Handlers render results with the compact format; MCP consumers are token
// metered. An empty result is a successful call with explanatory text, not
// a tool error.

func (s *Server) handleFindSymbol(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filter := query.Filter{
		PathPrefix:      req.GetString("file", ""),
		CaseInsensitive: req.GetBool("case_insensitive", false),
		Kinds:           parseKinds(req.GetString("kind", "")),
	}
	return mcp.NewToolResultText(s.engine.FindSymbol(pattern, filter).Render(query.FormatCompact)), nil
}

func (s *Server) handleFindReferences(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := s.engine.FindReferences(name, req.GetString("file", ""))
	return mcp.NewToolResultText(result.Render(query.FormatCompact)), nil
}

func (s *Server) handleBlastRadius(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := s.engine.BlastRadius(name, req.GetString("file", ""))
	return mcp.NewToolResultText(result.Render(query.FormatCompact)), nil
}

func (s *Server) handleFindCircular(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(query.RenderCycles(s.engine.FindCircular(), query.FormatCompact)), nil
}

func (s *Server) handleSymbolContext(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := s.engine.SymbolContext(name, req.GetString("file", ""))
	return mcp.NewToolResultText(result.Render(query.FormatCompact)), nil
}

func (s *Server) handleProjectStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.engine.ProjectStats().Render(query.FormatCompact)), nil
}

func (s *Server) handleGraphExport(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := export.Options{
		Format:      export.Format(req.GetString("format", string(export.FormatDOT))),
		Granularity: export.Granularity(req.GetString("granularity", string(export.GranularityFile))),
		EdgeLimit:   s.cfg.ExportEdgeLimit,
	}

	var out string
	var renderErr error
	s.svc.WithSnapshot(func(g *graph.Graph) {
		out, renderErr = export.Render(g, opts)
	})
	if renderErr != nil {
		// The size guard is a caller-directed refusal with a suggestion.
		return mcp.NewToolResultError(renderErr.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func parseKinds(s string) []graph.SymbolKind {
	if s == "" {
		return nil
	}
	var kinds []graph.SymbolKind
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			kinds = append(kinds, graph.SymbolKind(part))
		}
	}
	return kinds
}
