package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MonsieurBarti/codegraph/pkg/config"
	"github.com/MonsieurBarti/codegraph/pkg/indexer"
	"github.com/MonsieurBarti/codegraph/pkg/query"
)

// testServer indexes a tiny project and serves it.
func testServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/user.ts":  "export class UserService {\n  save() {}\n}\n",
		"src/index.ts": "export { UserService } from './user';\n",
		"src/app.ts":   "import { UserService } from './index';\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := config.Default()
	svc := indexer.New(root, cfg, nil)
	t.Cleanup(svc.Close)
	_, err := svc.FullIndex(context.Background())
	require.NoError(t, err)

	return NewServer(svc, query.New(svc, cfg.FuzzyThreshold), cfg, nil)
}

func makeRequest(tool string, args map[string]any) mcp.CallToolRequest {
	if args == nil {
		args = map[string]any{}
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: tool, Arguments: args},
	}
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return text.Text
}

func TestHandleFindSymbol(t *testing.T) {
	s := testServer(t)
	result, err := s.handleFindSymbol(context.Background(), makeRequest("find_symbol", map[string]any{
		"pattern": "UserService",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, textOf(t, result), "user.ts:1")
}

func TestHandleFindSymbolMissingArg(t *testing.T) {
	s := testServer(t)
	result, err := s.handleFindSymbol(context.Background(), makeRequest("find_symbol", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError, "missing required argument is a tool error")
}

func TestHandleFindSymbolNotFound(t *testing.T) {
	s := testServer(t)
	result, err := s.handleFindSymbol(context.Background(), makeRequest("find_symbol", map[string]any{
		"pattern": "Nonexistent",
	}))
	require.NoError(t, err)
	// Not-found is a normal result, not a tool error.
	assert.False(t, result.IsError)
	assert.Contains(t, textOf(t, result), "no matches")
}

func TestHandleFindReferences(t *testing.T) {
	s := testServer(t)
	result, err := s.handleFindReferences(context.Background(), makeRequest("find_references", map[string]any{
		"name": "UserService",
	}))
	require.NoError(t, err)
	out := textOf(t, result)
	assert.Contains(t, out, "index.ts")
	assert.Contains(t, out, "app.ts")
}

func TestHandleBlastRadius(t *testing.T) {
	s := testServer(t)
	result, err := s.handleBlastRadius(context.Background(), makeRequest("blast_radius", map[string]any{
		"name": "UserService",
	}))
	require.NoError(t, err)
	out := textOf(t, result)
	assert.Contains(t, out, "user.ts")
	assert.Contains(t, out, "app.ts")
}

func TestHandleFindCircular(t *testing.T) {
	s := testServer(t)
	result, err := s.handleFindCircular(context.Background(), makeRequest("find_circular", nil))
	require.NoError(t, err)
	assert.Contains(t, textOf(t, result), "no circular dependencies")
}

func TestHandleSymbolContext(t *testing.T) {
	s := testServer(t)
	result, err := s.handleSymbolContext(context.Background(), makeRequest("symbol_context", map[string]any{
		"name": "UserService",
	}))
	require.NoError(t, err)
	assert.Contains(t, textOf(t, result), "definitions:")
}

func TestHandleProjectStats(t *testing.T) {
	s := testServer(t)
	result, err := s.handleProjectStats(context.Background(), makeRequest("project_stats", nil))
	require.NoError(t, err)
	out := textOf(t, result)
	assert.Contains(t, out, "files: 3")
	assert.Contains(t, out, "typescript")
}

func TestHandleGraphExport(t *testing.T) {
	s := testServer(t)
	result, err := s.handleGraphExport(context.Background(), makeRequest("graph_export", map[string]any{
		"format": "dot",
	}))
	require.NoError(t, err)
	assert.Contains(t, textOf(t, result), "digraph")
}

func TestHandleGraphExportLimit(t *testing.T) {
	s := testServer(t)
	s.cfg.ExportEdgeLimit = 1
	result, err := s.handleGraphExport(context.Background(), makeRequest("graph_export", map[string]any{
		"format": "mermaid",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "size-guard refusal surfaces as a tool error")
	assert.Contains(t, textOf(t, result), "granularity")
}

func TestRegisteredToolNames(t *testing.T) {
	tools := []mcp.Tool{
		findSymbolTool(), findReferencesTool(), blastRadiusTool(),
		findCircularTool(), symbolContextTool(), projectStatsTool(), graphExportTool(),
	}
	names := make(map[string]bool)
	for _, tool := range tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"find_symbol", "find_references", "blast_radius",
		"find_circular", "symbol_context", "project_stats", "graph_export"} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}
