// Package mcp exposes the query operators as tools over a JSON-RPC stdio
// transport. "Not found" is a normal text result; the tool-error flag is
// reserved for malformed arguments and export size-guard refusals.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/MonsieurBarti/codegraph/pkg/config"
	"github.com/MonsieurBarti/codegraph/pkg/indexer"
	"github.com/MonsieurBarti/codegraph/pkg/mcplog"
	"github.com/MonsieurBarti/codegraph/pkg/query"
)

const serverName = "codegraph"

// Version is stamped by the build; the CLI keeps it in sync.
var Version = "0.1.0"

// Server wires the query engine into an MCP stdio server.
type Server struct {
	mcpServer *server.MCPServer
	engine    *query.Engine
	svc       *indexer.Service
	cfg       config.Config
	logger    *mcplog.Logger
}

// NewServer creates the MCP server. logger may be nil to disable call
// logging.
func NewServer(svc *indexer.Service, engine *query.Engine, cfg config.Config, logger *mcplog.Logger) *Server {
	s := &Server{
		engine: engine,
		svc:    svc,
		cfg:    cfg,
		logger: logger,
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if logger != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}

	s.mcpServer = server.NewMCPServer(serverName, Version, opts...)
	s.mcpServer.AddTools(
		server.ServerTool{Tool: findSymbolTool(), Handler: s.handleFindSymbol},
		server.ServerTool{Tool: findReferencesTool(), Handler: s.handleFindReferences},
		server.ServerTool{Tool: blastRadiusTool(), Handler: s.handleBlastRadius},
		server.ServerTool{Tool: findCircularTool(), Handler: s.handleFindCircular},
		server.ServerTool{Tool: symbolContextTool(), Handler: s.handleSymbolContext},
		server.ServerTool{Tool: projectStatsTool(), Handler: s.handleProjectStats},
		server.ServerTool{Tool: graphExportTool(), Handler: s.handleGraphExport},
	)
	return s
}

// ServeStdio blocks serving the stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Close shuts down the call logger.
func (s *Server) Close() error {
	return s.logger.Close()
}
