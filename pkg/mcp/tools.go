package mcp

import "github.com/mark3labs/mcp-go/mcp"

func findSymbolTool() mcp.Tool {
	return mcp.NewTool("find_symbol",
		mcp.WithDescription("Find symbol definitions by name (literal or regex). Returns file:line locations; offers fuzzy candidates on no match."),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Symbol name or regex pattern")),
		mcp.WithString("kind", mcp.Description("Comma-separated kind filter (function, class, struct, trait, ...)")),
		mcp.WithString("file", mcp.Description("Restrict to files under this path prefix")),
		mcp.WithBoolean("case_insensitive", mcp.Description("Match case-insensitively")),
	)
}

func findReferencesTool() mcp.Tool {
	return mcp.NewTool("find_references",
		mcp.WithDescription("Find usages of a symbol: importing files and calling symbols."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Exact symbol name")),
		mcp.WithString("file", mcp.Description("Restrict candidate definitions to this path prefix")),
	)
}

func blastRadiusTool() mcp.Tool {
	return mcp.NewTool("blast_radius",
		mcp.WithDescription("Files transitively importing the symbol's defining file, ordered by import distance."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Exact symbol name")),
		mcp.WithString("file", mcp.Description("Restrict candidate definitions to this path prefix")),
	)
}

func findCircularTool() mcp.Tool {
	return mcp.NewTool("find_circular",
		mcp.WithDescription("Detect circular import chains between files."),
	)
}

func symbolContextTool() mcp.Tool {
	return mcp.NewTool("symbol_context",
		mcp.WithDescription("360-degree view of a symbol: definition, references, callers/callees, type hierarchy."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Exact symbol name")),
		mcp.WithString("file", mcp.Description("Restrict candidate definitions to this path prefix")),
	)
}

func projectStatsTool() mcp.Tool {
	return mcp.NewTool("project_stats",
		mcp.WithDescription("Index statistics: files by language, symbols by kind, import outcomes, relationships."),
	)
}

func graphExportTool() mcp.Tool {
	return mcp.NewTool("graph_export",
		mcp.WithDescription("Export the graph as DOT or Mermaid at symbol, file or package granularity."),
		mcp.WithString("format", mcp.Description("dot or mermaid (default dot)")),
		mcp.WithString("granularity", mcp.Description("symbol, file or package (default file)")),
	)
}
