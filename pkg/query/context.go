package query

import (
	"strings"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/util"
)

// snippetMaxLines caps definition snippets attached to context output.
const snippetMaxLines = 8

// SymbolRef names a related symbol and where it lives.
type SymbolRef struct {
	Name string `json:"name"`
	File string `json:"file"`
	Line uint32 `json:"line"`
}

// Definition is one matched definition with an optional source snippet.
type Definition struct {
	SymbolHit
	Snippet string `json:"snippet,omitempty"`
}

// ContextResult composes the 360-degree view of a symbol. Empty sections
// are omitted by the renderers.
type ContextResult struct {
	Definitions  []Definition `json:"definitions"`
	References   []Reference  `json:"references,omitempty"`
	Callees      []SymbolRef  `json:"callees,omitempty"`
	Callers      []SymbolRef  `json:"callers,omitempty"`
	Parents      []SymbolRef  `json:"parents,omitempty"`
	Children     []SymbolRef  `json:"children,omitempty"`
	Implementors []SymbolRef  `json:"implementors,omitempty"`
	Interfaces   []SymbolRef  `json:"interfaces,omitempty"`
	Suggestions  []string     `json:"suggestions,omitempty"`
}

// WithFileCache attaches a source cache so context output can carry the
// first lines of each definition.
func (e *Engine) WithFileCache(fc *util.FileCache) *Engine {
	e.files = fc
	return e
}

// SymbolContext composes definition, references, call neighbors and type
// hierarchy for every symbol matching name.
func (e *Engine) SymbolContext(name, pathPrefix string) ContextResult {
	var result ContextResult
	e.snap.WithSnapshot(func(g *graph.Graph) {
		ids := matchedSymbols(g, name, pathPrefix)
		if len(ids) == 0 {
			result.Suggestions = fuzzyCandidates(g, name, e.fuzzyThreshold, 3)
			return
		}

		for _, id := range ids {
			sym := g.Node(id).Symbol
			file := g.Node(sym.File).File

			def := Definition{SymbolHit: SymbolHit{
				Name:     sym.Name,
				File:     file.Path,
				Line:     sym.Line,
				Kind:     sym.Kind,
				Exported: sym.Exported,
			}}
			def.Snippet = e.snippet(file.Path, sym)
			result.Definitions = append(result.Definitions, def)

			result.Callees = append(result.Callees, e.related(g, g.OutEdges(id, graph.EdgeCalls), true)...)
			result.Callers = append(result.Callers, e.related(g, g.InEdges(id, graph.EdgeCalls), false)...)
			result.Parents = append(result.Parents, e.related(g, g.OutEdges(id, graph.EdgeExtends), true)...)
			result.Children = append(result.Children, e.related(g, g.InEdges(id, graph.EdgeExtends), false)...)
			result.Interfaces = append(result.Interfaces, e.related(g, g.OutEdges(id, graph.EdgeImplements), true)...)
			result.Implementors = append(result.Implementors, e.related(g, g.InEdges(id, graph.EdgeImplements), false)...)
		}
	})

	refs := e.FindReferences(name, pathPrefix)
	result.References = refs.References
	return result
}

// related projects edge endpoints into SymbolRefs; toSide selects the To
// endpoint for outgoing edges, From for incoming.
func (e *Engine) related(g *graph.Graph, edges []graph.Edge, toSide bool) []SymbolRef {
	var refs []SymbolRef
	for _, edge := range edges {
		id := edge.To
		if !toSide {
			id = edge.From
		}
		sym := g.Node(id).Symbol
		if sym == nil {
			continue
		}
		file := g.Node(sym.File).File
		if file == nil {
			continue
		}
		refs = append(refs, SymbolRef{Name: sym.Name, File: file.Path, Line: sym.Line})
	}
	return refs
}

// snippet returns the first lines of the definition via the file cache;
// empty when no cache is attached or the file changed under us.
func (e *Engine) snippet(path string, sym *graph.SymbolNode) string {
	if e.files == nil || sym.EndByte <= sym.StartByte {
		return ""
	}
	raw, err := e.files.Slice(path, sym.StartByte, sym.EndByte)
	if err != nil {
		return ""
	}
	lines := strings.Split(string(raw), "\n")
	if len(lines) > snippetMaxLines {
		lines = append(lines[:snippetMaxLines], "...")
	}
	return strings.Join(lines, "\n")
}
