package query

import (
	"sort"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
)

// Reference is one usage site of a symbol.
type Reference struct {
	File string `json:"file"`
	Line uint32 `json:"line"`
	Kind string `json:"kind"` // "import" or "call"
}

// RefsResult is the references output.
type RefsResult struct {
	References  []Reference `json:"references"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// FindReferences locates every import of the symbol's defining file and
// every call edge targeting the symbol. Multiple symbols with the same name
// contribute the union of their references.
func (e *Engine) FindReferences(name, pathPrefix string) RefsResult {
	var result RefsResult
	e.snap.WithSnapshot(func(g *graph.Graph) {
		ids := matchedSymbols(g, name, pathPrefix)
		if len(ids) == 0 {
			result.Suggestions = fuzzyCandidates(g, name, e.fuzzyThreshold, 3)
			return
		}

		seen := make(map[Reference]bool)
		add := func(r Reference) {
			if !seen[r] {
				seen[r] = true
				result.References = append(result.References, r)
			}
		}

		for _, id := range ids {
			sym := g.Node(id).Symbol

			// Import references: files importing the defining file.
			for _, e := range g.InEdges(sym.File, graph.EdgeResolvedImport) {
				importer := g.Node(e.From).File
				if importer == nil {
					continue
				}
				add(Reference{File: importer.Path, Line: e.Row, Kind: "import"})
			}

			// Call references: symbols with Calls edges to this symbol.
			for _, e := range g.InEdges(id, graph.EdgeCalls) {
				caller := g.Node(e.From).Symbol
				if caller == nil {
					continue
				}
				callerFile := g.Node(caller.File).File
				if callerFile == nil {
					continue
				}
				line := e.Row
				if line == 0 {
					line = caller.Line
				}
				add(Reference{File: callerFile.Path, Line: line, Kind: "call"})
			}
		}

		sort.Slice(result.References, func(i, j int) bool {
			a, b := result.References[i], result.References[j]
			if a.File != b.File {
				return a.File < b.File
			}
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			return a.Kind < b.Kind
		})
	})
	return result
}
