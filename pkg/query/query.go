// Package query implements the read-only graph walks: symbol search,
// references, blast radius, cycle detection, 360-degree context and project
// statistics. Every operator runs against a consistent snapshot obtained
// from the indexer and never mutates the graph.
package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/util"
)

// Snapshotter provides read-locked access to a consistent graph view; the
// indexer service implements it.
type Snapshotter interface {
	WithSnapshot(func(*graph.Graph))
}

// Engine serves queries. Safe for concurrent use; each call observes one
// snapshot for its whole duration.
type Engine struct {
	snap           Snapshotter
	fuzzyThreshold float64
	files          *util.FileCache
}

// New creates a query engine. fuzzyThreshold is the minimum trigram Jaccard
// similarity for suggestions; zero applies the 0.3 default.
func New(snap Snapshotter, fuzzyThreshold float64) *Engine {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = 0.3
	}
	return &Engine{snap: snap, fuzzyThreshold: fuzzyThreshold}
}

// Filter narrows symbol matches.
type Filter struct {
	Kinds           []graph.SymbolKind
	PathPrefix      string
	CaseInsensitive bool
}

func (f Filter) allowsKind(k graph.SymbolKind) bool {
	if len(f.Kinds) == 0 {
		return true
	}
	for _, want := range f.Kinds {
		if k == want {
			return true
		}
	}
	return false
}

// SymbolHit is one symbol search result.
type SymbolHit struct {
	Name     string           `json:"name"`
	File     string           `json:"file"`
	Line     uint32           `json:"line"`
	Kind     graph.SymbolKind `json:"kind"`
	Exported bool             `json:"exported"`
}

// FindResult is the symbol search output. Suggestions is populated only on
// an empty match set.
type FindResult struct {
	Hits        []SymbolHit `json:"hits"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// FindSymbol scans the symbol index for names matching pattern (literal, or
// regex when the pattern carries regex metacharacters) under the filter.
// An empty result carries up to 3 fuzzy candidates.
func (e *Engine) FindSymbol(pattern string, filter Filter) FindResult {
	var result FindResult
	e.snap.WithSnapshot(func(g *graph.Graph) {
		match := compileMatcher(pattern, filter.CaseInsensitive)

		for name, ids := range g.BySymbol {
			if !match(name) {
				continue
			}
			for _, id := range ids {
				sym := g.Node(id).Symbol
				if sym == nil || !filter.allowsKind(sym.Kind) {
					continue
				}
				file := g.Node(sym.File).File
				if file == nil || !strings.HasPrefix(file.Path, filter.PathPrefix) {
					continue
				}
				result.Hits = append(result.Hits, SymbolHit{
					Name:     sym.Name,
					File:     file.Path,
					Line:     sym.Line,
					Kind:     sym.Kind,
					Exported: sym.Exported,
				})
			}
		}

		sortHits(result.Hits)
		if len(result.Hits) == 0 {
			result.Suggestions = fuzzyCandidates(g, pattern, e.fuzzyThreshold, 3)
		}
	})
	return result
}

func sortHits(hits []SymbolHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].File != hits[j].File {
			return hits[i].File < hits[j].File
		}
		return hits[i].Line < hits[j].Line
	})
}

// compileMatcher builds the name predicate: a literal comparison unless the
// pattern contains regex metacharacters and compiles.
func compileMatcher(pattern string, caseInsensitive bool) func(string) bool {
	if strings.ContainsAny(pattern, ".*+?[](){}|^$\\") {
		expr := pattern
		if caseInsensitive {
			expr = "(?i)" + expr
		}
		if re, err := regexp.Compile(expr); err == nil {
			return re.MatchString
		}
	}
	if caseInsensitive {
		lower := strings.ToLower(pattern)
		return func(name string) bool { return strings.ToLower(name) == lower }
	}
	return func(name string) bool { return name == pattern }
}

// matchedSymbols returns the symbol ids matching name exactly under an
// optional path prefix; the shared locator for references, impact and
// context. Ambiguous names return every match (union semantics).
func matchedSymbols(g *graph.Graph, name, pathPrefix string) []graph.NodeID {
	var ids []graph.NodeID
	for _, id := range g.SymbolsByName(name) {
		sym := g.Node(id).Symbol
		if sym == nil {
			continue
		}
		file := g.Node(sym.File).File
		if file == nil || !strings.HasPrefix(file.Path, pathPrefix) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
