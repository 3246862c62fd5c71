package query

import (
	"github.com/MonsieurBarti/codegraph/pkg/graph"
)

// StatsResult is the project statistics output.
type StatsResult struct {
	Files            map[string]int           `json:"files_by_language"`
	TotalFiles       int                      `json:"total_files"`
	Symbols          map[graph.SymbolKind]int `json:"symbols_by_kind"`
	TotalSymbols     int                      `json:"total_symbols"`
	Imports          map[string]int           `json:"imports"`
	Relationships    map[string]int           `json:"relationships"`
	ExternalPackages int                      `json:"external_packages"`

	// Parser carries pool counters; only attached for JSON output.
	Parser *ParserCounters `json:"parser,omitempty"`
}

// ParserCounters mirrors the parser manager's usage stats.
type ParserCounters struct {
	ParsersCreated int `json:"parsers_created"`
	ParsesCalled   int `json:"parses_called"`
}

// ProjectStats tallies files by language, symbols by kind, import outcomes
// and relationship edges.
func (e *Engine) ProjectStats() StatsResult {
	var result StatsResult
	e.snap.WithSnapshot(func(g *graph.Graph) {
		s := g.ComputeStats()
		result = StatsResult{
			Files:            s.FilesByLanguage,
			Symbols:          s.SymbolsByKind,
			Relationships:    s.Relationships,
			ExternalPackages: s.ExternalPackages,
			Imports: map[string]int{
				"resolved":   s.ResolvedImports,
				"external":   s.ExternalImports,
				"builtin":    s.BuiltinImports,
				"unresolved": s.UnresolvedImports,
			},
		}
		for _, n := range s.FilesByLanguage {
			result.TotalFiles += n
		}
		for _, n := range s.SymbolsByKind {
			result.TotalSymbols += n
		}
	})
	return result
}
