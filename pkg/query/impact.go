package query

import (
	"sort"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
)

// Impact is one file reached by the reverse import walk.
type Impact struct {
	File  string `json:"file"`
	Depth int    `json:"depth"`
}

// ImpactResult is the blast-radius output. The defining files appear at
// depth 0.
type ImpactResult struct {
	Files       []Impact `json:"files"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// BlastRadius performs a reverse BFS from the symbol's defining files over
// ResolvedImport edges only. BFS discipline makes cycles safe; each file
// reports its first (shallowest) depth. Multiple same-name symbols union
// their defining files at depth 0.
func (e *Engine) BlastRadius(name, pathPrefix string) ImpactResult {
	var result ImpactResult
	e.snap.WithSnapshot(func(g *graph.Graph) {
		ids := matchedSymbols(g, name, pathPrefix)
		if len(ids) == 0 {
			result.Suggestions = fuzzyCandidates(g, name, e.fuzzyThreshold, 3)
			return
		}

		depth := make(map[graph.NodeID]int)
		var queue []graph.NodeID
		for _, id := range ids {
			fileID := g.Node(id).Symbol.File
			if _, ok := depth[fileID]; !ok {
				depth[fileID] = 0
				queue = append(queue, fileID)
			}
		}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, e := range g.InEdges(cur, graph.EdgeResolvedImport) {
				if g.Node(e.From).File == nil {
					continue
				}
				if _, ok := depth[e.From]; ok {
					continue
				}
				depth[e.From] = depth[cur] + 1
				queue = append(queue, e.From)
			}
		}

		for id, d := range depth {
			result.Files = append(result.Files, Impact{File: g.Node(id).File.Path, Depth: d})
		}
		sort.Slice(result.Files, func(i, j int) bool {
			if result.Files[i].Depth != result.Files[j].Depth {
				return result.Files[i].Depth < result.Files[j].Depth
			}
			return result.Files[i].File < result.Files[j].File
		})
	})
	return result
}
