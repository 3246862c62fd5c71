package query

import (
	"sort"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
)

// Cycle is one strongly connected component of the file import graph with
// at least two members, or a single self-importing file.
type Cycle struct {
	Files []string `json:"files"`
}

// FindCircular computes strongly connected components over the file
// subgraph restricted to ResolvedImport edges (Tarjan, iterative). Ordering
// of cycles and members is normalized for stable output, though only the
// content is contractual.
func (e *Engine) FindCircular() []Cycle {
	var cycles []Cycle
	e.snap.WithSnapshot(func(g *graph.Graph) {
		files := g.Files()

		index := make(map[graph.NodeID]int, len(files))
		lowlink := make(map[graph.NodeID]int, len(files))
		onStack := make(map[graph.NodeID]bool, len(files))
		var stack []graph.NodeID
		next := 0

		fileNeighbors := func(id graph.NodeID) []graph.NodeID {
			var out []graph.NodeID
			for _, e := range g.OutEdges(id, graph.EdgeResolvedImport) {
				if g.Node(e.To).File != nil {
					out = append(out, e.To)
				}
			}
			return out
		}

		type frame struct {
			node      graph.NodeID
			neighbors []graph.NodeID
			idx       int
		}

		var strongconnect func(root graph.NodeID)
		strongconnect = func(root graph.NodeID) {
			callStack := []frame{{node: root, neighbors: fileNeighbors(root)}}
			index[root] = next
			lowlink[root] = next
			next++
			stack = append(stack, root)
			onStack[root] = true

			for len(callStack) > 0 {
				f := &callStack[len(callStack)-1]
				if f.idx < len(f.neighbors) {
					w := f.neighbors[f.idx]
					f.idx++
					if _, visited := index[w]; !visited {
						index[w] = next
						lowlink[w] = next
						next++
						stack = append(stack, w)
						onStack[w] = true
						callStack = append(callStack, frame{node: w, neighbors: fileNeighbors(w)})
					} else if onStack[w] {
						if index[w] < lowlink[f.node] {
							lowlink[f.node] = index[w]
						}
					}
					continue
				}

				// Frame complete: pop an SCC when this is a root.
				v := f.node
				if lowlink[v] == index[v] {
					var members []graph.NodeID
					for {
						w := stack[len(stack)-1]
						stack = stack[:len(stack)-1]
						onStack[w] = false
						members = append(members, w)
						if w == v {
							break
						}
					}
					if cycle := toCycle(g, members); cycle != nil {
						cycles = append(cycles, *cycle)
					}
				}
				callStack = callStack[:len(callStack)-1]
				if len(callStack) > 0 {
					parent := &callStack[len(callStack)-1]
					if lowlink[v] < lowlink[parent.node] {
						lowlink[parent.node] = lowlink[v]
					}
				}
			}
		}

		for _, id := range files {
			if _, visited := index[id]; !visited {
				strongconnect(id)
			}
		}

		sort.Slice(cycles, func(i, j int) bool {
			return cycles[i].Files[0] < cycles[j].Files[0]
		})
	})
	return cycles
}

// toCycle converts an SCC into a Cycle when it is one: two or more members,
// or one member with a self-import.
func toCycle(g *graph.Graph, members []graph.NodeID) *Cycle {
	if len(members) == 1 {
		self := false
		for _, e := range g.OutEdges(members[0], graph.EdgeResolvedImport) {
			if e.To == members[0] {
				self = true
				break
			}
		}
		if !self {
			return nil
		}
	}
	paths := make([]string, len(members))
	for i, id := range members {
		paths[i] = g.Node(id).File.Path
	}
	sort.Strings(paths)
	return &Cycle{Files: paths}
}
