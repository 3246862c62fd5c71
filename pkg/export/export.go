// Package export renders a read-only graph snapshot as DOT or Mermaid text
// at symbol, file or package granularity. Mermaid output is refused above a
// configurable edge limit since large Mermaid diagrams render unusably.
package export

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
)

// Granularity selects the node population.
type Granularity string

const (
	// GranularitySymbol draws symbols and their relationship edges.
	GranularitySymbol Granularity = "symbol"
	// GranularityFile draws files, external packages and import edges.
	GranularityFile Granularity = "file"
	// GranularityPackage collapses files to their directories.
	GranularityPackage Granularity = "package"
)

// Format selects the output dialect.
type Format string

const (
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// Options configure one export.
type Options struct {
	Granularity Granularity
	Format      Format
	// EdgeLimit guards Mermaid output; zero applies the 500 default.
	EdgeLimit int
}

// LimitError reports a refused Mermaid export, carrying the coarser
// granularity to suggest.
type LimitError struct {
	Edges     int
	Limit     int
	Suggested Granularity
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("mermaid export refused: %d edges exceeds limit %d; retry with --granularity %s or --format dot",
		e.Edges, e.Limit, e.Suggested)
}

type node struct {
	id    string
	label string
	shape string // "box" files, "ellipse" symbols, "folder" packages
}

type edge struct {
	from, to string
	label    string
}

// Render serializes the graph per the options.
func Render(g *graph.Graph, opts Options) (string, error) {
	if opts.EdgeLimit <= 0 {
		opts.EdgeLimit = 500
	}

	var nodes []node
	var edges []edge
	switch opts.Granularity {
	case GranularitySymbol:
		nodes, edges = symbolView(g)
	case GranularityPackage:
		nodes, edges = packageView(g)
	default:
		nodes, edges = fileView(g)
	}

	if opts.Format == FormatMermaid && len(edges) > opts.EdgeLimit {
		return "", &LimitError{
			Edges:     len(edges),
			Limit:     opts.EdgeLimit,
			Suggested: coarser(opts.Granularity),
		}
	}

	if opts.Format == FormatMermaid {
		return renderMermaid(nodes, edges), nil
	}
	return renderDOT(nodes, edges), nil
}

func coarser(gr Granularity) Granularity {
	switch gr {
	case GranularitySymbol:
		return GranularityFile
	default:
		return GranularityPackage
	}
}

func fileView(g *graph.Graph) ([]node, []edge) {
	var nodes []node
	var edges []edge
	seenEdge := make(map[string]bool)

	for _, fileID := range g.Files() {
		file := g.Node(fileID).File
		nodes = append(nodes, node{id: nodeID("f", int(fileID)), label: file.Path, shape: "box"})
		for _, e := range g.OutEdges(fileID, graph.EdgeResolvedImport) {
			key := fmt.Sprintf("%d-%d", e.From, e.To)
			if seenEdge[key] {
				continue
			}
			seenEdge[key] = true
			edges = append(edges, edge{from: nodeID("f", int(e.From)), to: nodeID("f", int(e.To))})
		}
	}
	for name, pkgID := range g.ByPackage {
		nodes = append(nodes, node{id: nodeID("f", int(pkgID)), label: name, shape: "folder"})
	}
	sortNodes(nodes)
	return nodes, edges
}

func symbolView(g *graph.Graph) ([]node, []edge) {
	var nodes []node
	var edges []edge

	for id := range g.Nodes {
		sym := g.Nodes[id].Symbol
		if sym == nil {
			continue
		}
		nodes = append(nodes, node{id: nodeID("s", id), label: sym.Name, shape: "ellipse"})
		for _, e := range g.OutEdges(graph.NodeID(id),
			graph.EdgeCalls, graph.EdgeExtends, graph.EdgeImplements, graph.EdgeTypeReference) {
			edges = append(edges, edge{
				from:  nodeID("s", int(e.From)),
				to:    nodeID("s", int(e.To)),
				label: e.Kind.String(),
			})
		}
	}
	sortNodes(nodes)
	return nodes, edges
}

func packageView(g *graph.Graph) ([]node, []edge) {
	dirOf := func(id graph.NodeID) string {
		n := g.Node(id)
		if n.File != nil {
			return filepath.Dir(n.File.Path)
		}
		if n.Package != nil {
			return n.Package.Name
		}
		return ""
	}

	dirs := make(map[string]bool)
	seenEdge := make(map[string]bool)
	var edges []edge

	for _, fileID := range g.Files() {
		from := dirOf(fileID)
		dirs[from] = true
		for _, e := range g.OutEdges(fileID, graph.EdgeResolvedImport) {
			to := dirOf(e.To)
			if to == "" || to == from {
				continue
			}
			dirs[to] = true
			key := from + "->" + to
			if seenEdge[key] {
				continue
			}
			seenEdge[key] = true
			edges = append(edges, edge{from: dirID(from), to: dirID(to)})
		}
	}

	var nodes []node
	for dir := range dirs {
		nodes = append(nodes, node{id: dirID(dir), label: dir, shape: "folder"})
	}
	sortNodes(nodes)
	return nodes, edges
}

func nodeID(prefix string, id int) string {
	return fmt.Sprintf("%s%d", prefix, id)
}

var dirIDReplacer = strings.NewReplacer("/", "_", ".", "_", "-", "_", "@", "_", " ", "_", "\\", "_")

func dirID(dir string) string {
	return "d_" + dirIDReplacer.Replace(dir)
}

func sortNodes(nodes []node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id < nodes[j].id })
}

func renderDOT(nodes []node, edges []edge) string {
	var b strings.Builder
	b.WriteString("digraph codegraph {\n  rankdir=LR;\n")
	for _, n := range nodes {
		fmt.Fprintf(&b, "  %s [label=%q, shape=%s];\n", n.id, n.label, n.shape)
	}
	for _, e := range edges {
		if e.label != "" {
			fmt.Fprintf(&b, "  %s -> %s [label=%q];\n", e.from, e.to, e.label)
		} else {
			fmt.Fprintf(&b, "  %s -> %s;\n", e.from, e.to)
		}
	}
	b.WriteString("}")
	return b.String()
}

func renderMermaid(nodes []node, edges []edge) string {
	var b strings.Builder
	b.WriteString("graph LR\n")
	for _, n := range nodes {
		fmt.Fprintf(&b, "  %s[%q]\n", n.id, n.label)
	}
	for _, e := range edges {
		if e.label != "" {
			fmt.Fprintf(&b, "  %s -->|%s| %s\n", e.from, e.label, e.to)
		} else {
			fmt.Fprintf(&b, "  %s --> %s\n", e.from, e.to)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
