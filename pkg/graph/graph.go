package graph

import (
	"sort"

	"github.com/MonsieurBarti/codegraph/pkg/lang"
)

// Graph is the arena-backed store. All fields are exported so the cache can
// gob-encode the whole value; code outside this package and the cache should
// treat them as read-only and go through the methods.
type Graph struct {
	Nodes []Node   // arena; removed slots have Kind preserved but a nil payload
	Out   [][]Edge // outgoing adjacency, indexed by NodeID
	In    [][]Edge // incoming adjacency, indexed by NodeID

	ByPath    map[string]NodeID
	BySymbol  map[string][]NodeID
	ByPackage map[string]NodeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		ByPath:    make(map[string]NodeID),
		BySymbol:  make(map[string][]NodeID),
		ByPackage: make(map[string]NodeID),
	}
}

func (g *Graph) alloc(n Node) NodeID {
	id := NodeID(len(g.Nodes))
	g.Nodes = append(g.Nodes, n)
	g.Out = append(g.Out, nil)
	g.In = append(g.In, nil)
	return id
}

// Alive reports whether id addresses a live node.
func (g *Graph) Alive(id NodeID) bool {
	if id < 0 || int(id) >= len(g.Nodes) {
		return false
	}
	n := &g.Nodes[id]
	return n.File != nil || n.Symbol != nil || n.Package != nil || n.Unresolved != nil
}

// Node returns the node payload slot for id. Callers must check Alive first
// or be prepared for nil payloads.
func (g *Graph) Node(id NodeID) *Node {
	return &g.Nodes[id]
}

// AddFile inserts a file node and indexes its path. If the path is already
// present its node id is returned with refreshed metadata; callers that need
// full replacement must RemoveFile first.
func (g *Graph) AddFile(path string, language lang.Lang, mtime, size int64) NodeID {
	if id, ok := g.ByPath[path]; ok {
		f := g.Nodes[id].File
		f.MTime = mtime
		f.Size = size
		return id
	}
	id := g.alloc(Node{Kind: KindFile, File: &FileNode{
		Path:     path,
		Language: language,
		MTime:    mtime,
		Size:     size,
	}})
	g.ByPath[path] = id
	return id
}

// AddSymbol inserts a top-level symbol and its Contains edge.
func (g *Graph) AddSymbol(fileID NodeID, sym SymbolNode) NodeID {
	sym.File = fileID
	sym.Parent = InvalidNode
	id := g.alloc(Node{Kind: KindSymbol, Symbol: &sym})
	g.BySymbol[sym.Name] = append(g.BySymbol[sym.Name], id)
	g.addEdge(Edge{From: fileID, To: id, Kind: EdgeContains})
	return id
}

// AddChildSymbol inserts a child symbol: Contains from the defining file plus
// ChildOf to the parent symbol.
func (g *Graph) AddChildSymbol(parentID NodeID, sym SymbolNode) NodeID {
	parent := g.Nodes[parentID].Symbol
	sym.File = parent.File
	sym.Parent = parentID
	id := g.alloc(Node{Kind: KindSymbol, Symbol: &sym})
	g.BySymbol[sym.Name] = append(g.BySymbol[sym.Name], id)
	g.addEdge(Edge{From: parent.File, To: id, Kind: EdgeContains})
	g.addEdge(Edge{From: id, To: parentID, Kind: EdgeChildOf})
	return id
}

// AddResolvedImport records that fileID's specifier resolved to target
// (a file or an external package node). One edge per import record: two
// imports of the same module produce two edges, keeping the edge count equal
// to the raw record count.
func (g *Graph) AddResolvedImport(fileID, target NodeID, specifier string, row uint32) {
	g.addEdge(Edge{From: fileID, To: target, Kind: EdgeResolvedImport, Label: specifier, Row: row})
}

// AddResolvedImportUnique is the deduplicating variant used by the barrel
// chain pass, whose edges are derived rather than record-backed.
func (g *Graph) AddResolvedImportUnique(fileID, target NodeID, specifier string, row uint32) {
	if g.hasEdge(fileID, target, EdgeResolvedImport) {
		return
	}
	g.addEdge(Edge{From: fileID, To: target, Kind: EdgeResolvedImport, Label: specifier, Row: row})
}

// RemoveUnresolvedNode deletes one unresolved-import node and its edges,
// used when a later update heals the import.
func (g *Graph) RemoveUnresolvedNode(id NodeID) {
	if !g.Alive(id) || g.Nodes[id].Kind != KindUnresolved {
		return
	}
	g.detachNode(id)
	g.clearNode(id)
}

// AddExternalPackage records an import of an external package, deduplicating
// the package node by name. Returns the package node id.
func (g *Graph) AddExternalPackage(fileID NodeID, pkgName, specifier string, row uint32) NodeID {
	id, ok := g.ByPackage[pkgName]
	if !ok {
		id = g.alloc(Node{Kind: KindPackage, Package: &PackageNode{Name: pkgName}})
		g.ByPackage[pkgName] = id
	}
	g.AddResolvedImport(fileID, id, specifier, row)
	return id
}

// AddUnresolvedImport records a specifier that could not be bound.
func (g *Graph) AddUnresolvedImport(fileID NodeID, specifier string, reason UnresolvedReason, row uint32) NodeID {
	id := g.alloc(Node{Kind: KindUnresolved, Unresolved: &UnresolvedNode{
		Specifier: specifier,
		Reason:    reason,
	}})
	g.addEdge(Edge{From: fileID, To: id, Kind: EdgeUnresolvedImport, Row: row})
	return id
}

// AddBarrelReExportAll records a wildcard re-export from a barrel file to its
// source file, kept unexpanded.
func (g *Graph) AddBarrelReExportAll(fileID, toFileID NodeID) {
	if g.hasEdge(fileID, toFileID, EdgeBarrelReExportAll) {
		return
	}
	g.addEdge(Edge{From: fileID, To: toFileID, Kind: EdgeBarrelReExportAll})
}

// AddExport marks a symbol as part of its file's public surface.
func (g *Graph) AddExport(fileID, symbolID NodeID) {
	if g.hasEdge(fileID, symbolID, EdgeExports) {
		return
	}
	g.addEdge(Edge{From: fileID, To: symbolID, Kind: EdgeExports})
}

// AddReExport records a named re-export from a file to the defining symbol.
// visibility is "pub", "pub(crate)" or empty for TS.
func (g *Graph) AddReExport(fileID, symbolID NodeID, visibility string) {
	if g.hasEdge(fileID, symbolID, EdgeReExport) {
		return
	}
	g.addEdge(Edge{From: fileID, To: symbolID, Kind: EdgeReExport, Label: visibility})
}

// AddRelationship inserts a symbol→symbol edge of the given kind, deduped.
func (g *Graph) AddRelationship(fromID, toID NodeID, kind EdgeKind, row uint32) {
	if g.hasEdge(fromID, toID, kind) {
		return
	}
	g.addEdge(Edge{From: fromID, To: toID, Kind: kind, Row: row})
}

func (g *Graph) addEdge(e Edge) {
	g.Out[e.From] = append(g.Out[e.From], e)
	g.In[e.To] = append(g.In[e.To], e)
}

func (g *Graph) hasEdge(from, to NodeID, kind EdgeKind) bool {
	for _, e := range g.Out[from] {
		if e.To == to && e.Kind == kind {
			return true
		}
	}
	return false
}

// OutEdges returns fileID's outgoing edges, optionally filtered by kind.
// Pass no kinds for all edges. The returned slice must not be mutated.
func (g *Graph) OutEdges(id NodeID, kinds ...EdgeKind) []Edge {
	return filterEdges(g.Out[id], kinds)
}

// InEdges returns id's incoming edges, optionally filtered by kind.
func (g *Graph) InEdges(id NodeID, kinds ...EdgeKind) []Edge {
	return filterEdges(g.In[id], kinds)
}

func filterEdges(edges []Edge, kinds []EdgeKind) []Edge {
	if len(kinds) == 0 {
		return edges
	}
	var out []Edge
	for _, e := range edges {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// FileByPath returns the node id for path, or InvalidNode.
func (g *Graph) FileByPath(path string) NodeID {
	if id, ok := g.ByPath[path]; ok {
		return id
	}
	return InvalidNode
}

// SymbolsByName returns the ids of every live symbol with the given name.
// The returned slice must not be mutated.
func (g *Graph) SymbolsByName(name string) []NodeID {
	return g.BySymbol[name]
}

// PackageByName returns the external package node for name, or InvalidNode.
func (g *Graph) PackageByName(name string) NodeID {
	if id, ok := g.ByPackage[name]; ok {
		return id
	}
	return InvalidNode
}

// Files returns the ids of all file nodes sorted by path.
func (g *Graph) Files() []NodeID {
	paths := make([]string, 0, len(g.ByPath))
	for p := range g.ByPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	ids := make([]NodeID, len(paths))
	for i, p := range paths {
		ids[i] = g.ByPath[p]
	}
	return ids
}

// RemoveFile deletes the file at path, every symbol it defines, every
// unresolved-import node it owns, and all edges incident to the removed
// nodes. External package nodes left without importers are pruned too.
// Removing an unknown path is a no-op.
func (g *Graph) RemoveFile(path string) {
	fileID, ok := g.ByPath[path]
	if !ok {
		return
	}

	doomed := map[NodeID]bool{fileID: true}
	var orphanCandidates []NodeID
	for _, e := range g.Out[fileID] {
		switch e.Kind {
		case EdgeContains:
			doomed[e.To] = true
		case EdgeUnresolvedImport:
			doomed[e.To] = true
		case EdgeResolvedImport:
			if g.Nodes[e.To].Kind == KindPackage {
				orphanCandidates = append(orphanCandidates, e.To)
			}
		}
	}

	for id := range doomed {
		g.detachNode(id)
	}
	for id := range doomed {
		g.clearNode(id)
	}
	delete(g.ByPath, path)

	// A package imported only by the removed file has no reason to stay.
	for _, pkgID := range orphanCandidates {
		if g.Alive(pkgID) && len(g.In[pkgID]) == 0 {
			delete(g.ByPackage, g.Nodes[pkgID].Package.Name)
			g.clearNode(pkgID)
		}
	}
}

// detachNode removes every edge incident to id from both adjacency sides.
func (g *Graph) detachNode(id NodeID) {
	for _, e := range g.Out[id] {
		g.In[e.To] = dropEdges(g.In[e.To], id, true)
	}
	for _, e := range g.In[id] {
		g.Out[e.From] = dropEdges(g.Out[e.From], id, false)
	}
	g.Out[id] = nil
	g.In[id] = nil
}

// dropEdges removes all edges whose selected endpoint is other. byFrom
// selects which endpoint to compare.
func dropEdges(edges []Edge, other NodeID, byFrom bool) []Edge {
	out := edges[:0]
	for _, e := range edges {
		end := e.To
		if byFrom {
			end = e.From
		}
		if end != other {
			out = append(out, e)
		}
	}
	return out
}

// clearNode empties an arena slot and removes it from the symbol index.
// The id is never reused.
func (g *Graph) clearNode(id NodeID) {
	n := &g.Nodes[id]
	if n.Symbol != nil {
		g.BySymbol[n.Symbol.Name] = dropID(g.BySymbol[n.Symbol.Name], id)
		if len(g.BySymbol[n.Symbol.Name]) == 0 {
			delete(g.BySymbol, n.Symbol.Name)
		}
	}
	n.File = nil
	n.Symbol = nil
	n.Package = nil
	n.Unresolved = nil
}

func dropID(ids []NodeID, id NodeID) []NodeID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ClearDerived removes everything the resolver, barrel and relationship
// passes produce: import edges of all flavors, re-export edges,
// relationship edges, and unresolved-import nodes. Structural state
// (files, symbols, Contains/ChildOf/Exports) survives. Used to make the
// passes idempotent on a rehydrated graph.
func (g *Graph) ClearDerived() {
	derived := func(k EdgeKind) bool {
		switch k {
		case EdgeContains, EdgeChildOf, EdgeExports:
			return false
		}
		return true
	}

	kept := make([][]Edge, len(g.Out))
	for id := range g.Out {
		for _, e := range g.Out[id] {
			if !derived(e.Kind) {
				kept[e.From] = append(kept[e.From], e)
			}
		}
	}
	g.Out = kept
	g.In = make([][]Edge, len(g.Nodes))
	for id := range g.Out {
		for _, e := range g.Out[id] {
			g.In[e.To] = append(g.In[e.To], e)
		}
	}

	for id := range g.Nodes {
		if g.Nodes[id].Unresolved != nil {
			g.clearNode(NodeID(id))
		}
	}
}

// Stats aggregates the counts served by the project_stats query.
type Stats struct {
	FilesByLanguage   map[string]int
	SymbolsByKind     map[SymbolKind]int
	ResolvedImports   int
	ExternalImports   int
	BuiltinImports    int
	UnresolvedImports int
	Relationships     map[string]int
	ExternalPackages  int
}

// ComputeStats walks the graph once and tallies node and edge populations.
func (g *Graph) ComputeStats() Stats {
	s := Stats{
		FilesByLanguage: make(map[string]int),
		SymbolsByKind:   make(map[SymbolKind]int),
		Relationships:   make(map[string]int),
	}
	for id := range g.Nodes {
		n := &g.Nodes[id]
		switch {
		case n.File != nil:
			s.FilesByLanguage[n.File.Language.String()]++
		case n.Symbol != nil:
			s.SymbolsByKind[n.Symbol.Kind]++
		case n.Package != nil:
			s.ExternalPackages++
		}
	}
	for id := range g.Out {
		for _, e := range g.Out[id] {
			switch e.Kind {
			case EdgeResolvedImport:
				if g.Nodes[e.To].Kind == KindPackage {
					s.ExternalImports++
				} else {
					s.ResolvedImports++
				}
			case EdgeUnresolvedImport:
				if u := g.Nodes[e.To].Unresolved; u != nil && u.Reason == ReasonBuiltin {
					s.BuiltinImports++
				} else {
					s.UnresolvedImports++
				}
			case EdgeCalls, EdgeExtends, EdgeImplements, EdgeTypeReference:
				s.Relationships[e.Kind.String()]++
			}
		}
	}
	return s
}
