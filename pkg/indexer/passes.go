package indexer

import (
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/MonsieurBarti/codegraph/pkg/cache"
	"github.com/MonsieurBarti/codegraph/pkg/extractor"
	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/lang"
	"github.com/MonsieurBarti/codegraph/pkg/resolver"
	"github.com/MonsieurBarti/codegraph/pkg/rustresolver"
	"github.com/MonsieurBarti/codegraph/pkg/util"
)

// build assembles a graph off to the side; the service swaps it in whole.
// The same type drives full indexing and cache warm starts.
type build struct {
	root   string
	logger *slog.Logger

	g       *graph.Graph
	aux     *auxStore
	indexed map[string]bool
	meta    map[string]cache.FileMeta

	ts   *resolver.Resolver
	rust *rustresolver.Resolver

	// resolvedTargets records where each (file, specifier) import landed,
	// for the barrel pass's candidate scan.
	resolvedTargets map[string]map[string]string

	// barrels and wildcards are the re-export maps of the barrel pass.
	barrels   map[string][]reExportEntry
	wildcards map[string][]string
}

type reExportEntry struct {
	names      map[string]string // exported name → original name at source
	sourceFile string
	visibility string
}

func newBuild(root string, logger *slog.Logger) *build {
	return &build{
		root:    root,
		logger:  logger,
		g:       graph.New(),
		aux:     newAuxStore(),
		indexed: make(map[string]bool),
		meta:    make(map[string]cache.FileMeta),
	}
}

// rehydrate wraps a cached graph in a build so the warm-start path can
// remove stale files, insert fresh ones and re-run the passes.
func rehydrate(root string, env *cache.Envelope, logger *slog.Logger) *build {
	b := newBuild(root, logger)
	b.g = env.Graph
	b.aux = &auxStore{
		Imports:       env.Aux.Imports,
		Exports:       env.Aux.Exports,
		ModDecls:      env.Aux.ModDecls,
		Relationships: env.Aux.Relationships,
	}
	for path := range env.Graph.ByPath {
		b.indexed[path] = true
	}
	for path, meta := range env.Files {
		b.meta[path] = meta
	}
	return b
}

// insert adds one extracted file to the graph: the file node, its symbols
// (children included), and the Exports surface. Import edges come later in
// the resolve passes.
func (b *build) insert(info FileInfo, res *extractor.FileResult) {
	fileID := b.g.AddFile(res.Path, res.Language, info.Meta.MTime, info.Meta.Size)

	// Symbols declared without the export keyword may still be exported by
	// a separate `export { name }` clause.
	exportedNames := make(map[string]bool)
	for _, exp := range res.Exports {
		if exp.Source != "" {
			continue
		}
		for _, n := range exp.Names {
			exportedNames[n.Original] = true
		}
	}

	for _, sym := range res.Symbols {
		node := symbolToNode(sym, res.Language)
		if exportedNames[sym.Name] {
			node.Exported = true
		}
		id := b.g.AddSymbol(fileID, node)
		if node.Exported || node.Default {
			b.g.AddExport(fileID, id)
		}
		for _, child := range sym.Children {
			b.g.AddChildSymbol(id, symbolToNode(child, res.Language))
		}
	}

	b.aux.set(res)
	b.indexed[res.Path] = true
	b.meta[res.Path] = info.Meta
}

func (b *build) remove(path string) {
	b.g.RemoveFile(path)
	b.aux.drop(path)
	delete(b.indexed, path)
	delete(b.meta, path)
}

func symbolToNode(sym extractor.Symbol, l lang.Lang) graph.SymbolNode {
	isDefault := sym.Default
	if l == lang.Rust {
		isDefault = false
	}
	return graph.SymbolNode{
		Name:      sym.Name,
		Kind:      sym.Kind,
		Line:      sym.Row,
		Column:    sym.Column,
		StartByte: sym.StartByte,
		EndByte:   sym.EndByte,
		Exported:  sym.Exported,
		Default:   isDefault,
		Derives:   sym.Derives,
	}
}

// runPasses strips derived state, constructs the resolvers (one instance
// each for the whole pass) and runs resolve, barrel and relationship passes.
func (b *build) runPasses() {
	b.g.ClearDerived()

	b.ts = resolver.New(b.root, b.indexed, b.logger)
	b.rust = rustresolver.New(b.root, b.aux.ModDecls, b.indexed, b.logger)
	b.resolvedTargets = make(map[string]map[string]string)

	b.resolvePass()
	b.barrelPass()
	b.relationshipPass()
}

// importEdge is one resolved outcome waiting for sequential insertion.
type importEdge struct {
	path      string
	specifier string
	row       uint32
	outcome   resolver.Outcome
}

// resolvePass classifies every import record of every file. Outcomes are
// computed in parallel (the resolvers are read-only here) and applied
// sequentially to the graph.
func (b *build) resolvePass() {
	paths := make([]string, 0, len(b.indexed))
	for p := range b.indexed {
		paths = append(paths, p)
	}

	results := make([][]importEdge, len(paths))
	var eg errgroup.Group
	eg.SetLimit(util.OptimalPoolSize())
	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			results[i] = b.resolveFile(path)
			return nil
		})
	}
	_ = eg.Wait()

	for _, edges := range results {
		for _, e := range edges {
			b.applyImportEdge(e)
		}
	}
}

// resolveFile computes one typed outcome per import record of path.
func (b *build) resolveFile(path string) []importEdge {
	fileNode := b.g.Node(b.g.FileByPath(path)).File
	var edges []importEdge

	for _, imp := range b.aux.Imports[path] {
		var out resolver.Outcome
		switch {
		case fileNode.Language == lang.Rust && imp.Kind == extractor.ImportExternCrate:
			o, emit := b.rust.ExternCrateOutcome(path, imp.Specifier)
			if !emit {
				continue
			}
			out = o
		case fileNode.Language == lang.Rust:
			out = b.rust.Resolve(path, imp.Specifier)
		default:
			out = b.ts.Resolve(path, imp.Specifier)
		}
		edges = append(edges, importEdge{path: path, specifier: imp.Specifier, row: imp.Row, outcome: out})
	}
	return edges
}

func (b *build) applyImportEdge(e importEdge) {
	fileID := b.g.FileByPath(e.path)
	if fileID == graph.InvalidNode {
		return
	}
	switch e.outcome.Kind {
	case resolver.KindResolved:
		targetID := b.g.FileByPath(e.outcome.Path)
		if targetID == graph.InvalidNode {
			b.g.AddUnresolvedImport(fileID, e.specifier, graph.ReasonNotFound, e.row)
			return
		}
		b.g.AddResolvedImport(fileID, targetID, e.specifier, e.row)
		b.noteTarget(e.path, e.specifier, e.outcome.Path)
	case resolver.KindExternal:
		b.g.AddExternalPackage(fileID, e.outcome.Package, e.specifier, e.row)
	case resolver.KindBuiltin:
		b.g.AddUnresolvedImport(fileID, e.specifier, graph.ReasonBuiltin, e.row)
	default:
		b.g.AddUnresolvedImport(fileID, e.specifier, graph.ReasonNotFound, e.row)
	}
}

func (b *build) noteTarget(path, specifier, target string) {
	m := b.resolvedTargets[path]
	if m == nil {
		m = make(map[string]string)
		b.resolvedTargets[path] = m
	}
	m[specifier] = target
}

// resolveSource binds a re-export source (module specifier or use path) to
// a file, using the resolver matching the exporting file's language.
func (b *build) resolveSource(fromPath, source string) string {
	fileID := b.g.FileByPath(fromPath)
	if fileID == graph.InvalidNode {
		return ""
	}
	var out resolver.Outcome
	if b.g.Node(fileID).File.Language == lang.Rust {
		out = b.rust.Resolve(fromPath, source)
	} else {
		out = b.ts.Resolve(fromPath, source)
	}
	if out.Kind != resolver.KindResolved {
		return ""
	}
	return out.Path
}

// barrelPass builds the re-export maps, records wildcard re-exports as
// BarrelReExportAll edges, attaches ReExport edges from barrels to the
// defining symbols, and re-points importers at definers with cycle-guarded
// chain chasing.
func (b *build) barrelPass() {
	b.barrels = make(map[string][]reExportEntry)
	b.wildcards = make(map[string][]string)

	for path, exports := range b.aux.Exports {
		fileID := b.g.FileByPath(path)
		if fileID == graph.InvalidNode {
			continue
		}
		for _, exp := range exports {
			switch exp.Kind {
			case extractor.ExportReExport:
				srcFile := b.resolveSource(path, exp.Source)
				if srcFile == "" {
					continue
				}
				names := make(map[string]string, len(exp.Names))
				for _, n := range exp.Names {
					names[n.Name] = n.Original
				}
				b.barrels[path] = append(b.barrels[path], reExportEntry{
					names:      names,
					sourceFile: srcFile,
					visibility: exp.Visibility,
				})
			case extractor.ExportReExportAll:
				srcFile := b.resolveSource(path, exp.Source)
				if srcFile == "" {
					continue
				}
				srcID := b.g.FileByPath(srcFile)
				if srcID != graph.InvalidNode && srcID != fileID {
					b.g.AddBarrelReExportAll(fileID, srcID)
				}
				b.wildcards[path] = append(b.wildcards[path], srcFile)
			}
		}
	}

	// ReExport edges: barrel → defining symbol.
	for path, entries := range b.barrels {
		fileID := b.g.FileByPath(path)
		for _, entry := range entries {
			for name := range entry.names {
				visited := make(map[string]bool)
				if _, symID, ok := b.chaseDefiner(path, name, visited); ok {
					b.g.AddReExport(fileID, symID, entry.visibility)
				}
			}
		}
	}

	// Importer candidates: every resolved import whose target is a barrel.
	for path, bySpec := range b.resolvedTargets {
		fileID := b.g.FileByPath(path)
		for _, imp := range b.aux.Imports[path] {
			target, ok := bySpec[imp.Specifier]
			if !ok {
				continue
			}
			if len(b.barrels[target]) == 0 && len(b.wildcards[target]) == 0 {
				continue
			}
			for _, name := range imp.Names {
				// Aliased imports match the original exported name.
				visited := make(map[string]bool)
				definer, _, ok := b.chaseDefiner(target, name.Original, visited)
				if !ok || definer == target || definer == path {
					continue
				}
				definerID := b.g.FileByPath(definer)
				if definerID != graph.InvalidNode {
					b.g.AddResolvedImportUnique(fileID, definerID, imp.Specifier, imp.Row)
				}
			}
		}
	}
}

// chaseDefiner follows the re-export of name through barrel until a file
// actually defining it turns up. The per-chain visited set terminates
// cycles without adding edges.
func (b *build) chaseDefiner(barrel, name string, visited map[string]bool) (string, graph.NodeID, bool) {
	key := barrel + "\x00" + name
	if visited[key] {
		return "", graph.InvalidNode, false
	}
	visited[key] = true

	for _, entry := range b.barrels[barrel] {
		orig, ok := entry.names[name]
		if !ok {
			continue
		}
		if symID := b.definedSymbolIn(entry.sourceFile, orig); symID != graph.InvalidNode {
			return entry.sourceFile, symID, true
		}
		if f, id, ok := b.chaseDefiner(entry.sourceFile, orig, visited); ok {
			return f, id, ok
		}
	}
	for _, wf := range b.wildcards[barrel] {
		if symID := b.definedSymbolIn(wf, name); symID != graph.InvalidNode {
			return wf, symID, true
		}
		if f, id, ok := b.chaseDefiner(wf, name, visited); ok {
			return f, id, ok
		}
	}
	return "", graph.InvalidNode, false
}

// definedSymbolIn returns the exported top-level symbol named name defined
// in file, or InvalidNode.
func (b *build) definedSymbolIn(file, name string) graph.NodeID {
	fileID := b.g.FileByPath(file)
	if fileID == graph.InvalidNode {
		return graph.InvalidNode
	}
	for _, id := range b.g.SymbolsByName(name) {
		sym := b.g.Node(id).Symbol
		if sym != nil && sym.File == fileID && sym.Parent == graph.InvalidNode && sym.Exported {
			return id
		}
	}
	return graph.InvalidNode
}

// relationshipPass lifts name-based relationship records into symbol→symbol
// edges. A target name matching anything other than exactly one symbol in
// the whole graph is skipped; cross-file binding without type analysis is
// necessarily approximate.
func (b *build) relationshipPass() {
	for path, rels := range b.aux.Relationships {
		fileID := b.g.FileByPath(path)
		if fileID == graph.InvalidNode {
			continue
		}
		for _, rel := range rels {
			wireRelationship(b.g, fileID, rel)
		}
	}
}

// wireRelationship applies the ambiguity policy for a single record. Shared
// with the incremental updater.
func wireRelationship(g *graph.Graph, fileID graph.NodeID, rel extractor.Relationship) {
	if rel.From == "" || rel.To == "" {
		return
	}
	targets := g.SymbolsByName(rel.To)
	if len(targets) != 1 {
		return
	}
	fromID := symbolInFile(g, fileID, rel.From)
	if fromID == graph.InvalidNode || fromID == targets[0] {
		return
	}
	g.AddRelationship(fromID, targets[0], rel.Kind.EdgeKind(), rel.Row)
}

// symbolInFile finds a symbol named name defined in fileID, children
// included; the first match wins.
func symbolInFile(g *graph.Graph, fileID graph.NodeID, name string) graph.NodeID {
	for _, id := range g.SymbolsByName(name) {
		if sym := g.Node(id).Symbol; sym != nil && sym.File == fileID {
			return id
		}
	}
	return graph.InvalidNode
}
