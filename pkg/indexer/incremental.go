package indexer

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/MonsieurBarti/codegraph/pkg/cache"
	"github.com/MonsieurBarti/codegraph/pkg/extractor"
	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/lang"
	"github.com/MonsieurBarti/codegraph/pkg/resolver"
	"github.com/MonsieurBarti/codegraph/pkg/rustresolver"
)

// ApplyEvent applies one watcher event to the live graph. Parse and
// extraction run outside the write lock; the lock covers only the graph
// mutation and resolver refresh. Every applied update triggers a cache save;
// save failures are logged, the in-memory state stays authoritative.
func (s *Service) ApplyEvent(ctx context.Context, ev WatchEvent) error {
	switch ev.Kind {
	case EventConfigChanged:
		s.logger.Info("config changed, rebuilding", "path", ev.Path)
		_, err := s.FullIndex(ctx)
		return err

	case EventDeleted:
		s.mu.Lock()
		// Imports bound to the deleted file become unresolved records, which
		// revisitUnresolvedLocked heals if the file comes back. Barrel-chased
		// edges are skipped: their specifier binds to the barrel.
		var orphaned []graph.Edge
		if oldID := s.g.FileByPath(ev.Path); oldID != graph.InvalidNode {
			b := &build{g: s.g, ts: s.ts, rust: s.rust}
			for _, e := range s.g.InEdges(oldID, graph.EdgeResolvedImport) {
				if e.From != oldID && s.g.Node(e.From).File != nil && b.resolveSource(s.g.Node(e.From).File.Path, e.Label) == ev.Path {
					orphaned = append(orphaned, e)
				}
			}
		}
		s.g.RemoveFile(ev.Path)
		for _, e := range orphaned {
			s.g.AddUnresolvedImport(e.From, e.Label, graph.ReasonNotFound, e.Row)
		}
		s.aux.drop(ev.Path)
		delete(s.indexed, ev.Path)
		delete(s.meta, ev.Path)
		s.mu.Unlock()
		s.logger.Debug("removed file", "path", ev.Path)

	case EventModified:
		if err := s.applyModified(ctx, ev.Path); err != nil {
			return err
		}
	}

	if err := s.SaveCache(); err != nil {
		s.logger.Warn("cache save failed", "error", err)
	}
	return nil
}

func (s *Service) applyModified(ctx context.Context, path string) error {
	// A change to a Rust crate root can rewire the whole mod graph; promote
	// to a full rebuild rather than guessing the delta.
	if lang.FromPath(path) == lang.Rust {
		s.mu.RLock()
		isRoot := s.rust != nil && s.rust.IsCrateRoot(path)
		s.mu.RUnlock()
		if isRoot {
			s.logger.Info("crate root changed, rebuilding", "path", path)
			_, err := s.FullIndex(ctx)
			return err
		}
	}

	// CPU-bound work stays outside the write lock.
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	res, err := s.extract.ExtractFile(path, source)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	modsChanged := !reflect.DeepEqual(s.aux.ModDecls[path], res.ModDecls)

	// Inbound import edges vanish with the node; remember the importers so
	// their records can be re-resolved against the fresh file.
	type inbound struct {
		importer  graph.NodeID
		specifier string
		row       uint32
	}
	var importers []inbound
	if oldID := s.g.FileByPath(path); oldID != graph.InvalidNode {
		for _, e := range s.g.InEdges(oldID, graph.EdgeResolvedImport) {
			if s.g.Node(e.From).File != nil {
				importers = append(importers, inbound{importer: e.From, specifier: e.Label, row: e.Row})
			}
		}
	}

	s.g.RemoveFile(path)
	fi := FileInfo{
		Path:     path,
		Language: res.Language,
		Meta:     cache.FileMeta{MTime: info.ModTime().Unix(), Size: info.Size()},
	}
	s.insertLocked(fi, res)

	// A new module declaration set shifts the Rust module tree; the rebuild
	// is an in-memory walk, cheap enough to run inline.
	if res.Language == lang.Rust && (modsChanged || s.rust == nil) {
		s.rust = rustresolver.New(s.root, s.aux.ModDecls, s.indexed, s.logger)
	}
	if s.ts == nil {
		s.ts = resolver.New(s.root, s.indexed, s.logger)
	}

	s.resolveFileLocked(path, res)

	// Restore importer edges by re-resolving each remembered record.
	for _, in := range importers {
		if !s.g.Alive(in.importer) || s.g.Node(in.importer).File == nil {
			continue
		}
		from := s.g.Node(in.importer).File
		var out resolver.Outcome
		if from.Language == lang.Rust {
			out = s.rust.Resolve(from.Path, in.specifier)
		} else {
			out = s.ts.Resolve(from.Path, in.specifier)
		}
		switch out.Kind {
		case resolver.KindResolved:
			if targetID := s.g.FileByPath(out.Path); targetID != graph.InvalidNode {
				s.g.AddResolvedImportUnique(in.importer, targetID, in.specifier, in.row)
			}
		default:
			s.g.AddUnresolvedImport(in.importer, in.specifier, graph.ReasonNotFound, in.row)
		}
	}

	s.rewireBarrelLocked()

	// Relationship edges into the replaced symbols vanished with them, so
	// the whole pass re-runs. AddRelationship dedupes; no parsing happens
	// here, only index lookups.
	for relPath, rels := range s.aux.Relationships {
		fileID := s.g.FileByPath(relPath)
		if fileID == graph.InvalidNode {
			continue
		}
		for _, rel := range rels {
			wireRelationship(s.g, fileID, rel)
		}
	}
	s.revisitUnresolvedLocked(path)

	s.logger.Debug("reindexed file", "path", path,
		"symbols", len(res.Symbols), "imports", len(res.Imports))
	return nil
}

// insertLocked mirrors build.insert against the live maps. Caller holds the
// write lock.
func (s *Service) insertLocked(info FileInfo, res *extractor.FileResult) {
	b := &build{g: s.g, aux: s.aux, indexed: s.indexed, meta: s.meta, logger: s.logger}
	b.insert(info, res)
}

// resolveFileLocked runs the scoped resolve for one file's imports.
func (s *Service) resolveFileLocked(path string, res *extractor.FileResult) {
	fileID := s.g.FileByPath(path)
	for _, imp := range res.Imports {
		var out resolver.Outcome
		switch {
		case res.Language == lang.Rust && imp.Kind == extractor.ImportExternCrate:
			o, emit := s.rust.ExternCrateOutcome(path, imp.Specifier)
			if !emit {
				continue
			}
			out = o
		case res.Language == lang.Rust:
			out = s.rust.Resolve(path, imp.Specifier)
		default:
			out = s.ts.Resolve(path, imp.Specifier)
		}

		switch out.Kind {
		case resolver.KindResolved:
			if targetID := s.g.FileByPath(out.Path); targetID != graph.InvalidNode {
				s.g.AddResolvedImport(fileID, targetID, imp.Specifier, imp.Row)
			} else {
				s.g.AddUnresolvedImport(fileID, imp.Specifier, graph.ReasonNotFound, imp.Row)
			}
		case resolver.KindExternal:
			s.g.AddExternalPackage(fileID, out.Package, imp.Specifier, imp.Row)
		case resolver.KindBuiltin:
			s.g.AddUnresolvedImport(fileID, imp.Specifier, graph.ReasonBuiltin, imp.Row)
		default:
			s.g.AddUnresolvedImport(fileID, imp.Specifier, graph.ReasonNotFound, imp.Row)
		}
	}
}

// rewireBarrelLocked re-runs the barrel chain pass. The chase maps depend on
// export records across files, so the pass recomputes them; the graph-side
// additions are deduplicated, which keeps the rerun idempotent.
func (s *Service) rewireBarrelLocked() {
	b := &build{
		root:            s.root,
		logger:          s.logger,
		g:               s.g,
		aux:             s.aux,
		indexed:         s.indexed,
		meta:            s.meta,
		ts:              s.ts,
		rust:            s.rust,
		resolvedTargets: s.currentResolvedTargets(),
	}
	b.barrelPass()
}

// currentResolvedTargets reconstructs the (file, specifier) → target map
// from the live graph's resolved-import edges.
func (s *Service) currentResolvedTargets() map[string]map[string]string {
	targets := make(map[string]map[string]string)
	for _, fileID := range s.g.Files() {
		path := s.g.Node(fileID).File.Path
		for _, e := range s.g.OutEdges(fileID, graph.EdgeResolvedImport) {
			to := s.g.Node(e.To)
			if to.File == nil {
				continue
			}
			m := targets[path]
			if m == nil {
				m = make(map[string]string)
				targets[path] = m
			}
			m[e.Label] = to.File.Path
		}
	}
	return targets
}

// revisitUnresolvedLocked rewrites unresolved imports that now bind to the
// freshly (re)indexed file at path.
func (s *Service) revisitUnresolvedLocked(path string) {
	type healed struct {
		importer   graph.NodeID
		unresolved graph.NodeID
		specifier  string
	}
	var fixes []healed

	for _, fileID := range s.g.Files() {
		fileNode := s.g.Node(fileID).File
		if fileNode.Path == path {
			continue
		}
		for _, e := range s.g.OutEdges(fileID, graph.EdgeUnresolvedImport) {
			u := s.g.Node(e.To).Unresolved
			if u == nil || u.Reason != graph.ReasonNotFound {
				continue
			}
			var out resolver.Outcome
			if fileNode.Language == lang.Rust {
				out = s.rust.Resolve(fileNode.Path, u.Specifier)
			} else {
				out = s.ts.Resolve(fileNode.Path, u.Specifier)
			}
			if out.Kind == resolver.KindResolved && out.Path == path {
				fixes = append(fixes, healed{importer: fileID, unresolved: e.To, specifier: u.Specifier})
			}
		}
	}

	targetID := s.g.FileByPath(path)
	for _, fix := range fixes {
		s.g.RemoveUnresolvedNode(fix.unresolved)
		s.g.AddResolvedImport(fix.importer, targetID, fix.specifier, 0)
		s.logger.Debug("healed unresolved import",
			"importer", s.g.Node(fix.importer).File.Path, "specifier", fix.specifier)
	}
}
