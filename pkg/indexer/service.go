// Package indexer orchestrates the pipeline: scan, parallel extraction,
// sequential graph insertion, the resolver passes, the barrel chain pass and
// the relationship wiring pass. It owns the live graph under a
// readers-writer discipline and applies incremental updates from the
// watcher.
package indexer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MonsieurBarti/codegraph/pkg/cache"
	"github.com/MonsieurBarti/codegraph/pkg/config"
	"github.com/MonsieurBarti/codegraph/pkg/extractor"
	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/lang"
	"github.com/MonsieurBarti/codegraph/pkg/parser"
	"github.com/MonsieurBarti/codegraph/pkg/resolver"
	"github.com/MonsieurBarti/codegraph/pkg/rustresolver"
)

// Service owns the live graph and its auxiliary record store. Queries read
// through WithSnapshot; the incremental updater is the only writer.
type Service struct {
	root   string
	cfg    config.Config
	logger *slog.Logger

	parsers *parser.Manager
	extract *extractor.Extractor
	ignorer *Ignorer

	// mu guards everything below. Readers hold RLock for the duration of a
	// query so each query observes one consistent graph.
	mu      sync.RWMutex
	g       *graph.Graph
	aux     *auxStore
	indexed map[string]bool
	meta    map[string]cache.FileMeta
	ts      *resolver.Resolver
	rust    *rustresolver.Resolver
	skipped int
}

// auxStore keeps the raw extraction records the passes need beyond graph
// insertion: imports for the barrel pass and unresolved revisits, exports
// for re-export chasing, mod declarations for the Rust module tree, and
// relationship records for re-wiring after updates. It is cached alongside
// the graph so warm starts can run passes without re-extracting.
type auxStore struct {
	Imports       map[string][]extractor.Import
	Exports       map[string][]extractor.Export
	ModDecls      map[string][]extractor.ModDecl
	Relationships map[string][]extractor.Relationship
}

func newAuxStore() *auxStore {
	return &auxStore{
		Imports:       make(map[string][]extractor.Import),
		Exports:       make(map[string][]extractor.Export),
		ModDecls:      make(map[string][]extractor.ModDecl),
		Relationships: make(map[string][]extractor.Relationship),
	}
}

func (a *auxStore) drop(path string) {
	delete(a.Imports, path)
	delete(a.Exports, path)
	delete(a.ModDecls, path)
	delete(a.Relationships, path)
}

func (a *auxStore) set(res *extractor.FileResult) {
	a.Imports[res.Path] = res.Imports
	a.Exports[res.Path] = res.Exports
	a.ModDecls[res.Path] = res.ModDecls
	a.Relationships[res.Path] = res.Relationships
}

// IndexStats summarizes one indexing pass.
type IndexStats struct {
	Files    int
	Skipped  int
	Duration time.Duration
	WarmFrom int // files restored from cache on a warm start
}

// New creates a service for the project rooted at root.
func New(root string, cfg config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	parsers := parser.NewManager(logger)
	return &Service{
		root:    root,
		cfg:     cfg,
		logger:  logger,
		parsers: parsers,
		extract: extractor.New(parsers),
		ignorer: NewIgnorer(root, cfg.Ignore, logger),
		g:       graph.New(),
		aux:     newAuxStore(),
		indexed: make(map[string]bool),
		meta:    make(map[string]cache.FileMeta),
	}
}

// Root returns the project root.
func (s *Service) Root() string { return s.root }

// Config returns the effective project configuration.
func (s *Service) Config() config.Config { return s.cfg }

// ParserStats exposes parser pool counters for stats output.
func (s *Service) ParserStats() parser.Stats { return s.parsers.Stats() }

// Close releases parser resources.
func (s *Service) Close() {
	s.parsers.Close()
}

// WithSnapshot runs fn against a consistent view of the graph. The view is
// stable for the whole call; updates block only for their mutation window.
func (s *Service) WithSnapshot(fn func(*graph.Graph)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.g)
}

// FullIndex rebuilds the graph from scratch and publishes it. Queries keep
// serving the previous graph until the swap.
func (s *Service) FullIndex(ctx context.Context) (IndexStats, error) {
	start := time.Now()

	files, skipped := Scan(s.root, s.ignorer, s.logger)
	outcomes := extractAll(ctx, files, s.extract, s.logger)

	b := newBuild(s.root, s.logger)
	for _, out := range outcomes {
		if out.Err != nil {
			s.logger.Warn("skipping unreadable file", "path", out.Info.Path, "error", out.Err)
			skipped++
			continue
		}
		b.insert(out.Info, out.Result)
	}
	b.runPasses()

	s.mu.Lock()
	s.g = b.g
	s.aux = b.aux
	s.indexed = b.indexed
	s.meta = b.meta
	s.ts = b.ts
	s.rust = b.rust
	s.skipped = skipped
	s.mu.Unlock()

	stats := IndexStats{Files: len(b.indexed), Skipped: skipped, Duration: time.Since(start)}
	s.logger.Info("index complete",
		"files", stats.Files, "skipped", stats.Skipped, "duration", stats.Duration)

	if err := s.SaveCache(); err != nil {
		s.logger.Warn("cache save failed", "error", err)
	}
	return stats, nil
}

// LoadOrIndex warm-starts from the cache when the staleness diff stays under
// the rebuild threshold; otherwise it falls back to FullIndex.
func (s *Service) LoadOrIndex(ctx context.Context) (IndexStats, error) {
	env, err := cache.Load(s.root)
	if err != nil {
		return s.FullIndex(ctx)
	}

	start := time.Now()
	files, skipped := Scan(s.root, s.ignorer, s.logger)
	current := make(map[string]cache.FileMeta, len(files))
	infoByPath := make(map[string]FileInfo, len(files))
	for _, f := range files {
		current[f.Path] = f.Meta
		infoByPath[f.Path] = f
	}

	diff := cache.ComputeDiff(env.Files, current)
	if diff.TooStale(len(files)) {
		s.logger.Info("cache too stale, rebuilding",
			"changed", len(diff.Changed), "added", len(diff.Added), "deleted", len(diff.Deleted))
		return s.FullIndex(ctx)
	}

	// Rehydrate the cached graph, drop deleted subtrees, re-extract the
	// changed and added files, then run the resolve passes over the result.
	b := rehydrate(s.root, env, s.logger)
	for _, path := range diff.Deleted {
		b.remove(path)
	}

	var dirty []FileInfo
	for _, path := range append(append([]string{}, diff.Changed...), diff.Added...) {
		b.remove(path)
		dirty = append(dirty, infoByPath[path])
	}
	for _, out := range extractAll(ctx, dirty, s.extract, s.logger) {
		if out.Err != nil {
			s.logger.Warn("skipping unreadable file", "path", out.Info.Path, "error", out.Err)
			skipped++
			continue
		}
		b.insert(out.Info, out.Result)
	}
	b.runPasses()

	s.mu.Lock()
	s.g = b.g
	s.aux = b.aux
	s.indexed = b.indexed
	s.meta = b.meta
	s.ts = b.ts
	s.rust = b.rust
	s.skipped = skipped
	s.mu.Unlock()

	stats := IndexStats{
		Files:    len(b.indexed),
		Skipped:  skipped,
		Duration: time.Since(start),
		WarmFrom: len(diff.Unchanged),
	}
	s.logger.Info("warm start complete",
		"files", stats.Files, "unchanged", stats.WarmFrom,
		"reindexed", len(dirty), "deleted", len(diff.Deleted), "duration", stats.Duration)

	if err := s.SaveCache(); err != nil {
		s.logger.Warn("cache save failed", "error", err)
	}
	return stats, nil
}

// SaveCache persists the current graph under a read lock so the encoded
// state is a consistent snapshot.
func (s *Service) SaveCache() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cache.Save(s.root, s.g, s.meta, &cache.Aux{
		Imports:       s.aux.Imports,
		Exports:       s.aux.Exports,
		ModDecls:      s.aux.ModDecls,
		Relationships: s.aux.Relationships,
	})
}

// Skipped returns the skipped-file counter of the last indexing pass.
func (s *Service) Skipped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped
}

// isSourceLang mirrors the dispatch table for the watcher's classification.
func isSourceLang(path string) bool {
	return lang.IsSourcePath(path)
}
