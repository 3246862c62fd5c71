// Package parser manages pooled tree-sitter parsers for the indexed
// languages. One pool exists per language; parsers inside a pool are never
// shared between goroutines concurrently, and the pool is sized to match the
// indexing worker pool.
package parser

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	ts "github.com/tree-sitter/go-tree-sitter"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/MonsieurBarti/codegraph/pkg/lang"
)

// Manager owns one lazily created parser pool per language.
//
// Trees returned by Parse must be closed by the caller; they are transient
// and never outlive the extraction that consumed them. The Manager itself
// must be closed to free the pooled parsers.
type Manager struct {
	pools map[lang.Lang]*parserPool
	mu    sync.RWMutex

	logger *slog.Logger

	parsesCalled int
}

// NewManager creates a parser manager. Pass nil to use slog.Default().
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		pools:  make(map[lang.Lang]*parserPool),
		logger: logger,
	}
}

// Parse parses source with the grammar for l.
//
// Malformed input yields a partial tree, not an error; tree-sitter's error
// recovery is the point. The returned tree MUST be closed by the caller.
func (m *Manager) Parse(source []byte, l lang.Lang) (*ts.Tree, error) {
	if l == lang.Unknown {
		return nil, fmt.Errorf("cannot parse unknown language")
	}

	m.mu.Lock()
	m.parsesCalled++
	m.mu.Unlock()

	pool, err := m.getOrCreatePool(l)
	if err != nil {
		return nil, err
	}

	p, err := pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("acquire %s parser: %w", l, err)
	}
	tree := p.Parse(source, nil)
	pool.release(p)

	if tree == nil {
		return nil, fmt.Errorf("%s grammar refused input (%d bytes)", l, len(source))
	}

	if tree.RootNode().HasError() {
		m.logger.Debug("parse tree contains errors", "language", l.String())
	}
	return tree, nil
}

// ParseFile parses source for the language detected from path.
func (m *Manager) ParseFile(source []byte, path string) (*ts.Tree, error) {
	l := lang.FromPath(path)
	if l == lang.Unknown {
		return nil, fmt.Errorf("unsupported file extension: %s", path)
	}
	return m.Parse(source, l)
}

// Close frees every pooled parser. The Manager is unusable afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for l, pool := range m.pools {
		pool.close()
		m.logger.Debug("closed parser pool", "language", l.String())
	}
	m.pools = make(map[lang.Lang]*parserPool)
	return nil
}

// Stats reports parser usage counters for the stats query.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	created := 0
	for _, pool := range m.pools {
		created += pool.createdCount()
	}
	return Stats{ParsersCreated: created, ParsesCalled: m.parsesCalled}
}

// Stats holds parser usage counters.
type Stats struct {
	ParsersCreated int
	ParsesCalled   int
}

func (m *Manager) getOrCreatePool(l lang.Lang) (*parserPool, error) {
	m.mu.RLock()
	pool, ok := m.pools[l]
	m.mu.RUnlock()
	if ok {
		return pool, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if pool, ok = m.pools[l]; ok {
		return pool, nil
	}

	ptr, err := GrammarPointer(l)
	if err != nil {
		return nil, err
	}
	pool = newParserPool(l, ptr, defaultPoolSize(), m.logger)
	m.pools[l] = pool
	m.logger.Debug("created parser pool", "language", l.String(), "maxSize", pool.maxSize)
	return pool, nil
}

// GrammarPointer returns the tree-sitter grammar for l. Exported for query
// compilation and tests that need a raw language handle.
func GrammarPointer(l lang.Lang) (unsafe.Pointer, error) {
	switch l {
	case lang.TypeScript:
		return ts_typescript.LanguageTypescript(), nil
	case lang.TSX:
		return ts_typescript.LanguageTSX(), nil
	case lang.JavaScript:
		return ts_javascript.Language(), nil
	case lang.Rust:
		return ts_rust.Language(), nil
	default:
		return nil, fmt.Errorf("no grammar for language: %s", l)
	}
}
