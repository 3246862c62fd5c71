package parser

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/MonsieurBarti/codegraph/pkg/lang"
	"github.com/MonsieurBarti/codegraph/pkg/util"
)

// parserPool is a channel-backed pool of parsers for a single grammar.
// Parsers are created lazily up to maxSize; acquire blocks once the pool is
// saturated until a parser is released.
type parserPool struct {
	pool    chan *ts.Parser
	grammar unsafe.Pointer
	lang    lang.Lang
	maxSize int

	mu      sync.Mutex
	created int

	logger *slog.Logger
}

func newParserPool(l lang.Lang, grammar unsafe.Pointer, maxSize int, logger *slog.Logger) *parserPool {
	return &parserPool{
		pool:    make(chan *ts.Parser, maxSize),
		grammar: grammar,
		lang:    l,
		maxSize: maxSize,
		logger:  logger,
	}
}

func (p *parserPool) acquire() (*ts.Parser, error) {
	select {
	case parser := <-p.pool:
		return parser, nil
	default:
		return p.createOrWait()
	}
}

func (p *parserPool) createOrWait() (*ts.Parser, error) {
	p.mu.Lock()
	if p.created < p.maxSize {
		parser := ts.NewParser()
		if parser == nil {
			p.mu.Unlock()
			return nil, fmt.Errorf("tree-sitter returned nil parser")
		}
		if err := parser.SetLanguage(ts.NewLanguage(p.grammar)); err != nil {
			parser.Close()
			p.mu.Unlock()
			return nil, fmt.Errorf("set %s grammar: %w", p.lang, err)
		}
		p.created++
		p.mu.Unlock()
		return parser, nil
	}
	p.mu.Unlock()

	// Saturated: wait for a release.
	return <-p.pool, nil
}

func (p *parserPool) release(parser *ts.Parser) {
	if parser == nil {
		return
	}
	select {
	case p.pool <- parser:
	default:
		// Pool full; only reachable on misuse. Close rather than leak.
		parser.Close()
		p.logger.Warn("parser pool full, closing excess parser", "language", p.lang.String())
	}
}

func (p *parserPool) close() {
	close(p.pool)
	for parser := range p.pool {
		parser.Close()
	}
}

func (p *parserPool) createdCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

// defaultPoolSize matches the worker pool size so extraction workers never
// block waiting for a parser.
func defaultPoolSize() int {
	return util.OptimalPoolSize()
}
