package extractor

import (
	"fmt"
	"sort"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/MonsieurBarti/codegraph/pkg/lang"
	"github.com/MonsieurBarti/codegraph/pkg/parser"
)

// Extractor runs language-dispatched extraction over parse trees. It is
// stateless apart from the parser manager handle and safe for concurrent use.
type Extractor struct {
	parsers *parser.Manager
}

// New creates an extractor backed by the given parser manager.
func New(parsers *parser.Manager) *Extractor {
	return &Extractor{parsers: parsers}
}

// ExtractFile parses source once and runs every extractor applicable to the
// file's language against the same tree. The tree is closed before return.
func (e *Extractor) ExtractFile(path string, source []byte) (*FileResult, error) {
	l := lang.FromPath(path)
	if l == lang.Unknown {
		return nil, fmt.Errorf("unsupported file extension: %s", path)
	}

	tree, err := e.parsers.Parse(source, l)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	return e.Extract(tree, source, path, l)
}

// Extract runs extraction over an already parsed tree. Exposed for tests
// that manage tree lifetime themselves.
func (e *Extractor) Extract(tree *ts.Tree, source []byte, path string, l lang.Lang) (*FileResult, error) {
	result := &FileResult{Path: path, Language: l}
	root := tree.RootNode()

	switch l {
	case lang.TypeScript, lang.TSX, lang.JavaScript:
		w := &tsWalker{source: source, jsx: l == lang.TSX || l == lang.JavaScript, result: result}
		w.walkProgram(root)
	case lang.Rust:
		w := &rustWalker{source: source, result: result}
		w.walkSourceFile(root)
	}

	dedupeSymbols(result)
	return result, nil
}

// dedupeSymbols drops same-(name,row) duplicates so each (name, row) pair
// appears at most once per file.
func dedupeSymbols(result *FileResult) {
	seen := make(map[symbolKey]int, len(result.Symbols))
	out := result.Symbols[:0]
	for _, s := range result.Symbols {
		key := symbolKey{s.Name, s.Row}
		if idx, ok := seen[key]; ok {
			// Keep the richer record: prefer the one with children, then
			// the exported one; otherwise the first record stays.
			if preferSymbol(s, out[idx]) {
				out[idx] = s
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, s)
	}
	result.Symbols = out
	sort.SliceStable(result.Symbols, func(i, j int) bool {
		return result.Symbols[i].Row < result.Symbols[j].Row
	})
}

type symbolKey struct {
	name string
	row  uint32
}

func preferSymbol(a, b Symbol) bool {
	if (len(a.Children) > 0) != (len(b.Children) > 0) {
		return len(a.Children) > 0
	}
	if a.Exported != b.Exported {
		return a.Exported
	}
	return false
}

// point1 converts a tree-sitter 0-based position to 1-based row/column.
func point1(n *ts.Node) (uint32, uint32) {
	p := n.StartPosition()
	return uint32(p.Row + 1), uint32(p.Column + 1)
}
