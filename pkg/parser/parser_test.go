package parser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MonsieurBarti/codegraph/pkg/lang"
)

func TestParseTypeScript(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	tree, err := m.Parse([]byte("const x: number = 1;"), lang.TypeScript)
	require.NoError(t, err)
	defer tree.Close()
	assert.Equal(t, "program", tree.RootNode().GrammarName())
}

func TestParseTSX(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	tree, err := m.Parse([]byte("export const App = () => <div>hi</div>;"), lang.TSX)
	require.NoError(t, err)
	defer tree.Close()
	assert.Contains(t, tree.RootNode().ToSexp(), "jsx_element")
}

func TestParseRust(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	tree, err := m.Parse([]byte("pub struct Ast;"), lang.Rust)
	require.NoError(t, err)
	defer tree.Close()
	assert.Equal(t, "source_file", tree.RootNode().GrammarName())
}

func TestParseUnknownLanguage(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	_, err := m.Parse([]byte("whatever"), lang.Unknown)
	assert.Error(t, err)
}

func TestParseFileDetectsLanguage(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	tree, err := m.ParseFile([]byte("fn main() {}"), "src/main.rs")
	require.NoError(t, err)
	tree.Close()

	_, err = m.ParseFile([]byte("x"), "notes.txt")
	assert.Error(t, err)
}

func TestMalformedInputYieldsPartialTree(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	tree, err := m.Parse([]byte("class {{{ nonsense ]"), lang.TypeScript)
	require.NoError(t, err, "error recovery returns a partial tree, not a failure")
	defer tree.Close()
	assert.True(t, tree.RootNode().HasError())
}

func TestConcurrentParsing(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree, err := m.Parse([]byte("export function f() { return 42; }"), lang.TypeScript)
			assert.NoError(t, err)
			if tree != nil {
				tree.Close()
			}
		}()
	}
	wg.Wait()

	stats := m.Stats()
	assert.Equal(t, 16, stats.ParsesCalled)
	assert.Greater(t, stats.ParsersCreated, 0)
}
