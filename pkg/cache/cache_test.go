package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/lang"
)

func testGraph(root string) (*graph.Graph, map[string]FileMeta) {
	g := graph.New()
	a := g.AddFile(filepath.Join(root, "a.ts"), lang.TypeScript, 100, 10)
	b := g.AddFile(filepath.Join(root, "b.ts"), lang.TypeScript, 200, 20)
	g.AddSymbol(a, graph.SymbolNode{Name: "A", Kind: graph.SymClass, Exported: true})
	g.AddResolvedImport(a, b, "./b", 1)
	files := map[string]FileMeta{
		filepath.Join(root, "a.ts"): {MTime: 100, Size: 10},
		filepath.Join(root, "b.ts"): {MTime: 200, Size: 20},
	}
	return g, files
}

func emptyAux() *Aux {
	return &Aux{}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	g, files := testGraph(root)

	require.NoError(t, Save(root, g, files, emptyAux()))

	env, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, env.Version)
	assert.Equal(t, root, env.Root)
	assert.Equal(t, files, env.Files)

	// The graph round-trips structurally: same files, symbols and edges.
	aID := env.Graph.FileByPath(filepath.Join(root, "a.ts"))
	require.NotEqual(t, graph.InvalidNode, aID)
	assert.Len(t, env.Graph.OutEdges(aID, graph.EdgeResolvedImport), 1)
	assert.Len(t, env.Graph.SymbolsByName("A"), 1)
}

func TestSerializeDeserializeFixedPoint(t *testing.T) {
	root := t.TempDir()
	g, files := testGraph(root)

	require.NoError(t, Save(root, g, files, emptyAux()))
	env1, err := Load(root)
	require.NoError(t, err)

	// Re-save the loaded state and load again; nothing changed between
	// saves, so the decoded views must agree.
	require.NoError(t, Save(root, env1.Graph, env1.Files, env1.Aux))
	env2, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, env1.Files, env2.Files)
	assert.Equal(t, len(env1.Graph.Nodes), len(env2.Graph.Nodes))
	assert.Equal(t, env1.Graph.ByPath, env2.Graph.ByPath)
	assert.Equal(t, env1.Graph.Out, env2.Graph.Out)
}

func TestLoadMissingCache(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNoCache)
}

func TestLoadCorruptCache(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, DirName), 0o755))
	require.NoError(t, os.WriteFile(Path(root), []byte("not a gob payload"), 0o644))

	_, err := Load(root)
	assert.ErrorIs(t, err, ErrNoCache)
}

func TestLoadRejectsForeignRoot(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	g, files := testGraph(root)
	require.NoError(t, Save(root, g, files, emptyAux()))

	// Copy the cache under a different root; the envelope root mismatch
	// must miss rather than serve another project's graph.
	require.NoError(t, os.MkdirAll(filepath.Join(other, DirName), 0o755))
	data, err := os.ReadFile(Path(root))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(Path(other), data, 0o644))

	_, err = Load(other)
	assert.ErrorIs(t, err, ErrNoCache)
}

func TestComputeDiff(t *testing.T) {
	cached := map[string]FileMeta{
		"a.ts": {MTime: 1, Size: 10},
		"b.ts": {MTime: 2, Size: 20},
		"c.ts": {MTime: 3, Size: 30},
	}
	current := map[string]FileMeta{
		"a.ts": {MTime: 1, Size: 10}, // unchanged
		"b.ts": {MTime: 9, Size: 20}, // changed
		"d.ts": {MTime: 4, Size: 40}, // added
	}

	d := ComputeDiff(cached, current)
	assert.Equal(t, []string{"a.ts"}, d.Unchanged)
	assert.Equal(t, []string{"b.ts"}, d.Changed)
	assert.Equal(t, []string{"d.ts"}, d.Added)
	assert.Equal(t, []string{"c.ts"}, d.Deleted)
}

func TestTooStale(t *testing.T) {
	// 1 dirty of 100 files stays under the 10% threshold.
	d := Diff{Changed: []string{"x"}}
	assert.False(t, d.TooStale(100))

	// 11 dirty of 100 crosses it.
	d = Diff{Changed: make([]string, 6), Added: make([]string, 5)}
	assert.True(t, d.TooStale(100))

	// Exactly 10% does not trigger a rebuild.
	d = Diff{Changed: make([]string, 10)}
	assert.False(t, d.TooStale(100))

	// Empty current set with stale deletions rebuilds.
	d = Diff{Deleted: []string{"gone.ts"}}
	assert.True(t, d.TooStale(0))
}
