package indexer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := NewWatcher(root, NewIgnorer(root, nil, nil), 20, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func nextEvent(t *testing.T, w *Watcher) WatchEvent {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return WatchEvent{}
	}
}

func TestWatcherModified(t *testing.T) {
	root := t.TempDir()
	w := startTestWatcher(t, root)

	path := filepath.Join(root, "a.ts")
	require.NoError(t, os.WriteFile(path, []byte("export const a = 1;\n"), 0o644))

	ev := nextEvent(t, w)
	assert.Equal(t, EventModified, ev.Kind)
	assert.Equal(t, path, ev.Path)
}

func TestWatcherDeleted(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.ts")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
	w := startTestWatcher(t, root)

	require.NoError(t, os.Remove(path))
	ev := nextEvent(t, w)
	assert.Equal(t, EventDeleted, ev.Kind)
	assert.Equal(t, path, ev.Path)
}

func TestWatcherConfigChanged(t *testing.T) {
	root := t.TempDir()
	w := startTestWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte("{}"), 0o644))
	ev := nextEvent(t, w)
	assert.Equal(t, EventConfigChanged, ev.Kind)
}

func TestWatcherIgnoresNonSourceFiles(t *testing.T) {
	root := t.TempDir()
	w := startTestWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("hi"), 0o644))
	// Then a source file; the first event through must be the source file,
	// proving the markdown write was dropped.
	path := filepath.Join(root, "b.ts")
	require.NoError(t, os.WriteFile(path, []byte("export {};\n"), 0o644))

	ev := nextEvent(t, w)
	assert.Equal(t, path, ev.Path)
}

func TestWatcherDebounceCollapses(t *testing.T) {
	root := t.TempDir()
	w := startTestWatcher(t, root)

	path := filepath.Join(root, "burst.ts")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("export const n = 1;\n"), 0o644))
	}

	ev := nextEvent(t, w)
	assert.Equal(t, EventModified, ev.Kind)

	// The burst collapsed: no second event arrives for the same path.
	select {
	case extra := <-w.Events():
		assert.NotEqual(t, path, extra.Path, "debounce should collapse the burst")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestIgnorerRules(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("dist/\n*.gen.ts\n"), 0o644))

	ig := NewIgnorer(root, []string{"**/fixtures/**"}, nil)

	assert.False(t, ig.Ignored(filepath.Join(root, "src/app.ts")))
	assert.True(t, ig.Ignored(filepath.Join(root, "dist/out.ts")))
	assert.True(t, ig.Ignored(filepath.Join(root, "src/types.gen.ts")))
	assert.True(t, ig.Ignored(filepath.Join(root, "node_modules/x/index.ts")))
	assert.True(t, ig.Ignored(filepath.Join(root, "target/debug/x.rs")))
	assert.True(t, ig.Ignored(filepath.Join(root, "src/fixtures/sample.ts")))
	// Paths outside the root are never indexable.
	assert.True(t, ig.Ignored("/elsewhere/app.ts"))
}

func TestNestedGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg/deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg/.gitignore"), []byte("deep/\n"), 0o644))

	ig := NewIgnorer(root, nil, nil)
	assert.True(t, ig.Ignored(filepath.Join(root, "pkg/deep/file.ts")))
	assert.False(t, ig.Ignored(filepath.Join(root, "pkg/file.ts")))
}
