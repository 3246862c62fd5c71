package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MonsieurBarti/codegraph/pkg/cache"
	"github.com/MonsieurBarti/codegraph/pkg/config"
	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/query"
)

func write(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newService(t *testing.T, root string) *Service {
	t.Helper()
	svc := New(root, config.Default(), nil)
	t.Cleanup(svc.Close)
	return svc
}

func index(t *testing.T, root string) *Service {
	t.Helper()
	svc := newService(t, root)
	_, err := svc.FullIndex(context.Background())
	require.NoError(t, err)
	return svc
}

// hasImportEdge reports a ResolvedImport edge between two files.
func hasImportEdge(svc *Service, from, to string) bool {
	found := false
	svc.WithSnapshot(func(g *graph.Graph) {
		fromID := g.FileByPath(from)
		toID := g.FileByPath(to)
		if fromID == graph.InvalidNode || toID == graph.InvalidNode {
			return
		}
		for _, e := range g.OutEdges(fromID, graph.EdgeResolvedImport) {
			if e.To == toID {
				found = true
				return
			}
		}
	})
	return found
}

func TestEmptyProject(t *testing.T) {
	svc := newService(t, t.TempDir())
	stats, err := svc.FullIndex(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Files)
	assert.Zero(t, stats.Skipped)

	svc.WithSnapshot(func(g *graph.Graph) {
		assert.Empty(t, g.Files())
	})
}

// Scenario 1: TS path alias plus barrel chase.
func TestTSAliasAndBarrelChase(t *testing.T) {
	root := t.TempDir()
	write(t, root, "tsconfig.json", `{"compilerOptions":{"baseUrl":".","paths":{"@/*":["src/*"]}}}`)
	user := write(t, root, "src/services/UserService.ts", "export class UserService {}\n")
	barrel := write(t, root, "src/services/index.ts", "export { UserService } from './UserService';\n")
	app := write(t, root, "src/app.ts", "import { UserService } from '@/services';\n")

	svc := index(t, root)
	engine := query.New(svc, 0)

	// (a) one definition at UserService.ts:1.
	result := engine.FindSymbol("UserService", query.Filter{})
	require.Len(t, result.Hits, 1)
	assert.Equal(t, user, result.Hits[0].File)
	assert.Equal(t, uint32(1), result.Hits[0].Line)

	// (b) the barrel is bypassed with a direct edge.
	assert.True(t, hasImportEdge(svc, app, user), "expected app → UserService direct edge")

	// (c) impact includes definer, barrel and importer.
	impact := engine.BlastRadius("UserService", "")
	var files []string
	for _, f := range impact.Files {
		files = append(files, f.File)
	}
	assert.ElementsMatch(t, []string{user, barrel, app}, files)
}

// Scenario 2: Rust mod walk plus pub use.
func TestRustModWalkAndPubUse(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Cargo.toml", "[package]\nname = \"mycrate\"\nedition = \"2021\"\n")
	lib := write(t, root, "src/lib.rs", "pub mod parser;\npub use parser::Ast;\n")
	parser := write(t, root, "src/parser.rs", "pub struct Ast;\n")
	write(t, root, "src/main.rs", "use crate::Ast;\n\nfn main() {}\n")

	svc := index(t, root)
	engine := query.New(svc, 0)

	// (a) find returns the definition in parser.rs.
	result := engine.FindSymbol("Ast", query.Filter{})
	require.Len(t, result.Hits, 1)
	assert.Equal(t, parser, result.Hits[0].File)

	// (b) lib.rs carries a ReExport edge to the Ast symbol.
	svc.WithSnapshot(func(g *graph.Graph) {
		libID := g.FileByPath(lib)
		reexports := g.OutEdges(libID, graph.EdgeReExport)
		require.Len(t, reexports, 1)
		sym := g.Node(reexports[0].To).Symbol
		require.NotNil(t, sym)
		assert.Equal(t, "Ast", sym.Name)
		assert.Equal(t, "pub", reexports[0].Label)
	})

	// (c) the consumer binds through the re-export to parser.rs.
	main := filepath.Join(root, "src/main.rs")
	assert.True(t, hasImportEdge(svc, main, parser), "expected main → parser direct edge")
}

// Scenario 3: circular dependency.
func TestCircularDependency(t *testing.T) {
	root := t.TempDir()
	a := write(t, root, "a.ts", "import { b } from './b';\nexport const a = 1;\n")
	b := write(t, root, "b.ts", "import { a } from './a';\nexport const b = 2;\n")

	svc := index(t, root)
	cycles := query.New(svc, 0).FindCircular()
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{a, b}, cycles[0].Files)
}

// Scenario 4: unresolved import healed by a later update.
func TestUnresolvedThenHealed(t *testing.T) {
	root := t.TempDir()
	a := write(t, root, "src/a.ts", "import { F } from './b';\n")

	svc := index(t, root)
	engine := query.New(svc, 0)

	svc.WithSnapshot(func(g *graph.Graph) {
		aID := g.FileByPath(a)
		require.Len(t, g.OutEdges(aID, graph.EdgeUnresolvedImport), 1)
	})
	assert.Empty(t, engine.FindSymbol("F", query.Filter{}).Hits)

	// Create b.ts and fire the update.
	b := write(t, root, "src/b.ts", "export function F() {}\n")
	require.NoError(t, svc.ApplyEvent(context.Background(), WatchEvent{Kind: EventModified, Path: b}))

	svc.WithSnapshot(func(g *graph.Graph) {
		aID := g.FileByPath(a)
		assert.Empty(t, g.OutEdges(aID, graph.EdgeUnresolvedImport), "unresolved edge should be healed")
	})
	assert.True(t, hasImportEdge(svc, a, b))

	result := engine.FindSymbol("F", query.Filter{})
	require.Len(t, result.Hits, 1)
	assert.Equal(t, uint32(1), result.Hits[0].Line)
}

// Scenario 5: cold start from cache with a small diff.
func TestColdStartSmallDiff(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		write(t, root, filepath.Join("src", string(rune('a'+i%26))+string(rune('0'+i/26))+".ts"),
			"export const v = 1;\n")
	}
	changed := write(t, root, "src/target.ts", "export class Before {}\n")

	first := index(t, root)
	_, err := cache.Load(root)
	require.NoError(t, err, "index must persist a cache")
	first.Close()

	// Modify one file on disk, then restart.
	require.NoError(t, os.WriteFile(changed, []byte("export class After {}\n"), 0o644))
	bumpMTime(t, changed)

	svc := newService(t, root)
	stats, err := svc.LoadOrIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 21, stats.Files)
	assert.Equal(t, 20, stats.WarmFrom, "only the changed file is re-parsed")

	engine := query.New(svc, 0)
	assert.Empty(t, engine.FindSymbol("Before", query.Filter{}).Hits)
	assert.Len(t, engine.FindSymbol("After", query.Filter{}).Hits, 1)
	assert.Len(t, engine.FindSymbol("v", query.Filter{}).Hits, 20)
}

// Scenario 6: external package dedup across importers.
func TestExternalPackageDedup(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.ts", "import _ from 'lodash';\n")
	write(t, root, "b.ts", "import { map } from 'lodash';\n")
	write(t, root, "c.ts", "import fp from 'lodash/fp';\n")

	svc := index(t, root)
	svc.WithSnapshot(func(g *graph.Graph) {
		pkgID := g.PackageByName("lodash")
		require.NotEqual(t, graph.InvalidNode, pkgID)
		assert.Len(t, g.InEdges(pkgID, graph.EdgeResolvedImport), 3)

		count := 0
		for id := range g.Nodes {
			if p := g.Nodes[id].Package; p != nil && p.Name == "lodash" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})
}

func TestSelfImportCycle(t *testing.T) {
	root := t.TempDir()
	self := write(t, root, "self.ts", "import './self';\nexport const x = 1;\n")

	svc := index(t, root)
	cycles := query.New(svc, 0).FindCircular()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{self}, cycles[0].Files)
}

// Import-record/edge parity: every raw import yields exactly one edge.
func TestImportEdgeParity(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.ts", `
import { x } from './b';
import fs from 'node:fs';
import missing from './missing';
import _ from 'lodash';
`)
	write(t, root, "b.ts", "export const x = 1;\n")

	svc := index(t, root)
	svc.WithSnapshot(func(g *graph.Graph) {
		aID := g.FileByPath(filepath.Join(root, "a.ts"))
		edges := g.OutEdges(aID,
			graph.EdgeResolvedImport, graph.EdgeUnresolvedImport, graph.EdgeBarrelReExportAll)
		assert.Len(t, edges, 4)
	})
}

// Applying the same Modified event twice converges to the same state.
func TestModifiedIdempotent(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.ts", "import { x } from './b';\n")
	b := write(t, root, "b.ts", "export const x = 1;\n")

	svc := index(t, root)
	require.NoError(t, svc.ApplyEvent(context.Background(), WatchEvent{Kind: EventModified, Path: b}))

	var symbols1, edges1 int
	svc.WithSnapshot(func(g *graph.Graph) {
		symbols1 = len(g.SymbolsByName("x"))
		edges1 = len(g.OutEdges(g.FileByPath(filepath.Join(root, "a.ts")), graph.EdgeResolvedImport))
	})

	require.NoError(t, svc.ApplyEvent(context.Background(), WatchEvent{Kind: EventModified, Path: b}))
	svc.WithSnapshot(func(g *graph.Graph) {
		assert.Equal(t, symbols1, len(g.SymbolsByName("x")))
		assert.Equal(t, edges1, len(g.OutEdges(g.FileByPath(filepath.Join(root, "a.ts")), graph.EdgeResolvedImport)))
	})
}

func TestDeletedThenRestored(t *testing.T) {
	root := t.TempDir()
	a := write(t, root, "a.ts", "import { x } from './b';\n")
	b := write(t, root, "b.ts", "export const x = 1;\n")

	svc := index(t, root)

	require.NoError(t, os.Remove(b))
	require.NoError(t, svc.ApplyEvent(context.Background(), WatchEvent{Kind: EventDeleted, Path: b}))
	svc.WithSnapshot(func(g *graph.Graph) {
		assert.Equal(t, graph.InvalidNode, g.FileByPath(b))
		assert.Empty(t, g.SymbolsByName("x"))
	})

	b = write(t, root, "b.ts", "export const x = 1;\n")
	require.NoError(t, svc.ApplyEvent(context.Background(), WatchEvent{Kind: EventModified, Path: b}))

	assert.True(t, hasImportEdge(svc, a, b))
	svc.WithSnapshot(func(g *graph.Graph) {
		assert.Len(t, g.SymbolsByName("x"), 1)
	})
}

func TestUnreadableFileCountsSkipped(t *testing.T) {
	root := t.TempDir()
	write(t, root, "ok.ts", "export const fine = 1;\n")
	bad := write(t, root, "bad.ts", "whatever")
	require.NoError(t, os.Chmod(bad, 0o000))
	t.Cleanup(func() { _ = os.Chmod(bad, 0o644) })

	if os.Getuid() == 0 {
		t.Skip("chmod cannot make files unreadable for root")
	}

	svc := newService(t, root)
	stats, err := svc.FullIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 1, stats.Skipped)
}

func TestIgnoreRules(t *testing.T) {
	root := t.TempDir()
	write(t, root, ".gitignore", "generated/\n")
	write(t, root, "src/app.ts", "export const a = 1;\n")
	write(t, root, "generated/out.ts", "export const g = 1;\n")
	write(t, root, "node_modules/pkg/index.ts", "export const n = 1;\n")
	write(t, root, "target/debug/thing.rs", "pub fn t() {}\n")

	svc := index(t, root)
	svc.WithSnapshot(func(g *graph.Graph) {
		require.Len(t, g.Files(), 1)
		assert.Equal(t, filepath.Join(root, "src/app.ts"), g.Node(g.Files()[0]).File.Path)
	})
}

func bumpMTime(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	newTime := info.ModTime().Add(2_000_000_000) // +2s
	require.NoError(t, os.Chtimes(path, newTime, newTime))
}
