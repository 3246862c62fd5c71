package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/parser"
)

func extract(t *testing.T, path, source string) *FileResult {
	t.Helper()
	m := parser.NewManager(nil)
	t.Cleanup(func() { m.Close() })

	res, err := New(m).ExtractFile(path, []byte(source))
	require.NoError(t, err)
	return res
}

func findSym(res *FileResult, name string) *Symbol {
	for i := range res.Symbols {
		if res.Symbols[i].Name == name {
			return &res.Symbols[i]
		}
	}
	return nil
}

func TestTSSymbols(t *testing.T) {
	res := extract(t, "src/app.ts", `
export class UserService {
  name: string;
  save(): void {}
}

export interface Repo {
  find(id: string): void;
  url: string;
}

export type ID = string;
export enum Color { Red, Green }
export function helper() {}
const internal = 1;
export const handler = () => {};
`)

	svc := findSym(res, "UserService")
	require.NotNil(t, svc)
	assert.Equal(t, graph.SymClass, svc.Kind)
	assert.True(t, svc.Exported)
	require.Len(t, svc.Children, 2)
	assert.Equal(t, "name", svc.Children[0].Name)
	assert.Equal(t, graph.SymProperty, svc.Children[0].Kind)
	assert.Equal(t, "save", svc.Children[1].Name)
	assert.Equal(t, graph.SymMethod, svc.Children[1].Kind)

	repo := findSym(res, "Repo")
	require.NotNil(t, repo)
	assert.Equal(t, graph.SymInterface, repo.Kind)
	assert.Len(t, repo.Children, 2)

	assert.Equal(t, graph.SymTypeAlias, findSym(res, "ID").Kind)
	assert.Equal(t, graph.SymEnum, findSym(res, "Color").Kind)
	assert.Equal(t, graph.SymFunction, findSym(res, "helper").Kind)
	assert.True(t, findSym(res, "helper").Exported)

	internal := findSym(res, "internal")
	require.NotNil(t, internal)
	assert.False(t, internal.Exported)

	handler := findSym(res, "handler")
	require.NotNil(t, handler)
	assert.Equal(t, graph.SymFunction, handler.Kind)
}

func TestTSImports(t *testing.T) {
	res := extract(t, "src/app.ts", `
import { UserService } from '@/services';
import { Foo as F } from './foo';
import React from 'react';
import * as path from 'node:path';
const legacy = require('./legacy');
async function load() {
  const mod = await import('./dynamic');
}
`)

	bySpec := map[string]Import{}
	for _, imp := range res.Imports {
		bySpec[imp.Specifier] = imp
	}

	svc := bySpec["@/services"]
	assert.Equal(t, ImportStatic, svc.Kind)
	require.Len(t, svc.Names, 1)
	assert.Equal(t, "UserService", svc.Names[0].Original)

	foo := bySpec["./foo"]
	require.Len(t, foo.Names, 1)
	assert.Equal(t, "F", foo.Names[0].Local)
	assert.Equal(t, "Foo", foo.Names[0].Original)

	react := bySpec["react"]
	require.Len(t, react.Names, 1)
	assert.Equal(t, "default", react.Names[0].Original)
	assert.Equal(t, "React", react.Names[0].Local)

	pathImp := bySpec["node:path"]
	require.Len(t, pathImp.Names, 1)
	assert.Equal(t, "*", pathImp.Names[0].Original)

	assert.Equal(t, ImportRequire, bySpec["./legacy"].Kind)
	assert.Equal(t, ImportDynamic, bySpec["./dynamic"].Kind)
}

func TestTSExports(t *testing.T) {
	res := extract(t, "src/index.ts", `
export { UserService } from './UserService';
export { a as b } from './ab';
export * from './everything';
const local = 1;
export { local };
export default local;
`)

	byKind := map[ExportKind][]Export{}
	for _, exp := range res.Exports {
		byKind[exp.Kind] = append(byKind[exp.Kind], exp)
	}

	reexports := byKind[ExportReExport]
	require.Len(t, reexports, 2)
	assert.Equal(t, "./UserService", reexports[0].Source)
	assert.Equal(t, "UserService", reexports[0].Names[0].Name)
	assert.Equal(t, "b", reexports[1].Names[0].Name)
	assert.Equal(t, "a", reexports[1].Names[0].Original)

	alls := byKind[ExportReExportAll]
	require.Len(t, alls, 1)
	assert.Equal(t, "./everything", alls[0].Source)

	named := byKind[ExportNamed]
	require.NotEmpty(t, named)
	assert.Equal(t, "local", named[0].Names[0].Name)

	require.Len(t, byKind[ExportDefault], 1)
}

func TestTSXComponentDetection(t *testing.T) {
	res := extract(t, "src/App.tsx", `
export function App() {
  return <div>hello</div>;
}
export const Panel = () => <section />;
export function lowercase() { return <div />; }
function helper() { return 42; }
`)

	assert.Equal(t, graph.SymComponent, findSym(res, "App").Kind)
	assert.Equal(t, graph.SymComponent, findSym(res, "Panel").Kind)
	// Components need an uppercase-initial name.
	assert.Equal(t, graph.SymFunction, findSym(res, "lowercase").Kind)
	// No JSX, no component.
	assert.Equal(t, graph.SymFunction, findSym(res, "helper").Kind)
}

func TestTSRelationships(t *testing.T) {
	res := extract(t, "src/rel.ts", `
interface Base {}
interface Extra extends Base {}
class Animal {}
class Dog extends Animal implements Base {
  bark() { this.speak(); }
}
function feed(d: Dog) {
  groom(d);
}
function groom(d: Dog) {}
`)

	type key struct {
		from, to string
		kind     RelKind
	}
	rels := map[key]bool{}
	for _, r := range res.Relationships {
		rels[key{r.From, r.To, r.Kind}] = true
	}

	assert.True(t, rels[key{"Extra", "Base", RelInterfaceExtends}])
	assert.True(t, rels[key{"Dog", "Animal", RelExtends}])
	assert.True(t, rels[key{"Dog", "Base", RelImplements}])
	assert.True(t, rels[key{"feed", "groom", RelCalls}])
	assert.True(t, rels[key{"bark", "speak", RelMethodCall}])
	assert.True(t, rels[key{"feed", "Dog", RelTypeReference}])
}

func TestSymbolDedupe(t *testing.T) {
	// The exported arrow-function variable yields exactly one symbol per
	// (name, row).
	res := extract(t, "src/d.ts", `export const once = () => {};`)

	count := 0
	for _, s := range res.Symbols {
		if s.Name == "once" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestEmptyAndCommentOnlyFiles(t *testing.T) {
	res := extract(t, "src/empty.ts", "")
	assert.Empty(t, res.Symbols)
	assert.Empty(t, res.Imports)

	res = extract(t, "src/comments.ts", "// nothing here\n/* still nothing */\n")
	assert.Empty(t, res.Symbols)
	assert.Empty(t, res.Imports)
	assert.Empty(t, res.Exports)
}

func TestSyntaxErrorStillYieldsSymbols(t *testing.T) {
	res := extract(t, "src/broken.ts", `
export function good() {}
function broken( {{{
`)
	assert.NotNil(t, findSym(res, "good"))
}
