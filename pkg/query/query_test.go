package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/lang"
)

// fixedSnapshot serves a pre-built graph, standing in for the indexer.
type fixedSnapshot struct{ g *graph.Graph }

func (s fixedSnapshot) WithSnapshot(fn func(*graph.Graph)) { fn(s.g) }

// testGraph builds a small project:
//
//	/p/src/user.ts    exports class UserService (method save)
//	/p/src/index.ts   barrel importing user.ts
//	/p/src/app.ts     imports index.ts and user.ts (barrel-bypassed), fn main calls save
//	/p/src/a.ts ⇄ /p/src/b.ts circular pair
func testGraph() *graph.Graph {
	g := graph.New()
	user := g.AddFile("/p/src/user.ts", lang.TypeScript, 1, 1)
	index := g.AddFile("/p/src/index.ts", lang.TypeScript, 1, 1)
	app := g.AddFile("/p/src/app.ts", lang.TypeScript, 1, 1)
	a := g.AddFile("/p/src/a.ts", lang.TypeScript, 1, 1)
	b := g.AddFile("/p/src/b.ts", lang.TypeScript, 1, 1)

	svc := g.AddSymbol(user, graph.SymbolNode{Name: "UserService", Kind: graph.SymClass, Line: 1, Column: 1, Exported: true})
	save := g.AddChildSymbol(svc, graph.SymbolNode{Name: "save", Kind: graph.SymMethod, Line: 2, Column: 3})
	main := g.AddSymbol(app, graph.SymbolNode{Name: "main", Kind: graph.SymFunction, Line: 1, Column: 1, Exported: true})

	g.AddResolvedImport(index, user, "./user", 1)
	g.AddResolvedImport(app, index, "@/index", 1)
	g.AddResolvedImportUnique(app, user, "@/index", 1)
	g.AddResolvedImport(a, b, "./b", 1)
	g.AddResolvedImport(b, a, "./a", 1)
	g.AddRelationship(main, save, graph.EdgeCalls, 5)
	return g
}

func testEngine() *Engine {
	return New(fixedSnapshot{g: testGraph()}, 0)
}

func TestFindSymbolLiteral(t *testing.T) {
	result := testEngine().FindSymbol("UserService", Filter{})
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "/p/src/user.ts", result.Hits[0].File)
	assert.Equal(t, uint32(1), result.Hits[0].Line)
	assert.Equal(t, graph.SymClass, result.Hits[0].Kind)
	assert.True(t, result.Hits[0].Exported)
	assert.Empty(t, result.Suggestions)
}

func TestFindSymbolRegexAndFilters(t *testing.T) {
	e := testEngine()

	result := e.FindSymbol("User.*", Filter{})
	require.Len(t, result.Hits, 1)

	// Kind filter excludes the class.
	result = e.FindSymbol("UserService", Filter{Kinds: []graph.SymbolKind{graph.SymFunction}})
	assert.Empty(t, result.Hits)

	// Path prefix filter.
	result = e.FindSymbol("main", Filter{PathPrefix: "/p/src/app"})
	require.Len(t, result.Hits, 1)
	result = e.FindSymbol("main", Filter{PathPrefix: "/p/src/user"})
	assert.Empty(t, result.Hits)

	// Case-insensitive literal.
	result = e.FindSymbol("userservice", Filter{CaseInsensitive: true})
	assert.Len(t, result.Hits, 1)
}

func TestFindSymbolFuzzySuggestions(t *testing.T) {
	result := testEngine().FindSymbol("UserServce", Filter{})
	assert.Empty(t, result.Hits)
	require.NotEmpty(t, result.Suggestions)
	assert.Equal(t, "UserService", result.Suggestions[0])
	assert.LessOrEqual(t, len(result.Suggestions), 3)
}

func TestFindSymbolNoMatchNoSuggestion(t *testing.T) {
	result := testEngine().FindSymbol("zzzzqqqq", Filter{})
	assert.Empty(t, result.Hits)
	assert.Empty(t, result.Suggestions)
}

func TestFindReferences(t *testing.T) {
	result := testEngine().FindReferences("UserService", "")

	var files []string
	var kinds []string
	for _, r := range result.References {
		files = append(files, r.File)
		kinds = append(kinds, r.Kind)
	}
	// index.ts and app.ts import the defining file.
	assert.Contains(t, files, "/p/src/index.ts")
	assert.Contains(t, files, "/p/src/app.ts")
	assert.Contains(t, kinds, "import")
}

func TestFindReferencesCalls(t *testing.T) {
	result := testEngine().FindReferences("save", "")
	require.NotEmpty(t, result.References)

	var found bool
	for _, r := range result.References {
		if r.Kind == "call" && r.File == "/p/src/app.ts" {
			found = true
		}
	}
	assert.True(t, found, "expected a call reference from app.ts")
}

func TestBlastRadius(t *testing.T) {
	result := testEngine().BlastRadius("UserService", "")
	require.Len(t, result.Files, 3)

	byFile := map[string]int{}
	for _, imp := range result.Files {
		byFile[imp.File] = imp.Depth
	}
	assert.Equal(t, 0, byFile["/p/src/user.ts"])
	assert.Equal(t, 1, byFile["/p/src/index.ts"])
	// app.ts is reachable at depth 1 via the barrel-bypassed direct edge.
	assert.Equal(t, 1, byFile["/p/src/app.ts"])

	// Depth ordering.
	for i := 1; i < len(result.Files); i++ {
		assert.GreaterOrEqual(t, result.Files[i].Depth, result.Files[i-1].Depth)
	}
}

func TestBlastRadiusCycleSafe(t *testing.T) {
	g := testGraph()
	sym := g.AddSymbol(g.FileByPath("/p/src/a.ts"), graph.SymbolNode{Name: "inCycle", Kind: graph.SymFunction, Line: 1})
	_ = sym
	e := New(fixedSnapshot{g: g}, 0)

	result := e.BlastRadius("inCycle", "")
	require.Len(t, result.Files, 2)
}

func TestFindCircular(t *testing.T) {
	cycles := testEngine().FindCircular()
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"/p/src/a.ts", "/p/src/b.ts"}, cycles[0].Files)
}

func TestFindCircularSelfLoop(t *testing.T) {
	g := graph.New()
	a := g.AddFile("/p/self.ts", lang.TypeScript, 1, 1)
	g.AddResolvedImport(a, a, "./self", 1)
	e := New(fixedSnapshot{g: g}, 0)

	cycles := e.FindCircular()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"/p/self.ts"}, cycles[0].Files)
}

func TestFindCircularNone(t *testing.T) {
	g := graph.New()
	a := g.AddFile("/p/a.ts", lang.TypeScript, 1, 1)
	b := g.AddFile("/p/b.ts", lang.TypeScript, 1, 1)
	g.AddResolvedImport(a, b, "./b", 1)
	e := New(fixedSnapshot{g: g}, 0)
	assert.Empty(t, e.FindCircular())
}

func TestSymbolContext(t *testing.T) {
	result := testEngine().SymbolContext("save", "")
	require.Len(t, result.Definitions, 1)
	assert.Equal(t, "/p/src/user.ts", result.Definitions[0].File)

	require.Len(t, result.Callers, 1)
	assert.Equal(t, "main", result.Callers[0].Name)
	assert.Empty(t, result.Callees)
}

func TestSymbolContextNotFound(t *testing.T) {
	result := testEngine().SymbolContext("missing", "")
	assert.Empty(t, result.Definitions)
}

func TestProjectStats(t *testing.T) {
	result := testEngine().ProjectStats()
	assert.Equal(t, 5, result.TotalFiles)
	assert.Equal(t, 3, result.TotalSymbols)
	assert.Equal(t, 5, result.Imports["resolved"])
	assert.Equal(t, 1, result.Relationships["calls"])
}

func TestAmbiguousNameUnions(t *testing.T) {
	g := testGraph()
	other := g.AddFile("/p/src/other.ts", lang.TypeScript, 1, 1)
	g.AddSymbol(other, graph.SymbolNode{Name: "UserService", Kind: graph.SymClass, Line: 7, Exported: true})
	g.AddResolvedImport(g.FileByPath("/p/src/b.ts"), other, "./other", 2)
	e := New(fixedSnapshot{g: g}, 0)

	// find returns both definitions.
	assert.Len(t, e.FindSymbol("UserService", Filter{}).Hits, 2)

	// impact unions the defining files: both start at depth 0.
	result := e.BlastRadius("UserService", "")
	depths := map[string]int{}
	for _, f := range result.Files {
		depths[f.File] = f.Depth
	}
	assert.Equal(t, 0, depths["/p/src/user.ts"])
	assert.Equal(t, 0, depths["/p/src/other.ts"])
}

func TestRenderFormats(t *testing.T) {
	e := testEngine()
	find := e.FindSymbol("UserService", Filter{})

	compact := find.Render(FormatCompact)
	assert.Contains(t, compact, "/p/src/user.ts:1")
	table := find.Render(FormatTable)
	assert.Contains(t, table, "NAME")
	jsonOut := find.Render(FormatJSON)
	assert.Contains(t, jsonOut, `"hits"`)

	empty := e.FindSymbol("UserServce", Filter{})
	assert.Contains(t, empty.Render(FormatCompact), "did you mean")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCompact, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}
