// Package extractor projects a parse tree into flat records: symbols (with
// children), import/export statements, and name-based relationship records.
// Each file is parsed once; every extractor runs against the same tree and
// the tree is dropped before the records are inserted into the graph.
package extractor

import (
	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/lang"
)

// FileResult is the complete extraction output for one file.
type FileResult struct {
	Path     string
	Language lang.Lang

	Symbols       []Symbol
	Imports       []Import
	Exports       []Export
	Relationships []Relationship

	// ModDecls lists Rust `mod name;` declarations that reference another
	// file. Consumed by the Rust resolver's module-tree walk; empty for
	// TS/JS files.
	ModDecls []ModDecl
}

// Symbol is one defined symbol. Children carry methods, properties and impl
// items; children never have children of their own.
type Symbol struct {
	Name      string
	Kind      graph.SymbolKind
	Row       uint32 // 1-based
	Column    uint32 // 1-based
	StartByte uint32
	EndByte   uint32
	Exported  bool
	Default   bool
	Derives   []string // Rust #[derive(...)] entries, nil otherwise
	Children  []Symbol
}

// ImportKind tags the syntactic form of an import.
type ImportKind string

const (
	// ImportStatic is an ES `import ... from '...'` statement.
	ImportStatic ImportKind = "static"
	// ImportRequire is a CommonJS `require('...')` call.
	ImportRequire ImportKind = "require"
	// ImportDynamic is a dynamic `import('...')` expression.
	ImportDynamic ImportKind = "dynamic"
	// ImportUse is a Rust `use` declaration.
	ImportUse ImportKind = "use"
	// ImportExternCrate is a Rust `extern crate` item; only meaningful for
	// edition 2015 crates.
	ImportExternCrate ImportKind = "extern_crate"
)

// ImportedName is one name brought into scope by an import. Original differs
// from Local when the import aliased it.
type ImportedName struct {
	Local    string
	Original string
}

// Import is one raw import record. Specifier is the module string for TS/JS
// and the use path for Rust.
type Import struct {
	Kind      ImportKind
	Specifier string
	Names     []ImportedName
	Row       uint32
}

// ExportKind tags the syntactic form of an export.
type ExportKind string

const (
	ExportNamed   ExportKind = "named"
	ExportDefault ExportKind = "default"
	// ExportReExport is `export { x } from './m'` or a named `pub use`.
	ExportReExport ExportKind = "re_export"
	// ExportReExportAll is `export * from './m'` or `pub use path::*`.
	ExportReExportAll ExportKind = "re_export_all"
)

// ExportedName pairs the exported name with the original name at the source
// when the export aliased it (`export { a as b } from './m'` has Name b,
// Original a).
type ExportedName struct {
	Name     string
	Original string
}

// Export is one raw export record. Source is set for re-exports; Visibility
// carries the Rust `pub` flavor on `pub use` records.
type Export struct {
	Kind       ExportKind
	Names      []ExportedName
	Source     string
	Visibility string
	Row        uint32
}

// RelKind tags a relationship record.
type RelKind string

const (
	RelCalls            RelKind = "calls"
	RelMethodCall       RelKind = "method_call"
	RelExtends          RelKind = "extends"
	RelImplements       RelKind = "implements"
	RelInterfaceExtends RelKind = "interface_extends"
	RelTypeReference    RelKind = "type_reference"
	RelTraitImpl        RelKind = "trait_impl"
)

// EdgeKind maps the record kind to the graph edge that carries it.
func (k RelKind) EdgeKind() graph.EdgeKind {
	switch k {
	case RelExtends, RelInterfaceExtends:
		return graph.EdgeExtends
	case RelImplements, RelTraitImpl:
		return graph.EdgeImplements
	case RelTypeReference:
		return graph.EdgeTypeReference
	default:
		return graph.EdgeCalls
	}
}

// Relationship is a name-based relation; binding to symbol ids happens in
// the wiring pass. From is empty when the source scope has no named symbol.
type Relationship struct {
	From string
	To   string
	Kind RelKind
	Row  uint32
}

// ModDecl is a Rust `mod name;` file-level declaration. PathAttr carries a
// `#[path = "..."]` override verbatim when present.
type ModDecl struct {
	Name     string
	PathAttr string
	Row      uint32
}
