// Package graph implements the labeled directed code graph: files, symbols,
// external packages and unresolved imports as arena-allocated nodes addressed
// by integer id, with typed edges and secondary indexes by path, symbol name
// and package name.
//
// The graph itself is not synchronized. The indexer is the sole writer and
// mediates access with a readers-writer discipline; queries observe the graph
// through read-locked snapshots.
package graph

import "github.com/MonsieurBarti/codegraph/pkg/lang"

// NodeID addresses a node in the arena. IDs are stable for the lifetime of a
// node and never reused after removal.
type NodeID int32

// InvalidNode is returned by lookups that find nothing.
const InvalidNode NodeID = -1

// NodeKind discriminates the node payload.
type NodeKind uint8

const (
	KindFile NodeKind = iota
	KindSymbol
	KindPackage
	KindUnresolved
)

// SymbolKind classifies a symbol for query filtering.
type SymbolKind string

const (
	SymFunction  SymbolKind = "function"
	SymClass     SymbolKind = "class"
	SymInterface SymbolKind = "interface"
	SymTypeAlias SymbolKind = "type"
	SymEnum      SymbolKind = "enum"
	SymVariable  SymbolKind = "variable"
	SymComponent SymbolKind = "component"
	SymMethod    SymbolKind = "method"
	SymProperty  SymbolKind = "property"
	SymStruct    SymbolKind = "struct"
	SymTrait     SymbolKind = "trait"
	SymImpl      SymbolKind = "impl"
	SymMacro     SymbolKind = "macro"
	SymConst     SymbolKind = "const"
	SymStatic    SymbolKind = "static"
	SymModule    SymbolKind = "module"
)

// EdgeKind labels a directed edge.
type EdgeKind uint8

const (
	// EdgeContains connects a file to every symbol it defines, children
	// included.
	EdgeContains EdgeKind = iota
	// EdgeChildOf connects a child symbol to its parent symbol.
	EdgeChildOf
	// EdgeResolvedImport connects an importing file to the file or external
	// package a specifier resolved to. Label carries the raw specifier.
	EdgeResolvedImport
	// EdgeUnresolvedImport connects a file to an unresolved-import node.
	EdgeUnresolvedImport
	// EdgeBarrelReExportAll marks a wildcard re-export (export * from,
	// pub use ...::*) kept for lazy expansion at query time.
	EdgeBarrelReExportAll
	// EdgeExports connects a file to a symbol on its public surface.
	EdgeExports
	// EdgeReExport connects a re-exporting file to the defining symbol.
	// Label carries the visibility (e.g. "pub", "pub(crate)").
	EdgeReExport
	// EdgeCalls connects a caller symbol to a callee symbol.
	EdgeCalls
	// EdgeExtends connects class→class or interface→interface.
	EdgeExtends
	// EdgeImplements connects class→interface (TS) or type→trait (Rust).
	EdgeImplements
	// EdgeTypeReference connects a symbol to a type it references.
	EdgeTypeReference
)

// String returns the stats-facing edge name.
func (k EdgeKind) String() string {
	switch k {
	case EdgeContains:
		return "contains"
	case EdgeChildOf:
		return "child_of"
	case EdgeResolvedImport:
		return "resolved_import"
	case EdgeUnresolvedImport:
		return "unresolved_import"
	case EdgeBarrelReExportAll:
		return "barrel_reexport_all"
	case EdgeExports:
		return "exports"
	case EdgeReExport:
		return "re_export"
	case EdgeCalls:
		return "calls"
	case EdgeExtends:
		return "extends"
	case EdgeImplements:
		return "implements"
	case EdgeTypeReference:
		return "type_reference"
	default:
		return "unknown"
	}
}

// UnresolvedReason tags why a specifier produced no resolution.
type UnresolvedReason string

const (
	ReasonNotFound UnresolvedReason = "not_found"
	ReasonBuiltin  UnresolvedReason = "builtin"
)

// FileNode is the payload of a KindFile node.
type FileNode struct {
	Path     string
	Language lang.Lang
	MTime    int64
	Size     int64
}

// SymbolNode is the payload of a KindSymbol node. Parent is InvalidNode for
// top-level symbols.
type SymbolNode struct {
	Name      string
	Kind      SymbolKind
	File      NodeID
	Line      uint32 // 1-based
	Column    uint32 // 1-based
	StartByte uint32
	EndByte   uint32
	Exported  bool
	Default   bool
	Parent    NodeID
	Derives   []string // Rust #[derive(...)] trait names, nil otherwise
}

// PackageNode is the payload of a KindPackage node. Packages are unique by
// name; subpaths of a specifier never split package identity.
type PackageNode struct {
	Name    string
	Version string
}

// UnresolvedNode is the payload of a KindUnresolved node. It is owned by the
// importing file and removed with it.
type UnresolvedNode struct {
	Specifier string
	Reason    UnresolvedReason
}

// Node is an arena slot. Exactly one payload pointer is non-nil, matching
// Kind. Exported fields keep the arena gob-encodable for the cache.
type Node struct {
	Kind       NodeKind
	File       *FileNode
	Symbol     *SymbolNode
	Package    *PackageNode
	Unresolved *UnresolvedNode
}

// Edge is a typed, labeled directed edge between two nodes. Row is the
// 1-based source line of the statement that produced the edge, when known.
type Edge struct {
	From  NodeID
	To    NodeID
	Kind  EdgeKind
	Label string
	Row   uint32
}
