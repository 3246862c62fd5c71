// Package lang is the single source of truth for per-file language routing.
// Every component that varies by language (parser grammar, extractor,
// resolver) keys off the Lang returned here.
package lang

import (
	"path/filepath"
	"strings"
)

// Lang identifies a supported source language.
type Lang int

const (
	// TypeScript covers .ts, .mts and .cts files.
	TypeScript Lang = iota
	// TSX is TypeScript with JSX; it uses a distinct grammar.
	TSX
	// JavaScript covers .js, .jsx, .mjs and .cjs files.
	JavaScript
	// Rust covers .rs files.
	Rust
	// Unknown marks an extension we do not index.
	Unknown
)

// String returns the lowercase language name used in logs and stats output.
func (l Lang) String() string {
	switch l {
	case TypeScript:
		return "typescript"
	case TSX:
		return "tsx"
	case JavaScript:
		return "javascript"
	case Rust:
		return "rust"
	default:
		return "unknown"
	}
}

// FromPath maps a file path to its language by extension.
// Returns Unknown for extensions we do not index; callers skip those files.
func FromPath(path string) Lang {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return TypeScript
	case ".tsx":
		return TSX
	case ".js", ".jsx", ".mjs", ".cjs":
		return JavaScript
	case ".rs":
		return Rust
	default:
		return Unknown
	}
}

// IsTypeScriptFamily reports whether the language is resolved by the
// Node-style module resolver (as opposed to the Rust mod-tree resolver).
func (l Lang) IsTypeScriptFamily() bool {
	return l == TypeScript || l == TSX || l == JavaScript
}

// HasRelationships reports whether the relationship extractor runs for this
// language. All supported languages currently produce relationship records.
func (l Lang) HasRelationships() bool {
	return l != Unknown
}

// SourceExtensions lists every extension the indexer considers source code.
func SourceExtensions() []string {
	return []string{".ts", ".mts", ".cts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".rs"}
}

// IsSourcePath reports whether the path has an indexable extension.
func IsSourcePath(path string) bool {
	return FromPath(path) != Unknown
}
