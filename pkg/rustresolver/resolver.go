package rustresolver

import (
	"log/slog"
	"strings"

	"github.com/MonsieurBarti/codegraph/pkg/extractor"
	"github.com/MonsieurBarti/codegraph/pkg/resolver"
)

// rustBuiltins are the sysroot crates treated as builtin terminals.
var rustBuiltins = map[string]bool{
	"std": true, "core": true, "alloc": true, "proc_macro": true, "test": true,
}

// Resolver classifies Rust use paths against the crate catalog and module
// tree. One instance per indexing pass; safe for concurrent reads.
type Resolver struct {
	catalog *Catalog
	tree    *ModTree
	logger  *slog.Logger
}

// New builds the Rust resolver: catalog from manifests (pass A is the module
// walk, pass B the catalog; both happen here), module tree from the
// extracted mod declarations.
func New(root string, modDecls map[string][]extractor.ModDecl, indexed map[string]bool, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	catalog := LoadCatalog(root, logger)
	tree := BuildModTree(catalog, modDecls, indexed, logger)
	return &Resolver{catalog: catalog, tree: tree, logger: logger}
}

// Resolve classifies the use path imported by fromFile (pass C).
func (r *Resolver) Resolve(fromFile, usePath string) resolver.Outcome {
	segments := splitUsePath(usePath)
	if len(segments) == 0 {
		return resolver.Outcome{Kind: resolver.KindNotFound}
	}
	head := segments[0]

	switch {
	case head == "crate" || head == "self" || head == "super":
		return r.resolveLocal(fromFile, segments)
	case rustBuiltins[head]:
		return resolver.Outcome{Kind: resolver.KindBuiltin}
	}

	if member := r.catalog.Member(head); member != nil {
		// Cross-crate import binds to the member's library root.
		if member.LibRoot != "" {
			return resolver.Outcome{Kind: resolver.KindResolved, Path: member.LibRoot}
		}
		if member.BinRoot != "" {
			return resolver.Outcome{Kind: resolver.KindResolved, Path: member.BinRoot}
		}
		return resolver.Outcome{Kind: resolver.KindNotFound}
	}

	if crate := r.catalog.CrateFor(fromFile); crate != nil {
		if manifestName, ok := crate.Deps[normalizeCrateName(head)]; ok {
			return resolver.Outcome{Kind: resolver.KindExternal, Package: manifestName}
		}
	}

	// Uniform paths (and edition 2015 crate-relative paths): a bare leading
	// segment may name a module visible from the current module or the
	// crate root.
	if out := r.resolveLocalStrict(fromFile, append([]string{"self"}, segments...)); out.Kind == resolver.KindResolved {
		return out
	}
	if out := r.resolveLocalStrict(fromFile, append([]string{"crate"}, segments...)); out.Kind == resolver.KindResolved {
		return out
	}

	return resolver.Outcome{Kind: resolver.KindNotFound}
}

// resolveLocal resolves a crate/self/super-rooted path to the file defining
// the deepest module prefix. A path whose segments name no module falls back
// to the crate root; re-exported items are chased from there by the barrel
// pass.
func (r *Resolver) resolveLocal(fromFile string, segments []string) resolver.Outcome {
	crate, fileSegs, ok := r.tree.FileModule(fromFile)
	if !ok {
		// File outside any known crate tree; give up on module paths.
		return resolver.Outcome{Kind: resolver.KindNotFound}
	}

	base := fileSegs
	i := 0
loop:
	for ; i < len(segments); i++ {
		switch segments[i] {
		case "crate":
			base = nil
		case "self":
			// keep base
		case "super":
			if len(base) > 0 {
				base = base[:len(base)-1]
			}
		default:
			break loop
		}
	}
	rest := segments[i:]

	// Deepest module prefix wins; trailing segments are item names. The
	// empty prefix is excluded here so a root-level item falls through to
	// the crate-root fallback below instead of matching the current root.
	for n := len(rest); n >= 1; n-- {
		segs := append(append([]string{}, base...), rest[:n]...)
		if file, ok := r.tree.ModuleFile(crate.Name, segs); ok {
			return resolver.Outcome{Kind: resolver.KindResolved, Path: file}
		}
	}
	// Items directly under a non-root module bind to that module's file.
	if len(base) > 0 {
		if file, ok := r.tree.ModuleFile(crate.Name, base); ok {
			return resolver.Outcome{Kind: resolver.KindResolved, Path: file}
		}
	}

	if crate.LibRoot != "" {
		return resolver.Outcome{Kind: resolver.KindResolved, Path: crate.LibRoot}
	}
	if root, ok := r.tree.CrateRootOf(fromFile); ok {
		return resolver.Outcome{Kind: resolver.KindResolved, Path: root}
	}
	return resolver.Outcome{Kind: resolver.KindNotFound}
}

// resolveLocalStrict is resolveLocal without the crate-root fallback: it
// succeeds only when some path prefix names a real module. Used for bare
// leading segments, where falling back would swallow unknown externals.
func (r *Resolver) resolveLocalStrict(fromFile string, segments []string) resolver.Outcome {
	crate, fileSegs, ok := r.tree.FileModule(fromFile)
	if !ok {
		return resolver.Outcome{Kind: resolver.KindNotFound}
	}
	base := fileSegs
	i := 0
	for ; i < len(segments); i++ {
		if segments[i] != "crate" && segments[i] != "self" && segments[i] != "super" {
			break
		}
		switch segments[i] {
		case "crate":
			base = nil
		case "super":
			if len(base) > 0 {
				base = base[:len(base)-1]
			}
		}
	}
	rest := segments[i:]
	for n := len(rest); n >= 1; n-- {
		segs := append(append([]string{}, base...), rest[:n]...)
		if file, ok := r.tree.ModuleFile(crate.Name, segs); ok {
			return resolver.Outcome{Kind: resolver.KindResolved, Path: file}
		}
	}
	return resolver.Outcome{Kind: resolver.KindNotFound}
}

// ExternCrateOutcome classifies an `extern crate` item. In edition 2015 it
// declares an external dependency; later editions make it a no-op and the
// record is dropped entirely (second return false).
func (r *Resolver) ExternCrateOutcome(fromFile, name string) (resolver.Outcome, bool) {
	if r.catalog.EditionFor(fromFile) != "2015" {
		return resolver.Outcome{}, false
	}
	if member := r.catalog.Member(name); member != nil && member.LibRoot != "" {
		return resolver.Outcome{Kind: resolver.KindResolved, Path: member.LibRoot}, true
	}
	return resolver.Outcome{Kind: resolver.KindExternal, Package: name}, true
}

// CrateRootOf exposes the module tree's root lookup for the incremental
// updater's rebuild promotion.
func (r *Resolver) CrateRootOf(file string) (string, bool) {
	return r.tree.CrateRootOf(file)
}

// IsCrateRoot reports whether file is a lib.rs or main.rs of a known crate.
func (r *Resolver) IsCrateRoot(file string) bool {
	for _, c := range r.catalog.Crates {
		if file == c.LibRoot || file == c.BinRoot {
			return true
		}
	}
	return false
}

// splitUsePath tokenizes a use path, dropping a leading `::` and any empty
// segments produced by malformed input.
func splitUsePath(p string) []string {
	p = strings.TrimPrefix(p, "::")
	parts := strings.Split(p, "::")
	out := parts[:0]
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" && s != "*" {
			out = append(out, s)
		}
	}
	return out
}
