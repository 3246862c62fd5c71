// Package resolver binds TS/JS import specifiers to indexed files, external
// packages or builtins. It models Node-style resolution over the indexed
// file set: relative paths with TS-first extension probing, tsconfig
// baseUrl/paths mapping, workspace aliases, and builtin awareness. Exactly
// one Resolver is constructed per indexing pass and reused for every file.
package resolver

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// Kind classifies a resolution outcome.
type Kind int

const (
	// KindResolved means the specifier bound to an indexed file.
	KindResolved Kind = iota
	// KindExternal means the specifier names a package outside the tree.
	KindExternal
	// KindBuiltin means the specifier names a Node builtin module.
	KindBuiltin
	// KindNotFound means no binding was possible.
	KindNotFound
)

// Outcome is the result of resolving one specifier.
type Outcome struct {
	Kind    Kind
	Path    string // resolved file path, for KindResolved
	Package string // package name, for KindExternal
}

// Resolver resolves specifiers for every TS/JS file of one indexing pass.
// Safe for concurrent reads after construction.
type Resolver struct {
	root    string
	indexed map[string]bool

	workspaces []workspacePkg
	tsconfigs  *tsconfigIndex

	logger *slog.Logger
}

// extension probe order. TS first, declaration files before JS flavors.
var probeExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs"}

// jsAlias maps emitted-JS extensions back to their TS sources, tried before
// the literal extension.
var jsAlias = map[string][]string{
	".js":  {".ts", ".tsx", ".js"},
	".jsx": {".tsx", ".jsx"},
	".mjs": {".mts", ".mjs"},
	".cjs": {".cts", ".cjs"},
}

// New builds a resolver for the project rooted at root. indexed is the set
// of absolute paths of files in the graph; probing resolves only into that
// set so the resolver never returns a path the graph does not know.
func New(root string, indexed map[string]bool, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		root:    root,
		indexed: indexed,
		logger:  logger,
	}
	r.workspaces = discoverWorkspaces(root, logger)
	r.tsconfigs = newTsconfigIndex(root, logger)
	return r
}

// Resolve classifies one specifier imported by fromFile.
func (r *Resolver) Resolve(fromFile, specifier string) Outcome {
	if specifier == "" {
		return Outcome{Kind: KindNotFound}
	}

	if IsBuiltin(specifier) {
		return Outcome{Kind: KindBuiltin}
	}

	// Relative or absolute path.
	if strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") {
		base := filepath.Join(filepath.Dir(fromFile), specifier)
		if strings.HasPrefix(specifier, "/") {
			base = specifier
		}
		if p := r.probe(base); p != "" {
			return Outcome{Kind: KindResolved, Path: p}
		}
		return Outcome{Kind: KindNotFound}
	}

	// tsconfig paths mapping for the nearest config.
	if cfg := r.tsconfigs.nearest(filepath.Dir(fromFile)); cfg != nil {
		for _, candidate := range cfg.mapSpecifier(specifier) {
			if p := r.probe(candidate); p != "" {
				return Outcome{Kind: KindResolved, Path: p}
			}
		}
		// baseUrl makes bare specifiers resolvable as project-relative.
		if cfg.baseURL != "" {
			if p := r.probe(filepath.Join(cfg.baseURL, specifier)); p != "" {
				return Outcome{Kind: KindResolved, Path: p}
			}
		}
	}

	// Workspace package alias.
	for _, ws := range r.workspaces {
		if specifier == ws.name {
			if p := r.probe(filepath.Join(ws.srcDir, "index")); p != "" {
				return Outcome{Kind: KindResolved, Path: p}
			}
			if p := r.probe(ws.srcDir); p != "" {
				return Outcome{Kind: KindResolved, Path: p}
			}
			continue
		}
		if strings.HasPrefix(specifier, ws.name+"/") {
			sub := strings.TrimPrefix(specifier, ws.name+"/")
			if p := r.probe(filepath.Join(ws.srcDir, sub)); p != "" {
				return Outcome{Kind: KindResolved, Path: p}
			}
		}
	}

	// Anything else is an external package.
	return Outcome{Kind: KindExternal, Package: PackageName(specifier)}
}

// probe tries base as a file with the extension-probing rules, then as a
// directory with index files. Returns "" when nothing indexed matches.
func (r *Resolver) probe(base string) string {
	base = filepath.Clean(base)

	ext := filepath.Ext(base)
	if aliases, ok := jsAlias[ext]; ok {
		stem := strings.TrimSuffix(base, ext)
		for _, alias := range aliases {
			if r.indexed[stem+alias] {
				return stem + alias
			}
		}
	}
	if ext != "" && r.indexed[base] {
		return base
	}

	for _, e := range probeExtensions {
		if r.indexed[base+e] {
			return base + e
		}
	}
	for _, e := range probeExtensions {
		idx := filepath.Join(base, "index"+e)
		if r.indexed[idx] {
			return idx
		}
	}
	return ""
}

// PackageName derives the npm package identity from a bare specifier:
// "@scope/name/sub" → "@scope/name", "lodash/fp" → "lodash".
func PackageName(specifier string) string {
	parts := strings.Split(specifier, "/")
	if strings.HasPrefix(specifier, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}
