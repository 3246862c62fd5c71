package rustresolver

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MonsieurBarti/codegraph/pkg/extractor"
)

// ModTree maps files to module paths and back, per crate. It is built by
// walking `mod name;` declarations breadth-first from each crate root.
type ModTree struct {
	// fileModule maps a file path to its position in a crate's module tree.
	fileModule map[string]moduleRef
	// moduleFile maps "crateName::seg::seg" to the file defining that module.
	moduleFile map[string]string
}

type moduleRef struct {
	crate    *Crate
	segments []string
	root     string // the crate root file this module was reached from
}

// BuildModTree walks the mod graph of every crate in the catalog. modDecls
// supplies the extracted `mod x;` declarations per file; indexed is the set
// of files in the graph, used to confirm candidate child paths. Visited
// tracking breaks cycles in pathological #[path] graphs.
func BuildModTree(cat *Catalog, modDecls map[string][]extractor.ModDecl, indexed map[string]bool, logger *slog.Logger) *ModTree {
	if logger == nil {
		logger = slog.Default()
	}
	t := &ModTree{
		fileModule: make(map[string]moduleRef),
		moduleFile: make(map[string]string),
	}

	for _, crate := range cat.Crates {
		for _, rootFile := range []string{crate.LibRoot, crate.BinRoot} {
			if rootFile == "" || !indexed[rootFile] {
				continue
			}
			t.walkCrate(crate, rootFile, modDecls, indexed, logger)
		}
	}
	return t
}

func (t *ModTree) walkCrate(crate *Crate, rootFile string, modDecls map[string][]extractor.ModDecl, indexed map[string]bool, logger *slog.Logger) {
	type entry struct {
		file     string
		segments []string
	}
	visited := map[string]bool{rootFile: true}
	queue := []entry{{file: rootFile}}
	t.record(crate, rootFile, nil, rootFile)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, decl := range modDecls[cur.file] {
			child := t.locateChild(cur.file, rootFile, decl, indexed)
			if child == "" {
				logger.Debug("mod declaration without file", "parent", cur.file, "mod", decl.Name)
				continue
			}
			if visited[child] {
				continue
			}
			visited[child] = true
			segments := append(append([]string{}, cur.segments...), decl.Name)
			t.record(crate, child, segments, rootFile)
			queue = append(queue, entry{file: child, segments: segments})
		}
	}
}

// locateChild finds the file for `mod name;` declared in parent. A #[path]
// attribute wins outright. Otherwise the search directory is the parent's
// own directory for crate roots and mod.rs files, and `<dir>/<stem>/` for
// any other parent, with the plain parent directory kept as a fallback.
func (t *ModTree) locateChild(parent, rootFile string, decl extractor.ModDecl, indexed map[string]bool) string {
	parentDir := filepath.Dir(parent)

	if decl.PathAttr != "" {
		p := filepath.Clean(filepath.Join(parentDir, decl.PathAttr))
		if indexed[p] {
			return p
		}
		return ""
	}

	dirs := []string{parentDir}
	base := filepath.Base(parent)
	if parent != rootFile && base != "mod.rs" {
		stem := strings.TrimSuffix(base, ".rs")
		dirs = []string{filepath.Join(parentDir, stem), parentDir}
	}

	for _, dir := range dirs {
		if p := filepath.Join(dir, decl.Name+".rs"); indexed[p] {
			return p
		}
		if p := filepath.Join(dir, decl.Name, "mod.rs"); indexed[p] {
			return p
		}
	}
	return ""
}

func (t *ModTree) record(crate *Crate, file string, segments []string, rootFile string) {
	t.fileModule[file] = moduleRef{crate: crate, segments: segments, root: rootFile}
	// First writer wins: lib.rs walks before main.rs, so the library root
	// stays the canonical file for the crate's root module.
	key := moduleKey(crate.Name, segments)
	if _, ok := t.moduleFile[key]; !ok {
		t.moduleFile[key] = file
	}
}

// FileModule returns the crate and module segments for file.
func (t *ModTree) FileModule(file string) (*Crate, []string, bool) {
	ref, ok := t.fileModule[file]
	if !ok {
		return nil, nil, false
	}
	return ref.crate, ref.segments, true
}

// ModuleFile returns the file defining the module at segments within crate.
func (t *ModTree) ModuleFile(crateName string, segments []string) (string, bool) {
	f, ok := t.moduleFile[moduleKey(crateName, segments)]
	return f, ok
}

// CrateRootOf returns the crate root file that reaches file in the tree.
func (t *ModTree) CrateRootOf(file string) (string, bool) {
	ref, ok := t.fileModule[file]
	if !ok {
		return "", false
	}
	return ref.root, true
}

func moduleKey(crateName string, segments []string) string {
	if len(segments) == 0 {
		return normalizeCrateName(crateName)
	}
	return normalizeCrateName(crateName) + "::" + strings.Join(segments, "::")
}
