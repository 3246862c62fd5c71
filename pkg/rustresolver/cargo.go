// Package rustresolver resolves Rust use paths without a Node-style module
// resolver: a crate catalog parsed from Cargo manifests, a module tree built
// by walking `mod` declarations from crate roots, and a classifier that maps
// each use path to a file, a workspace member, an external crate or a
// builtin.
package rustresolver

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
)

// Crate is one workspace member (or the root package).
type Crate struct {
	Name    string
	Dir     string
	SrcDir  string
	Edition string // "2015" when the manifest omits it
	// Deps maps declared dependency names (normalized to underscores) to
	// their manifest names.
	Deps map[string]string
	// LibRoot and BinRoot are the crate root files when present on disk.
	LibRoot string
	BinRoot string
}

// Catalog holds every crate reachable from the project root manifest.
type Catalog struct {
	Crates []*Crate

	// byName maps normalized crate names to their crate.
	byName map[string]*Crate
}

// manifest mirrors the Cargo.toml subset the resolver consumes.
type manifest struct {
	Package struct {
		Name    string `toml:"name"`
		Edition string `toml:"edition"`
	} `toml:"package"`
	Workspace struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
	Dependencies map[string]toml.Primitive `toml:"dependencies"`
}

// LoadCatalog parses the root Cargo.toml and, when it declares a workspace,
// every member manifest. A missing or unparseable manifest degrades to an
// empty catalog; resolution then classifies non-local paths as unresolved.
func LoadCatalog(root string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	cat := &Catalog{byName: make(map[string]*Crate)}

	rootManifest := filepath.Join(root, "Cargo.toml")
	m, err := parseManifest(rootManifest)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("unparseable Cargo.toml", "path", rootManifest, "error", err)
		}
		return cat
	}

	if m.Package.Name != "" {
		cat.add(newCrate(root, m))
	}
	for _, member := range m.Workspace.Members {
		matches, err := doublestar.FilepathGlob(filepath.Join(root, member))
		if err != nil {
			logger.Warn("bad workspace member glob", "glob", member, "error", err)
			continue
		}
		for _, dir := range matches {
			mm, err := parseManifest(filepath.Join(dir, "Cargo.toml"))
			if err != nil || mm.Package.Name == "" {
				continue
			}
			cat.add(newCrate(dir, mm))
		}
	}

	logger.Debug("loaded crate catalog", "crates", len(cat.Crates))
	return cat
}

func parseManifest(path string) (*manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m manifest
	if _, err := toml.Decode(string(raw), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func newCrate(dir string, m *manifest) *Crate {
	c := &Crate{
		Name:    m.Package.Name,
		Dir:     dir,
		SrcDir:  filepath.Join(dir, "src"),
		Edition: m.Package.Edition,
		Deps:    make(map[string]string),
	}
	if c.Edition == "" {
		c.Edition = "2015"
	}
	for dep := range m.Dependencies {
		c.Deps[normalizeCrateName(dep)] = dep
	}
	if p := filepath.Join(c.SrcDir, "lib.rs"); fileExists(p) {
		c.LibRoot = p
	}
	if p := filepath.Join(c.SrcDir, "main.rs"); fileExists(p) {
		c.BinRoot = p
	}
	return c
}

func (cat *Catalog) add(c *Crate) {
	cat.Crates = append(cat.Crates, c)
	cat.byName[normalizeCrateName(c.Name)] = c
}

// Member returns the workspace member with the given (normalized) name.
func (cat *Catalog) Member(name string) *Crate {
	return cat.byName[normalizeCrateName(name)]
}

// CrateFor returns the crate whose source directory contains path.
func (cat *Catalog) CrateFor(path string) *Crate {
	var best *Crate
	for _, c := range cat.Crates {
		if strings.HasPrefix(path, c.Dir+string(filepath.Separator)) || path == c.Dir {
			if best == nil || len(c.Dir) > len(best.Dir) {
				best = c
			}
		}
	}
	return best
}

// EditionFor returns the edition of the crate containing path, defaulting to
// 2015 when the file belongs to no known crate.
func (cat *Catalog) EditionFor(path string) string {
	if c := cat.CrateFor(path); c != nil {
		return c.Edition
	}
	return "2015"
}

// normalizeCrateName maps manifest names to in-source identifiers: hyphens
// become underscores.
func normalizeCrateName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
