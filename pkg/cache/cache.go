// Package cache persists the graph plus per-file staleness metadata to a
// single binary file under the project's hidden cache directory. Writes are
// temp-file-then-rename atomic; loads under a format-version guard never
// migrate, they miss.
package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/MonsieurBarti/codegraph/pkg/extractor"
	"github.com/MonsieurBarti/codegraph/pkg/graph"
)

// FormatVersion guards the on-disk envelope. Bump on any change to the
// serialized shape; a mismatch is a cache miss, never a migration.
const FormatVersion uint32 = 1

// DirName is the hidden project directory holding the cache file. The
// scanner and watcher exclude it unconditionally.
const DirName = ".codegraph"

const fileName = "graph.bin"

// ErrNoCache reports that no usable cache exists: missing file, corrupt
// payload, or version mismatch. Callers perform a full rebuild.
var ErrNoCache = errors.New("no cache available")

// FileMeta is the staleness pair checked against the filesystem on load.
type FileMeta struct {
	MTime int64
	Size  int64
}

// Aux carries the raw extraction records alongside the graph so a warm
// start can run the resolver passes without re-extracting unchanged files.
type Aux struct {
	Imports       map[string][]extractor.Import
	Exports       map[string][]extractor.Export
	ModDecls      map[string][]extractor.ModDecl
	Relationships map[string][]extractor.Relationship
}

// Envelope is the on-disk cache shape.
type Envelope struct {
	Version uint32
	Root    string
	Files   map[string]FileMeta
	Graph   *graph.Graph
	Aux     *Aux
}

// Path returns the cache file location for a project root.
func Path(root string) string {
	return filepath.Join(root, DirName, fileName)
}

// Save atomically writes the graph and file metadata for root. The encode
// happens into a temp file in the cache directory; rename publishes it.
func Save(root string, g *graph.Graph, files map[string]FileMeta, aux *Aux) error {
	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, fileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	env := Envelope{Version: FormatVersion, Root: root, Files: files, Graph: g, Aux: aux}
	if err := gob.NewEncoder(tmp).Encode(&env); err != nil {
		tmp.Close()
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), Path(root)); err != nil {
		return fmt.Errorf("publish cache: %w", err)
	}
	return nil
}

// Load reads the cache for root. Returns ErrNoCache on missing file, decode
// failure, or version/root mismatch.
func Load(root string) (*Envelope, error) {
	f, err := os.Open(Path(root))
	if err != nil {
		return nil, ErrNoCache
	}
	defer f.Close()

	var env Envelope
	if err := gob.NewDecoder(f).Decode(&env); err != nil {
		return nil, ErrNoCache
	}
	if env.Version != FormatVersion || env.Root != root || env.Graph == nil {
		return nil, ErrNoCache
	}
	// Gob omits zero-valued fields; normalize so callers never see nil maps.
	if env.Aux == nil {
		env.Aux = &Aux{}
	}
	if env.Aux.Imports == nil {
		env.Aux.Imports = make(map[string][]extractor.Import)
	}
	if env.Aux.Exports == nil {
		env.Aux.Exports = make(map[string][]extractor.Export)
	}
	if env.Aux.ModDecls == nil {
		env.Aux.ModDecls = make(map[string][]extractor.ModDecl)
	}
	if env.Aux.Relationships == nil {
		env.Aux.Relationships = make(map[string][]extractor.Relationship)
	}
	if env.Files == nil {
		env.Files = make(map[string]FileMeta)
	}
	if env.Graph.ByPath == nil {
		env.Graph.ByPath = make(map[string]graph.NodeID)
	}
	if env.Graph.BySymbol == nil {
		env.Graph.BySymbol = make(map[string][]graph.NodeID)
	}
	if env.Graph.ByPackage == nil {
		env.Graph.ByPackage = make(map[string]graph.NodeID)
	}
	return &env, nil
}

// Diff partitions the current file set against cached metadata.
type Diff struct {
	Unchanged []string
	Changed   []string
	Added     []string
	Deleted   []string
}

// ComputeDiff classifies every current file against the cached manifest.
// current maps path → meta for the files found on disk right now.
func ComputeDiff(cached map[string]FileMeta, current map[string]FileMeta) Diff {
	var d Diff
	for path, meta := range current {
		old, ok := cached[path]
		switch {
		case !ok:
			d.Added = append(d.Added, path)
		case old != meta:
			d.Changed = append(d.Changed, path)
		default:
			d.Unchanged = append(d.Unchanged, path)
		}
	}
	for path := range cached {
		if _, ok := current[path]; !ok {
			d.Deleted = append(d.Deleted, path)
		}
	}
	sort.Strings(d.Unchanged)
	sort.Strings(d.Changed)
	sort.Strings(d.Added)
	sort.Strings(d.Deleted)
	return d
}

// TooStale reports whether the diff exceeds the 10% threshold at which an
// incremental warm start costs more than a rebuild.
func (d Diff) TooStale(totalFiles int) bool {
	if totalFiles == 0 {
		return len(d.Deleted) > 0
	}
	dirty := len(d.Changed) + len(d.Added) + len(d.Deleted)
	return dirty*10 > totalFiles
}
