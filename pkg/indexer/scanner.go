package indexer

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/MonsieurBarti/codegraph/pkg/cache"
	"github.com/MonsieurBarti/codegraph/pkg/lang"
)

// alwaysExcluded directories are skipped regardless of ignore files.
var alwaysExcluded = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	cache.DirName:  true,
}

// FileInfo is one discovered source file.
type FileInfo struct {
	Path     string
	Language lang.Lang
	Meta     cache.FileMeta
}

// Ignorer combines nested .gitignore files with the always-excluded set and
// the project config's extra globs. It serves both the scanner and the
// watcher's event classification.
type Ignorer struct {
	root       string
	extraGlobs []string
	logger     *slog.Logger

	// gitignores maps a directory to its compiled .gitignore, nil when the
	// directory has none. Populated during the scan walk; the watcher asks
	// for ancestors lazily.
	gitignores map[string]*ignore.GitIgnore
}

// NewIgnorer creates an ignorer for root with extra doublestar globs from
// the project config.
func NewIgnorer(root string, extraGlobs []string, logger *slog.Logger) *Ignorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ignorer{
		root:       root,
		extraGlobs: extraGlobs,
		logger:     logger,
		gitignores: make(map[string]*ignore.GitIgnore),
	}
}

// ExcludedDir reports whether a directory name is always excluded.
func (ig *Ignorer) ExcludedDir(name string) bool {
	return alwaysExcluded[name]
}

// Ignored reports whether path is excluded by any .gitignore between the
// root and the path, by the always-excluded directories, or by an extra
// config glob. path must be absolute and under the root.
func (ig *Ignorer) Ignored(path string) bool {
	rel, err := filepath.Rel(ig.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return true
	}

	for _, seg := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		if alwaysExcluded[seg] {
			return true
		}
	}

	for _, glob := range ig.extraGlobs {
		if ok, _ := doublestar.Match(glob, filepath.ToSlash(rel)); ok {
			return true
		}
	}

	// Walk the ancestor chain applying each directory's .gitignore against
	// the path relative to that directory.
	dir := ig.root
	segments := strings.Split(rel, string(filepath.Separator))
	for i := 0; i < len(segments); i++ {
		if gi := ig.gitignoreFor(dir); gi != nil {
			sub := filepath.ToSlash(filepath.Join(segments[i:]...))
			if gi.MatchesPath(sub) {
				return true
			}
		}
		dir = filepath.Join(dir, segments[i])
	}
	return false
}

func (ig *Ignorer) gitignoreFor(dir string) *ignore.GitIgnore {
	if gi, ok := ig.gitignores[dir]; ok {
		return gi
	}
	var gi *ignore.GitIgnore
	giPath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(giPath); err == nil {
		compiled, err := ignore.CompileIgnoreFile(giPath)
		if err != nil {
			ig.logger.Warn("unparseable .gitignore", "path", giPath, "error", err)
		} else {
			gi = compiled
		}
	}
	ig.gitignores[dir] = gi
	return gi
}

// Scan walks the tree under root and returns every indexable source file.
// Walk errors skip the offending subtree and count toward skipped.
func Scan(root string, ig *Ignorer, logger *slog.Logger) ([]FileInfo, int) {
	var files []FileInfo
	skipped := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("walk error", "path", path, "error", err)
			skipped++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			if path != root && (ig.ExcludedDir(d.Name()) || ig.Ignored(path)) {
				return fs.SkipDir
			}
			return nil
		}

		l := lang.FromPath(path)
		if l == lang.Unknown || ig.Ignored(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logger.Warn("stat failed", "path", path, "error", err)
			skipped++
			return nil
		}
		files = append(files, FileInfo{
			Path:     path,
			Language: l,
			Meta:     cache.FileMeta{MTime: info.ModTime().Unix(), Size: info.Size()},
		})
		return nil
	})
	if err != nil {
		logger.Warn("walk aborted", "error", err)
	}
	return files, skipped
}
