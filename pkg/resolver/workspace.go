package resolver

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// workspacePkg is one workspace member: its published name and the directory
// its sources resolve against (src/ when present, package root otherwise).
type workspacePkg struct {
	name   string
	srcDir string
}

// discoverWorkspaces reads the root package.json "workspaces" field (npm and
// yarn) and pnpm-workspace.yaml "packages:" list, expands the globs against
// directories holding a package.json, and returns the member packages.
func discoverWorkspaces(root string, logger *slog.Logger) []workspacePkg {
	globs := workspaceGlobs(root, logger)
	if len(globs) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var pkgs []workspacePkg
	for _, glob := range globs {
		matches, err := doublestar.FilepathGlob(filepath.Join(root, glob))
		if err != nil {
			logger.Warn("bad workspace glob", "glob", glob, "error", err)
			continue
		}
		for _, dir := range matches {
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() || seen[dir] {
				continue
			}
			seen[dir] = true
			if pkg := readWorkspacePkg(dir); pkg != nil {
				pkgs = append(pkgs, *pkg)
			}
		}
	}

	// Longer names first so "@acme/ui-core" wins over "@acme/ui" on prefix
	// matching.
	sort.Slice(pkgs, func(i, j int) bool { return len(pkgs[i].name) > len(pkgs[j].name) })
	logger.Debug("discovered workspace packages", "count", len(pkgs))
	return pkgs
}

func workspaceGlobs(root string, logger *slog.Logger) []string {
	var globs []string

	if raw, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
		ws := gjson.GetBytes(raw, "workspaces")
		switch {
		case ws.IsArray():
			ws.ForEach(func(_, v gjson.Result) bool {
				globs = append(globs, v.String())
				return true
			})
		case ws.IsObject():
			ws.Get("packages").ForEach(func(_, v gjson.Result) bool {
				globs = append(globs, v.String())
				return true
			})
		}
	}

	if raw, err := os.ReadFile(filepath.Join(root, "pnpm-workspace.yaml")); err == nil {
		var doc struct {
			Packages []string `yaml:"packages"`
		}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			logger.Warn("unparseable pnpm-workspace.yaml", "error", err)
		} else {
			globs = append(globs, doc.Packages...)
		}
	}

	// Negated globs exclude; we only honor the positive ones here since the
	// scanner's ignore rules already keep excluded trees out of the index.
	out := globs[:0]
	for _, g := range globs {
		if !strings.HasPrefix(g, "!") {
			out = append(out, g)
		}
	}
	return out
}

func readWorkspacePkg(dir string) *workspacePkg {
	raw, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil
	}
	name := gjson.GetBytes(raw, "name").String()
	if name == "" {
		return nil
	}
	srcDir := dir
	if info, err := os.Stat(filepath.Join(dir, "src")); err == nil && info.IsDir() {
		srcDir = filepath.Join(dir, "src")
	}
	return &workspacePkg{name: name, srcDir: srcDir}
}
