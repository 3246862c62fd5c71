package resolver

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// tsconfig is one loaded tsconfig.json with its extends chain flattened.
type tsconfig struct {
	dir     string
	baseURL string              // absolute, resolved against dir
	paths   map[string][]string // pattern → absolute substitutions
}

// tsconfigIndex lazily locates and caches the nearest tsconfig.json for each
// directory. Project references in the root config are pre-loaded so member
// projects resolve with their own mappings.
type tsconfigIndex struct {
	root   string
	logger *slog.Logger

	mu     sync.Mutex
	byDir  map[string]*tsconfig // dir → nearest config (nil = none)
	byFile map[string]*tsconfig // tsconfig path → parsed
}

func newTsconfigIndex(root string, logger *slog.Logger) *tsconfigIndex {
	idx := &tsconfigIndex{
		root:   root,
		logger: logger,
		byDir:  make(map[string]*tsconfig),
		byFile: make(map[string]*tsconfig),
	}
	// Pre-load the root config and anything its project references name, so
	// referenced projects are parsed even before a file under them asks.
	if cfg := idx.load(filepath.Join(root, "tsconfig.json")); cfg != nil {
		raw, err := os.ReadFile(filepath.Join(root, "tsconfig.json"))
		if err == nil {
			json := stripJSONComments(string(raw))
			gjson.Get(json, "references").ForEach(func(_, ref gjson.Result) bool {
				p := ref.Get("path").String()
				if p == "" {
					return true
				}
				refPath := filepath.Join(root, p)
				if !strings.HasSuffix(refPath, ".json") {
					refPath = filepath.Join(refPath, "tsconfig.json")
				}
				idx.load(refPath)
				return true
			})
		}
	}
	return idx
}

// nearest returns the closest tsconfig at or above dir, bounded by the
// project root. Returns nil when none exists.
func (idx *tsconfigIndex) nearest(dir string) *tsconfig {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.nearestLocked(dir)
}

func (idx *tsconfigIndex) nearestLocked(dir string) *tsconfig {
	if cfg, ok := idx.byDir[dir]; ok {
		return cfg
	}
	var cfg *tsconfig
	if c := idx.loadLocked(filepath.Join(dir, "tsconfig.json")); c != nil {
		cfg = c
	} else if dir != idx.root && strings.HasPrefix(dir, idx.root) {
		parent := filepath.Dir(dir)
		if parent != dir {
			cfg = idx.nearestLocked(parent)
		}
	}
	idx.byDir[dir] = cfg
	return cfg
}

func (idx *tsconfigIndex) load(path string) *tsconfig {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.loadLocked(path)
}

func (idx *tsconfigIndex) loadLocked(path string) *tsconfig {
	if cfg, ok := idx.byFile[path]; ok {
		return cfg
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		idx.byFile[path] = nil
		return nil
	}

	dir := filepath.Dir(path)
	cfg := &tsconfig{dir: dir, paths: make(map[string][]string)}

	json := stripJSONComments(string(raw))

	// extends chain first; child settings override.
	if ext := gjson.Get(json, "extends").String(); ext != "" {
		extPath := ext
		if !filepath.IsAbs(extPath) {
			extPath = filepath.Join(dir, ext)
		}
		if !strings.HasSuffix(extPath, ".json") {
			extPath += ".json"
		}
		if parent := idx.loadLocked(extPath); parent != nil {
			cfg.baseURL = parent.baseURL
			for k, v := range parent.paths {
				cfg.paths[k] = v
			}
		}
	}

	if base := gjson.Get(json, "compilerOptions.baseUrl").String(); base != "" {
		cfg.baseURL = filepath.Join(dir, base)
	}
	pathsBase := cfg.baseURL
	if pathsBase == "" {
		pathsBase = dir
	}
	gjson.Get(json, "compilerOptions.paths").ForEach(func(key, value gjson.Result) bool {
		var subs []string
		value.ForEach(func(_, sub gjson.Result) bool {
			subs = append(subs, filepath.Join(pathsBase, sub.String()))
			return true
		})
		if len(subs) > 0 {
			cfg.paths[key.String()] = subs
		}
		return true
	})

	idx.byFile[path] = cfg
	idx.logger.Debug("loaded tsconfig", "path", path, "paths", len(cfg.paths), "baseUrl", cfg.baseURL)
	return cfg
}

// mapSpecifier applies the paths mapping to a specifier, returning candidate
// absolute paths in declaration order. Longest-prefix patterns win first.
func (c *tsconfig) mapSpecifier(specifier string) []string {
	var candidates []string

	// Exact patterns before wildcard patterns.
	if subs, ok := c.paths[specifier]; ok {
		candidates = append(candidates, subs...)
	}

	best := ""
	for pattern := range c.paths {
		star := strings.IndexByte(pattern, '*')
		if star < 0 {
			continue
		}
		prefix, suffix := pattern[:star], pattern[star+1:]
		if strings.HasPrefix(specifier, prefix) && strings.HasSuffix(specifier, suffix) &&
			len(specifier) >= len(prefix)+len(suffix) {
			if len(prefix) > len(best) || best == "" {
				best = pattern
			}
		}
	}
	if best != "" {
		star := strings.IndexByte(best, '*')
		prefix, suffix := best[:star], best[star+1:]
		matched := specifier[len(prefix) : len(specifier)-len(suffix)]
		for _, sub := range c.paths[best] {
			candidates = append(candidates, strings.Replace(sub, "*", matched, 1))
		}
	}
	return candidates
}

// stripJSONComments removes // and /* */ comments plus trailing commas so
// tsconfig's JSONC dialect parses as JSON.
func stripJSONComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	inLine := false
	inBlock := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inLine:
			if ch == '\n' {
				inLine = false
				b.WriteByte(ch)
			}
		case inBlock:
			if ch == '*' && i+1 < len(s) && s[i+1] == '/' {
				inBlock = false
				i++
			}
		case inString:
			b.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if ch == '"' {
				inString = false
			}
		default:
			switch {
			case ch == '"':
				inString = true
				b.WriteByte(ch)
			case ch == '/' && i+1 < len(s) && s[i+1] == '/':
				inLine = true
				i++
			case ch == '/' && i+1 < len(s) && s[i+1] == '*':
				inBlock = true
				i++
			case ch == ',':
				// Drop trailing commas before } or ].
				j := i + 1
				for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
					j++
				}
				if j < len(s) && (s[j] == '}' || s[j] == ']') {
					continue
				}
				b.WriteByte(ch)
			default:
				b.WriteByte(ch)
			}
		}
	}
	return b.String()
}
