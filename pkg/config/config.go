// Package config loads the optional codegraph.toml at the project root.
// Every key is optional; zero values fall back to the defaults below.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the project-level configuration file.
const FileName = "codegraph.toml"

// Config is the project configuration with defaults applied.
type Config struct {
	// Ignore adds doublestar globs to the ignore rules, on top of any
	// .gitignore files in the tree.
	Ignore []string `toml:"ignore"`

	// Format is the default output format: compact, table or json.
	Format string `toml:"format"`

	// WatchDebounceMs is the watcher's event debounce window.
	WatchDebounceMs int `toml:"watch_debounce_ms"`

	// ExportEdgeLimit caps Mermaid export size.
	ExportEdgeLimit int `toml:"export_edge_limit"`

	// FuzzyThreshold is the minimum trigram Jaccard similarity for fuzzy
	// suggestions on empty query results.
	FuzzyThreshold float64 `toml:"fuzzy_threshold"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Format:          "compact",
		WatchDebounceMs: 75,
		ExportEdgeLimit: 500,
		FuzzyThreshold:  0.3,
	}
}

// Load reads codegraph.toml under root. A missing file yields Default();
// a malformed file is an error so typos do not silently revert defaults.
func Load(root string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", FileName, err)
	}

	var fileCfg Config
	if _, err := toml.Decode(string(raw), &fileCfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", FileName, err)
	}

	if len(fileCfg.Ignore) > 0 {
		cfg.Ignore = fileCfg.Ignore
	}
	if fileCfg.Format != "" {
		cfg.Format = fileCfg.Format
	}
	if fileCfg.WatchDebounceMs > 0 {
		cfg.WatchDebounceMs = fileCfg.WatchDebounceMs
	}
	if fileCfg.ExportEdgeLimit > 0 {
		cfg.ExportEdgeLimit = fileCfg.ExportEdgeLimit
	}
	if fileCfg.FuzzyThreshold > 0 {
		cfg.FuzzyThreshold = fileCfg.FuzzyThreshold
	}
	return cfg, nil
}
