// Package cli wires the cobra command tree around the indexer service and
// query engine.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MonsieurBarti/codegraph/pkg/config"
	"github.com/MonsieurBarti/codegraph/pkg/indexer"
	"github.com/MonsieurBarti/codegraph/pkg/query"
	"github.com/MonsieurBarti/codegraph/pkg/util"
)

const version = "0.1.0"

var (
	flagRoot    string
	flagVerbose bool
	flagFormat  string
	flagKinds   []string
	flagFile    string
	flagNoCase  bool
)

var rootCmd = &cobra.Command{
	Use:     "codegraph",
	Short:   "Index a TypeScript/JavaScript/Rust tree into a queryable code graph",
	Long:    "codegraph builds an in-memory graph of files, symbols and packages from\na source tree and answers structural queries (definitions, references,\nblast radius, cycles) at interactive latency, over a CLI or an MCP server.",
	Version: version,

	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root to index")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	for _, cmd := range []*cobra.Command{findCmd, refsCmd, impactCmd, circularCmd, statsCmd, contextCmd} {
		cmd.Flags().StringVar(&flagFormat, "format", "", "output format: compact|table|json")
	}
	findCmd.Flags().StringSliceVar(&flagKinds, "kind", nil, "filter by symbol kind")
	findCmd.Flags().StringVar(&flagFile, "file", "", "filter by file path prefix")
	findCmd.Flags().BoolVarP(&flagNoCase, "ignore-case", "i", false, "case-insensitive matching")
	for _, cmd := range []*cobra.Command{refsCmd, impactCmd, contextCmd} {
		cmd.Flags().StringVar(&flagFile, "file", "", "filter by file path prefix")
	}

	rootCmd.AddCommand(indexCmd, findCmd, refsCmd, impactCmd, circularCmd,
		statsCmd, contextCmd, watchCmd, mcpCmd, exportCmd, snapshotCmd)
}

// Execute runs the root command. Exit code 0 covers success including empty
// query results; non-zero means an I/O or setup failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session bundles the pieces every command needs.
type session struct {
	svc    *indexer.Service
	engine *query.Engine
	cfg    config.Config
	logger *slog.Logger
}

// newSession resolves the root, loads config and constructs the service.
// Callers defer close().
func newSession() (*session, error) {
	root, err := filepath.Abs(flagRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	level := util.LevelInfo
	if flagVerbose {
		level = util.LevelDebug
	}
	logger := util.NewLogger(util.LoggerConfig{
		Level:  level,
		Format: util.FormatText,
		Output: os.Stderr,
	})

	cfg, err := config.Load(root)
	if err != nil {
		// Degraded config falls back to defaults; indexing continues.
		logger.Warn("config error, using defaults", "error", err)
	}

	svc := indexer.New(root, cfg, logger)
	return &session{
		svc:    svc,
		engine: query.New(svc, cfg.FuzzyThreshold),
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (s *session) close() {
	s.svc.Close()
}

// outputFormat resolves the effective format: flag first, then config.
func (s *session) outputFormat() (query.Format, error) {
	if flagFormat != "" {
		return query.ParseFormat(flagFormat)
	}
	return query.ParseFormat(s.cfg.Format)
}
