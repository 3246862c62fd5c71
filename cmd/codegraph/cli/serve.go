package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MonsieurBarti/codegraph/pkg/cache"
	"github.com/MonsieurBarti/codegraph/pkg/export"
	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/indexer"
	mcpserver "github.com/MonsieurBarti/codegraph/pkg/mcp"
	"github.com/MonsieurBarti/codegraph/pkg/mcplog"
	"github.com/MonsieurBarti/codegraph/pkg/util"
)

const timeUnit = time.Millisecond

var (
	flagExportFormat      string
	flagExportGranularity string
	flagMCPLog            string
	flagMCPWatch          bool
)

func init() {
	exportCmd.Flags().StringVar(&flagExportFormat, "export-format", "dot", "dot or mermaid")
	exportCmd.Flags().StringVar(&flagExportGranularity, "granularity", "file", "symbol, file or package")
	mcpCmd.Flags().StringVar(&flagMCPLog, "log-file", "", "JSONL log of tool calls (empty disables)")
	mcpCmd.Flags().BoolVar(&flagMCPWatch, "watch", false, "keep the graph live while serving")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Index then keep the graph in sync with filesystem changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		if _, err := s.svc.LoadOrIndex(cmd.Context()); err != nil {
			return err
		}

		stop, err := startWatching(s)
		if err != nil {
			return err
		}
		defer stop()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return nil
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the query tools over JSON-RPC on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		if _, err := s.svc.LoadOrIndex(cmd.Context()); err != nil {
			return err
		}
		attachFileCache(s)

		if flagMCPWatch {
			stop, err := startWatching(s)
			if err != nil {
				return err
			}
			defer stop()
		}

		logger, err := mcplog.New(flagMCPLog)
		if err != nil {
			return err
		}
		srv := mcpserver.NewServer(s.svc, s.engine, s.cfg, logger)
		defer srv.Close()
		return srv.ServeStdio()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the graph as DOT or Mermaid",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		if _, err := s.svc.LoadOrIndex(cmd.Context()); err != nil {
			return err
		}

		opts := export.Options{
			Format:      export.Format(flagExportFormat),
			Granularity: export.Granularity(flagExportGranularity),
			EdgeLimit:   s.cfg.ExportEdgeLimit,
		}
		var out string
		var renderErr error
		s.svc.WithSnapshot(func(g *graph.Graph) {
			out, renderErr = export.Render(g, opts)
		})
		if renderErr != nil {
			return renderErr
		}
		fmt.Println(out)
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Index and force a cache write, printing the cache location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		stats, err := s.svc.FullIndex(cmd.Context())
		if err != nil {
			return err
		}
		path := cache.Path(s.svc.Root())
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cache was not written: %w", err)
		}
		fmt.Printf("snapshot of %d files written to %s (%d bytes)\n", stats.Files, path, info.Size())
		return nil
	},
}

// startWatching launches the watcher and the update loop. The returned stop
// function shuts both down.
func startWatching(s *session) (func(), error) {
	ig := indexer.NewIgnorer(s.svc.Root(), s.cfg.Ignore, s.logger)
	w, err := indexer.NewWatcher(s.svc.Root(), ig, s.cfg.WatchDebounceMs, s.logger)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-w.Events():
				if !ok {
					return
				}
				if err := s.svc.ApplyEvent(cmdContext(), ev); err != nil {
					s.logger.Warn("update failed", "path", ev.Path, "error", err)
				}
			}
		}
	}()

	return func() {
		close(done)
		_ = w.Stop()
	}, nil
}

// attachFileCache wires the mmap-backed source cache into the engine so
// context output can include definition snippets.
func attachFileCache(s *session) {
	fc, err := util.NewFileCache(512, s.logger)
	if err != nil {
		s.logger.Warn("file cache unavailable", "error", err)
		return
	}
	s.engine.WithFileCache(fc)
}

// cmdContext is the background context for watcher-driven updates; the
// watcher owns cancellation via its own stop channel.
func cmdContext() context.Context {
	return context.Background()
}
