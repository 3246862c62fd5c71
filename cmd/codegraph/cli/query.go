package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
	"github.com/MonsieurBarti/codegraph/pkg/query"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build (or refresh) the code graph and persist the cache",
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
		fmt.Printf("indexed %d files (%d skipped) in %s\n", stats.Files, stats.Skipped, stats.Duration.Round(timeUnit))
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find <pattern>",
	Short: "Find symbol definitions by name or regex",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		if _, err := s.svc.LoadOrIndex(cmd.Context()); err != nil {
			return err
		}

		format, err := s.outputFormat()
		if err != nil {
			return err
		}
		kinds := make([]graph.SymbolKind, 0, len(flagKinds))
		for _, k := range flagKinds {
			kinds = append(kinds, graph.SymbolKind(k))
		}
		result := s.engine.FindSymbol(args[0], query.Filter{
			Kinds:           kinds,
			PathPrefix:      flagFile,
			CaseInsensitive: flagNoCase,
		})
		fmt.Println(result.Render(format))
		return nil
	},
}

var refsCmd = &cobra.Command{
	Use:   "refs <name>",
	Short: "Find references to a symbol (imports and calls)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		if _, err := s.svc.LoadOrIndex(cmd.Context()); err != nil {
			return err
		}

		format, err := s.outputFormat()
		if err != nil {
			return err
		}
		fmt.Println(s.engine.FindReferences(args[0], flagFile).Render(format))
		return nil
	},
}

var impactCmd = &cobra.Command{
	Use:   "impact <name>",
	Short: "Blast radius: files transitively importing the symbol's file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		if _, err := s.svc.LoadOrIndex(cmd.Context()); err != nil {
			return err
		}

		format, err := s.outputFormat()
		if err != nil {
			return err
		}
		fmt.Println(s.engine.BlastRadius(args[0], flagFile).Render(format))
		return nil
	},
}

var circularCmd = &cobra.Command{
	Use:   "circular",
	Short: "Detect circular import chains",
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

		format, err := s.outputFormat()
		if err != nil {
			return err
		}
		fmt.Println(query.RenderCycles(s.engine.FindCircular(), format))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Project statistics",
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

		format, err := s.outputFormat()
		if err != nil {
			return err
		}
		result := s.engine.ProjectStats()
		if format == query.FormatJSON {
			ps := s.svc.ParserStats()
			result.Parser = &query.ParserCounters{
				ParsersCreated: ps.ParsersCreated,
				ParsesCalled:   ps.ParsesCalled,
			}
		}
		fmt.Println(result.Render(format))
		return nil
	},
}

var contextCmd = &cobra.Command{
	Use:   "context <name>",
	Short: "360-degree context for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()
		if _, err := s.svc.LoadOrIndex(cmd.Context()); err != nil {
			return err
		}

		format, err := s.outputFormat()
		if err != nil {
			return err
		}
		attachFileCache(s)
		fmt.Println(s.engine.SymbolContext(args[0], flagFile).Render(format))
		return nil
	},
}
