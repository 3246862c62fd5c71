package query

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
)

// Format selects the output rendering.
type Format string

const (
	FormatCompact Format = "compact"
	FormatTable   Format = "table"
	FormatJSON    Format = "json"
)

// ParseFormat validates a --format flag value, defaulting to compact.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCompact, FormatTable, FormatJSON:
		return Format(s), nil
	case "":
		return FormatCompact, nil
	default:
		return FormatCompact, fmt.Errorf("unknown format %q (compact|table|json)", s)
	}
}

func renderJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(out)
}

func suggestionLine(suggestions []string) string {
	if len(suggestions) == 0 {
		return "no matches"
	}
	return "no matches; did you mean: " + strings.Join(suggestions, ", ")
}

// Render formats a FindResult.
func (r FindResult) Render(f Format) string {
	if f == FormatJSON {
		return renderJSON(r)
	}
	if len(r.Hits) == 0 {
		return suggestionLine(r.Suggestions)
	}

	if f == FormatTable {
		var b strings.Builder
		w := tabwriter.NewWriter(&b, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tFILE\tLINE\tEXPORTED")
		for _, h := range r.Hits {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%v\n", h.Name, h.Kind, h.File, h.Line, h.Exported)
		}
		w.Flush()
		return strings.TrimRight(b.String(), "\n")
	}

	lines := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		exp := ""
		if h.Exported {
			exp = " exported"
		}
		lines[i] = fmt.Sprintf("%s:%d %s %s%s", h.File, h.Line, h.Kind, h.Name, exp)
	}
	return strings.Join(lines, "\n")
}

// Render formats a RefsResult.
func (r RefsResult) Render(f Format) string {
	if f == FormatJSON {
		return renderJSON(r)
	}
	if len(r.References) == 0 {
		return suggestionLine(r.Suggestions)
	}

	if f == FormatTable {
		var b strings.Builder
		w := tabwriter.NewWriter(&b, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tLINE\tKIND")
		for _, ref := range r.References {
			fmt.Fprintf(w, "%s\t%d\t%s\n", ref.File, ref.Line, ref.Kind)
		}
		w.Flush()
		return strings.TrimRight(b.String(), "\n")
	}

	lines := make([]string, len(r.References))
	for i, ref := range r.References {
		lines[i] = fmt.Sprintf("%s:%d %s", ref.File, ref.Line, ref.Kind)
	}
	return strings.Join(lines, "\n")
}

// Render formats an ImpactResult.
func (r ImpactResult) Render(f Format) string {
	if f == FormatJSON {
		return renderJSON(r)
	}
	if len(r.Files) == 0 {
		return suggestionLine(r.Suggestions)
	}

	if f == FormatTable {
		var b strings.Builder
		w := tabwriter.NewWriter(&b, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DEPTH\tFILE")
		for _, imp := range r.Files {
			fmt.Fprintf(w, "%d\t%s\n", imp.Depth, imp.File)
		}
		w.Flush()
		return strings.TrimRight(b.String(), "\n")
	}

	lines := make([]string, len(r.Files))
	for i, imp := range r.Files {
		lines[i] = fmt.Sprintf("%d %s", imp.Depth, imp.File)
	}
	return strings.Join(lines, "\n")
}

// RenderCycles formats the circular-dependency output.
func RenderCycles(cycles []Cycle, f Format) string {
	if f == FormatJSON {
		return renderJSON(cycles)
	}
	if len(cycles) == 0 {
		return "no circular dependencies"
	}

	lines := make([]string, len(cycles))
	for i, c := range cycles {
		lines[i] = fmt.Sprintf("cycle %d: %s", i+1, strings.Join(c.Files, " -> "))
	}
	return strings.Join(lines, "\n")
}

// Render formats a ContextResult; empty sections are omitted.
func (r ContextResult) Render(f Format) string {
	if f == FormatJSON {
		return renderJSON(r)
	}
	if len(r.Definitions) == 0 {
		return suggestionLine(r.Suggestions)
	}

	var b strings.Builder
	b.WriteString("definitions:\n")
	for _, d := range r.Definitions {
		fmt.Fprintf(&b, "  %s:%d %s %s\n", d.File, d.Line, d.Kind, d.Name)
		if d.Snippet != "" {
			for _, line := range strings.Split(d.Snippet, "\n") {
				fmt.Fprintf(&b, "    | %s\n", line)
			}
		}
	}

	section := func(title string, refs []SymbolRef) {
		if len(refs) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for _, ref := range refs {
			fmt.Fprintf(&b, "  %s (%s:%d)\n", ref.Name, ref.File, ref.Line)
		}
	}
	if len(r.References) > 0 {
		b.WriteString("references:\n")
		for _, ref := range r.References {
			fmt.Fprintf(&b, "  %s:%d %s\n", ref.File, ref.Line, ref.Kind)
		}
	}
	section("callees", r.Callees)
	section("callers", r.Callers)
	section("extends", r.Parents)
	section("extended by", r.Children)
	section("implements", r.Interfaces)
	section("implemented by", r.Implementors)
	return strings.TrimRight(b.String(), "\n")
}

// Render formats a StatsResult.
func (r StatsResult) Render(f Format) string {
	if f == FormatJSON {
		return renderJSON(r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "files: %d\n", r.TotalFiles)
	for _, k := range sortedKeys(r.Files) {
		fmt.Fprintf(&b, "  %s: %d\n", k, r.Files[k])
	}
	fmt.Fprintf(&b, "symbols: %d\n", r.TotalSymbols)
	symKeys := make([]string, 0, len(r.Symbols))
	for k := range r.Symbols {
		symKeys = append(symKeys, string(k))
	}
	sort.Strings(symKeys)
	for _, k := range symKeys {
		fmt.Fprintf(&b, "  %s: %d\n", k, r.Symbols[graph.SymbolKind(k)])
	}
	b.WriteString("imports:\n")
	for _, k := range sortedKeys(r.Imports) {
		fmt.Fprintf(&b, "  %s: %d\n", k, r.Imports[k])
	}
	if len(r.Relationships) > 0 {
		b.WriteString("relationships:\n")
		for _, k := range sortedKeys(r.Relationships) {
			fmt.Fprintf(&b, "  %s: %d\n", k, r.Relationships[k])
		}
	}
	fmt.Fprintf(&b, "external packages: %d", r.ExternalPackages)
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
