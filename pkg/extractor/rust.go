package extractor

import (
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
)

// rustWalker extracts symbols, use declarations, mod declarations and
// relationships from a Rust tree. One walker per file.
type rustWalker struct {
	source []byte
	result *FileResult
}

func (w *rustWalker) text(n *ts.Node) string {
	return n.Utf8Text(w.source)
}

func (w *rustWalker) walkSourceFile(root *ts.Node) {
	w.walkItems(root)
	w.scan(root, "")
}

// walkItems handles the items of a source file or inline module body.
// Attribute items precede the item they annotate as siblings, so the walk
// carries the pending attributes forward.
func (w *rustWalker) walkItems(container *ts.Node) {
	var pending []*ts.Node
	for i := uint(0); i < container.NamedChildCount(); i++ {
		item := container.NamedChild(i)
		if item.GrammarName() == "attribute_item" {
			pending = append(pending, item)
			continue
		}
		w.walkItem(item, pending)
		pending = nil
	}
}

func (w *rustWalker) walkItem(n *ts.Node, attrs []*ts.Node) {
	switch n.GrammarName() {
	case "function_item", "function_signature_item":
		w.named(n, graph.SymFunction)
	case "struct_item":
		w.namedWithDerives(n, graph.SymStruct, attrs)
	case "enum_item":
		w.namedWithDerives(n, graph.SymEnum, attrs)
	case "union_item":
		w.namedWithDerives(n, graph.SymStruct, attrs)
	case "trait_item":
		w.traitItem(n)
	case "impl_item":
		w.implItem(n)
	case "type_item":
		w.named(n, graph.SymTypeAlias)
	case "const_item":
		w.named(n, graph.SymConst)
	case "static_item":
		w.named(n, graph.SymStatic)
	case "macro_definition":
		w.named(n, graph.SymMacro)
	case "mod_item":
		w.modItem(n, attrs)
	case "use_declaration":
		w.useDeclaration(n)
	case "extern_crate_declaration":
		w.externCrate(n)
	}
}

// visibility returns the exported flag per the pub mapping: pub and
// pub(crate) export, pub(super) and private do not.
func (w *rustWalker) visibility(n *ts.Node) (string, bool) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.GrammarName() == "visibility_modifier" {
			vis := w.text(c)
			return vis, vis == "pub" || vis == "pub(crate)"
		}
	}
	return "", false
}

func (w *rustWalker) named(n *ts.Node, kind graph.SymbolKind) *Symbol {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	_, exported := w.visibility(n)
	sym := w.newSymbol(n, w.text(name), kind, exported)
	w.result.Symbols = append(w.result.Symbols, *sym)
	return &w.result.Symbols[len(w.result.Symbols)-1]
}

func (w *rustWalker) namedWithDerives(n *ts.Node, kind graph.SymbolKind, attrs []*ts.Node) {
	sym := w.named(n, kind)
	if sym == nil {
		return
	}
	for _, attr := range attrs {
		sym.Derives = append(sym.Derives, deriveList(attr, w.source)...)
	}
}

func (w *rustWalker) traitItem(n *ts.Node) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	_, exported := w.visibility(n)
	sym := w.newSymbol(n, w.text(name), graph.SymTrait, exported)

	if body := n.ChildByFieldName("body"); body != nil {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			m := body.NamedChild(i)
			switch m.GrammarName() {
			case "function_item", "function_signature_item":
				if mn := m.ChildByFieldName("name"); mn != nil {
					sym.Children = append(sym.Children, *w.newSymbol(m, w.text(mn), graph.SymMethod, false))
				}
			}
		}
	}
	w.result.Symbols = append(w.result.Symbols, *sym)
}

func (w *rustWalker) implItem(n *ts.Node) {
	typeNode := n.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	typeName := baseTypeName(w.text(typeNode))
	sym := w.newSymbol(n, typeName, graph.SymImpl, false)

	if traitNode := n.ChildByFieldName("trait"); traitNode != nil {
		row, _ := point1(n)
		w.result.Relationships = append(w.result.Relationships, Relationship{
			From: typeName,
			To:   baseTypeName(w.text(traitNode)),
			Kind: RelTraitImpl,
			Row:  row,
		})
	}

	if body := n.ChildByFieldName("body"); body != nil {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			m := body.NamedChild(i)
			if m.GrammarName() != "function_item" {
				continue
			}
			if mn := m.ChildByFieldName("name"); mn != nil {
				_, mexp := w.visibility(m)
				sym.Children = append(sym.Children, *w.newSymbol(m, w.text(mn), graph.SymMethod, mexp))
			}
		}
	}
	w.result.Symbols = append(w.result.Symbols, *sym)
}

func (w *rustWalker) modItem(n *ts.Node, attrs []*ts.Node) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	row, _ := point1(n)

	if body := n.ChildByFieldName("body"); body != nil {
		// Inline module: emit a Module symbol, attribute contained items to
		// the file itself.
		_, exported := w.visibility(n)
		sym := w.newSymbol(n, w.text(name), graph.SymModule, exported)
		w.result.Symbols = append(w.result.Symbols, *sym)
		w.walkItems(body)
		return
	}

	decl := ModDecl{Name: w.text(name), Row: row}
	for _, attr := range attrs {
		if p := pathAttr(attr, w.source); p != "" {
			decl.PathAttr = p
		}
	}
	w.result.ModDecls = append(w.result.ModDecls, decl)
}

func (w *rustWalker) useDeclaration(n *ts.Node) {
	arg := n.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	vis, exported := w.visibility(n)
	row, _ := point1(n)

	for _, entry := range flattenUseTree(arg, w.source, "") {
		imp := Import{Kind: ImportUse, Specifier: entry.path, Row: row}
		leaf := lastPathSegment(entry.path)
		if entry.wildcard {
			imp.Names = append(imp.Names, ImportedName{Local: "*", Original: "*"})
		} else {
			local := leaf
			if entry.alias != "" {
				local = entry.alias
			}
			imp.Names = append(imp.Names, ImportedName{Local: local, Original: leaf})
		}
		w.result.Imports = append(w.result.Imports, imp)

		if !exported {
			continue
		}
		if entry.wildcard {
			w.result.Exports = append(w.result.Exports, Export{
				Kind:       ExportReExportAll,
				Source:     strings.TrimSuffix(entry.path, "::*"),
				Visibility: vis,
				Row:        row,
			})
		} else {
			name := leaf
			if entry.alias != "" {
				name = entry.alias
			}
			w.result.Exports = append(w.result.Exports, Export{
				Kind:       ExportReExport,
				Names:      []ExportedName{{Name: name, Original: leaf}},
				Source:     entry.path,
				Visibility: vis,
				Row:        row,
			})
		}
	}
}

func (w *rustWalker) externCrate(n *ts.Node) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	row, _ := point1(n)
	w.result.Imports = append(w.result.Imports, Import{
		Kind:      ImportExternCrate,
		Specifier: w.text(name),
		Row:       row,
	})
}

// scan collects call and type-reference relationships. scope is the nearest
// enclosing named item.
func (w *rustWalker) scan(n *ts.Node, scope string) {
	switch n.GrammarName() {
	case "function_item":
		if name := n.ChildByFieldName("name"); name != nil {
			scope = w.text(name)
		}
		w.signatureTypes(n, scope)
	case "call_expression":
		w.callExpression(n, scope)
	case "macro_invocation":
		// Macro calls are opaque; their bodies still get scanned below.
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		w.scan(n.NamedChild(i), scope)
	}
}

func (w *rustWalker) callExpression(n *ts.Node, scope string) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	row, _ := point1(n)

	switch fn.GrammarName() {
	case "identifier":
		w.result.Relationships = append(w.result.Relationships,
			Relationship{From: scope, To: w.text(fn), Kind: RelCalls, Row: row})
	case "scoped_identifier":
		if name := fn.ChildByFieldName("name"); name != nil {
			w.result.Relationships = append(w.result.Relationships,
				Relationship{From: scope, To: w.text(name), Kind: RelCalls, Row: row})
		}
	case "field_expression":
		if field := fn.ChildByFieldName("field"); field != nil {
			w.result.Relationships = append(w.result.Relationships,
				Relationship{From: scope, To: w.text(field), Kind: RelMethodCall, Row: row})
		}
	}
}

// signatureTypes records TypeReference relationships for the parameter and
// return types of a function item.
func (w *rustWalker) signatureTypes(fn *ts.Node, scope string) {
	emit := func(name string, row uint32) {
		w.result.Relationships = append(w.result.Relationships,
			Relationship{From: scope, To: name, Kind: RelTypeReference, Row: row})
	}
	if params := fn.ChildByFieldName("parameters"); params != nil {
		collectRustTypeIdentifiers(params, w.source, emit)
	}
	if ret := fn.ChildByFieldName("return_type"); ret != nil {
		collectRustTypeIdentifiers(ret, w.source, emit)
	}
}

func collectRustTypeIdentifiers(n *ts.Node, source []byte, emit func(string, uint32)) {
	// type_identifier is an alias of identifier; only Kind reports the alias.
	if n.Kind() == "type_identifier" {
		emit(n.Utf8Text(source), uint32(n.StartPosition().Row+1))
		return
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		collectRustTypeIdentifiers(n.NamedChild(i), source, emit)
	}
}

func (w *rustWalker) newSymbol(n *ts.Node, name string, kind graph.SymbolKind, exported bool) *Symbol {
	row, col := point1(n)
	return &Symbol{
		Name:      name,
		Kind:      kind,
		Row:       row,
		Column:    col,
		StartByte: uint32(n.StartByte()),
		EndByte:   uint32(n.EndByte()),
		Exported:  exported,
	}
}

type useEntry struct {
	path     string
	alias    string
	wildcard bool
}

// flattenUseTree expands a use declaration argument into one entry per
// imported path. `use a::{b, c::d as e, f::*}` yields a::b, a::c::d (alias
// e) and a::f::* (wildcard).
func flattenUseTree(n *ts.Node, source []byte, prefix string) []useEntry {
	text := func(x *ts.Node) string { return x.Utf8Text(source) }

	switch n.GrammarName() {
	case "identifier", "type_identifier", "crate", "self", "super", "metavariable":
		return []useEntry{{path: prefix + text(n)}}
	case "scoped_identifier":
		return []useEntry{{path: prefix + text(n)}}
	case "use_as_clause":
		pathNode := n.ChildByFieldName("path")
		alias := n.ChildByFieldName("alias")
		if pathNode == nil {
			return nil
		}
		entry := useEntry{path: prefix + text(pathNode)}
		if alias != nil {
			entry.alias = text(alias)
		}
		return []useEntry{entry}
	case "use_wildcard":
		path := "*"
		if p := n.NamedChild(0); p != nil {
			path = text(p) + "::*"
		}
		return []useEntry{{path: prefix + path, wildcard: true}}
	case "scoped_use_list":
		pathNode := n.ChildByFieldName("path")
		listNode := n.ChildByFieldName("list")
		if listNode == nil {
			return nil
		}
		inner := prefix
		if pathNode != nil {
			inner = prefix + text(pathNode) + "::"
		}
		var entries []useEntry
		for i := uint(0); i < listNode.NamedChildCount(); i++ {
			entries = append(entries, flattenUseTree(listNode.NamedChild(i), source, inner)...)
		}
		return entries
	case "use_list":
		var entries []useEntry
		for i := uint(0); i < n.NamedChildCount(); i++ {
			entries = append(entries, flattenUseTree(n.NamedChild(i), source, prefix)...)
		}
		return entries
	}
	return nil
}

// lastPathSegment returns the final `::`-separated segment of a use path.
func lastPathSegment(path string) string {
	if idx := strings.LastIndex(path, "::"); idx >= 0 {
		return path[idx+2:]
	}
	return path
}

// baseTypeName strips generic arguments and reference sigils from a type
// expression, leaving the name relationships bind against.
func baseTypeName(t string) string {
	t = strings.TrimPrefix(t, "&")
	t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "mut "))
	if idx := strings.IndexByte(t, '<'); idx >= 0 {
		t = t[:idx]
	}
	if idx := strings.LastIndex(t, "::"); idx >= 0 {
		t = t[idx+2:]
	}
	return strings.TrimSpace(t)
}

// deriveList extracts trait names from a #[derive(...)] attribute item.
func deriveList(attr *ts.Node, source []byte) []string {
	text := attr.Utf8Text(source)
	start := strings.Index(text, "derive(")
	if start < 0 {
		return nil
	}
	rest := text[start+len("derive("):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return nil
	}
	var traits []string
	for _, part := range strings.Split(rest[:end], ",") {
		if p := strings.TrimSpace(part); p != "" {
			traits = append(traits, p)
		}
	}
	return traits
}

// pathAttr extracts the literal from a #[path = "..."] attribute item.
func pathAttr(attr *ts.Node, source []byte) string {
	text := attr.Utf8Text(source)
	if !strings.Contains(text, "path") {
		return ""
	}
	eq := strings.IndexByte(text, '=')
	if eq < 0 {
		return ""
	}
	return strings.Trim(strings.Trim(strings.TrimSuffix(strings.TrimSpace(text[eq+1:]), "]"), " "), "\"")
}
