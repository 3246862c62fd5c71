package extractor

import (
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
)

// tsWalker extracts symbols, imports, exports and relationships from a
// TypeScript, TSX or JavaScript tree. One walker per file.
type tsWalker struct {
	source []byte
	jsx    bool
	result *FileResult
}

func (w *tsWalker) text(n *ts.Node) string {
	return n.Utf8Text(w.source)
}

func (w *tsWalker) walkProgram(root *ts.Node) {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		w.walkStatement(root.NamedChild(i), false)
	}
	// Require calls, dynamic imports and relationship records live at any
	// depth; a single scoped traversal collects them all.
	w.scan(root, "")
}

// walkStatement handles one top-level statement. exported marks statements
// nested inside an export_statement.
func (w *tsWalker) walkStatement(n *ts.Node, exported bool) {
	switch n.GrammarName() {
	case "import_statement":
		w.importStatement(n)
	case "export_statement":
		w.exportStatement(n)
	case "function_declaration", "generator_function_declaration", "function_signature":
		w.functionDeclaration(n, exported)
	case "class_declaration", "abstract_class_declaration":
		w.classDeclaration(n, exported)
	case "interface_declaration":
		w.interfaceDeclaration(n, exported)
	case "type_alias_declaration":
		w.namedSymbol(n, graph.SymTypeAlias, exported)
	case "enum_declaration":
		w.namedSymbol(n, graph.SymEnum, exported)
	case "lexical_declaration", "variable_declaration":
		w.variableDeclaration(n, exported)
	case "module", "internal_module", "ambient_declaration":
		// namespace Foo { ... } — attribute members to the file, surface
		// the namespace itself as a module symbol.
		if name := n.ChildByFieldName("name"); name != nil {
			w.addSymbol(n, w.text(name), graph.SymModule, exported, false, nil)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			for i := uint(0); i < body.NamedChildCount(); i++ {
				w.walkStatement(body.NamedChild(i), exported)
			}
		}
	}
}

func (w *tsWalker) importStatement(n *ts.Node) {
	src := n.ChildByFieldName("source")
	if src == nil {
		return
	}
	row, _ := point1(n)
	imp := Import{
		Kind:      ImportStatic,
		Specifier: stringContent(w.text(src)),
		Row:       row,
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.GrammarName() != "import_clause" {
			continue
		}
		for j := uint(0); j < c.NamedChildCount(); j++ {
			cl := c.NamedChild(j)
			switch cl.GrammarName() {
			case "identifier":
				imp.Names = append(imp.Names, ImportedName{Local: w.text(cl), Original: "default"})
			case "namespace_import":
				if id := firstNamedOfKind(cl, "identifier"); id != nil {
					imp.Names = append(imp.Names, ImportedName{Local: w.text(id), Original: "*"})
				}
			case "named_imports":
				for k := uint(0); k < cl.NamedChildCount(); k++ {
					spec := cl.NamedChild(k)
					if spec.GrammarName() != "import_specifier" {
						continue
					}
					name := spec.ChildByFieldName("name")
					if name == nil {
						continue
					}
					in := ImportedName{Local: w.text(name), Original: w.text(name)}
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						in.Local = w.text(alias)
					}
					imp.Names = append(imp.Names, in)
				}
			}
		}
	}

	w.result.Imports = append(w.result.Imports, imp)
}

func (w *tsWalker) exportStatement(n *ts.Node) {
	row, _ := point1(n)

	// export <declaration>
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		w.walkStatement(decl, true)
		for _, name := range declaredNames(decl, w.source) {
			w.result.Exports = append(w.result.Exports, Export{
				Kind:  ExportNamed,
				Names: []ExportedName{{Name: name, Original: name}},
				Row:   row,
			})
		}
		return
	}

	source := ""
	if src := n.ChildByFieldName("source"); src != nil {
		source = stringContent(w.text(src))
	}

	// export * from './m'
	if source != "" && hasChildToken(n, "*") {
		w.result.Exports = append(w.result.Exports, Export{
			Kind:   ExportReExportAll,
			Source: source,
			Row:    row,
		})
		// A re-export is also a dependency on the source module; record the
		// import so the file-level edge exists.
		w.result.Imports = append(w.result.Imports, Import{
			Kind: ImportStatic, Specifier: source, Row: row,
		})
		return
	}

	// export default <expr>
	if value := n.ChildByFieldName("value"); value != nil {
		exp := Export{Kind: ExportDefault, Row: row}
		if value.GrammarName() == "identifier" {
			exp.Names = []ExportedName{{Name: w.text(value), Original: w.text(value)}}
		}
		w.result.Exports = append(w.result.Exports, exp)
		return
	}

	// export { a, b as c } [from './m']
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.GrammarName() != "export_clause" {
			continue
		}
		exp := Export{Kind: ExportNamed, Source: source, Row: row}
		if source != "" {
			exp.Kind = ExportReExport
		}
		for j := uint(0); j < c.NamedChildCount(); j++ {
			spec := c.NamedChild(j)
			if spec.GrammarName() != "export_specifier" {
				continue
			}
			name := spec.ChildByFieldName("name")
			if name == nil {
				continue
			}
			en := ExportedName{Name: w.text(name), Original: w.text(name)}
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				en.Name = w.text(alias)
			}
			exp.Names = append(exp.Names, en)
		}
		if len(exp.Names) == 0 {
			continue
		}
		w.result.Exports = append(w.result.Exports, exp)
		if exp.Kind == ExportReExport {
			imp := Import{Kind: ImportStatic, Specifier: source, Row: row}
			for _, en := range exp.Names {
				imp.Names = append(imp.Names, ImportedName{Local: en.Name, Original: en.Original})
			}
			w.result.Imports = append(w.result.Imports, imp)
		}
	}
}

func (w *tsWalker) functionDeclaration(n *ts.Node, exported bool) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	kind := graph.SymFunction
	if w.isComponent(n, w.text(name)) {
		kind = graph.SymComponent
	}
	w.addSymbol(n, w.text(name), kind, exported, false, nil)
}

func (w *tsWalker) classDeclaration(n *ts.Node, exported bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	sym := w.newSymbol(n, name, graph.SymClass, exported, false)

	// class A extends B implements I, J
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.GrammarName() != "class_heritage" {
			continue
		}
		for j := uint(0); j < c.NamedChildCount(); j++ {
			h := c.NamedChild(j)
			row, _ := point1(h)
			switch h.GrammarName() {
			case "extends_clause":
				for _, target := range heritageNames(h, w.source) {
					w.result.Relationships = append(w.result.Relationships,
						Relationship{From: name, To: target, Kind: RelExtends, Row: row})
				}
			case "implements_clause":
				for _, target := range heritageNames(h, w.source) {
					w.result.Relationships = append(w.result.Relationships,
						Relationship{From: name, To: target, Kind: RelImplements, Row: row})
				}
			}
		}
	}

	if body := n.ChildByFieldName("body"); body != nil {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			m := body.NamedChild(i)
			switch m.GrammarName() {
			case "method_definition", "abstract_method_signature", "method_signature":
				if mn := m.ChildByFieldName("name"); mn != nil {
					sym.Children = append(sym.Children, *w.newSymbol(m, w.text(mn), graph.SymMethod, false, false))
				}
			case "public_field_definition", "field_definition", "property_signature":
				if mn := m.ChildByFieldName("name"); mn != nil {
					sym.Children = append(sym.Children, *w.newSymbol(m, w.text(mn), graph.SymProperty, false, false))
				}
			}
		}
	}

	w.result.Symbols = append(w.result.Symbols, *sym)
}

func (w *tsWalker) interfaceDeclaration(n *ts.Node, exported bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	sym := w.newSymbol(n, name, graph.SymInterface, exported, false)

	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.GrammarName() {
		case "extends_type_clause", "extends_clause":
			row, _ := point1(c)
			for _, target := range heritageNames(c, w.source) {
				w.result.Relationships = append(w.result.Relationships,
					Relationship{From: name, To: target, Kind: RelInterfaceExtends, Row: row})
			}
		case "interface_body", "object_type":
			for j := uint(0); j < c.NamedChildCount(); j++ {
				m := c.NamedChild(j)
				switch m.GrammarName() {
				case "property_signature":
					if mn := m.ChildByFieldName("name"); mn != nil {
						sym.Children = append(sym.Children, *w.newSymbol(m, w.text(mn), graph.SymProperty, false, false))
					}
				case "method_signature":
					if mn := m.ChildByFieldName("name"); mn != nil {
						sym.Children = append(sym.Children, *w.newSymbol(m, w.text(mn), graph.SymMethod, false, false))
					}
				}
			}
		}
	}

	w.result.Symbols = append(w.result.Symbols, *sym)
}

func (w *tsWalker) namedSymbol(n *ts.Node, kind graph.SymbolKind, exported bool) {
	if name := n.ChildByFieldName("name"); name != nil {
		w.addSymbol(n, w.text(name), kind, exported, false, nil)
	}
}

func (w *tsWalker) variableDeclaration(n *ts.Node, exported bool) {
	isConst := strings.HasPrefix(w.text(n), "const")
	for i := uint(0); i < n.NamedChildCount(); i++ {
		d := n.NamedChild(i)
		if d.GrammarName() != "variable_declarator" {
			continue
		}
		name := d.ChildByFieldName("name")
		if name == nil || name.GrammarName() != "identifier" {
			continue
		}

		kind := graph.SymVariable
		if isConst {
			kind = graph.SymConst
		}
		if value := d.ChildByFieldName("value"); value != nil {
			switch value.GrammarName() {
			case "arrow_function", "function_expression", "function":
				kind = graph.SymFunction
				if w.isComponent(value, w.text(name)) {
					kind = graph.SymComponent
				}
			case "call_expression":
				// const x = require('...') is an import, not a symbol of
				// interest on its own; the scan pass records it.
			}
		}
		w.addSymbol(d, w.text(name), kind, exported, false, nil)
	}
}

// isComponent reports whether a function-ish node is a JSX component: JSX
// syntax in the body and an uppercase-initial name.
func (w *tsWalker) isComponent(n *ts.Node, name string) bool {
	if !w.jsx || name == "" {
		return false
	}
	r := name[0]
	if r < 'A' || r > 'Z' {
		return false
	}
	return containsJSX(n)
}

func containsJSX(n *ts.Node) bool {
	switch n.GrammarName() {
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return true
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if containsJSX(n.NamedChild(i)) {
			return true
		}
	}
	return false
}

// scan traverses the whole tree collecting require/dynamic imports and
// relationship records. scope is the name of the nearest enclosing symbol.
func (w *tsWalker) scan(n *ts.Node, scope string) {
	switch n.GrammarName() {
	case "function_declaration", "generator_function_declaration", "method_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			scope = w.text(name)
		}
	case "class_declaration", "abstract_class_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			scope = w.text(name)
		}
	case "variable_declarator":
		if name := n.ChildByFieldName("name"); name != nil {
			if value := n.ChildByFieldName("value"); value != nil {
				switch value.GrammarName() {
				case "arrow_function", "function_expression", "function":
					scope = w.text(name)
				}
			}
		}
	case "call_expression":
		w.callExpression(n, scope)
	case "new_expression":
		if ctor := n.ChildByFieldName("constructor"); ctor != nil && ctor.GrammarName() == "identifier" {
			row, _ := point1(n)
			w.result.Relationships = append(w.result.Relationships,
				Relationship{From: scope, To: w.text(ctor), Kind: RelCalls, Row: row})
		}
	case "type_annotation":
		w.typeAnnotation(n, scope)
		return // children already consumed
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		w.scan(n.NamedChild(i), scope)
	}
}

func (w *tsWalker) callExpression(n *ts.Node, scope string) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	row, _ := point1(n)

	switch fn.GrammarName() {
	case "identifier":
		callee := w.text(fn)
		if callee == "require" {
			if spec := firstStringArgument(n, w.source); spec != "" {
				w.result.Imports = append(w.result.Imports, Import{
					Kind: ImportRequire, Specifier: spec, Row: row,
				})
			}
			return
		}
		w.result.Relationships = append(w.result.Relationships,
			Relationship{From: scope, To: callee, Kind: RelCalls, Row: row})
	case "member_expression":
		if prop := fn.ChildByFieldName("property"); prop != nil {
			w.result.Relationships = append(w.result.Relationships,
				Relationship{From: scope, To: w.text(prop), Kind: RelMethodCall, Row: row})
		}
	case "import":
		if spec := firstStringArgument(n, w.source); spec != "" {
			w.result.Imports = append(w.result.Imports, Import{
				Kind: ImportDynamic, Specifier: spec, Row: row,
			})
		}
	}
}

func (w *tsWalker) typeAnnotation(n *ts.Node, scope string) {
	collectTypeIdentifiers(n, w.source, func(name string, row uint32) {
		w.result.Relationships = append(w.result.Relationships,
			Relationship{From: scope, To: name, Kind: RelTypeReference, Row: row})
	})
}

func collectTypeIdentifiers(n *ts.Node, source []byte, emit func(string, uint32)) {
	// type_identifier is an alias of identifier; only Kind reports the alias.
	if n.Kind() == "type_identifier" {
		emit(n.Utf8Text(source), uint32(n.StartPosition().Row+1))
		return
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		collectTypeIdentifiers(n.NamedChild(i), source, emit)
	}
}

func (w *tsWalker) newSymbol(n *ts.Node, name string, kind graph.SymbolKind, exported, isDefault bool) *Symbol {
	row, col := point1(n)
	return &Symbol{
		Name:      name,
		Kind:      kind,
		Row:       row,
		Column:    col,
		StartByte: uint32(n.StartByte()),
		EndByte:   uint32(n.EndByte()),
		Exported:  exported,
		Default:   isDefault,
	}
}

func (w *tsWalker) addSymbol(n *ts.Node, name string, kind graph.SymbolKind, exported, isDefault bool, children []Symbol) {
	sym := w.newSymbol(n, name, kind, exported, isDefault)
	sym.Children = children
	w.result.Symbols = append(w.result.Symbols, *sym)
}

// stringContent strips matching quotes from a string literal's text.
func stringContent(s string) string {
	return strings.Trim(s, "\"'`")
}

// declaredNames lists the names introduced by a declaration node, for export
// record emission alongside `export <declaration>`.
func declaredNames(decl *ts.Node, source []byte) []string {
	switch decl.GrammarName() {
	case "lexical_declaration", "variable_declaration":
		var names []string
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			d := decl.NamedChild(i)
			if d.GrammarName() != "variable_declarator" {
				continue
			}
			if name := d.ChildByFieldName("name"); name != nil && name.GrammarName() == "identifier" {
				names = append(names, name.Utf8Text(source))
			}
		}
		return names
	default:
		if name := decl.ChildByFieldName("name"); name != nil {
			return []string{name.Utf8Text(source)}
		}
	}
	return nil
}

// heritageNames extracts the referenced type names in an extends/implements
// clause, skipping generic arguments.
func heritageNames(clause *ts.Node, source []byte) []string {
	var names []string
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		c := clause.NamedChild(i)
		switch c.GrammarName() {
		case "identifier", "type_identifier":
			names = append(names, c.Utf8Text(source))
		case "generic_type":
			if name := c.ChildByFieldName("name"); name != nil {
				names = append(names, name.Utf8Text(source))
			}
		case "member_expression", "nested_type_identifier":
			// Qualified names (React.Component) bind by their last segment.
			text := c.Utf8Text(source)
			if idx := strings.LastIndexByte(text, '.'); idx >= 0 {
				names = append(names, text[idx+1:])
			} else {
				names = append(names, text)
			}
		}
	}
	return names
}

func firstNamedOfKind(n *ts.Node, kind string) *ts.Node {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if c := n.NamedChild(i); c.GrammarName() == kind {
			return c
		}
	}
	return nil
}

func hasChildToken(n *ts.Node, token string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.GrammarName() == token {
			return true
		}
	}
	return false
}

func firstStringArgument(call *ts.Node, source []byte) string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		if a := args.NamedChild(i); a.GrammarName() == "string" {
			return stringContent(a.Utf8Text(source))
		}
	}
	return ""
}
