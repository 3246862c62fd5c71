package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MonsieurBarti/codegraph/pkg/graph"
)

func TestRustSymbols(t *testing.T) {
	res := extract(t, "src/lib.rs", `
#[derive(Debug, Clone)]
pub struct Ast {
    pub root: Node,
}

pub(crate) enum Token { Ident, Number }

pub trait Visitor {
    fn visit(&self, node: &Node);
}

impl Ast {
    pub fn new() -> Self { Ast { root: Node } }
    fn internal(&self) {}
}

pub type NodeId = u32;
pub const MAX_DEPTH: usize = 64;
pub static VERSION: &str = "1";
macro_rules! trace { () => {} }
pub(super) fn hidden() {}
fn private() {}
`)

	ast := findSym(res, "Ast")
	require.NotNil(t, ast)
	assert.Equal(t, graph.SymStruct, ast.Kind)
	assert.True(t, ast.Exported)
	assert.Equal(t, []string{"Debug", "Clone"}, ast.Derives)

	token := findSym(res, "Token")
	require.NotNil(t, token)
	assert.True(t, token.Exported, "pub(crate) maps to exported")

	visitor := findSym(res, "Visitor")
	require.NotNil(t, visitor)
	assert.Equal(t, graph.SymTrait, visitor.Kind)
	require.Len(t, visitor.Children, 1)
	assert.Equal(t, "visit", visitor.Children[0].Name)

	// The impl block carries the type name with its methods as children.
	var impl *Symbol
	for i := range res.Symbols {
		if res.Symbols[i].Kind == graph.SymImpl && res.Symbols[i].Name == "Ast" {
			impl = &res.Symbols[i]
		}
	}
	require.NotNil(t, impl)
	assert.Len(t, impl.Children, 2)

	assert.Equal(t, graph.SymTypeAlias, findSym(res, "NodeId").Kind)
	assert.Equal(t, graph.SymConst, findSym(res, "MAX_DEPTH").Kind)
	assert.Equal(t, graph.SymStatic, findSym(res, "VERSION").Kind)
	assert.Equal(t, graph.SymMacro, findSym(res, "trace").Kind)

	hidden := findSym(res, "hidden")
	require.NotNil(t, hidden)
	assert.False(t, hidden.Exported, "pub(super) maps to not-exported")
	assert.False(t, findSym(res, "private").Exported)

	// Rust symbols never carry a default flag.
	for _, s := range res.Symbols {
		assert.False(t, s.Default)
	}
}

func TestRustUseDeclarations(t *testing.T) {
	res := extract(t, "src/main.rs", `
use std::collections::HashMap;
use crate::parser::Ast;
use serde::{Serialize, Deserialize};
use super::util as u;
use crate::prelude::*;
extern crate lazy_static;
`)

	specs := map[string]Import{}
	for _, imp := range res.Imports {
		specs[imp.Specifier] = imp
	}

	assert.Contains(t, specs, "std::collections::HashMap")
	assert.Contains(t, specs, "crate::parser::Ast")
	assert.Contains(t, specs, "serde::Serialize")
	assert.Contains(t, specs, "serde::Deserialize")

	aliased := specs["super::util"]
	require.Len(t, aliased.Names, 1)
	assert.Equal(t, "u", aliased.Names[0].Local)
	assert.Equal(t, "util", aliased.Names[0].Original)

	glob := specs["crate::prelude::*"]
	require.Len(t, glob.Names, 1)
	assert.Equal(t, "*", glob.Names[0].Local)

	ext := specs["lazy_static"]
	assert.Equal(t, ImportExternCrate, ext.Kind)
}

func TestRustPubUse(t *testing.T) {
	res := extract(t, "src/lib.rs", `
pub mod parser;
pub use parser::Ast;
pub use parser::internal as public_name;
pub use prelude::*;
use parser::private_helper;
`)

	require.Len(t, res.ModDecls, 1)
	assert.Equal(t, "parser", res.ModDecls[0].Name)

	byKind := map[ExportKind][]Export{}
	for _, exp := range res.Exports {
		byKind[exp.Kind] = append(byKind[exp.Kind], exp)
	}

	reexports := byKind[ExportReExport]
	require.Len(t, reexports, 2)
	assert.Equal(t, "parser::Ast", reexports[0].Source)
	assert.Equal(t, "Ast", reexports[0].Names[0].Name)
	assert.Equal(t, "pub", reexports[0].Visibility)
	assert.Equal(t, "public_name", reexports[1].Names[0].Name)
	assert.Equal(t, "internal", reexports[1].Names[0].Original)

	alls := byKind[ExportReExportAll]
	require.Len(t, alls, 1)
	assert.Equal(t, "prelude", alls[0].Source)

	// Plain use contributes no export record.
	for _, exp := range res.Exports {
		assert.NotContains(t, exp.Source, "private_helper")
	}
}

func TestRustModDecls(t *testing.T) {
	res := extract(t, "src/lib.rs", `
mod plain;
#[path = "custom/location.rs"]
mod relocated;
mod inline {
    pub struct Inner;
    pub fn helper() {}
}
`)

	require.Len(t, res.ModDecls, 2)
	assert.Equal(t, "plain", res.ModDecls[0].Name)
	assert.Empty(t, res.ModDecls[0].PathAttr)
	assert.Equal(t, "relocated", res.ModDecls[1].Name)
	assert.Equal(t, "custom/location.rs", res.ModDecls[1].PathAttr)

	// Inline modules surface a Module symbol; contents attach to the file.
	mod := findSym(res, "inline")
	require.NotNil(t, mod)
	assert.Equal(t, graph.SymModule, mod.Kind)
	assert.NotNil(t, findSym(res, "Inner"))
	assert.NotNil(t, findSym(res, "helper"))
}

func TestRustRelationships(t *testing.T) {
	res := extract(t, "src/rel.rs", `
pub trait Draw { fn draw(&self); }
pub struct Circle;
impl Draw for Circle {
    fn draw(&self) { render(self); }
}
fn render(c: &Circle) -> Result<(), Error> {
    c.radius();
    Ok(())
}
`)

	type key struct {
		from, to string
		kind     RelKind
	}
	rels := map[key]bool{}
	for _, r := range res.Relationships {
		rels[key{r.From, r.To, r.Kind}] = true
	}

	assert.True(t, rels[key{"Circle", "Draw", RelTraitImpl}])
	assert.True(t, rels[key{"draw", "render", RelCalls}])
	assert.True(t, rels[key{"render", "radius", RelMethodCall}])
	assert.True(t, rels[key{"render", "Circle", RelTypeReference}])
}
