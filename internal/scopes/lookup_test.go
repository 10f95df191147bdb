package scopes

import (
	"testing"

	"litho/internal/ast"
	"litho/internal/source"
)

// buildProgram assembles:
//
//	module M {
//	  var x: int;
//	  record R { var x: int; var y: real; proc inside() { } }
//	  class Base { var b: int; }
//	  class Derived : Base { var d: int; }
//	  proc f(a: int) { return a; }
//	  proc f(a: real) { return a; }
//	}
func buildProgram(t *testing.T) *ast.Program {
	t.Helper()
	b := ast.NewBuilder(nil)

	x := b.Variable("x", ast.IntentVar, b.Ident("int"), ast.NoNodeID)

	rx := b.Variable("x", ast.IntentVar, b.Ident("int"), ast.NoNodeID)
	ry := b.Variable("y", ast.IntentVar, b.Ident("real"), ast.NoNodeID)
	inside := b.Function(ast.FnSpec{Name: "inside", Flags: ast.FlagMethod, Body: b.Block()})
	rec := b.Record("R", source.Span{}, rx, ry, inside)

	bb := b.Variable("b", ast.IntentVar, b.Ident("int"), ast.NoNodeID)
	base := b.Class("Base", source.Span{}, ast.NoNodeID, bb)
	dd := b.Variable("d", ast.IntentVar, b.Ident("int"), ast.NoNodeID)
	derived := b.Class("Derived", source.Span{}, b.Ident("Base"), dd)

	f1 := b.Function(ast.FnSpec{
		Name:    "f",
		Formals: []ast.NodeID{b.Formal("a", ast.IntentDefault, b.Ident("int"), ast.NoNodeID)},
		Body:    b.Block(b.Return(b.Ident("a"))),
	})
	f2 := b.Function(ast.FnSpec{
		Name:    "f",
		Formals: []ast.NodeID{b.Formal("a", ast.IntentDefault, b.Ident("real"), ast.NoNodeID)},
		Body:    b.Block(b.Return(b.Ident("a"))),
	})

	b.Module("M", source.Span{}, x, rec, base, derived, f1, f2)
	return b.Finish()
}

func lookupStr(g *Graph, scope ScopeID, receivers []ScopeID, name string, cfg LookupConfig) []ast.ID {
	id, ok := g.Program().Strings.Find(name)
	if !ok {
		return nil
	}
	return g.LookupNameInScope(scope, receivers, id, cfg)
}

func TestLookupFindsOverloadsTogether(t *testing.T) {
	prog := buildProgram(t)
	g := Build(prog)

	modScope := g.ScopeFor(ast.ID{Symbol: prog.Strings.Intern("M"), Postorder: -1})
	if !modScope.IsValid() {
		t.Fatalf("module scope not found")
	}

	got := lookupStr(g, modScope, nil, "f", LookupDefault)
	if len(got) != 2 {
		t.Fatalf("lookup f: %d results, want 2", len(got))
	}
	for _, id := range got {
		if n := prog.IDToNode(id); n == nil || n.Tag != ast.TagFunction {
			t.Fatalf("lookup f returned a non-function")
		}
	}
}

func TestLookupInnermostShadowing(t *testing.T) {
	prog := buildProgram(t)
	g := Build(prog)

	recScope := g.ScopeFor(ast.ID{Symbol: prog.Strings.Intern("M.R"), Postorder: -1})
	if !recScope.IsValid() {
		t.Fatalf("record scope not found")
	}

	// From inside R, x resolves to the field, not the module variable.
	got := lookupStr(g, recScope, nil, "x", LookupDefault)
	if len(got) != 1 {
		t.Fatalf("lookup x: %d results, want 1", len(got))
	}
	parent := prog.IDToNode(prog.IDToParentID(got[0]))
	if parent == nil || parent.Tag != ast.TagRecord {
		t.Fatalf("x resolved outside the record")
	}

	// Without the innermost restriction both declarations surface.
	all := lookupStr(g, recScope, nil, "x", LookupDecls|LookupParents)
	if len(all) != 2 {
		t.Fatalf("lookup x without innermost: %d results, want 2", len(all))
	}
}

func TestLookupReceiverInheritance(t *testing.T) {
	prog := buildProgram(t)
	g := Build(prog)

	derivedScope := g.ScopeFor(ast.ID{Symbol: prog.Strings.Intern("M.Derived"), Postorder: -1})
	if !derivedScope.IsValid() {
		t.Fatalf("derived scope not found")
	}
	modScope := g.ScopeFor(ast.ID{Symbol: prog.Strings.Intern("M"), Postorder: -1})

	// b is declared on Base; a receiver lookup on Derived must find it.
	got := lookupStr(g, modScope, []ScopeID{derivedScope}, "b", LookupDecls|LookupOnlyMethodsFields)
	if len(got) != 1 {
		t.Fatalf("lookup b through inheritance: %d results, want 1", len(got))
	}
}

func TestLookupOnlyMethodsFields(t *testing.T) {
	prog := buildProgram(t)
	g := Build(prog)

	recScope := g.ScopeFor(ast.ID{Symbol: prog.Strings.Intern("M.R"), Postorder: -1})
	modScope := g.ScopeFor(ast.ID{Symbol: prog.Strings.Intern("M"), Postorder: -1})

	// inside is a method of R; visible via the receiver scope only.
	if got := lookupStr(g, modScope, []ScopeID{recScope}, "inside", LookupDecls|LookupOnlyMethodsFields); len(got) != 1 {
		t.Fatalf("lookup inside: %d results, want 1", len(got))
	}
	// f is a non-method; the methods-and-fields filter must reject it.
	if got := lookupStr(g, modScope, []ScopeID{recScope}, "f", LookupDecls|LookupOnlyMethodsFields); len(got) != 0 {
		t.Fatalf("lookup f with methods filter: %d results, want 0", len(got))
	}
}

func TestModuleVisibleByName(t *testing.T) {
	prog := buildProgram(t)
	g := Build(prog)

	modScope := g.ScopeFor(ast.ID{Symbol: prog.Strings.Intern("M"), Postorder: -1})
	if got := lookupStr(g, modScope, nil, "M", LookupDefault); len(got) != 1 {
		t.Fatalf("lookup M: %d results, want 1", len(got))
	}
}
