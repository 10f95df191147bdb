package scopes

import (
	"fmt"

	"fortio.org/safecast"

	"litho/internal/ast"
	"litho/internal/source"
)

// Graph holds every lexical scope of one program in a compact
// slice-based arena, plus the owner index used to find the scope a
// given node lives in. Built once per program revision; read-only after
// Build returns.
type Graph struct {
	prog    *ast.Program
	data    []Scope // index 0 reserved for NoScopeID
	byOwner map[ast.ID]ScopeID
	modules map[source.StringID]ast.ID // top-level module name -> decl
}

// Build walks the program and constructs its scope graph.
func Build(prog *ast.Program) *Graph {
	g := &Graph{
		prog:    prog,
		data:    make([]Scope, 1, 64),
		byOwner: make(map[ast.ID]ScopeID),
		modules: make(map[source.StringID]ast.ID),
	}
	for _, m := range prog.Modules() {
		n := prog.Node(m)
		g.modules[n.Name] = prog.IDOf(m)
		g.buildScope(ScopeModule, NoScopeID, m)
	}
	return g
}

func (g *Graph) Program() *ast.Program { return g.prog }

// Scope returns the scope pointer or nil if ID is invalid.
func (g *Graph) Scope(id ScopeID) *Scope {
	if !id.IsValid() || int(id) >= len(g.data) {
		return nil
	}
	return &g.data[id]
}

// Len reports total number of scopes excluding the sentinel.
func (g *Graph) Len() int { return len(g.data) - 1 }

// ScopeFor returns the scope owned by the given declaration, or
// NoScopeID when the node does not open a scope.
func (g *Graph) ScopeFor(owner ast.ID) ScopeID {
	return g.byOwner[owner]
}

// ScopeForID returns the innermost scope containing the node: the
// node's own scope if it opens one, otherwise the nearest enclosing
// owner's scope.
func (g *Graph) ScopeForID(id ast.ID) ScopeID {
	for cur := g.prog.NodeForID(id); cur.IsValid(); cur = g.prog.ParentOf(cur) {
		if sid, ok := g.byOwner[g.prog.IDOf(cur)]; ok {
			return sid
		}
	}
	return NoScopeID
}

// ModuleDecl maps a top-level module name to its declaration ID.
func (g *Graph) ModuleDecl(name source.StringID) (ast.ID, bool) {
	id, ok := g.modules[name]
	return id, ok
}

func (g *Graph) newScope(kind ScopeKind, parent ScopeID, owner ast.ID) ScopeID {
	value, err := safecast.Conv[uint32](len(g.data))
	if err != nil {
		panic(fmt.Errorf("scopes arena overflow: %w", err))
	}
	id := ScopeID(value)
	g.data = append(g.data, Scope{
		Kind:      kind,
		Parent:    parent,
		Owner:     owner,
		NameIndex: make(map[source.StringID][]ast.ID),
	})
	if parent.IsValid() {
		g.data[parent].Children = append(g.data[parent].Children, id)
	}
	g.byOwner[owner] = id
	return id
}

func (g *Graph) declare(scope ScopeID, name source.StringID, id ast.ID) {
	if name == 0 {
		return
	}
	s := &g.data[scope]
	s.NameIndex[name] = append(s.NameIndex[name], id)
}

// buildScope opens a scope for a symbol declaration and fills it.
func (g *Graph) buildScope(kind ScopeKind, parent ScopeID, owner ast.NodeID) ScopeID {
	sid := g.newScope(kind, parent, g.prog.IDOf(owner))
	n := g.prog.Node(owner)
	switch n.Tag {
	case ast.TagFunction:
		for _, c := range n.Children {
			if c == n.Body {
				continue // body gets its own block scope below
			}
			g.collect(sid, c)
		}
		if n.Body.IsValid() {
			g.buildScope(ScopeBlock, sid, n.Body)
		}
	default:
		for _, c := range n.Children {
			g.collect(sid, c)
		}
	}
	return sid
}

// collect declares n into scope and descends into statements that do
// not open a scope of their own.
func (g *Graph) collect(scope ScopeID, nid ast.NodeID) {
	n := g.prog.Node(nid)
	switch n.Tag {
	case ast.TagModule:
		g.declare(scope, n.Name, g.prog.IDOf(nid))
		g.buildScope(ScopeModule, scope, nid)
	case ast.TagRecord, ast.TagClass, ast.TagUnion:
		g.declare(scope, n.Name, g.prog.IDOf(nid))
		g.buildScope(ScopeAggregate, scope, nid)
	case ast.TagFunction:
		g.declare(scope, n.Name, g.prog.IDOf(nid))
		g.buildScope(ScopeFunction, scope, nid)
	case ast.TagFormal, ast.TagVarArgFormal:
		g.declare(scope, n.Name, g.prog.IDOf(nid))
		// Type queries in a formal's type expression bind in the same
		// scope as the formal itself.
		if n.TypeExpr.IsValid() {
			g.collect(scope, n.TypeExpr)
		}
	case ast.TagVariable:
		g.declare(scope, n.Name, g.prog.IDOf(nid))
	case ast.TagMultiDecl:
		for _, c := range n.Children {
			g.collect(scope, c)
		}
	case ast.TagTupleDecl:
		for _, c := range n.Children {
			if c != n.InitExpr {
				g.collect(scope, c)
			}
		}
	case ast.TagForwardingDecl:
		s := &g.data[scope]
		s.Forwarding = append(s.Forwarding, g.prog.IDOf(nid))
		// A forwarding field still declares its name.
		for _, c := range n.Children {
			if g.prog.Node(c).Tag == ast.TagVariable {
				g.collect(scope, c)
			}
		}
	case ast.TagBlock:
		g.buildScope(ScopeBlock, scope, nid)
	case ast.TagTypeQuery:
		g.declare(scope, n.Name, g.prog.IDOf(nid))
	default:
		// Expressions may contain type queries that bind names in the
		// enclosing scope (formal type expressions).
		for _, c := range n.Children {
			g.collect(scope, c)
		}
	}
}
