package scopes

import (
	"litho/internal/ast"
	"litho/internal/source"
)

// LookupConfig selects which declarations a name lookup may see.
type LookupConfig uint8

const (
	// LookupDecls considers declarations made directly in a scope.
	LookupDecls LookupConfig = 1 << iota
	// LookupImportAndUse makes top-level modules visible by name.
	LookupImportAndUse
	// LookupParents walks outward through enclosing scopes.
	LookupParents
	// LookupInnermost stops at the first scope that yields any match.
	LookupInnermost
	// LookupOnlyMethodsFields restricts matches to methods and fields.
	LookupOnlyMethodsFields
	// LookupMethods additionally searches the receiver scopes.
	LookupMethods
)

// LookupDefault is the configuration ordinary identifier resolution
// uses.
const LookupDefault = LookupDecls | LookupImportAndUse | LookupParents | LookupInnermost

// LookupNameInScope resolves name starting at scope. receivers are the
// aggregate scopes of a method's receiver type, searched with
// inheritance, when LookupMethods or LookupOnlyMethodsFields is set.
// Results are in discovery order; overloads from one scope stay
// adjacent.
func (g *Graph) LookupNameInScope(scope ScopeID, receivers []ScopeID, name source.StringID, cfg LookupConfig) []ast.ID {
	var out []ast.ID
	visited := make(map[ScopeID]struct{})

	appendReceivers := func() {
		if cfg&(LookupMethods|LookupOnlyMethodsFields) == 0 {
			return
		}
		for _, r := range receivers {
			g.gatherWithInheritance(r, name, cfg, visited, &out)
		}
	}

	cur := scope
	for cur.IsValid() {
		before := len(out)
		g.gather(cur, name, cfg, visited, &out)
		if g.data[cur].Kind == ScopeFunction {
			// Receiver members shadow declarations outside the method.
			appendReceivers()
		}
		if len(out) > before && cfg&LookupInnermost != 0 {
			return out
		}
		if cfg&LookupParents == 0 {
			break
		}
		cur = g.data[cur].Parent
	}

	// A lookup that never crossed a function scope (e.g. starting at an
	// aggregate) still consults the receivers.
	appendReceivers()
	if len(out) > 0 && cfg&LookupInnermost != 0 {
		return out
	}

	if cfg&LookupImportAndUse != 0 {
		if m, ok := g.modules[name]; ok {
			out = append(out, m)
		}
	}
	return out
}

// gather collects matching declarations from a single scope.
func (g *Graph) gather(scope ScopeID, name source.StringID, cfg LookupConfig, visited map[ScopeID]struct{}, out *[]ast.ID) {
	if _, ok := visited[scope]; ok {
		return
	}
	visited[scope] = struct{}{}
	if cfg&LookupDecls == 0 {
		return
	}
	for _, id := range g.data[scope].NameIndex[name] {
		if cfg&LookupOnlyMethodsFields != 0 && !g.isMethodOrField(id) {
			continue
		}
		*out = append(*out, id)
	}
}

// gatherWithInheritance searches an aggregate scope and then its
// superclass chain.
func (g *Graph) gatherWithInheritance(scope ScopeID, name source.StringID, cfg LookupConfig, visited map[ScopeID]struct{}, out *[]ast.ID) {
	for scope.IsValid() {
		g.gather(scope, name, cfg, visited, out)
		scope = g.parentClassScope(scope)
	}
}

// parentClassScope resolves the superclass of an aggregate scope's
// owner, if any, to its scope.
func (g *Graph) parentClassScope(scope ScopeID) ScopeID {
	owner := g.data[scope].Owner
	n := g.prog.IDToNode(owner)
	if n == nil || n.Tag != ast.TagClass || !n.Inherits.IsValid() {
		return NoScopeID
	}
	parentName := g.prog.Node(n.Inherits).Name
	found := g.LookupNameInScope(g.data[scope].Parent, nil, parentName, LookupDefault)
	for _, id := range found {
		if pn := g.prog.IDToNode(id); pn != nil && pn.Tag == ast.TagClass {
			return g.ScopeFor(id)
		}
	}
	return NoScopeID
}

// isMethodOrField reports whether a declaration is a method or a field
// of an aggregate.
func (g *Graph) isMethodOrField(id ast.ID) bool {
	n := g.prog.IDToNode(id)
	if n == nil {
		return false
	}
	switch n.Tag {
	case ast.TagFunction:
		return n.Flags&ast.FlagMethod != 0
	case ast.TagVariable:
		parent := g.prog.IDToNode(g.prog.IDToParentID(id))
		return parent != nil && parent.Tag.IsAggregateDecl()
	default:
		return false
	}
}
