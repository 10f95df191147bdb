package scopes

import (
	"litho/internal/ast"
	"litho/internal/source"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid   ScopeKind = iota
	ScopeModule              // module-level declarations
	ScopeAggregate           // record, class or union body
	ScopeFunction            // formals, where clause and body
	ScopeBlock               // generic block scope
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeAggregate:
		return "aggregate"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

// Scope models a lexical scope with a parent-child hierarchy. The name
// index maps a declared name to the IDs declaring it, in declaration
// order; overloads share one entry.
type Scope struct {
	Kind       ScopeKind
	Parent     ScopeID
	Owner      ast.ID
	NameIndex  map[source.StringID][]ast.ID
	Forwarding []ast.ID // forwarding statements, declaration order
	Children   []ScopeID
}
