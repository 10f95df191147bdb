package ast

import (
	"litho/internal/source"
)

// Intent is the declared storage/passing intent of a formal or field.
type Intent uint8

const (
	IntentDefault Intent = iota
	IntentVar
	IntentConst
	IntentRef
	IntentIn
	IntentOut
	IntentInout
	IntentType
	IntentParam
)

func (i Intent) String() string {
	switch i {
	case IntentVar:
		return "var"
	case IntentConst:
		return "const"
	case IntentRef:
		return "ref"
	case IntentIn:
		return "in"
	case IntentOut:
		return "out"
	case IntentInout:
		return "inout"
	case IntentType:
		return "type"
	case IntentParam:
		return "param"
	default:
		return "default"
	}
}

// Flags carry boolean node properties.
type Flags uint16

const (
	FlagMethod Flags = 1 << iota
	FlagParenless
	FlagThrows
	FlagCompilerGenerated
	FlagOperator
)

// Node is one arena slot. Fields beyond Tag/Span/Children are used by
// the tags that need them and zero elsewhere.
type Node struct {
	Tag      Tag
	Intent   Intent
	Flags    Flags
	Name     source.StringID
	Span     source.Span
	Children []NodeID

	// declarations
	TypeExpr    NodeID // declared type expression
	InitExpr    NodeID // default value expression
	VarArgCount NodeID // count expression for vararg formals
	Where       NodeID // function where-clause
	Body        NodeID // function body block
	Inherits    NodeID // class parent expression

	// literals and bindings
	IntVal  int64
	RealVal float64
	BoolVal bool
	StrVal  source.StringID
	ByName  source.StringID // actual's by-name binding inside a call
}

func (n *Node) HasFlag(f Flags) bool { return n.Flags&f != 0 }

// IsMethod reports whether a function node is a method.
func (n *Node) IsMethod() bool { return n.Tag == TagFunction && n.HasFlag(FlagMethod) }

// IsParenless reports whether a function node is parenless.
func (n *Node) IsParenless() bool { return n.Tag == TagFunction && n.HasFlag(FlagParenless) }
