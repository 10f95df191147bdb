package ast

import (
	"litho/internal/source"
)

// Builder constructs a Program the way the parser frontend does:
// leaves first, then enclosing declarations, then Finish to freeze the
// forest and assign stable IDs.
type Builder struct {
	prog     *Program
	finished bool
}

func NewBuilder(strings *source.Interner) *Builder {
	return &Builder{prog: newProgram(strings)}
}

func (b *Builder) add(n Node) NodeID {
	if b.finished {
		panic("ast: Builder used after Finish")
	}
	return b.prog.newNode(n)
}

func (b *Builder) name(s string) source.StringID {
	return b.prog.Strings.Intern(s)
}

// Finish freezes the program and computes the stable-ID index.
func (b *Builder) Finish() *Program {
	if b.finished {
		panic("ast: Finish called twice")
	}
	b.finished = true
	b.prog.assignIDs()
	return b.prog
}

func (b *Builder) Module(name string, span source.Span, children ...NodeID) NodeID {
	id := b.add(Node{Tag: TagModule, Name: b.name(name), Span: span, Children: children})
	b.prog.modules = append(b.prog.modules, id)
	return id
}

func (b *Builder) Record(name string, span source.Span, fields ...NodeID) NodeID {
	return b.add(Node{Tag: TagRecord, Name: b.name(name), Span: span, Children: fields})
}

// Class declares a class; inherits may be NoNodeID for a root class.
func (b *Builder) Class(name string, span source.Span, inherits NodeID, fields ...NodeID) NodeID {
	children := fields
	if inherits.IsValid() {
		children = append([]NodeID{inherits}, fields...)
	}
	return b.add(Node{Tag: TagClass, Name: b.name(name), Span: span, Children: children, Inherits: inherits})
}

func (b *Builder) Union(name string, span source.Span, fields ...NodeID) NodeID {
	return b.add(Node{Tag: TagUnion, Name: b.name(name), Span: span, Children: fields})
}

// FnSpec carries the pieces of a function declaration.
type FnSpec struct {
	Name    string
	Span    source.Span
	Flags   Flags
	Formals []NodeID
	Where   NodeID
	Body    NodeID
}

func (b *Builder) Function(spec FnSpec) NodeID {
	children := append([]NodeID(nil), spec.Formals...)
	if spec.Where.IsValid() {
		children = append(children, spec.Where)
	}
	if spec.Body.IsValid() {
		children = append(children, spec.Body)
	}
	return b.add(Node{
		Tag:      TagFunction,
		Name:     b.name(spec.Name),
		Span:     spec.Span,
		Flags:    spec.Flags,
		Children: children,
		Where:    spec.Where,
		Body:     spec.Body,
	})
}

// Formal declares one formal; typeExpr and dflt may be NoNodeID.
func (b *Builder) Formal(name string, intent Intent, typeExpr, dflt NodeID) NodeID {
	var children []NodeID
	if typeExpr.IsValid() {
		children = append(children, typeExpr)
	}
	if dflt.IsValid() {
		children = append(children, dflt)
	}
	return b.add(Node{
		Tag: TagFormal, Name: b.name(name), Intent: intent,
		Children: children, TypeExpr: typeExpr, InitExpr: dflt,
	})
}

// VarArgFormal declares a variadic catch-all formal; count may be
// NoNodeID for an unbounded one.
func (b *Builder) VarArgFormal(name string, typeExpr, count NodeID) NodeID {
	var children []NodeID
	if typeExpr.IsValid() {
		children = append(children, typeExpr)
	}
	if count.IsValid() {
		children = append(children, count)
	}
	return b.add(Node{
		Tag: TagVarArgFormal, Name: b.name(name),
		Children: children, TypeExpr: typeExpr, VarArgCount: count,
	})
}

func (b *Builder) Variable(name string, intent Intent, typeExpr, init NodeID) NodeID {
	var children []NodeID
	if typeExpr.IsValid() {
		children = append(children, typeExpr)
	}
	if init.IsValid() {
		children = append(children, init)
	}
	return b.add(Node{
		Tag: TagVariable, Name: b.name(name), Intent: intent,
		Children: children, TypeExpr: typeExpr, InitExpr: init,
	})
}

// MultiDecl groups several variable declarations sharing one statement.
func (b *Builder) MultiDecl(decls ...NodeID) NodeID {
	return b.add(Node{Tag: TagMultiDecl, Children: decls})
}

// TupleDecl destructures init into the given variable declarations.
func (b *Builder) TupleDecl(init NodeID, decls ...NodeID) NodeID {
	children := append([]NodeID(nil), decls...)
	if init.IsValid() {
		children = append(children, init)
	}
	return b.add(Node{Tag: TagTupleDecl, Children: children, InitExpr: init})
}

// Forwarding transparently exposes the target's members. The target is
// either a field declaration or an expression.
func (b *Builder) Forwarding(target NodeID) NodeID {
	return b.add(Node{Tag: TagForwardingDecl, Children: []NodeID{target}})
}

func (b *Builder) Block(stmts ...NodeID) NodeID {
	return b.add(Node{Tag: TagBlock, Children: stmts})
}

func (b *Builder) Return(expr NodeID) NodeID {
	var children []NodeID
	if expr.IsValid() {
		children = append(children, expr)
	}
	return b.add(Node{Tag: TagReturn, Children: children})
}

// Call builds a call; Children[0] is the callee, the rest are actuals.
func (b *Builder) Call(callee NodeID, actuals ...NodeID) NodeID {
	return b.add(Node{Tag: TagCall, Children: append([]NodeID{callee}, actuals...)})
}

// Named wraps an actual with a by-name binding.
func (b *Builder) Named(name string, actual NodeID) NodeID {
	n := b.prog.Node(actual)
	n.ByName = b.name(name)
	return actual
}

func (b *Builder) Ident(name string) NodeID {
	return b.add(Node{Tag: TagIdentifier, Name: b.name(name)})
}

// Dot is member access: receiver.field.
func (b *Builder) Dot(receiver NodeID, field string) NodeID {
	return b.add(Node{Tag: TagDot, Name: b.name(field), Children: []NodeID{receiver}})
}

// TypeQuery is a `?n`-style binding inside a formal's type expression.
func (b *Builder) TypeQuery(name string) NodeID {
	return b.add(Node{Tag: TagTypeQuery, Name: b.name(name)})
}

// Question is the `?` generic-query actual.
func (b *Builder) Question() NodeID {
	return b.add(Node{Tag: TagQuestionArg})
}

func (b *Builder) IntLit(v int64) NodeID {
	return b.add(Node{Tag: TagIntLiteral, IntVal: v})
}

func (b *Builder) RealLit(v float64) NodeID {
	return b.add(Node{Tag: TagRealLiteral, RealVal: v})
}

func (b *Builder) BoolLit(v bool) NodeID {
	return b.add(Node{Tag: TagBoolLiteral, BoolVal: v})
}

func (b *Builder) StringLit(v string) NodeID {
	return b.add(Node{Tag: TagStringLiteral, StrVal: b.name(v)})
}
