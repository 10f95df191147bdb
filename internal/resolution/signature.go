package resolution

import (
	"fmt"
	"strings"

	"litho/internal/ast"
	"litho/internal/source"
	"litho/internal/types"
)

// WhereResult records the state of a signature's where clause.
type WhereResult uint8

const (
	// WhereNone means the function has no where clause.
	WhereNone WhereResult = iota
	WhereTrue
	WhereFalse
	// WhereTBD means the clause references still-generic formals and
	// must be re-evaluated after instantiation.
	WhereTBD
)

func (w WhereResult) String() string {
	switch w {
	case WhereTrue:
		return "true"
	case WhereFalse:
		return "false"
	case WhereTBD:
		return "tbd"
	default:
		return "none"
	}
}

// UntypedFormal is one formal as declared, before type resolution.
type UntypedFormal struct {
	Name       source.StringID
	Decl       ast.ID
	HasDefault bool
	IsVarArgs  bool
}

// UntypedSignature captures the shape of a function or type
// constructor without any resolved types. Interned by content: equal
// shapes from different paths share one pointer.
type UntypedSignature struct {
	ID                ast.ID // declaring function or aggregate
	Name              source.StringID
	IsMethod          bool
	IsParenless       bool
	IsTypeConstructor bool
	CompilerGenerated bool
	Throws            bool
	Formals           []UntypedFormal
}

func (u *UntypedSignature) NumFormals() int { return len(u.Formals) }

// IsInit reports initializer signatures, which get eager body
// resolution during instantiation.
func (u *UntypedSignature) IsInit(strs *source.Interner) bool {
	name, _ := strs.Lookup(u.Name)
	return name == "init" || name == "init="
}

// TypedSignature pairs an untyped signature with resolved formal
// types. Instances are content-interned and immutable; instantiation
// produces a new instance linked through InstantiatedFrom.
type TypedSignature struct {
	Untyped *UntypedSignature
	Formals []types.QualifiedType
	Where   WhereResult

	NeedsInstantiation bool
	InstantiatedFrom   *TypedSignature
	ParentFn           *TypedSignature

	// FormalsInstantiated has bit i set when formal i was substituted
	// by the most recent instantiation step.
	FormalsInstantiated uint64
}

// FormalInstantiated reports bit i of the substitution bitmap.
func (t *TypedSignature) FormalInstantiated(i int) bool {
	return i < 64 && t.FormalsInstantiated&(1<<uint(i)) != 0
}

// InstantiationDepth counts instantiatedFrom links back to the initial
// signature.
func (t *TypedSignature) InstantiationDepth() int {
	n := 0
	for cur := t.InstantiatedFrom; cur != nil; cur = cur.InstantiatedFrom {
		n++
	}
	return n
}

func untypedKey(u *UntypedSignature) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "u|%d:%d|%d|%t%t%t%t%t", u.ID.Symbol, u.ID.Postorder, u.Name,
		u.IsMethod, u.IsParenless, u.IsTypeConstructor, u.CompilerGenerated, u.Throws)
	for _, f := range u.Formals {
		fmt.Fprintf(&sb, "|%d,%d:%d,%t,%t", f.Name, f.Decl.Symbol, f.Decl.Postorder, f.HasDefault, f.IsVarArgs)
	}
	return sb.String()
}

func typedKey(t *TypedSignature) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "t|%s|%d|%t|%d", untypedKey(t.Untyped), t.Where, t.NeedsInstantiation, t.FormalsInstantiated)
	for _, qt := range t.Formals {
		fmt.Fprintf(&sb, "|%d:%d:%s", qt.Qual, qt.Type, qt.Param)
	}
	if t.InstantiatedFrom != nil {
		fmt.Fprintf(&sb, "|from=%p", t.InstantiatedFrom)
	}
	if t.ParentFn != nil {
		fmt.Fprintf(&sb, "|parent=%p", t.ParentFn)
	}
	return sb.String()
}

// internUntyped deduplicates by content.
func (r *Resolver) internUntyped(u *UntypedSignature) *UntypedSignature {
	key := untypedKey(u)
	if got, ok := r.untypedSigs[key]; ok {
		return got
	}
	r.untypedSigs[key] = u
	return u
}

// internTyped deduplicates by content; pointer equality then means
// content equality for the rest of the session.
func (r *Resolver) internTyped(t *TypedSignature) *TypedSignature {
	key := typedKey(t)
	if got, ok := r.typedSigs[key]; ok {
		return got
	}
	r.typedSigs[key] = t
	return t
}
