package types

import (
	"fmt"

	"litho/internal/source"
)

// Qual is the storage/usage qualifier half of a qualified type. It
// tracks what kind of entity an expression denotes, not just its type.
type Qual uint8

const (
	QualUnknown Qual = iota
	QualType
	QualParam
	QualConstVar
	QualVar
	QualRef
	QualRefMaybeConst
	QualIn
	QualOut
	QualInout
	QualFunction
	QualModule
	QualParenlessFunction
)

func (q Qual) String() string {
	switch q {
	case QualType:
		return "type"
	case QualParam:
		return "param"
	case QualConstVar:
		return "const"
	case QualVar:
		return "var"
	case QualRef:
		return "ref"
	case QualRefMaybeConst:
		return "ref-maybe-const"
	case QualIn:
		return "in"
	case QualOut:
		return "out"
	case QualInout:
		return "inout"
	case QualFunction:
		return "function"
	case QualModule:
		return "module"
	case QualParenlessFunction:
		return "parenless function"
	default:
		return "unknown"
	}
}

// ParamKind discriminates compile-time param values.
type ParamKind uint8

const (
	ParamNone ParamKind = iota
	ParamInt
	ParamReal
	ParamBool
	ParamString
)

// ParamValue is a compile-time constant. Comparable so qualified types
// can key memo tables directly.
type ParamValue struct {
	Kind ParamKind
	Int  int64
	Real float64
	Bool bool
	Str  source.StringID
}

var NoParam = ParamValue{}

func IntParam(v int64) ParamValue    { return ParamValue{Kind: ParamInt, Int: v} }
func RealParam(v float64) ParamValue { return ParamValue{Kind: ParamReal, Real: v} }
func BoolParam(v bool) ParamValue    { return ParamValue{Kind: ParamBool, Bool: v} }
func StringParam(s source.StringID) ParamValue {
	return ParamValue{Kind: ParamString, Str: s}
}

func (p ParamValue) Known() bool { return p.Kind != ParamNone }

func (p ParamValue) String() string {
	switch p.Kind {
	case ParamInt:
		return fmt.Sprintf("%d", p.Int)
	case ParamReal:
		return fmt.Sprintf("%g", p.Real)
	case ParamBool:
		return fmt.Sprintf("%t", p.Bool)
	case ParamString:
		return fmt.Sprintf("string#%d", p.Str)
	default:
		return "<none>"
	}
}

// QualifiedType pairs a qualifier, a type and an optional param value.
// The zero value is the fully unknown qualified type. Comparable.
type QualifiedType struct {
	Qual  Qual
	Type  TypeID
	Param ParamValue
}

var UnknownQT = QualifiedType{}

func Make(q Qual, t TypeID) QualifiedType {
	return QualifiedType{Qual: q, Type: t}
}

func MakeParam(t TypeID, v ParamValue) QualifiedType {
	return QualifiedType{Qual: QualParam, Type: t, Param: v}
}

func MakeType(t TypeID) QualifiedType {
	return QualifiedType{Qual: QualType, Type: t}
}

func (qt QualifiedType) IsUnknown() bool {
	return qt.Qual == QualUnknown && !qt.Type.IsValid()
}

func (qt QualifiedType) IsType() bool  { return qt.Qual == QualType }
func (qt QualifiedType) IsParam() bool { return qt.Qual == QualParam }

// IsNonType reports a value-world entity (not a type, module or
// function).
func (qt QualifiedType) IsNonType() bool {
	switch qt.Qual {
	case QualType, QualModule, QualFunction, QualParenlessFunction, QualUnknown:
		return false
	default:
		return true
	}
}

// HasParamValue reports whether this is a param with a known value.
func (qt QualifiedType) HasParamValue() bool {
	return qt.Qual == QualParam && qt.Param.Known()
}
