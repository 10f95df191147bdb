package ast

// Tag is the closed set of node kinds the resolver understands.
// Dispatch is by switching on Tag, not by downcasts.
type Tag uint8

const (
	TagInvalid Tag = iota

	// symbol-introducing declarations
	TagModule
	TagFunction
	TagRecord
	TagClass
	TagUnion

	// non-symbol declarations
	TagFormal
	TagVarArgFormal
	TagVariable
	TagMultiDecl
	TagTupleDecl
	TagForwardingDecl

	// statements / expressions
	TagBlock
	TagReturn
	TagCall
	TagIdentifier
	TagDot
	TagTypeQuery
	TagQuestionArg
	TagIntLiteral
	TagRealLiteral
	TagBoolLiteral
	TagStringLiteral
)

func (t Tag) String() string {
	switch t {
	case TagModule:
		return "module"
	case TagFunction:
		return "function"
	case TagRecord:
		return "record"
	case TagClass:
		return "class"
	case TagUnion:
		return "union"
	case TagFormal:
		return "formal"
	case TagVarArgFormal:
		return "vararg-formal"
	case TagVariable:
		return "variable"
	case TagMultiDecl:
		return "multi-decl"
	case TagTupleDecl:
		return "tuple-decl"
	case TagForwardingDecl:
		return "forwarding"
	case TagBlock:
		return "block"
	case TagReturn:
		return "return"
	case TagCall:
		return "call"
	case TagIdentifier:
		return "identifier"
	case TagDot:
		return "dot"
	case TagTypeQuery:
		return "type-query"
	case TagQuestionArg:
		return "question-arg"
	case TagIntLiteral:
		return "int-literal"
	case TagRealLiteral:
		return "real-literal"
	case TagBoolLiteral:
		return "bool-literal"
	case TagStringLiteral:
		return "string-literal"
	default:
		return "invalid"
	}
}

// IsSymbolDecl reports whether the node introduces a new symbol scope
// (and therefore a new ID symbol path segment).
func (t Tag) IsSymbolDecl() bool {
	switch t {
	case TagModule, TagFunction, TagRecord, TagClass, TagUnion:
		return true
	}
	return false
}

// IsAggregateDecl reports whether the node declares a composite type.
func (t Tag) IsAggregateDecl() bool {
	switch t {
	case TagRecord, TagClass, TagUnion:
		return true
	}
	return false
}

// IsFieldDecl reports whether the node can declare fields inside an
// aggregate (including forwarding declarations over a field).
func (t Tag) IsFieldDecl() bool {
	switch t {
	case TagVariable, TagMultiDecl, TagTupleDecl, TagForwardingDecl:
		return true
	}
	return false
}

func (t Tag) IsFunction() bool { return t == TagFunction }
func (t Tag) IsModule() bool   { return t == TagModule }
