package types

// Kind discriminates type descriptors.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindUnknown marks a type not yet established. It is distinct
	// from erroneous: resolution may still fill it in.
	KindUnknown
	// KindErroneous marks a type produced by a failed resolution. It
	// propagates without producing further diagnostics.
	KindErroneous
	// KindAny is the fully generic placeholder that any type can
	// instantiate.
	KindAny
	KindNothing
	KindVoid
	KindBool
	KindInt
	KindReal
	KindString
	// KindNominal is a record, class or union, possibly partially or
	// fully instantiated. Payload indexes the nominal side table.
	KindNominal
	// KindTuple is an anonymous tuple, also used for collected vararg
	// actuals. Payload indexes the tuple side table.
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindErroneous:
		return "erroneous"
	case KindAny:
		return "any"
	case KindNothing:
		return "nothing"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindNominal:
		return "nominal"
	case KindTuple:
		return "tuple"
	default:
		return "invalid"
	}
}

// Type is one interned descriptor. Payload is meaningful for nominal
// and tuple kinds only.
type Type struct {
	Kind    Kind
	Payload uint32
}
