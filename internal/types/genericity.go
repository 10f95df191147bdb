package types

// Genericity classifies how instantiated a type is.
type Genericity uint8

const (
	// Concrete types need no instantiation.
	Concrete Genericity = iota
	// Generic types need instantiation before use.
	Generic
	// GenericWithDefaults types are generic, but every generic field
	// carries a default, so they behave concretely when used without
	// explicit arguments.
	GenericWithDefaults
	// MaybeGeneric means the classification needs field information
	// that only the resolver can supply.
	MaybeGeneric
)

func (g Genericity) String() string {
	switch g {
	case Concrete:
		return "concrete"
	case Generic:
		return "generic"
	case GenericWithDefaults:
		return "generic-with-defaults"
	case MaybeGeneric:
		return "maybe-generic"
	default:
		return "invalid"
	}
}

// CombineGenericity merges the classification of a component into an
// aggregate's. Generic dominates; MaybeGeneric taints anything not
// already Generic.
func CombineGenericity(a, b Genericity) Genericity {
	if a == Generic || b == Generic {
		return Generic
	}
	if a == MaybeGeneric || b == MaybeGeneric {
		return MaybeGeneric
	}
	if a == GenericWithDefaults || b == GenericWithDefaults {
		return GenericWithDefaults
	}
	return Concrete
}

// ShallowGenericity classifies a type without consulting fields.
// Nominal types report MaybeGeneric unless already marked as full
// instantiations; the resolver refines those using field information.
func (in *Interner) ShallowGenericity(id TypeID) Genericity {
	t, ok := in.Lookup(id)
	if !ok {
		return MaybeGeneric
	}
	switch t.Kind {
	case KindAny, KindUnknown:
		return Generic
	case KindNominal:
		if in.nominals[t.Payload].Instantiated {
			return Concrete
		}
		return MaybeGeneric
	case KindTuple:
		g := Concrete
		for _, e := range in.tuples[t.Payload].Elems {
			g = CombineGenericity(g, in.ShallowGenericity(e.Type))
		}
		return g
	default:
		return Concrete
	}
}

// QTGenericity classifies a qualified type. A param formal without a
// value is generic regardless of the underlying type.
func (in *Interner) QTGenericity(qt QualifiedType) Genericity {
	if qt.Qual == QualParam && !qt.Param.Known() {
		return Generic
	}
	if qt.IsUnknown() {
		return Generic
	}
	return in.ShallowGenericity(qt.Type)
}
