package types

// FailReason says why an actual cannot pass to a formal.
type FailReason uint8

const (
	FailNone FailReason = iota
	FailUnknownActual
	FailTypeMismatch
	FailQualifierMismatch
	FailParamRequired
	FailTypeValueMismatch
	FailParamValueMismatch
)

func (r FailReason) String() string {
	switch r {
	case FailNone:
		return "ok"
	case FailUnknownActual:
		return "actual type unknown"
	case FailTypeMismatch:
		return "incompatible types"
	case FailQualifierMismatch:
		return "incompatible intents"
	case FailParamRequired:
		return "param value required"
	case FailTypeValueMismatch:
		return "type and value mixed"
	case FailParamValueMismatch:
		return "param value mismatch"
	default:
		return "invalid"
	}
}

// CanPassResult reports whether and how an actual can pass to a formal.
type CanPassResult struct {
	Passes       bool
	Instantiates bool
	Converts     bool
	Promotes     bool
	Reason       FailReason
}

func passAsIs() CanPassResult       { return CanPassResult{Passes: true} }
func passConvert() CanPassResult    { return CanPassResult{Passes: true, Converts: true} }
func passInst() CanPassResult       { return CanPassResult{Passes: true, Instantiates: true} }
func fail(r FailReason) CanPassResult { return CanPassResult{Reason: r} }

// CanPass decides whether actual can be passed to formal, and whether
// doing so instantiates, converts or promotes. Erroneous actuals pass
// everywhere so one error does not cascade.
func (in *Interner) CanPass(actual, formal QualifiedType) CanPassResult {
	if in.IsErroneous(actual.Type) {
		return passAsIs()
	}
	if actual.IsUnknown() {
		return fail(FailUnknownActual)
	}

	// type-world and value-world must not mix
	if formal.IsType() != actual.IsType() {
		return fail(FailTypeValueMismatch)
	}

	// param formals require param-known actuals
	if formal.Qual == QualParam {
		if !actual.HasParamValue() {
			return fail(FailParamRequired)
		}
		if formal.Param.Known() && formal.Param != actual.Param {
			return fail(FailParamValueMismatch)
		}
	}

	if !in.qualOK(actual.Qual, formal.Qual) {
		return fail(FailQualifierMismatch)
	}

	res := in.canPassType(actual.Type, formal.Type)
	if !res.Passes {
		return res
	}
	// an unvalued param formal instantiates with the actual's value
	if formal.Qual == QualParam && !formal.Param.Known() {
		res.Instantiates = true
	}
	return res
}

// canPassType decides type compatibility alone.
func (in *Interner) canPassType(actual, formal TypeID) CanPassResult {
	// untyped or fully generic formal: instantiate with the actual
	if !formal.IsValid() || formal == in.builtins.Unknown || formal == in.builtins.Any {
		return passInst()
	}
	if actual == formal {
		return passAsIs()
	}

	ft, _ := in.Lookup(formal)
	at, _ := in.Lookup(actual)

	switch ft.Kind {
	case KindReal:
		// numeric widening
		if at.Kind == KindInt {
			return passConvert()
		}
	case KindNominal:
		return in.canPassNominal(actual, formal)
	case KindTuple:
		return in.canPassTuple(actual, formal)
	}
	return fail(FailTypeMismatch)
}

// canPassNominal handles generic-nominal instantiation and subclass
// conversion.
func (in *Interner) canPassNominal(actual, formal TypeID) CanPassResult {
	finfo := in.Nominal(formal)
	ainfo := in.Nominal(actual)
	if ainfo == nil {
		return fail(FailTypeMismatch)
	}

	// walk up the actual's superclass chain for class conversion
	for cur := actual; cur.IsValid(); {
		info := in.Nominal(cur)
		if info == nil {
			break
		}
		if cur == formal {
			return passConvert()
		}
		if info.Decl == finfo.Decl {
			// same aggregate; an uninstantiated or partial formal
			// accepts a further-instantiated actual
			if in.acceptsInstantiation(cur, formal) {
				res := passInst()
				if cur != actual {
					res.Converts = true
				}
				return res
			}
			return fail(FailTypeMismatch)
		}
		cur = info.Parent
	}
	return fail(FailTypeMismatch)
}

// acceptsInstantiation reports whether actual is an instantiation
// compatible with formal: every substitution formal pins down must
// match the actual's.
func (in *Interner) acceptsInstantiation(actual, formal TypeID) bool {
	finfo := in.Nominal(formal)
	if len(finfo.Subs) == 0 {
		return true
	}
	for _, s := range finfo.Subs {
		av, ok := in.SubFor(actual, s.Decl)
		if !ok || av != s.Value {
			return false
		}
	}
	return true
}

func (in *Interner) canPassTuple(actual, formal TypeID) CanPassResult {
	at := in.Tuple(actual)
	ft := in.Tuple(formal)
	if at == nil || len(at.Elems) != len(ft.Elems) {
		return fail(FailTypeMismatch)
	}
	out := passAsIs()
	for i := range ft.Elems {
		r := in.CanPass(at.Elems[i], ft.Elems[i])
		if !r.Passes {
			return fail(FailTypeMismatch)
		}
		out.Instantiates = out.Instantiates || r.Instantiates
		out.Converts = out.Converts || r.Converts
	}
	return out
}

// qualOK checks intent compatibility of an actual passed to a formal.
func (in *Interner) qualOK(actual, formal Qual) bool {
	switch formal {
	case QualUnknown, QualConstVar, QualIn, QualVar:
		// by-value passing accepts any value-world actual
		return actual != QualModule && actual != QualFunction
	case QualParam:
		return actual == QualParam
	case QualType:
		return actual == QualType
	case QualRef, QualOut, QualInout:
		// needs a mutable lvalue
		switch actual {
		case QualVar, QualRef, QualRefMaybeConst, QualOut, QualInout:
			return true
		}
		return false
	case QualRefMaybeConst:
		return actual != QualModule && actual != QualFunction && actual != QualType
	default:
		return false
	}
}

// InstantiationType computes the qualified type a generic formal takes
// on when instantiated by the given actual: the actual's type with the
// formal's declared qualifier kept where it is meaningful.
func (in *Interner) InstantiationType(actual, formal QualifiedType) QualifiedType {
	out := formal
	out.Type = actual.Type
	if formal.Qual == QualUnknown {
		out.Qual = actual.Qual
	}
	if formal.Qual == QualParam {
		out.Param = actual.Param
	}
	return out
}
