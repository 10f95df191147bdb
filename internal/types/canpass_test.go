package types

import (
	"testing"

	"litho/internal/ast"
)

func TestCanPassExactAndConversion(t *testing.T) {
	in := NewInterner()
	bt := in.Builtins()

	r := in.CanPass(Make(QualConstVar, bt.Int), Make(QualIn, bt.Int))
	if !r.Passes || r.Converts || r.Instantiates {
		t.Fatalf("int->int: %+v", r)
	}

	r = in.CanPass(Make(QualConstVar, bt.Int), Make(QualIn, bt.Real))
	if !r.Passes || !r.Converts {
		t.Fatalf("int->real should convert: %+v", r)
	}

	r = in.CanPass(Make(QualConstVar, bt.Real), Make(QualIn, bt.Int))
	if r.Passes {
		t.Fatalf("real->int must not pass: %+v", r)
	}
	if r.Reason != FailTypeMismatch {
		t.Fatalf("real->int reason = %s", r.Reason)
	}
}

func TestCanPassGenericFormal(t *testing.T) {
	in := NewInterner()
	bt := in.Builtins()

	// untyped formal instantiates from any value actual
	r := in.CanPass(Make(QualConstVar, bt.String), Make(QualIn, bt.Any))
	if !r.Passes || !r.Instantiates {
		t.Fatalf("string->any: %+v", r)
	}

	// erroneous actuals pass everywhere
	r = in.CanPass(Make(QualConstVar, bt.Erroneous), Make(QualIn, bt.Int))
	if !r.Passes {
		t.Fatalf("erroneous actual must pass: %+v", r)
	}

	// unknown actuals never pass
	r = in.CanPass(UnknownQT, Make(QualIn, bt.Int))
	if r.Passes || r.Reason != FailUnknownActual {
		t.Fatalf("unknown actual: %+v", r)
	}
}

func TestCanPassParamFormal(t *testing.T) {
	in := NewInterner()
	bt := in.Builtins()

	formal := Make(QualParam, bt.Int)
	r := in.CanPass(MakeParam(bt.Int, IntParam(3)), formal)
	if !r.Passes || !r.Instantiates {
		t.Fatalf("param 3 -> param formal: %+v", r)
	}

	r = in.CanPass(Make(QualVar, bt.Int), formal)
	if r.Passes || r.Reason != FailParamRequired {
		t.Fatalf("var -> param formal: %+v", r)
	}

	pinned := MakeParam(bt.Int, IntParam(4))
	r = in.CanPass(MakeParam(bt.Int, IntParam(3)), pinned)
	if r.Passes || r.Reason != FailParamValueMismatch {
		t.Fatalf("param 3 -> param 4 formal: %+v", r)
	}
}

func TestCanPassTypeWorld(t *testing.T) {
	in := NewInterner()
	bt := in.Builtins()

	r := in.CanPass(MakeType(bt.Int), Make(QualIn, bt.Int))
	if r.Passes || r.Reason != FailTypeValueMismatch {
		t.Fatalf("type actual to value formal: %+v", r)
	}
	r = in.CanPass(MakeType(bt.Int), MakeType(bt.Any))
	if !r.Passes || !r.Instantiates {
		t.Fatalf("type int -> type formal: %+v", r)
	}
}

func TestCanPassNominalInstantiation(t *testing.T) {
	in := NewInterner()
	bt := in.Builtins()

	box := in.NewNominal(ast.ID{Symbol: 1, Postorder: -1})
	field := ast.ID{Symbol: 1, Postorder: 0}
	boxInt := in.InstantiateNominal(box, []Sub{{Decl: field, Value: MakeType(bt.Int)}}, true)
	boxReal := in.InstantiateNominal(box, []Sub{{Decl: field, Value: MakeType(bt.Real)}}, true)

	if boxInt == box || boxInt == boxReal {
		t.Fatalf("instantiations must be distinct types")
	}
	if got := in.InstantiateNominal(box, []Sub{{Decl: field, Value: MakeType(bt.Int)}}, true); got != boxInt {
		t.Fatalf("equal substitutions must intern to the same type")
	}

	// generic formal accepts any instantiation
	r := in.CanPass(Make(QualConstVar, boxInt), Make(QualIn, box))
	if !r.Passes || !r.Instantiates {
		t.Fatalf("Box(int) -> Box: %+v", r)
	}

	// pinned instantiation rejects a different one
	r = in.CanPass(Make(QualConstVar, boxReal), Make(QualIn, boxInt))
	if r.Passes {
		t.Fatalf("Box(real) -> Box(int) must not pass: %+v", r)
	}
}

func TestCanPassSubclass(t *testing.T) {
	in := NewInterner()

	base := in.NewNominal(ast.ID{Symbol: 1, Postorder: -1})
	derived := in.NewNominal(ast.ID{Symbol: 2, Postorder: -1})
	in.SetParent(derived, base)

	r := in.CanPass(Make(QualConstVar, derived), Make(QualIn, base))
	if !r.Passes || !r.Converts {
		t.Fatalf("Derived -> Base should convert: %+v", r)
	}
	r = in.CanPass(Make(QualConstVar, base), Make(QualIn, derived))
	if r.Passes {
		t.Fatalf("Base -> Derived must not pass: %+v", r)
	}
}

func TestGenericityCombination(t *testing.T) {
	if CombineGenericity(Concrete, Generic) != Generic {
		t.Fatalf("concrete+generic")
	}
	if CombineGenericity(GenericWithDefaults, MaybeGeneric) != MaybeGeneric {
		t.Fatalf("defaults+maybe")
	}
	if CombineGenericity(Concrete, GenericWithDefaults) != GenericWithDefaults {
		t.Fatalf("concrete+defaults")
	}

	in := NewInterner()
	bt := in.Builtins()
	if g := in.ShallowGenericity(bt.Int); g != Concrete {
		t.Fatalf("int genericity = %s", g)
	}
	if g := in.ShallowGenericity(bt.Any); g != Generic {
		t.Fatalf("any genericity = %s", g)
	}
	box := in.NewNominal(ast.ID{Symbol: 1, Postorder: -1})
	if g := in.ShallowGenericity(box); g != MaybeGeneric {
		t.Fatalf("nominal genericity = %s", g)
	}
	if g := in.QTGenericity(Make(QualParam, bt.Int)); g != Generic {
		t.Fatalf("unvalued param genericity = %s", g)
	}
}
