package resolution

import (
	"testing"

	"litho/internal/ast"
	"litho/internal/diag"
	"litho/internal/query"
	"litho/internal/source"
	"litho/internal/types"
)

func newTestResolver(t *testing.T, prog *ast.Program) (*Resolver, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(64)
	qc := query.NewContext(diag.BagReporter{Bag: bag})
	r := New(qc)
	r.SetProgram(prog)
	return r, bag
}

func symID(t *testing.T, prog *ast.Program, path string) ast.ID {
	t.Helper()
	id, ok := prog.Strings.Find(path)
	if !ok {
		t.Fatalf("symbol %s not in program", path)
	}
	return ast.ID{Symbol: id, Postorder: -1}
}

func mustName(t *testing.T, prog *ast.Program, s string) source.StringID {
	t.Helper()
	id, ok := prog.Strings.Find(s)
	if !ok {
		t.Fatalf("name %s not interned", s)
	}
	return id
}

// mainFixture assembles:
//
//	module M {
//	  record Pair { var a: int; var b: int; }
//	  record Box { var x; }
//	  proc f(x: int) { return x; }
//	  proc f(x: real) { return x; }
//	  proc ok() where true { return 1; }
//	  proc ok() where false { return 2; }
//	  proc idf(x) { return x; }
//	  proc sum(xs...) { return 0; }
//	  var p = Pair(1, 2);
//	  var bx = Box(x=5);
//	  var c = f(1);
//	  var w = ok();
//	}
type mainFixture struct {
	prog *ast.Program

	pDecl, bxDecl, cDecl, wDecl ast.NodeID
	callF, callOk               ast.NodeID
	boxX                        ast.NodeID
}

func buildMain(t *testing.T) *mainFixture {
	t.Helper()
	b := ast.NewBuilder(nil)
	fx := &mainFixture{}

	pa := b.Variable("a", ast.IntentVar, b.Ident("int"), ast.NoNodeID)
	pb := b.Variable("b", ast.IntentVar, b.Ident("int"), ast.NoNodeID)
	pair := b.Record("Pair", source.Span{}, pa, pb)

	fx.boxX = b.Variable("x", ast.IntentVar, ast.NoNodeID, ast.NoNodeID)
	box := b.Record("Box", source.Span{}, fx.boxX)

	fInt := b.Function(ast.FnSpec{
		Name:    "f",
		Formals: []ast.NodeID{b.Formal("x", ast.IntentDefault, b.Ident("int"), ast.NoNodeID)},
		Body:    b.Block(b.Return(b.Ident("x"))),
	})
	fReal := b.Function(ast.FnSpec{
		Name:    "f",
		Formals: []ast.NodeID{b.Formal("x", ast.IntentDefault, b.Ident("real"), ast.NoNodeID)},
		Body:    b.Block(b.Return(b.Ident("x"))),
	})

	okTrue := b.Function(ast.FnSpec{
		Name:  "ok",
		Where: b.BoolLit(true),
		Body:  b.Block(b.Return(b.IntLit(1))),
	})
	okFalse := b.Function(ast.FnSpec{
		Name:  "ok",
		Where: b.BoolLit(false),
		Body:  b.Block(b.Return(b.IntLit(2))),
	})

	idf := b.Function(ast.FnSpec{
		Name:    "idf",
		Formals: []ast.NodeID{b.Formal("x", ast.IntentDefault, ast.NoNodeID, ast.NoNodeID)},
		Body:    b.Block(b.Return(b.Ident("x"))),
	})
	sum := b.Function(ast.FnSpec{
		Name:    "sum",
		Formals: []ast.NodeID{b.VarArgFormal("xs", ast.NoNodeID, ast.NoNodeID)},
		Body:    b.Block(b.Return(b.IntLit(0))),
	})

	pairCall := b.Call(b.Ident("Pair"), b.IntLit(1), b.IntLit(2))
	fx.pDecl = b.Variable("p", ast.IntentVar, ast.NoNodeID, pairCall)
	boxCall := b.Call(b.Ident("Box"), b.Named("x", b.IntLit(5)))
	fx.bxDecl = b.Variable("bx", ast.IntentVar, ast.NoNodeID, boxCall)
	fx.callF = b.Call(b.Ident("f"), b.IntLit(1))
	fx.cDecl = b.Variable("c", ast.IntentVar, ast.NoNodeID, fx.callF)
	fx.callOk = b.Call(b.Ident("ok"))
	fx.wDecl = b.Variable("w", ast.IntentVar, ast.NoNodeID, fx.callOk)

	b.Module("M", source.Span{},
		pair, box, fInt, fReal, okTrue, okFalse, idf, sum,
		fx.pDecl, fx.bxDecl, fx.cDecl, fx.wDecl)
	fx.prog = b.Finish()
	return fx
}

func TestConcreteTypeConstructor(t *testing.T) {
	fx := buildMain(t)
	r, bag := newTestResolver(t, fx.prog)

	pairT := r.NominalFor(symID(t, fx.prog, "M.Pair"))
	ctor := r.TypeConstructorFor(pairT)
	if ctor == nil {
		t.Fatalf("no type constructor for Pair")
	}
	if got := ctor.Untyped.NumFormals(); got != 0 {
		t.Fatalf("concrete type constructor has %d formals, want 0", got)
	}
	if ctor.NeedsInstantiation {
		t.Fatalf("concrete type constructor needs instantiation")
	}

	mr := r.ResolveModule(symID(t, fx.prog, "M"))
	re := mr.Result.ByID(fx.prog.IDOf(fx.pDecl))
	if re == nil {
		t.Fatalf("no result for p")
	}
	if re.Type.Type != pairT {
		t.Fatalf("p resolved to %v, want Pair", re.Type)
	}
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
}

func TestGenericTypeConstructorInstantiation(t *testing.T) {
	fx := buildMain(t)
	r, _ := newTestResolver(t, fx.prog)

	boxT := r.NominalFor(symID(t, fx.prog, "M.Box"))
	ctor := r.TypeConstructorFor(boxT)
	if ctor == nil || ctor.Untyped.NumFormals() != 1 {
		t.Fatalf("Box type constructor should have exactly the generic field as formal")
	}
	if !ctor.NeedsInstantiation {
		t.Fatalf("Box type constructor should need instantiation")
	}

	intT := r.Types.Builtins().Int
	ci := &CallInfo{
		Name: ctor.Untyped.Name,
		Actuals: []CallActual{
			{Type: types.MakeParam(intT, types.IntParam(5)), ByName: mustName(t, fx.prog, "x")},
		},
	}
	res := r.InstantiateSignature(ctor, ci, nil)
	if !res.Success {
		t.Fatalf("instantiation failed: %s", res.Failure)
	}
	if res.Sig.NeedsInstantiation {
		t.Fatalf("instantiated signature still needs instantiation")
	}
	if res.Sig.InstantiatedFrom != ctor {
		t.Fatalf("instantiatedFrom does not point at the initial signature")
	}
	if !res.Sig.FormalInstantiated(0) || res.Sig.FormalsInstantiated != 1 {
		t.Fatalf("formalsInstantiated = %b, want bit 0 only", res.Sig.FormalsInstantiated)
	}
	if res.Sig.Formals[0].Type != intT {
		t.Fatalf("x substituted to %v, want int", res.Sig.Formals[0])
	}

	// through the construction expression the substitution lands on the
	// nominal type
	mr := r.ResolveModule(symID(t, fx.prog, "M"))
	re := mr.Result.ByID(fx.prog.IDOf(fx.bxDecl))
	if re == nil {
		t.Fatalf("no result for bx")
	}
	sub, ok := r.Types.SubFor(re.Type.Type, fx.prog.IDOf(fx.boxX))
	if !ok || sub.Type != intT {
		t.Fatalf("Box(x=5) substitution = %v (ok=%t), want int", sub, ok)
	}
}

// TestGenericQueryArgConstruction checks `GBox(?)`: the `?` actual
// asks for the generic type itself, so construction succeeds with the
// generic field left unsubstituted instead of failing applicability.
func TestGenericQueryArgConstruction(t *testing.T) {
	b := ast.NewBuilder(nil)
	gx := b.Variable("x", ast.IntentVar, ast.NoNodeID, ast.NoNodeID)
	gy := b.Variable("y", ast.IntentVar, b.Ident("int"), b.IntLit(0))
	gbox := b.Record("GBox", source.Span{}, gx, gy)
	call := b.Call(b.Ident("GBox"), b.Question())
	g := b.Variable("g", ast.IntentVar, ast.NoNodeID, call)
	b.Module("Q", source.Span{}, gbox, g)
	prog := b.Finish()

	r, bag := newTestResolver(t, prog)
	mr := r.ResolveModule(symID(t, prog, "Q"))

	re := mr.Result.ByID(prog.IDOf(call))
	if re == nil || r.Types.IsErroneous(re.Type.Type) {
		t.Fatalf("GBox(?) resolved to %v, want a generic GBox", re)
	}
	root := r.NominalFor(symID(t, prog, "Q.GBox"))
	if r.Types.Root(re.Type.Type) != root {
		t.Fatalf("GBox(?) built %v, want a GBox instantiation", re.Type)
	}
	if _, ok := r.Types.SubFor(re.Type.Type, prog.IDOf(gx)); ok {
		t.Fatalf("`?` must leave the generic field unsubstituted")
	}
	if gen := r.TypeGenericity(re.Type.Type); gen != types.Generic {
		t.Fatalf("GBox(?) genericity = %v, want generic", gen)
	}
	for _, it := range bag.Items() {
		if it.Code == diag.ResInvalidTypeConstruction {
			t.Fatalf("GBox(?) reported invalid construction: %v", it)
		}
	}
}

func TestDisambiguationPrefersExactMatch(t *testing.T) {
	fx := buildMain(t)
	r, _ := newTestResolver(t, fx.prog)

	mr := r.ResolveModule(symID(t, fx.prog, "M"))
	re := mr.Result.ByID(fx.prog.IDOf(fx.callF))
	if re == nil {
		t.Fatalf("no result for f(1)")
	}
	if len(re.MostSpecific) != 1 {
		t.Fatalf("f(1) has %d most-specific candidates, want 1", len(re.MostSpecific))
	}
	if got := re.MostSpecific[0].Formals[0].Type; got != r.Types.Builtins().Int {
		t.Fatalf("f(1) chose the %v overload, want int", got)
	}
}

func TestNoMatchingCallDiagnostic(t *testing.T) {
	b := ast.NewBuilder(nil)
	call := b.Call(b.Ident("g"))
	d := b.Variable("d", ast.IntentVar, ast.NoNodeID, call)
	b.Module("N", source.Span{}, d)
	prog := b.Finish()

	r, bag := newTestResolver(t, prog)
	mr := r.ResolveModule(symID(t, prog, "N"))

	re := mr.Result.ByID(prog.IDOf(call))
	if re == nil || !r.Types.IsErroneous(re.Type.Type) {
		t.Fatalf("g() should resolve to the erroneous type, got %v", re)
	}
	found := 0
	for _, it := range bag.Items() {
		if it.Code == diag.ResNoMatchingCall {
			found++
		}
	}
	if found != 1 {
		t.Fatalf("%d no-matching-call diagnostics, want 1", found)
	}
}

func TestFieldsIdempotent(t *testing.T) {
	fx := buildMain(t)
	r, _ := newTestResolver(t, fx.prog)

	pairT := r.NominalFor(symID(t, fx.prog, "M.Pair"))
	first := r.FieldsForTypeDecl(pairT, UseDefaultsOtherFields)
	second := r.FieldsForTypeDecl(pairT, UseDefaultsOtherFields)
	if first != second {
		t.Fatalf("field resolution not memoized: distinct results for one key")
	}
	if first.IsGeneric || first.IsGenericWithDefaults {
		t.Fatalf("Pair classified generic")
	}
}

func TestDefaultsPolicyEquivalenceForConcrete(t *testing.T) {
	fx := buildMain(t)
	r, _ := newTestResolver(t, fx.prog)

	pairT := r.NominalFor(symID(t, fx.prog, "M.Pair"))
	base := r.FieldsForTypeDecl(pairT, IgnoreDefaults)
	for _, policy := range []DefaultsPolicy{UseDefaultsOtherFields, UseDefaults} {
		got := r.FieldsForTypeDecl(pairT, policy)
		if len(got.Fields) != len(base.Fields) {
			t.Fatalf("policy %s: %d fields, want %d", policy, len(got.Fields), len(base.Fields))
		}
		for i := range got.Fields {
			if got.Fields[i].Type != base.Fields[i].Type {
				t.Fatalf("policy %s: field %d is %v, want %v",
					policy, i, got.Fields[i].Type, base.Fields[i].Type)
			}
		}
	}
}

func TestWhereClauseFiltersCandidates(t *testing.T) {
	fx := buildMain(t)
	r, _ := newTestResolver(t, fx.prog)

	mr := r.ResolveModule(symID(t, fx.prog, "M"))
	re := mr.Result.ByID(fx.prog.IDOf(fx.callOk))
	if re == nil || len(re.MostSpecific) != 1 {
		t.Fatalf("ok() should resolve to exactly one overload")
	}
	if re.MostSpecific[0].Where != WhereTrue {
		t.Fatalf("ok() chose a candidate with where=%s, want true", re.MostSpecific[0].Where)
	}
}

func TestVarArgCollection(t *testing.T) {
	fx := buildMain(t)
	r, _ := newTestResolver(t, fx.prog)

	u := r.UntypedSignatureFor(symID(t, fx.prog, "M.sum"))
	sig := r.InitialSignature(u)
	if sig == nil || !sig.NeedsInstantiation {
		t.Fatalf("variadic signature should need instantiation")
	}

	intT := r.Types.Builtins().Int
	ci := &CallInfo{Name: u.Name}
	for i := int64(1); i <= 3; i++ {
		ci.Actuals = append(ci.Actuals, CallActual{Type: types.MakeParam(intT, types.IntParam(i))})
	}
	res := r.InstantiateSignature(sig, ci, nil)
	if !res.Success {
		t.Fatalf("vararg instantiation failed: %s", res.Failure)
	}
	if res.Sig.NeedsInstantiation {
		t.Fatalf("instantiated variadic signature still needs instantiation")
	}
	tup := r.Types.Tuple(res.Sig.Formals[0].Type)
	if tup == nil || len(tup.Elems) != 3 {
		t.Fatalf("vararg formal did not collect 3 actuals: %v", res.Sig.Formals[0])
	}
}

func TestInstantiationMonotonicity(t *testing.T) {
	fx := buildMain(t)
	r, _ := newTestResolver(t, fx.prog)

	u := r.UntypedSignatureFor(symID(t, fx.prog, "M.idf"))
	sig := r.InitialSignature(u)
	if sig == nil || !sig.NeedsInstantiation {
		t.Fatalf("idf's initial signature should need instantiation")
	}

	ci := &CallInfo{
		Name:    u.Name,
		Actuals: []CallActual{{Type: types.Make(types.QualVar, r.Types.Builtins().Int)}},
	}
	res := r.InstantiateSignature(sig, ci, nil)
	if !res.Success {
		t.Fatalf("instantiation failed: %s", res.Failure)
	}
	if res.Sig.NeedsInstantiation {
		t.Fatalf("fully substituted signature still needs instantiation")
	}
	if res.Sig.InstantiatedFrom != sig {
		t.Fatalf("instantiatedFrom does not link back to the initial signature")
	}
	if res.Sig.FormalsInstantiated != 1 {
		t.Fatalf("formalsInstantiated = %b, want exactly bit 0", res.Sig.FormalsInstantiated)
	}

	// same call shape yields the identical interned signature
	again := r.InstantiateSignature(sig, ci, nil)
	if again.Sig != res.Sig {
		t.Fatalf("re-instantiation produced a distinct signature")
	}
}

func TestModuleResolutionDeterministic(t *testing.T) {
	fx := buildMain(t)
	r, _ := newTestResolver(t, fx.prog)

	m := symID(t, fx.prog, "M")
	first := r.ResolveModule(m)
	second := r.ResolveModule(m)
	if first != second {
		t.Fatalf("module resolution not memoized within a revision")
	}
}

func TestForwardingCycleSingleDiagnostic(t *testing.T) {
	b := ast.NewBuilder(nil)
	fa := b.Variable("b", ast.IntentVar, b.Ident("B"), ast.NoNodeID)
	recA := b.Record("A", source.Span{}, b.Forwarding(fa))
	fb := b.Variable("a", ast.IntentVar, b.Ident("A"), ast.NoNodeID)
	recB := b.Record("B", source.Span{}, b.Forwarding(fb))
	b.Module("F", source.Span{}, recA, recB)
	prog := b.Finish()

	r, bag := newTestResolver(t, prog)
	aT := r.NominalFor(symID(t, prog, "F.A"))
	if !r.HasForwardingCycle(aT) {
		t.Fatalf("A<->B forwarding cycle not detected")
	}
	// re-asking within the revision must not duplicate the diagnostic
	_ = r.HasForwardingCycle(aT)

	cycles := 0
	for _, it := range bag.Items() {
		if it.Code == diag.ResForwardingCycle {
			cycles++
		}
	}
	if cycles != 1 {
		t.Fatalf("%d forwarding-cycle diagnostics, want 1", cycles)
	}
}

// TestPoiVisibleFunction exercises the point-of-instantiation walk: a
// generic function's body calls a name only visible at the call site.
//
//	module P {
//	  proc apply(x) { return helper(x); }
//	  proc run() {
//	    proc helper(y: int) { return y; }
//	    var v = apply(1);
//	  }
//	}
func TestPoiVisibleFunction(t *testing.T) {
	b := ast.NewBuilder(nil)

	apply := b.Function(ast.FnSpec{
		Name:    "apply",
		Formals: []ast.NodeID{b.Formal("x", ast.IntentDefault, ast.NoNodeID, ast.NoNodeID)},
		Body:    b.Block(b.Return(b.Call(b.Ident("helper"), b.Ident("x")))),
	})
	helper := b.Function(ast.FnSpec{
		Name:    "helper",
		Formals: []ast.NodeID{b.Formal("y", ast.IntentDefault, b.Ident("int"), ast.NoNodeID)},
		Body:    b.Block(b.Return(b.Ident("y"))),
	})
	applyCall := b.Call(b.Ident("apply"), b.IntLit(1))
	v := b.Variable("v", ast.IntentVar, ast.NoNodeID, applyCall)
	run := b.Function(ast.FnSpec{
		Name: "run",
		Body: b.Block(helper, v),
	})
	b.Module("P", source.Span{}, apply, run)
	prog := b.Finish()

	r, bag := newTestResolver(t, prog)
	rf := r.ResolveConcreteFunction(symID(t, prog, "P.run"))
	if rf == nil {
		t.Fatalf("run did not resolve")
	}
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}

	re := rf.Result.ByID(prog.IDOf(v))
	if re == nil || re.Type.Type != r.Types.Builtins().Int {
		t.Fatalf("v resolved to %v, want int", re)
	}

	call := rf.Result.ByID(prog.IDOf(applyCall))
	if call == nil || len(call.MostSpecific) != 1 || call.MostSpecific[0].InstantiatedFrom == nil {
		t.Fatalf("apply(1) should choose one instantiated candidate")
	}
	if len(rf.PoiInfo.PoiFnIdsUsed) == 0 {
		t.Fatalf("POI usage of helper not recorded")
	}
	if len(rf.PoiInfo.PoiScopesUsed) == 0 {
		t.Fatalf("the POI scope helper was found through is not recorded")
	}
}

func TestRecursionRecordsMarker(t *testing.T) {
	// proc loop(n: int) { return loop(n); }
	b := ast.NewBuilder(nil)
	loop := b.Function(ast.FnSpec{
		Name:    "loop",
		Formals: []ast.NodeID{b.Formal("n", ast.IntentDefault, b.Ident("int"), ast.NoNodeID)},
		Body:    b.Block(b.Return(b.Call(b.Ident("loop"), b.Ident("n")))),
	})
	b.Module("R", source.Span{}, loop)
	prog := b.Finish()

	r, _ := newTestResolver(t, prog)
	rf := r.ResolveConcreteFunction(symID(t, prog, "R.loop"))
	if rf == nil {
		t.Fatalf("loop did not resolve")
	}
	if len(rf.PoiInfo.RecursiveFnsUsed) != 1 {
		t.Fatalf("recursive self-call not recorded, got %d markers", len(rf.PoiInfo.RecursiveFnsUsed))
	}
}
