package resolution

import (
	"litho/internal/ast"
	"litho/internal/diag"
	"litho/internal/scopes"
	"litho/internal/source"
	"litho/internal/types"
)

func spanOf(n *ast.Node) source.Span {
	if n == nil {
		return source.Span{}
	}
	return n.Span
}

// candidate is one applicable signature with how it bound.
type candidate struct {
	Sig      *TypedSignature
	Result   ApplicabilityResult
	FromPoi  bool
	PoiScope *PoiScope
}

// CallResolution is the outcome of resolving one call site.
type CallResolution struct {
	Type         types.QualifiedType
	MostSpecific []*TypedSignature
	Poi          *PoiScope
}

// ResolveCall resolves one call node in its lexical position, under an
// optional POI scope. Entry point for drivers and tools; body
// resolution goes through resolveCallExpr with its accumulated env.
func (r *Resolver) ResolveCall(call ast.ID, poi *PoiScope) CallResolution {
	prog := r.prog()
	nid := prog.NodeForID(call)
	n := prog.Node(nid)
	if n == nil || n.Tag != ast.TagCall {
		return CallResolution{Type: types.Make(types.QualUnknown, r.Types.Builtins().Erroneous)}
	}
	scope := r.graph().ScopeForID(call)
	return r.resolveCallExpr(scope, nid, newEnv(poi))
}

// resolveCallExpr shapes and resolves a call expression under the
// env's POI context.
func (r *Resolver) resolveCallExpr(scope scopes.ScopeID, callNid ast.NodeID, env *env) CallResolution {
	prog := r.prog()
	bt := r.Types.Builtins()

	// a callee naming a type is explicit type construction
	calleeNid := prog.Node(callNid).Children[0]
	if r.calleeNamesType(scope, calleeNid, env) {
		qt := r.resolveTypeConstruction(scope, callNid, env)
		return CallResolution{Type: qt}
	}

	ci := r.buildCallInfo(scope, callNid, env)
	if ci == nil {
		return CallResolution{Type: types.Make(types.QualUnknown, bt.Erroneous)}
	}
	return r.resolveCallInfo(ci, prog.IDOf(callNid), scope, env)
}

// calleeNamesType reports whether the callee resolves to a type
// without emitting diagnostics for the probe.
func (r *Resolver) calleeNamesType(scope scopes.ScopeID, calleeNid ast.NodeID, env *env) bool {
	n := r.prog().Node(calleeNid)
	if n.Tag != ast.TagIdentifier {
		return false
	}
	if _, ok := r.builtinType(n.Name); ok {
		return true
	}
	g := r.graph()
	found := g.LookupNameInScope(scope, nil, n.Name, scopes.LookupDefault)
	if len(found) == 0 {
		return false
	}
	dn := r.prog().IDToNode(found[0])
	if dn != nil && dn.Tag.IsAggregateDecl() {
		return true
	}
	// a type formal or type field bound to a nominal also constructs
	if qt, ok := env.sub(found[0]); ok {
		return qt.IsType() && r.Types.Kind(qt.Type) == types.KindNominal
	}
	return false
}

// resolveCallInfo runs the candidate gathering stages in order:
// compiler-generated, lexical, POI walk, forwarding; then
// disambiguates.
func (r *Resolver) resolveCallInfo(ci *CallInfo, callID ast.ID, scope scopes.ScopeID, env *env) CallResolution {
	bt := r.Types.Builtins()

	cands := r.gatherCompilerGenerated(ci, env)

	// stage 2: lexical scope, no POI
	lexical := r.gatherAtScope(ci, scope, env, nil)
	cands = append(cands, lexical...)

	// stage 3: POI walk, stopping at the first scope that yields
	if len(cands) == 0 {
		for poi := env.poi; poi != nil; poi = poi.InFnPoi {
			found := r.gatherAtScope(ci, poi.Scope, env, poi)
			if len(found) > 0 {
				cands = append(cands, found...)
				break
			}
		}
	}

	// stage 4: forwarding
	if len(cands) == 0 && ci.IsMethodCall && !r.isInsideForwarding(callID) {
		cands = r.gatherViaForwarding(ci, callID, scope, env)
	}

	best := r.disambiguate(cands, ci)
	switch len(best) {
	case 0:
		n := r.prog().IDToNode(callID)
		r.report(diag.ResNoMatchingCall, diag.SevError, spanOf(n),
			"no matching function for call to "+r.strings().MustLookup(ci.Name))
		return CallResolution{Type: types.Make(types.QualUnknown, bt.Erroneous)}
	case 1:
		chosen := best[0]
		if chosen.FromPoi && env.poiInfo != nil {
			env.poiInfo.addIdsUsed(callID, chosen.Sig.Untyped.ID)
			env.poiInfo.addScopeUsed(chosen.PoiScope)
		}
		ret := r.returnTypeOf(chosen, scope, env)
		return CallResolution{Type: ret, MostSpecific: []*TypedSignature{chosen.Sig}, Poi: env.poi}
	default:
		n := r.prog().IDToNode(callID)
		r.report(diag.ResAmbiguousCall, diag.SevError, spanOf(n),
			"ambiguous call to "+r.strings().MustLookup(ci.Name))
		sigs := make([]*TypedSignature, len(best))
		for i, c := range best {
			sigs[i] = c.Sig
		}
		return CallResolution{Type: types.Make(types.QualUnknown, bt.Erroneous), MostSpecific: sigs, Poi: env.poi}
	}
}

// gatherCompilerGenerated produces candidates the language synthesizes
// rather than the user declaring: today the type constructor reached
// through a type-valued callee.
func (r *Resolver) gatherCompilerGenerated(ci *CallInfo, env *env) []candidate {
	if !ci.IsMethodCall || ci.CalledType.Type == types.NoTypeID {
		return nil
	}
	if !ci.CalledType.IsType() {
		return nil
	}
	// method-style construction T.init and similar resolve through the
	// type constructor
	root := r.Types.Root(ci.CalledType.Type)
	ctor := r.typeCtorQ.Get(root)
	if ctor == nil {
		return nil
	}
	if ctor.Untyped.Name != ci.Name && !isInitName(r, ci.Name) {
		return nil
	}
	res := r.applyCandidate(ctor, ci, env)
	if !res.Success {
		return nil
	}
	return []candidate{{Sig: res.Sig, Result: res}}
}

func isInitName(r *Resolver, name source.StringID) bool {
	s, _ := r.strings().Lookup(name)
	return s == "init" || s == "init="
}

// gatherAtScope looks the callee up at one scope, filters by
// applicability and instantiates what needs it.
func (r *Resolver) gatherAtScope(ci *CallInfo, scope scopes.ScopeID, env *env, poi *PoiScope) []candidate {
	g := r.graph()
	cfg := scopes.LookupDefault
	var receivers []scopes.ScopeID
	if ci.IsMethodCall {
		receivers = r.receiverScopes(ci.CalledType)
		cfg |= scopes.LookupMethods
	}
	found := g.LookupNameInScope(scope, receivers, ci.Name, cfg)

	var out []candidate
	for _, declID := range found {
		dn := r.prog().IDToNode(declID)
		if dn == nil || dn.Tag != ast.TagFunction {
			continue
		}
		u := r.untypedSigQ.Get(declID)
		if u == nil || !r.isUntypedApplicable(u, ci) {
			continue
		}
		initial := r.initialSigQ.Get(u)
		if initial == nil || initial.Where == WhereFalse {
			continue
		}
		if !r.receiverApplies(u, ci) {
			continue
		}
		res := r.applyCandidate(initial, ci, env)
		if !res.Success {
			continue
		}
		out = append(out, candidate{Sig: res.Sig, Result: res, FromPoi: poi != nil, PoiScope: poi})
	}
	return out
}

// isUntypedApplicable is the cheap shape filter: method-ness and
// paren-ness must agree; arity is checked by the formal-actual map.
func (r *Resolver) isUntypedApplicable(u *UntypedSignature, ci *CallInfo) bool {
	if u.IsMethod != ci.IsMethodCall {
		return false
	}
	if u.IsParenless != ci.IsParenless {
		return false
	}
	return true
}

// receiverApplies checks a method candidate's aggregate against the
// call's receiver type.
func (r *Resolver) receiverApplies(u *UntypedSignature, ci *CallInfo) bool {
	if !u.IsMethod {
		return true
	}
	owner := r.prog().EnclosingSymbolID(u.ID)
	on := r.prog().IDToNode(owner)
	if on == nil || !on.Tag.IsAggregateDecl() {
		return true
	}
	ownerType := r.nominalQ.Get(owner)
	recv := ci.CalledType
	if recv.IsType() {
		return r.Types.Root(recv.Type) == ownerType
	}
	return r.Types.CanPass(recv, types.Make(types.QualIn, ownerType)).Passes
}

// applyCandidate checks applicability of one initial signature,
// instantiating when needed.
func (r *Resolver) applyCandidate(initial *TypedSignature, ci *CallInfo, env *env) ApplicabilityResult {
	if initial.NeedsInstantiation {
		return r.InstantiateSignature(initial, ci, env.poi)
	}
	m := buildFormalActualMap(initial, ci)
	if m.Failed {
		return notApplicable(FailArity, m.FailingActual)
	}
	converts := false
	for i := range m.ByFormal {
		fa := &m.ByFormal[i]
		if !fa.HasActual {
			continue
		}
		cp := r.Types.CanPass(fa.ActualType, fa.FormalType)
		if !cp.Passes {
			return notApplicable(FailFormalType, i)
		}
		converts = converts || cp.Converts
	}
	return ApplicabilityResult{Success: true, Sig: initial, Converts: converts}
}

// receiverScopes maps the receiver's type (and its superclasses,
// handled by lookup) to aggregate scopes.
func (r *Resolver) receiverScopes(recv types.QualifiedType) []scopes.ScopeID {
	if r.Types.Kind(recv.Type) != types.KindNominal {
		return nil
	}
	info := r.Types.Nominal(r.Types.Root(recv.Type))
	s := r.graph().ScopeFor(info.Decl)
	if !s.IsValid() {
		return nil
	}
	return []scopes.ScopeID{s}
}

// isInsideForwarding guards forwarding re-entry: a call lexically
// inside a forwarding declaration must not itself resolve through
// forwarding.
func (r *Resolver) isInsideForwarding(callID ast.ID) bool {
	prog := r.prog()
	for cur := prog.NodeForID(callID); cur.IsValid(); cur = prog.ParentOf(cur) {
		if prog.Node(cur).Tag == ast.TagForwardingDecl {
			return true
		}
	}
	return false
}

// gatherViaForwarding re-issues the lookup once per forwarding target
// of the receiver type, recursively through forwarded forwarding.
func (r *Resolver) gatherViaForwarding(ci *CallInfo, callID ast.ID, scope scopes.ScopeID, env *env) []candidate {
	recvRoot := r.Types.Root(ci.CalledType.Type)
	if !recvRoot.IsValid() || r.Types.Kind(recvRoot) != types.KindNominal {
		return nil
	}
	if r.fwdCycleQ.Get(recvRoot) {
		return nil
	}
	var out []candidate
	for _, target := range r.forwardingTargets(recvRoot) {
		fwdCI := *ci
		fwdCI.CalledType = types.Make(ci.CalledType.Qual, target)
		out = append(out, r.gatherAtScope(&fwdCI, scope, env, nil)...)
		if len(out) == 0 {
			// forwarding chains: retry through the target's own
			// forwarding declarations
			out = append(out, r.gatherViaForwarding(&fwdCI, callID, scope, env)...)
		}
	}
	return out
}

// returnTypeOf resolves the chosen candidate's body when needed to
// learn its return type and accumulate its POI usage. Recursive
// self-reference records a marker instead of recursing.
func (r *Resolver) returnTypeOf(c candidate, scope scopes.ScopeID, env *env) types.QualifiedType {
	sig := c.Sig
	bt := r.Types.Builtins()

	if sig.Untyped.IsTypeConstructor {
		return types.MakeType(r.constructedType(sig))
	}
	if sig.NeedsInstantiation {
		return types.Make(types.QualUnknown, bt.Unknown)
	}
	fnNode := r.prog().IDToNode(sig.Untyped.ID)
	if fnNode == nil || !fnNode.Body.IsValid() {
		return types.Make(types.QualConstVar, bt.Void)
	}

	if r.activeBodies[sig] > 0 {
		if env.poiInfo != nil {
			env.poiInfo.addRecursive(sig)
		}
		return types.Make(types.QualUnknown, bt.Unknown)
	}

	bodyPoi := env.poi
	if c.Result.Instantiated {
		// the call site becomes the head of the instantiation's POI
		// chain
		bodyPoi = r.PoiScopeFor(scope, env.poi)
	}
	rf := r.ResolveFunction(sig, bodyPoi)
	if rf == nil {
		return types.Make(types.QualUnknown, bt.Unknown)
	}
	if env.poiInfo != nil {
		env.poiInfo.accumulate(&rf.PoiInfo)
	}
	return rf.ReturnType
}

// constructedType builds the nominal instantiation a fully-applied
// type constructor denotes.
func (r *Resolver) constructedType(sig *TypedSignature) types.TypeID {
	root := r.nominalQ.Get(sig.Untyped.ID)
	var subs []types.Sub
	for i, f := range sig.Untyped.Formals {
		if sig.FormalInstantiated(i) || !r.isGenericQT(sig.Formals[i]) {
			subs = append(subs, types.Sub{Decl: f.Decl, Value: sig.Formals[i]})
		}
	}
	return r.Types.InstantiateNominal(root, subs, !sig.NeedsInstantiation)
}

// resolveTypeConstruction handles MyType(...) in any position.
func (r *Resolver) resolveTypeConstruction(scope scopes.ScopeID, callNid ast.NodeID, env *env) types.QualifiedType {
	prog := r.prog()
	n := prog.Node(callNid)
	bt := r.Types.Builtins()
	calleeQT := r.resolveTypeExpr(scope, n.Children[0], env)
	if !calleeQT.IsType() || r.Types.Kind(calleeQT.Type) != types.KindNominal {
		if r.Types.IsErroneous(calleeQT.Type) {
			return types.Make(types.QualUnknown, bt.Erroneous)
		}
		r.report(diag.ResInvalidTypeConstruction, diag.SevError, n.Span,
			"this expression cannot be instantiated")
		return types.Make(types.QualUnknown, bt.Erroneous)
	}

	root := r.Types.Root(calleeQT.Type)
	ctor := r.typeCtorQ.Get(root)
	if ctor == nil {
		r.report(diag.ResInvalidTypeConstruction, diag.SevError, n.Span,
			"this expression cannot be instantiated")
		return types.Make(types.QualUnknown, bt.Erroneous)
	}

	ci := &CallInfo{Name: ctor.Untyped.Name}
	for _, a := range n.Children[1:] {
		an := prog.Node(a)
		if an.Tag == ast.TagQuestionArg {
			ci.HasQuestionArg = true
			ci.Actuals = append(ci.Actuals, CallActual{
				IsQuestion: true,
				ByName:     an.ByName,
			})
			continue
		}
		ci.Actuals = append(ci.Actuals, CallActual{
			Type:   r.exprOrTypeActual(scope, a, env),
			ByName: an.ByName,
		})
	}

	// a concrete type's constructor has no formals; its actuals are
	// initializer arguments, not substitutions
	if len(ctor.Untyped.Formals) == 0 {
		return types.MakeType(root)
	}

	res := r.applyCandidate(ctor, ci, env)
	if !res.Success {
		r.report(diag.ResInvalidTypeConstruction, diag.SevError, n.Span,
			"invalid type construction: "+res.Failure.String())
		return types.Make(types.QualUnknown, bt.Erroneous)
	}
	return types.MakeType(r.constructedType(res.Sig))
}
