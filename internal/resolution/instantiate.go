package resolution

import (
	"litho/internal/ast"
	"litho/internal/diag"
	"litho/internal/scopes"
	"litho/internal/types"
)

// CandidateFailure tags why a candidate does not apply to a call.
// Never fatal; disambiguation simply drops the candidate.
type CandidateFailure uint8

const (
	CandidateOK CandidateFailure = iota
	FailArity
	FailFormalType
	FailVarArgCount
	FailWhereFalse
	FailIntentAfterSub
	FailTypeQueryConstraint
)

func (f CandidateFailure) String() string {
	switch f {
	case CandidateOK:
		return "ok"
	case FailArity:
		return "arity mismatch"
	case FailFormalType:
		return "type mismatch"
	case FailVarArgCount:
		return "vararg count mismatch"
	case FailWhereFalse:
		return "where clause false"
	case FailIntentAfterSub:
		return "intent forbids substitution"
	case FailTypeQueryConstraint:
		return "type query constraint unsatisfied"
	default:
		return "invalid"
	}
}

// ApplicabilityResult is the outcome of trying one candidate.
type ApplicabilityResult struct {
	Success   bool
	Sig       *TypedSignature
	Failure   CandidateFailure
	FormalIdx int
	// Converts/Promotes summarize how the actuals bound, for
	// disambiguation.
	Converts     bool
	Instantiated bool
}

func notApplicable(f CandidateFailure, formal int) ApplicabilityResult {
	return ApplicabilityResult{Failure: f, FormalIdx: formal}
}

// InstantiateSignature computes substitutions for a generic signature
// against a call's actuals, producing a new signature or a tagged
// failure. Substitutions accumulate left to right; each formal is
// re-resolved up to three times: under prior substitutions, with its
// own substitution to pick up type-query bindings, and with
// substitutions suppressed to validate the type-query constraints.
func (r *Resolver) InstantiateSignature(sig *TypedSignature, ci *CallInfo, poi *PoiScope) ApplicabilityResult {
	m := buildFormalActualMap(sig, ci)
	if m.Failed {
		return notApplicable(FailArity, m.FailingActual)
	}

	u := sig.Untyped
	scope := r.signatureScope(u)
	env := newEnv(poi)
	newFormals := append([]types.QualifiedType(nil), sig.Formals...)
	substituted := make(map[int]unit)
	var bits uint64
	anyConvert := false

	for i := range m.ByFormal {
		fa := &m.ByFormal[i]
		fn := r.prog().IDToNode(fa.Formal.Decl)

		if fa.Formal.IsVarArgs {
			res := r.instantiateVarArg(ci, fa, fn, scope, env, &newFormals[i])
			if res != CandidateOK {
				return notApplicable(res, i)
			}
			substituted[i] = unit{}
			if i < 64 {
				bits |= 1 << uint(i)
			}
			continue
		}

		// pass 1: re-resolve under substitutions established so far
		declared := r.reResolveFormal(u, fa.Formal.Decl, fn, scope, env)
		newFormals[i] = declared

		if !fa.HasActual {
			// missing actual sentinel: the default applies at body
			// resolution time, no substitution now. A `?` elsewhere in
			// the call leaves the formal generic the same way.
			continue
		}
		if fa.IsQuestion {
			// `?` pins the formal to its declared type, generic or not;
			// no substitution and nothing to pass
			continue
		}

		pass := r.Types.CanPass(fa.ActualType, declared)
		if !pass.Passes {
			return notApplicable(FailFormalType, i)
		}
		anyConvert = anyConvert || pass.Converts
		if !pass.Instantiates {
			continue
		}

		subType := r.Types.InstantiationType(fa.ActualType, declared)
		if pass.Converts && isRefLike(declared.Qual) {
			// ref-world formals cannot bind through a conversion-only
			// substitution
			return notApplicable(FailIntentAfterSub, i)
		}
		env.subs[fa.Formal.Decl] = subType
		newFormals[i] = subType
		substituted[i] = unit{}
		if i < 64 {
			bits |= 1 << uint(i)
		}

		// pass 2: re-resolve with the substitution to pick up type
		// query bindings from the formal's type expression
		if fn != nil && fn.TypeExpr.IsValid() {
			r.bindTypeQueries(fn.TypeExpr, fa.ActualType, env)

			// pass 3: substitutions suppressed, bindings kept; the
			// derived constraint must accept the original actual
			env.suppressSubs = true
			constraint := r.resolveTypeExpr(scope, fn.TypeExpr, env)
			env.suppressSubs = false
			if !constraint.Type.IsValid() {
				continue
			}
			check := types.Make(declared.Qual, constraint.Type)
			if cp := r.Types.CanPass(fa.ActualType, check); !cp.Passes {
				return notApplicable(FailTypeQueryConstraint, i)
			}
		}
	}

	if len(substituted) == 0 {
		return ApplicabilityResult{Success: true, Sig: sig, Converts: anyConvert}
	}

	inst := &TypedSignature{
		Untyped:             u,
		Formals:             newFormals,
		InstantiatedFrom:    sig,
		ParentFn:            sig.ParentFn,
		FormalsInstantiated: bits,
	}
	inst.NeedsInstantiation = r.anyFormalNeedsInstantiation(inst, substituted)

	fnNode := r.prog().IDToNode(u.ID)
	if fnNode != nil && fnNode.Where.IsValid() {
		if inst.NeedsInstantiation {
			inst.Where = WhereTBD
		} else {
			inst.Where = r.evalWhere(scope, fnNode.Where, env)
			if inst.Where == WhereFalse {
				return notApplicable(FailWhereFalse, MissingActualIdx)
			}
		}
	}
	out := r.internTyped(inst)

	// initializers may narrow their own signature while resolving, so
	// resolve eagerly and adopt the body's final signature
	if u.IsInit(r.strings()) && !out.NeedsInstantiation {
		if rf := r.ResolveFunction(out, poi); rf != nil && rf.Signature != nil {
			out = rf.Signature
		}
	}
	return ApplicabilityResult{Success: true, Sig: out, Converts: anyConvert, Instantiated: true}
}

func isRefLike(q types.Qual) bool {
	return q == types.QualRef || q == types.QualOut || q == types.QualInout
}

// signatureScope is where a signature's type expressions resolve: the
// function's own scope, or the aggregate scope for type constructors.
func (r *Resolver) signatureScope(u *UntypedSignature) scopes.ScopeID {
	return r.graph().ScopeFor(u.ID)
}

// reResolveFormal resolves one formal's declared type under the
// current env. Type-constructor formals are fields.
func (r *Resolver) reResolveFormal(u *UntypedSignature, decl ast.ID, fn *ast.Node, scope scopes.ScopeID, env *env) types.QualifiedType {
	if qt, ok := env.sub(decl); ok {
		return qt
	}
	if u.IsTypeConstructor {
		return r.declaredFieldType(scope, fn, env)
	}
	return r.formalDeclaredType(scope, fn, env)
}

// instantiateVarArg bundles the trailing actuals a variadic formal
// consumed into one tuple-typed formal and validates the declared
// count.
func (r *Resolver) instantiateVarArg(ci *CallInfo, fa *FormalActual, fn *ast.Node, scope scopes.ScopeID, env *env, out *types.QualifiedType) CandidateFailure {
	elems := make([]types.QualifiedType, 0, len(fa.VarArgIdxs))
	var elemConstraint types.QualifiedType
	if fn != nil && fn.TypeExpr.IsValid() {
		elemConstraint = r.resolveTypeExpr(scope, fn.TypeExpr, env)
	}
	for _, ai := range fa.VarArgIdxs {
		at := ci.Actuals[ai].Type
		if elemConstraint.Type.IsValid() {
			check := types.Make(types.QualIn, elemConstraint.Type)
			if cp := r.Types.CanPass(at, check); !cp.Passes {
				return FailFormalType
			}
		}
		elems = append(elems, at)
	}

	if fn != nil && fn.VarArgCount.IsValid() {
		cn := r.prog().Node(fn.VarArgCount)
		if cn.Tag == ast.TagTypeQuery {
			// ?n binds the collected arity
			env.typeQueries[cn.Name] = types.MakeParam(r.Types.Builtins().Int, types.IntParam(int64(len(elems))))
		} else {
			count := r.exprType(scope, fn.VarArgCount, env)
			if !count.HasParamValue() || count.Param.Kind != types.ParamInt {
				r.report(diag.ResVarArgCountNotIntegral, diag.SevError, cn.Span,
					"variadic count is not a compile-time integer")
				return FailVarArgCount
			}
			if count.Param.Int != int64(len(elems)) {
				return FailVarArgCount
			}
		}
	}

	tuple := r.Types.NewTuple(elems)
	*out = types.Make(types.QualIn, tuple)
	env.subs[fa.Formal.Decl] = *out
	return CandidateOK
}

// bindTypeQueries walks a formal's type expression and binds every
// type query it contains from the actual's shape.
func (r *Resolver) bindTypeQueries(typeExpr ast.NodeID, actual types.QualifiedType, env *env) {
	prog := r.prog()
	n := prog.Node(typeExpr)
	switch n.Tag {
	case ast.TagTypeQuery:
		// `?t` captures the whole actual type
		env.typeQueries[n.Name] = types.MakeType(actual.Type)
	case ast.TagCall:
		// `R(?t, ?u)` matches the actual's substitutions positionally
		// against R's generic fields
		if r.Types.Kind(actual.Type) != types.KindNominal {
			return
		}
		root := r.Types.Root(actual.Type)
		ctor := r.typeCtorQ.Get(root)
		if ctor == nil {
			return
		}
		args := n.Children[1:]
		for i, arg := range args {
			if i >= len(ctor.Untyped.Formals) {
				break
			}
			an := prog.Node(arg)
			if an.Tag != ast.TagTypeQuery {
				continue
			}
			if sub, ok := r.Types.SubFor(actual.Type, ctor.Untyped.Formals[i].Decl); ok {
				env.typeQueries[an.Name] = sub
			}
		}
	}
}
