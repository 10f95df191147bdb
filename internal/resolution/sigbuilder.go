package resolution

import (
	"litho/internal/ast"
	"litho/internal/diag"
	"litho/internal/query"
	"litho/internal/scopes"
	"litho/internal/types"
)

// untypedSignatureFor shapes a function declaration into an untyped
// signature, checking the parenless-method/field collision on the way.
func (r *Resolver) untypedSignatureFor(_ *query.Context, fn ast.ID) *UntypedSignature {
	prog := r.prog()
	nid := prog.NodeForID(fn)
	n := prog.Node(nid)
	if n == nil || n.Tag != ast.TagFunction {
		return nil
	}

	u := &UntypedSignature{
		ID:          fn,
		Name:        n.Name,
		IsMethod:    n.HasFlag(ast.FlagMethod),
		IsParenless: n.HasFlag(ast.FlagParenless),
		Throws:      n.HasFlag(ast.FlagThrows),
	}
	for _, f := range prog.Formals(nid) {
		fn := prog.Node(f)
		u.Formals = append(u.Formals, UntypedFormal{
			Name:       fn.Name,
			Decl:       prog.IDOf(f),
			HasDefault: fn.InitExpr.IsValid(),
			IsVarArgs:  fn.Tag == ast.TagVarArgFormal,
		})
	}

	if u.IsMethod && u.IsParenless {
		r.checkParenlessCollision(fn, n)
	}
	return r.internUntyped(u)
}

// checkParenlessCollision reports a parenless method whose name
// shadows a field of its aggregate.
func (r *Resolver) checkParenlessCollision(fn ast.ID, n *ast.Node) {
	prog := r.prog()
	owner := prog.EnclosingSymbolID(fn)
	on := prog.IDToNode(owner)
	if on == nil || !on.Tag.IsAggregateDecl() {
		return
	}
	for _, c := range on.Children {
		cn := prog.Node(c)
		if cn.Tag == ast.TagVariable && cn.Name == n.Name {
			r.report(diag.ResParenlessFieldCollision, diag.SevError, n.Span,
				"parenless method "+r.strings().MustLookup(n.Name)+" collides with a field")
			return
		}
	}
}

// typedSignatureInitial resolves only the formal types of a signature.
// Substitutions accumulate left to right so a later formal's type
// expression may reference an earlier formal. The where clause is
// evaluated eagerly only when nothing needs instantiation.
func (r *Resolver) typedSignatureInitial(_ *query.Context, u *UntypedSignature) *TypedSignature {
	if u == nil {
		return nil
	}
	if u.IsTypeConstructor {
		// type constructors are born typed; nothing to do here
		return nil
	}
	prog := r.prog()
	g := r.graph()
	scope := g.ScopeFor(u.ID)
	env := newEnv(nil)

	sig := &TypedSignature{
		Untyped: u,
		Formals: make([]types.QualifiedType, len(u.Formals)),
	}
	for i, f := range u.Formals {
		fn := prog.IDToNode(f.Decl)
		qt := r.formalDeclaredType(scope, fn, env)
		sig.Formals[i] = qt
		if !r.formalNeedsInstantiation(qt, f) {
			env.subs[f.Decl] = qt
		}
	}
	sig.NeedsInstantiation = r.anyFormalNeedsInstantiation(sig, nil)

	fnNode := prog.IDToNode(u.ID)
	if fnNode != nil && fnNode.Where.IsValid() {
		if sig.NeedsInstantiation {
			sig.Where = WhereTBD
		} else {
			sig.Where = r.evalWhere(scope, fnNode.Where, env)
		}
	}
	return r.internTyped(sig)
}

// formalDeclaredType resolves one formal's declared type, generic
// placeholders for untyped formals.
func (r *Resolver) formalDeclaredType(scope scopes.ScopeID, fn *ast.Node, env *env) types.QualifiedType {
	bt := r.Types.Builtins()
	var qt types.QualifiedType
	if fn.TypeExpr.IsValid() {
		t := r.resolveTypeExpr(scope, fn.TypeExpr, env)
		qt = types.Make(types.QualIn, t.Type)
		if t.IsParam() && fn.Intent == ast.IntentParam {
			qt = t
		}
	} else {
		qt = types.Make(types.QualIn, bt.Any)
	}
	switch fn.Intent {
	case ast.IntentParam:
		qt.Qual = types.QualParam
	case ast.IntentType:
		qt.Qual = types.QualType
	case ast.IntentConst:
		qt.Qual = types.QualConstVar
	case ast.IntentRef:
		qt.Qual = types.QualRef
	case ast.IntentOut:
		qt.Qual = types.QualOut
	case ast.IntentInout:
		qt.Qual = types.QualInout
	case ast.IntentVar, ast.IntentIn, ast.IntentDefault:
		qt.Qual = types.QualIn
	}
	return qt
}

// formalNeedsInstantiation classifies one formal at the
// concrete/generic granularity; generic-with-defaults counts as
// concrete enough to proceed.
func (r *Resolver) formalNeedsInstantiation(qt types.QualifiedType, f UntypedFormal) bool {
	if f.IsVarArgs {
		// the tuple arity is part of the instantiation
		return true
	}
	g := r.qtGenericity(qt, make(map[types.TypeID]unit))
	return g == types.Generic || g == types.MaybeGeneric
}

// anyFormalNeedsInstantiation re-derives the flag, skipping formals
// already substituted in the given map.
func (r *Resolver) anyFormalNeedsInstantiation(sig *TypedSignature, substituted map[int]unit) bool {
	for i, f := range sig.Untyped.Formals {
		if substituted != nil {
			if _, ok := substituted[i]; ok {
				continue
			}
		}
		if r.formalNeedsInstantiation(sig.Formals[i], f) {
			return true
		}
	}
	return false
}

// evalWhere evaluates a where clause under the env's substitutions.
// The clause must reduce to a param bool.
func (r *Resolver) evalWhere(scope scopes.ScopeID, where ast.NodeID, env *env) WhereResult {
	qt := r.exprType(scope, where, env)
	if qt.HasParamValue() && qt.Param.Kind == types.ParamBool {
		if qt.Param.Bool {
			return WhereTrue
		}
		return WhereFalse
	}
	if r.Types.IsErroneous(qt.Type) {
		return WhereFalse
	}
	if r.isGenericQT(qt) {
		return WhereTBD
	}
	n := r.prog().Node(where)
	r.report(diag.ResWhereClauseNotParam, diag.SevError, n.Span,
		"where clause does not reduce to a compile-time bool")
	return WhereFalse
}

// typeConstructorInitial synthesizes the compiler-generated signature
// whose formals are the type's generic fields, used to resolve
// explicit instantiation syntax.
func (r *Resolver) typeConstructorInitial(_ *query.Context, t types.TypeID) *TypedSignature {
	info := r.Types.Nominal(t)
	if info == nil {
		return nil
	}
	prog := r.prog()
	n := prog.IDToNode(info.Decl)
	if n == nil {
		return nil
	}

	fields := r.FieldsForTypeDecl(t, UseDefaultsOtherFields)
	u := &UntypedSignature{
		ID:                info.Decl,
		Name:              n.Name,
		IsTypeConstructor: true,
		CompilerGenerated: true,
	}
	var formalTypes []types.QualifiedType
	for i := range fields.Fields {
		f := &fields.Fields[i]
		if !r.isGenericQT(f.Type) {
			continue
		}
		u.Formals = append(u.Formals, UntypedFormal{
			Name:       f.Name,
			Decl:       f.Decl,
			HasDefault: f.HasDefault,
		})
		formalTypes = append(formalTypes, f.Type)
	}
	sig := &TypedSignature{
		Untyped:            r.internUntyped(u),
		Formals:            formalTypes,
		NeedsInstantiation: len(formalTypes) > 0,
	}
	return r.internTyped(sig)
}
