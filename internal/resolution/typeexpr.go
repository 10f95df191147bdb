package resolution

import (
	"litho/internal/ast"
	"litho/internal/diag"
	"litho/internal/query"
	"litho/internal/scopes"
	"litho/internal/source"
	"litho/internal/types"
)

// SubstitutionMap binds declaration IDs (formals, fields) to the
// qualified types established for them.
type SubstitutionMap map[ast.ID]types.QualifiedType

// env carries the mutable state of one resolution traversal: formal
// substitutions accumulated left to right, type-query bindings, and
// the POI context calls resolve under.
type env struct {
	subs        SubstitutionMap
	typeQueries map[source.StringID]types.QualifiedType
	// suppressSubs hides subs while keeping type-query bindings, for
	// the constraint re-validation pass of instantiation.
	suppressSubs bool
	poi          *PoiScope
	poiInfo      *PoiInfo
}

func newEnv(poi *PoiScope) *env {
	return &env{
		subs:        make(SubstitutionMap),
		typeQueries: make(map[source.StringID]types.QualifiedType),
		poi:         poi,
	}
}

func (e *env) sub(decl ast.ID) (types.QualifiedType, bool) {
	if e.suppressSubs {
		return types.UnknownQT, false
	}
	qt, ok := e.subs[decl]
	return qt, ok
}

// resolveTypeExpr resolves a type expression to the type it denotes.
// The result is in the type world; errors yield the erroneous sentinel
// so dependents degrade instead of cascading.
func (r *Resolver) resolveTypeExpr(scope scopes.ScopeID, nid ast.NodeID, env *env) types.QualifiedType {
	prog := r.prog()
	n := prog.Node(nid)
	bt := r.Types.Builtins()
	switch n.Tag {
	case ast.TagIdentifier:
		if t, ok := r.builtinType(n.Name); ok {
			return types.MakeType(t)
		}
		return r.typeOfNamed(scope, nid, n.Name, env)
	case ast.TagTypeQuery:
		if qt, ok := env.typeQueries[n.Name]; ok {
			return qt
		}
		return types.MakeType(bt.Any)
	case ast.TagCall:
		return r.resolveTypeConstruction(scope, nid, env)
	case ast.TagDot:
		return r.dotType(scope, nid, env)
	case ast.TagQuestionArg:
		return types.MakeType(bt.Any)
	default:
		// value expressions in type position carry their param value
		return r.exprType(scope, nid, env)
	}
}

// builtinType maps primitive type names.
func (r *Resolver) builtinType(name source.StringID) (types.TypeID, bool) {
	bt := r.Types.Builtins()
	s, _ := r.strings().Lookup(name)
	switch s {
	case "int":
		return bt.Int, true
	case "real":
		return bt.Real, true
	case "bool":
		return bt.Bool, true
	case "string":
		return bt.String, true
	case "nothing":
		return bt.Nothing, true
	case "void":
		return bt.Void, true
	}
	return types.NoTypeID, false
}

// typeOfNamed resolves an identifier through the scope graph and maps
// the found declaration to a qualified type.
func (r *Resolver) typeOfNamed(scope scopes.ScopeID, nid ast.NodeID, name source.StringID, env *env) types.QualifiedType {
	g := r.graph()
	found := g.LookupNameInScope(scope, nil, name, scopes.LookupDefault)
	if len(found) == 0 {
		n := r.prog().Node(nid)
		r.report(diag.ResUnknownIdentifier, diag.SevError, n.Span,
			"unknown identifier "+r.strings().MustLookup(name))
		return types.Make(types.QualUnknown, r.Types.Builtins().Erroneous)
	}
	return r.typeOfDecl(found[0], env)
}

// typeOfDecl computes the qualified type an already-resolved
// declaration contributes to an expression naming it.
func (r *Resolver) typeOfDecl(decl ast.ID, env *env) types.QualifiedType {
	prog := r.prog()
	n := prog.IDToNode(decl)
	bt := r.Types.Builtins()
	if n == nil {
		return types.Make(types.QualUnknown, bt.Erroneous)
	}
	if qt, ok := env.sub(decl); ok {
		return qt
	}
	switch n.Tag {
	case ast.TagRecord, ast.TagClass, ast.TagUnion:
		return types.MakeType(r.nominalQ.Get(decl))
	case ast.TagModule:
		return types.Make(types.QualModule, types.NoTypeID)
	case ast.TagFunction:
		if n.HasFlag(ast.FlagParenless) {
			return types.Make(types.QualParenlessFunction, types.NoTypeID)
		}
		return types.Make(types.QualFunction, types.NoTypeID)
	case ast.TagFormal, ast.TagVarArgFormal, ast.TagVariable:
		return r.declType(decl, n, env)
	case ast.TagTypeQuery:
		if qt, ok := env.typeQueries[n.Name]; ok {
			return qt
		}
		return types.MakeType(bt.Any)
	default:
		return types.Make(types.QualUnknown, bt.Erroneous)
	}
}

// declType resolves a variable or formal declaration's type from its
// type expression or initializer.
func (r *Resolver) declType(decl ast.ID, n *ast.Node, env *env) types.QualifiedType {
	// module-level declarations go through the memoized query
	if sym := r.prog().EnclosingSymbolID(decl); sym != ast.NoID {
		if sn := r.prog().IDToNode(sym); sn != nil && sn.Tag == ast.TagModule {
			return r.moduleTypeQ.Get(decl)
		}
	}
	return r.declTypeUncached(decl, n, env)
}

func (r *Resolver) declTypeUncached(decl ast.ID, n *ast.Node, env *env) types.QualifiedType {
	scope := r.graph().ScopeForID(decl)
	bt := r.Types.Builtins()

	var qt types.QualifiedType
	switch {
	case n.TypeExpr.IsValid():
		t := r.resolveTypeExpr(scope, n.TypeExpr, env)
		qt = types.Make(types.QualVar, t.Type)
		if t.IsParam() {
			qt = t
		}
	case n.InitExpr.IsValid():
		init := r.exprType(scope, n.InitExpr, env)
		qt = types.Make(types.QualVar, init.Type)
		if init.HasParamValue() && n.Intent == ast.IntentParam {
			qt = init
		}
	default:
		qt = types.Make(types.QualVar, bt.Any)
	}

	switch n.Intent {
	case ast.IntentConst:
		qt.Qual = types.QualConstVar
	case ast.IntentParam:
		qt.Qual = types.QualParam
	case ast.IntentType:
		qt.Qual = types.QualType
	case ast.IntentRef:
		qt.Qual = types.QualRef
	case ast.IntentIn:
		qt.Qual = types.QualIn
	case ast.IntentOut:
		qt.Qual = types.QualOut
	case ast.IntentInout:
		qt.Qual = types.QualInout
	}
	return qt
}

// typeForModuleLevelSymbol is the memoized type of one module-level
// declaration, the interface the downstream checking stage consumes.
func (r *Resolver) typeForModuleLevelSymbol(_ *query.Context, id ast.ID) types.QualifiedType {
	prog := r.prog()
	n := prog.IDToNode(id)
	bt := r.Types.Builtins()
	if n == nil {
		return types.Make(types.QualUnknown, bt.Erroneous)
	}
	switch n.Tag {
	case ast.TagRecord, ast.TagClass, ast.TagUnion:
		return types.MakeType(r.nominalQ.Get(id))
	case ast.TagModule:
		return types.Make(types.QualModule, types.NoTypeID)
	case ast.TagFunction:
		if n.HasFlag(ast.FlagParenless) {
			return types.Make(types.QualParenlessFunction, types.NoTypeID)
		}
		return types.Make(types.QualFunction, types.NoTypeID)
	default:
		return r.declTypeUncached(id, n, newEnv(nil))
	}
}

// exprType types a value expression. Calls resolve through the full
// call resolution pipeline under the env's POI context.
func (r *Resolver) exprType(scope scopes.ScopeID, nid ast.NodeID, env *env) types.QualifiedType {
	prog := r.prog()
	n := prog.Node(nid)
	bt := r.Types.Builtins()
	switch n.Tag {
	case ast.TagIntLiteral:
		return types.MakeParam(bt.Int, types.IntParam(n.IntVal))
	case ast.TagRealLiteral:
		return types.MakeParam(bt.Real, types.RealParam(n.RealVal))
	case ast.TagBoolLiteral:
		return types.MakeParam(bt.Bool, types.BoolParam(n.BoolVal))
	case ast.TagStringLiteral:
		return types.MakeParam(bt.String, types.StringParam(n.StrVal))
	case ast.TagIdentifier:
		if t, ok := r.builtinType(n.Name); ok {
			return types.MakeType(t)
		}
		return r.typeOfNamed(scope, nid, n.Name, env)
	case ast.TagQuestionArg:
		return types.MakeType(bt.Any)
	case ast.TagTypeQuery:
		return r.resolveTypeExpr(scope, nid, env)
	case ast.TagCall:
		res := r.resolveCallExpr(scope, nid, env)
		return res.Type
	case ast.TagDot:
		return r.dotType(scope, nid, env)
	default:
		return types.Make(types.QualUnknown, bt.Erroneous)
	}
}

// dotType resolves receiver.member: module members, fields and
// parenless methods.
func (r *Resolver) dotType(scope scopes.ScopeID, nid ast.NodeID, env *env) types.QualifiedType {
	prog := r.prog()
	g := r.graph()
	n := prog.Node(nid)
	bt := r.Types.Builtins()
	recv := r.exprType(scope, n.Children[0], env)

	if recv.Qual == types.QualModule {
		// receiver names a module; member resolves in its scope
		rn := prog.Node(n.Children[0])
		if mod, ok := g.ModuleDecl(rn.Name); ok {
			found := g.LookupNameInScope(g.ScopeFor(mod), nil, n.Name, scopes.LookupDecls)
			if len(found) > 0 {
				return r.moduleTypeQ.Get(found[0])
			}
		}
		r.report(diag.ResUnknownIdentifier, diag.SevError, n.Span,
			"unknown module member "+r.strings().MustLookup(n.Name))
		return types.Make(types.QualUnknown, bt.Erroneous)
	}

	if r.Types.Kind(recv.Type) == types.KindNominal {
		return r.fieldAccessType(scope, nid, recv, env)
	}
	if r.Types.IsErroneous(recv.Type) {
		return types.Make(types.QualUnknown, bt.Erroneous)
	}
	r.report(diag.ResUnknownIdentifier, diag.SevError, n.Span,
		"no member "+r.strings().MustLookup(n.Name)+" on this type")
	return types.Make(types.QualUnknown, bt.Erroneous)
}

// fieldAccessType resolves receiver.field against resolved fields; a
// generic receiver's unsubstituted field access is an error.
func (r *Resolver) fieldAccessType(scope scopes.ScopeID, nid ast.NodeID, recv types.QualifiedType, env *env) types.QualifiedType {
	prog := r.prog()
	n := prog.Node(nid)
	bt := r.Types.Builtins()

	for t := recv.Type; t.IsValid(); {
		fields := r.FieldsForTypeDecl(t, UseDefaults)
		for i := range fields.Fields {
			f := &fields.Fields[i]
			if f.Name != n.Name {
				continue
			}
			if r.isGenericQT(f.Type) {
				r.report(diag.ResGenericFieldAccess, diag.SevError, n.Span,
					"field "+r.strings().MustLookup(n.Name)+" accessed before instantiation")
				return types.Make(types.QualUnknown, bt.Erroneous)
			}
			return f.Type
		}
		info := r.Types.Nominal(t)
		if info == nil {
			break
		}
		t = info.Parent
	}

	// fall back to a parenless method call on the receiver
	ci := &CallInfo{
		Name:         n.Name,
		CalledType:   recv,
		IsMethodCall: true,
		IsParenless:  true,
	}
	res := r.resolveCallInfo(ci, prog.IDOf(nid), scope, env)
	if len(res.MostSpecific) > 0 {
		return res.Type
	}
	r.report(diag.ResUnknownIdentifier, diag.SevError, n.Span,
		"no field or method "+r.strings().MustLookup(n.Name))
	return types.Make(types.QualUnknown, bt.Erroneous)
}
