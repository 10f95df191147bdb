package resolution

import (
	"litho/internal/ast"
	"litho/internal/query"
	"litho/internal/scopes"
	"litho/internal/source"
	"litho/internal/types"
)

// ResolvedExpression is one expression's resolution: its type, the
// declaration it refers to (identifiers), the chosen overloads (calls)
// and the POI scope the choice was made under.
type ResolvedExpression struct {
	Type         types.QualifiedType
	ToID         ast.ID
	MostSpecific []*TypedSignature
	Poi          *PoiScope
}

// ResolutionResultByPostorderID maps every postorder-numbered node of
// one symbol to its resolved expression. Dense, built by a single
// traversal, owned by the resolution result for that symbol.
type ResolutionResultByPostorderID struct {
	Symbol source.StringID
	vec    []ResolvedExpression
}

func newResultVec(symbol source.StringID, size int32) *ResolutionResultByPostorderID {
	return &ResolutionResultByPostorderID{
		Symbol: symbol,
		vec:    make([]ResolvedExpression, size),
	}
}

// ByID returns the entry for an ID inside this symbol, nil otherwise.
func (rr *ResolutionResultByPostorderID) ByID(id ast.ID) *ResolvedExpression {
	if rr == nil || id.Symbol != rr.Symbol || id.Postorder < 0 || int(id.Postorder) >= len(rr.vec) {
		return nil
	}
	return &rr.vec[id.Postorder]
}

func (rr *ResolutionResultByPostorderID) set(id ast.ID, re ResolvedExpression) {
	if e := rr.ByID(id); e != nil {
		*e = re
	}
}

// ResolvedFunction is the result of resolving one function body under
// one POI context.
type ResolvedFunction struct {
	Signature  *TypedSignature
	ReturnType types.QualifiedType
	Result     *ResolutionResultByPostorderID
	PoiInfo    PoiInfo
}

// resolveFunctionBody walks a function's statements under the chosen
// signature, producing per-expression results, the inferred return
// type and the POI usage record.
func (r *Resolver) resolveFunctionBody(sig *TypedSignature, poi *PoiScope) *ResolvedFunction {
	if sig == nil {
		return nil
	}
	prog := r.prog()
	u := sig.Untyped
	fnNode := prog.IDToNode(u.ID)
	if fnNode == nil {
		return nil
	}

	rf := &ResolvedFunction{
		Signature: sig,
		Result:    newResultVec(u.ID.Symbol, prog.SymbolSize(u.ID.Symbol)),
		PoiInfo:   newPoiInfo(),
	}
	env := newEnv(poi)
	env.poiInfo = &rf.PoiInfo
	for i, f := range u.Formals {
		env.subs[f.Decl] = sig.Formals[i]
		rf.Result.set(f.Decl, ResolvedExpression{Type: sig.Formals[i]})
	}

	r.activeBodies[sig]++
	defer func() { r.activeBodies[sig]-- }()

	bt := r.Types.Builtins()
	rf.ReturnType = types.Make(types.QualConstVar, bt.Void)
	if fnNode.Body.IsValid() {
		scope := r.graph().ScopeForID(prog.IDOf(fnNode.Body))
		ret := &returnCollector{}
		r.resolveStmt(rf.Result, scope, fnNode.Body, env, ret)
		if ret.seen {
			rf.ReturnType = ret.merged(r)
		}
	}
	return rf
}

// returnCollector merges the types of every return statement.
type returnCollector struct {
	seen  bool
	types []types.QualifiedType
}

func (rc *returnCollector) add(qt types.QualifiedType) {
	rc.seen = true
	rc.types = append(rc.types, qt)
}

// merged unifies collected return types: identical types stay, an int
// among reals widens, anything else degrades to the first.
func (rc *returnCollector) merged(r *Resolver) types.QualifiedType {
	bt := r.Types.Builtins()
	out := rc.types[0]
	for _, qt := range rc.types[1:] {
		if qt.Type == out.Type {
			continue
		}
		if qt.Type == bt.Real && out.Type == bt.Int {
			out = qt
			continue
		}
		if qt.Type == bt.Int && out.Type == bt.Real {
			continue
		}
	}
	// a return value is never an lvalue of the callee's frame
	if out.Qual != types.QualType && out.Qual != types.QualParam {
		out.Qual = types.QualConstVar
	}
	return out
}

// resolveStmt resolves one statement subtree, recording expression
// results into the dense vector.
func (r *Resolver) resolveStmt(rr *ResolutionResultByPostorderID, scope scopes.ScopeID, nid ast.NodeID, env *env, ret *returnCollector) {
	prog := r.prog()
	n := prog.Node(nid)
	switch n.Tag {
	case ast.TagBlock:
		inner := scope
		if s := r.graph().ScopeFor(prog.IDOf(nid)); s.IsValid() {
			inner = s
		}
		for _, c := range n.Children {
			r.resolveStmt(rr, inner, c, env, ret)
		}
	case ast.TagReturn:
		qt := types.Make(types.QualConstVar, r.Types.Builtins().Void)
		if len(n.Children) > 0 {
			qt = r.resolveExpr(rr, scope, n.Children[0], env)
		}
		if ret != nil {
			ret.add(qt)
		}
	case ast.TagVariable:
		qt := r.localVarType(rr, scope, nid, env)
		env.subs[prog.IDOf(nid)] = qt
		rr.set(prog.IDOf(nid), ResolvedExpression{Type: qt})
	case ast.TagMultiDecl, ast.TagTupleDecl:
		r.resolveGroupedDecl(rr, scope, nid, env)
	case ast.TagModule, ast.TagFunction, ast.TagRecord, ast.TagClass, ast.TagUnion:
		// nested symbols resolve on their own demand
	default:
		r.resolveExpr(rr, scope, nid, env)
	}
}

// localVarType types a local variable from its annotation or
// initializer.
func (r *Resolver) localVarType(rr *ResolutionResultByPostorderID, scope scopes.ScopeID, nid ast.NodeID, env *env) types.QualifiedType {
	prog := r.prog()
	n := prog.Node(nid)
	var qt types.QualifiedType
	switch {
	case n.TypeExpr.IsValid():
		t := r.resolveTypeExpr(scope, n.TypeExpr, env)
		if n.InitExpr.IsValid() {
			r.resolveExpr(rr, scope, n.InitExpr, env)
		}
		qt = types.Make(types.QualVar, t.Type)
	case n.InitExpr.IsValid():
		init := r.resolveExpr(rr, scope, n.InitExpr, env)
		qt = types.Make(types.QualVar, init.Type)
		if n.Intent == ast.IntentParam && init.HasParamValue() {
			qt = init
		}
	default:
		qt = types.Make(types.QualVar, r.Types.Builtins().Any)
	}
	switch n.Intent {
	case ast.IntentConst:
		qt.Qual = types.QualConstVar
	case ast.IntentParam:
		qt.Qual = types.QualParam
	case ast.IntentRef:
		qt.Qual = types.QualRef
	case ast.IntentType:
		qt.Qual = types.QualType
	}
	return qt
}

// resolveGroupedDecl handles multi-declarations and tuple
// destructuring inside bodies.
func (r *Resolver) resolveGroupedDecl(rr *ResolutionResultByPostorderID, scope scopes.ScopeID, nid ast.NodeID, env *env) {
	prog := r.prog()
	n := prog.Node(nid)
	if n.Tag == ast.TagTupleDecl && n.InitExpr.IsValid() {
		init := r.resolveExpr(rr, scope, n.InitExpr, env)
		elems := []types.QualifiedType(nil)
		if tup := r.Types.Tuple(init.Type); tup != nil {
			elems = tup.Elems
		}
		i := 0
		for _, c := range n.Children {
			if c == n.InitExpr {
				continue
			}
			cn := prog.Node(c)
			if cn.Tag != ast.TagVariable {
				continue
			}
			qt := types.Make(types.QualVar, r.Types.Builtins().Erroneous)
			if i < len(elems) {
				qt = types.Make(types.QualVar, elems[i].Type)
			} else if tup := r.Types.Tuple(init.Type); tup == nil {
				qt = types.Make(types.QualVar, init.Type)
			}
			env.subs[prog.IDOf(c)] = qt
			rr.set(prog.IDOf(c), ResolvedExpression{Type: qt})
			i++
		}
		return
	}
	for _, c := range n.Children {
		r.resolveStmt(rr, scope, c, env, nil)
	}
}

// resolveExpr types one expression and records it.
func (r *Resolver) resolveExpr(rr *ResolutionResultByPostorderID, scope scopes.ScopeID, nid ast.NodeID, env *env) types.QualifiedType {
	prog := r.prog()
	n := prog.Node(nid)
	id := prog.IDOf(nid)

	if n.Tag == ast.TagCall {
		res := r.resolveCallExpr(scope, nid, env)
		rr.set(id, ResolvedExpression{Type: res.Type, MostSpecific: res.MostSpecific, Poi: res.Poi})
		return res.Type
	}

	qt := r.exprType(scope, nid, env)
	re := ResolvedExpression{Type: qt}
	if n.Tag == ast.TagIdentifier {
		g := r.graph()
		if found := g.LookupNameInScope(scope, nil, n.Name, scopes.LookupDefault); len(found) > 0 {
			re.ToID = found[0]
		}
	}
	rr.set(id, re)
	return qt
}

// resolveModule resolves a module's top-level statements the same way
// a body resolves, without a POI chain or return collection.
func (r *Resolver) resolveModule(_ *query.Context, module ast.ID) *ModuleResolution {
	prog := r.prog()
	n := prog.IDToNode(module)
	if n == nil || n.Tag != ast.TagModule {
		return nil
	}
	out := &ModuleResolution{
		Module: module,
		Result: newResultVec(module.Symbol, prog.SymbolSize(module.Symbol)),
	}
	scope := r.graph().ScopeFor(module)
	env := newEnv(nil)
	for _, c := range n.Children {
		r.resolveStmt(out.Result, scope, c, env, nil)
	}
	return out
}
