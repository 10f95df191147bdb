package resolution

import (
	"litho/internal/ast"
	"litho/internal/scopes"
	"litho/internal/source"
	"litho/internal/types"
)

// CallActual is one supplied argument: its qualified type and an
// optional by-name binding. A `?` actual carries no type at all; it
// asks the formal it binds to for its declared, possibly generic type.
type CallActual struct {
	Type       types.QualifiedType
	ByName     source.StringID
	IsQuestion bool
}

// CallInfo is the resolved shape of a call site, built once before
// resolution begins and immutable afterwards.
type CallInfo struct {
	Name           source.StringID
	CalledType     types.QualifiedType // receiver, method calls only
	IsMethodCall   bool
	IsOpCall       bool
	IsParenless    bool
	HasQuestionArg bool
	Actuals        []CallActual
}

// buildCallInfo shapes a call expression: the callee name, receiver
// and the typed actuals. Returns nil for callees that are themselves
// unresolvable expressions.
func (r *Resolver) buildCallInfo(scope scopes.ScopeID, callNid ast.NodeID, env *env) *CallInfo {
	prog := r.prog()
	n := prog.Node(callNid)
	callee := prog.Node(n.Children[0])

	ci := &CallInfo{}
	switch callee.Tag {
	case ast.TagIdentifier:
		ci.Name = callee.Name
		if callee.HasFlag(ast.FlagOperator) {
			ci.IsOpCall = true
		}
	case ast.TagDot:
		ci.Name = callee.Name
		ci.IsMethodCall = true
		ci.CalledType = r.exprType(scope, callee.Children[0], env)
	default:
		return nil
	}

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
	return ci
}

// exprOrTypeActual types an actual that may live in either world, as
// type-constructor arguments do.
func (r *Resolver) exprOrTypeActual(scope scopes.ScopeID, nid ast.NodeID, env *env) types.QualifiedType {
	n := r.prog().Node(nid)
	if n.Tag == ast.TagIdentifier {
		if t, ok := r.builtinType(n.Name); ok {
			return types.MakeType(t)
		}
	}
	return r.exprType(scope, nid, env)
}

// MissingActualIdx marks a formal bound to its default value.
const MissingActualIdx = -1

// FormalActual is one row of a formal-actual map.
type FormalActual struct {
	Formal     UntypedFormal
	FormalType types.QualifiedType
	ActualIdx  int
	ActualType types.QualifiedType
	HasActual  bool
	IsQuestion bool
	// VarArgIdxs lists the trailing actuals a variadic formal
	// consumed.
	VarArgIdxs []int
}

// FormalActualMap aligns a call's actuals to a signature's formals:
// by-name bindings first, positional fill after, a trailing variadic
// formal consuming the rest.
type FormalActualMap struct {
	ByFormal      []FormalActual
	Failed        bool
	FailingActual int
}

func buildFormalActualMap(sig *TypedSignature, ci *CallInfo) FormalActualMap {
	u := sig.Untyped
	m := FormalActualMap{
		ByFormal:      make([]FormalActual, len(u.Formals)),
		FailingActual: MissingActualIdx,
	}
	for i, f := range u.Formals {
		m.ByFormal[i] = FormalActual{
			Formal:     f,
			FormalType: sig.Formals[i],
			ActualIdx:  MissingActualIdx,
		}
	}

	used := make([]bool, len(ci.Actuals))

	// by-name actuals bind to the formal with that name
	for ai, a := range ci.Actuals {
		if a.ByName == 0 {
			continue
		}
		bound := false
		for fi := range m.ByFormal {
			if m.ByFormal[fi].Formal.Name == a.ByName && !m.ByFormal[fi].HasActual {
				m.ByFormal[fi].ActualIdx = ai
				m.ByFormal[fi].ActualType = a.Type
				m.ByFormal[fi].HasActual = true
				m.ByFormal[fi].IsQuestion = a.IsQuestion
				used[ai] = true
				bound = true
				break
			}
		}
		if !bound {
			m.Failed = true
			m.FailingActual = ai
			return m
		}
	}

	// positional actuals fill remaining formals in order
	ai := 0
	for fi := range m.ByFormal {
		fa := &m.ByFormal[fi]
		if fa.HasActual {
			continue
		}
		if fa.Formal.IsVarArgs {
			for ; ai < len(ci.Actuals); ai++ {
				if used[ai] {
					continue
				}
				fa.VarArgIdxs = append(fa.VarArgIdxs, ai)
				used[ai] = true
			}
			fa.HasActual = len(fa.VarArgIdxs) > 0
			continue
		}
		for ai < len(ci.Actuals) && used[ai] {
			ai++
		}
		if ai < len(ci.Actuals) {
			fa.ActualIdx = ai
			fa.ActualType = ci.Actuals[ai].Type
			fa.HasActual = true
			fa.IsQuestion = ci.Actuals[ai].IsQuestion
			used[ai] = true
			ai++
			continue
		}
		if !fa.Formal.HasDefault {
			m.Failed = true
			return m
		}
		// missing actual, default applies later
		fa.ActualType = types.UnknownQT
	}

	for i, u := range used {
		if !u {
			m.Failed = true
			m.FailingActual = i
			return m
		}
	}
	return m
}
