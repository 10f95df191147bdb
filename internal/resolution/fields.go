package resolution

import (
	"litho/internal/ast"
	"litho/internal/diag"
	"litho/internal/query"
	"litho/internal/scopes"
	"litho/internal/source"
	"litho/internal/types"
)

// DefaultsPolicy selects how field defaults participate in field
// resolution. The three views answer different questions and are
// memoized separately.
type DefaultsPolicy uint8

const (
	// IgnoreDefaults keeps fields generic even when they carry a
	// default value.
	IgnoreDefaults DefaultsPolicy = iota
	// UseDefaultsOtherFields honors other fields' defaults but ignores
	// a field's own, so the default cannot mask its genericity. This
	// is the view genericity classification uses.
	UseDefaultsOtherFields
	// UseDefaults substitutes every available default.
	UseDefaults
)

func (p DefaultsPolicy) String() string {
	switch p {
	case UseDefaultsOtherFields:
		return "use-defaults-other-fields"
	case UseDefaults:
		return "use-defaults"
	default:
		return "ignore-defaults"
	}
}

// ResolvedField is one field with its resolved type under some policy.
type ResolvedField struct {
	Name       source.StringID
	Decl       ast.ID
	HasDefault bool
	Type       types.QualifiedType
}

// ResolvedFields is the ordered field list of one nominal type plus
// its forwarding declarations and the derived genericity flags.
type ResolvedFields struct {
	Type                  types.TypeID
	Fields                []ResolvedField
	ForwardingTo          []ast.ID
	IsGeneric             bool
	IsGenericWithDefaults bool
}

// Genericity folds the two flags into the enum.
func (f *ResolvedFields) Genericity() types.Genericity {
	if f.IsGeneric {
		return types.Generic
	}
	if f.IsGenericWithDefaults {
		return types.GenericWithDefaults
	}
	return types.Concrete
}

// Field returns the entry for a field decl, nil when absent.
func (f *ResolvedFields) Field(decl ast.ID) *ResolvedField {
	for i := range f.Fields {
		if f.Fields[i].Decl == decl {
			return &f.Fields[i]
		}
	}
	return nil
}

// Fields is field resolution under the canonical policy.
func (r *Resolver) Fields(t types.TypeID) *ResolvedFields {
	return r.FieldsForTypeDecl(t, UseDefaultsOtherFields)
}

// nominalForDecl interns the uninstantiated nominal type of an
// aggregate declaration and links its superclass.
func (r *Resolver) nominalForDecl(_ *query.Context, decl ast.ID) types.TypeID {
	prog := r.prog()
	n := prog.IDToNode(decl)
	if n == nil || !n.Tag.IsAggregateDecl() {
		return r.Types.Builtins().Erroneous
	}
	t := r.Types.NewNominal(decl)
	if n.Tag == ast.TagClass && n.Inherits.IsValid() {
		parent := r.resolveInherits(decl, n)
		if parent.IsValid() {
			r.Types.SetParent(t, parent)
		}
	}
	return t
}

// resolveInherits maps a class's parent expression to the parent's
// uninstantiated nominal type.
func (r *Resolver) resolveInherits(decl ast.ID, n *ast.Node) types.TypeID {
	g := r.graph()
	parentName := r.prog().Node(n.Inherits).Name
	found := g.LookupNameInScope(g.ScopeForID(decl), nil, parentName, scopes.LookupDefault)
	for _, id := range found {
		if pn := r.prog().IDToNode(id); pn != nil && pn.Tag == ast.TagClass {
			return r.nominalQ.Get(id)
		}
	}
	r.report(diag.ResUnknownIdentifier, diag.SevError, n.Span,
		"unknown superclass "+r.strings().MustLookup(parentName))
	return types.NoTypeID
}

// resolveFields traverses the field declarations of a nominal type and
// resolves each one's type under the requested defaults policy.
func (r *Resolver) resolveFields(_ *query.Context, key fieldsKey) *ResolvedFields {
	out := &ResolvedFields{Type: key.Type}
	info := r.Types.Nominal(key.Type)
	if info == nil {
		return out
	}
	prog := r.prog()
	n := prog.IDToNode(info.Decl)
	if n == nil {
		return out
	}
	g := r.graph()
	scope := g.ScopeFor(info.Decl)

	// superclass fields participate in the class's genericity
	if info.Parent.IsValid() {
		r.foldParentGenericity(out, info.Parent)
	}

	env := newEnv(nil)
	for _, s := range info.Subs {
		env.subs[s.Decl] = s.Value
	}
	for _, c := range n.Children {
		if c == n.Inherits {
			continue
		}
		r.collectField(out, scope, c, key.Policy, env)
	}
	return out
}

func (r *Resolver) foldParentGenericity(out *ResolvedFields, parent types.TypeID) {
	k := fieldsKey{Type: parent, Policy: UseDefaultsOtherFields}
	if r.fieldsQ.IsRunning(k) {
		return // recursion through the hierarchy, treated as concrete
	}
	pf := r.fieldsQ.Get(k)
	out.IsGeneric = out.IsGeneric || pf.IsGeneric
	out.IsGenericWithDefaults = out.IsGenericWithDefaults || pf.IsGenericWithDefaults
}

// collectField handles one declaration statement, including grouped
// and destructuring declarations.
func (r *Resolver) collectField(out *ResolvedFields, scope scopes.ScopeID, nid ast.NodeID, policy DefaultsPolicy, env *env) {
	prog := r.prog()
	n := prog.Node(nid)
	switch n.Tag {
	case ast.TagVariable:
		r.resolveOneField(out, scope, nid, policy, env)
	case ast.TagMultiDecl:
		for _, c := range n.Children {
			r.collectField(out, scope, c, policy, env)
		}
	case ast.TagTupleDecl:
		// destructured fields share the initializer; each component
		// resolves independently
		for _, c := range n.Children {
			if c != n.InitExpr {
				r.collectField(out, scope, c, policy, env)
			}
		}
	case ast.TagForwardingDecl:
		out.ForwardingTo = append(out.ForwardingTo, prog.IDOf(nid))
		for _, c := range n.Children {
			if prog.Node(c).Tag == ast.TagVariable {
				r.collectField(out, scope, c, policy, env)
			}
		}
	}
}

func (r *Resolver) resolveOneField(out *ResolvedFields, scope scopes.ScopeID, nid ast.NodeID, policy DefaultsPolicy, env *env) {
	prog := r.prog()
	n := prog.Node(nid)
	decl := prog.IDOf(nid)
	hasDefault := n.InitExpr.IsValid()

	var qt types.QualifiedType
	if sub, ok := env.subs[decl]; ok {
		qt = sub
	} else {
		qt = r.declaredFieldType(scope, n, env)
	}

	gen := r.qtGenericity(qt, make(map[types.TypeID]unit))
	if gen == types.Generic && hasDefault && policy == UseDefaults {
		// substitute the default's type
		qt = r.exprType(scope, n.InitExpr, env)
		gen = r.qtGenericity(qt, make(map[types.TypeID]unit))
	}

	switch {
	case gen == types.Generic && hasDefault && policy != UseDefaults:
		out.IsGenericWithDefaults = true
	case gen == types.Generic:
		out.IsGeneric = true
	case gen == types.GenericWithDefaults:
		out.IsGenericWithDefaults = true
	}

	out.Fields = append(out.Fields, ResolvedField{
		Name:       n.Name,
		Decl:       decl,
		HasDefault: hasDefault,
		Type:       qt,
	})

	// later fields' type expressions may reference this field
	if _, ok := env.subs[decl]; !ok {
		switch {
		case !r.isGenericQT(qt):
			env.subs[decl] = qt
		case hasDefault && policy != IgnoreDefaults:
			env.subs[decl] = r.exprType(scope, n.InitExpr, env)
		}
	}
}

// declaredFieldType resolves a field's declared type; untyped fields
// are generic placeholders shaped by their intent.
func (r *Resolver) declaredFieldType(scope scopes.ScopeID, n *ast.Node, env *env) types.QualifiedType {
	bt := r.Types.Builtins()
	if !n.TypeExpr.IsValid() {
		switch n.Intent {
		case ast.IntentType:
			return types.MakeType(bt.Any)
		case ast.IntentParam:
			return types.Make(types.QualParam, bt.Any)
		default:
			return types.Make(types.QualVar, bt.Any)
		}
	}
	qt := r.resolveTypeExpr(scope, n.TypeExpr, env)
	q := types.QualVar
	switch n.Intent {
	case ast.IntentType:
		q = types.QualType
	case ast.IntentParam:
		q = types.QualParam
	case ast.IntentConst:
		q = types.QualConstVar
	}
	if qt.IsParam() && q == types.QualParam {
		return qt
	}
	return types.Make(q, qt.Type)
}

func (r *Resolver) isGenericQT(qt types.QualifiedType) bool {
	g := r.qtGenericity(qt, make(map[types.TypeID]unit))
	return g == types.Generic
}

// typeGenericity classifies a type, consulting field resolution for
// nominal types.
func (r *Resolver) typeGenericity(_ *query.Context, t types.TypeID) types.Genericity {
	return r.genericityWithIgnore(t, make(map[types.TypeID]unit))
}

// genericityWithIgnore carries the explicit in-progress set. A type
// already in the set is reported CONCRETE to break recursion through
// self-referential hierarchies; a known approximation for pathological
// mutual recursion.
func (r *Resolver) genericityWithIgnore(t types.TypeID, ignore map[types.TypeID]unit) types.Genericity {
	g := r.Types.ShallowGenericity(t)
	if g != types.MaybeGeneric {
		return g
	}
	if _, seen := ignore[t]; seen {
		return types.Concrete
	}
	ignore[t] = unit{}

	k := fieldsKey{Type: t, Policy: UseDefaultsOtherFields}
	if r.fieldsQ.IsRunning(k) {
		return types.Concrete
	}
	return r.fieldsQ.Get(k).Genericity()
}

func (r *Resolver) qtGenericity(qt types.QualifiedType, ignore map[types.TypeID]unit) types.Genericity {
	if qt.Qual == types.QualParam && !qt.Param.Known() {
		return types.Generic
	}
	if qt.IsUnknown() {
		return types.Generic
	}
	if r.Types.Kind(qt.Type) == types.KindTuple {
		g := types.Concrete
		for _, e := range r.Types.Tuple(qt.Type).Elems {
			g = types.CombineGenericity(g, r.qtGenericity(e, ignore))
		}
		return g
	}
	return r.genericityWithIgnore(qt.Type, ignore)
}

// forwardingCycle walks forwarding targets depth first. A repeated
// visit reports one cycle diagnostic and short-circuits.
func (r *Resolver) forwardingCycle(_ *query.Context, t types.TypeID) bool {
	return r.forwardingCycleVisit(t, make(map[types.TypeID]unit), true)
}

func (r *Resolver) forwardingCycleVisit(t types.TypeID, visited map[types.TypeID]unit, reportCycle bool) bool {
	if _, seen := visited[t]; seen {
		if reportCycle {
			if info := r.Types.Nominal(t); info != nil {
				n := r.prog().IDToNode(info.Decl)
				r.report(diag.ResForwardingCycle, diag.SevError, n.Span,
					"forwarding cycle through "+r.strings().MustLookup(n.Name))
			}
		}
		return true
	}
	visited[t] = unit{}
	for _, target := range r.forwardingTargets(t) {
		if r.forwardingCycleVisit(target, visited, false) {
			if reportCycle {
				if info := r.Types.Nominal(t); info != nil {
					n := r.prog().IDToNode(info.Decl)
					r.report(diag.ResForwardingCycle, diag.SevError, n.Span,
						"forwarding cycle through "+r.strings().MustLookup(n.Name))
				}
			}
			return true
		}
	}
	return false
}

// forwardingTargets resolves each forwarding declaration of a type to
// the nominal type it exposes.
func (r *Resolver) forwardingTargets(t types.TypeID) []types.TypeID {
	f := r.Fields(t)
	if len(f.ForwardingTo) == 0 {
		return nil
	}
	prog := r.prog()
	g := r.graph()
	var out []types.TypeID
	for _, fwd := range f.ForwardingTo {
		n := prog.IDToNode(fwd)
		if n == nil || len(n.Children) == 0 {
			continue
		}
		target := n.Children[0]
		scope := g.ScopeForID(fwd)
		qt := r.exprType(scope, target, newEnv(nil))
		if tn := prog.Node(target); tn.Tag == ast.TagVariable {
			// forwarding field: use its resolved field type
			if field := f.Field(prog.IDOf(target)); field != nil {
				qt = field.Type
			}
		}
		if r.Types.Kind(qt.Type) == types.KindNominal {
			out = append(out, r.Types.Root(qt.Type))
		}
	}
	return out
}
