package resolution

import (
	"litho/internal/ast"
	"litho/internal/diag"
	"litho/internal/query"
	"litho/internal/scopes"
	"litho/internal/source"
	"litho/internal/types"
)

type unit = struct{}

type fieldsKey struct {
	Type   types.TypeID
	Policy DefaultsPolicy
}

type fnInfoKey struct {
	Sig *TypedSignature
	Poi *PoiScope
}

// ModuleResolution is the result of resolving one module's top-level
// statements.
type ModuleResolution struct {
	Module ast.ID
	Result *ResolutionResultByPostorderID
}

// Resolver owns the query tables and interners for one compilation
// session. Single-threaded; the driver is the only caller.
type Resolver struct {
	qc    *query.Context
	Types *types.Interner

	programIn *query.Input[unit, *ast.Program]

	scopeGraphQ   *query.Table[unit, *scopes.Graph]
	untypedSigQ   *query.Table[ast.ID, *UntypedSignature]
	initialSigQ   *query.Table[*UntypedSignature, *TypedSignature]
	typeCtorQ     *query.Table[types.TypeID, *TypedSignature]
	nominalQ      *query.Table[ast.ID, types.TypeID]
	fieldsQ       *query.Table[fieldsKey, *ResolvedFields]
	genericityQ   *query.Table[types.TypeID, types.Genericity]
	fwdCycleQ     *query.Table[types.TypeID, bool]
	moduleTypeQ   *query.Table[ast.ID, types.QualifiedType]
	resolveModQ   *query.Table[ast.ID, *ModuleResolution]
	fnByInfoQ     *query.Table[fnInfoKey, *ResolvedFunction]

	// content interning; pointer equality equals content equality
	untypedSigs map[string]*UntypedSignature
	typedSigs   map[string]*TypedSignature
	poiScopes   map[poiKey]*PoiScope
	fnByPois    map[poisKey]*ResolvedFunction

	// bodies currently being resolved, for recursion detection
	activeBodies map[*TypedSignature]int
}

// New builds a resolver bound to a query context. SetProgram must be
// called before any resolution entry point.
func New(qc *query.Context) *Resolver {
	r := &Resolver{
		qc:          qc,
		Types:       types.NewInterner(),
		untypedSigs: make(map[string]*UntypedSignature),
		typedSigs:   make(map[string]*TypedSignature),
		poiScopes:   make(map[poiKey]*PoiScope),
		fnByPois:    make(map[poisKey]*ResolvedFunction),
		activeBodies: make(map[*TypedSignature]int),
	}
	r.programIn = query.NewInput[unit, *ast.Program](qc, "program", query.Eq[*ast.Program])

	r.scopeGraphQ = query.NewTable(qc, "scopeGraph", query.Eq[*scopes.Graph],
		func(_ *query.Context, _ unit) *scopes.Graph {
			return scopes.Build(r.prog())
		})
	r.untypedSigQ = query.NewTable(qc, "untypedSignature", query.Eq[*UntypedSignature], r.untypedSignatureFor)
	r.initialSigQ = query.NewTable(qc, "typedSignatureInitial", query.Eq[*TypedSignature], r.typedSignatureInitial)
	r.typeCtorQ = query.NewTable(qc, "typeConstructorInitial", query.Eq[*TypedSignature], r.typeConstructorInitial)
	r.nominalQ = query.NewTable(qc, "nominalForDecl", query.Eq[types.TypeID], r.nominalForDecl)
	r.fieldsQ = query.NewTable(qc, "resolveFields", query.Eq[*ResolvedFields], r.resolveFields)
	r.genericityQ = query.NewTable(qc, "typeGenericity", query.Eq[types.Genericity], r.typeGenericity)
	r.fwdCycleQ = query.NewTable(qc, "forwardingCycle", query.Eq[bool], r.forwardingCycle)
	r.moduleTypeQ = query.NewTable(qc, "typeForModuleLevelSymbol", query.Eq[types.QualifiedType], r.typeForModuleLevelSymbol)
	r.resolveModQ = query.NewTable(qc, "resolveModule", query.Eq[*ModuleResolution], r.resolveModule)
	r.fnByInfoQ = query.NewTable(qc, "resolveFunctionByInfo", query.Eq[*ResolvedFunction], r.resolveFunctionByInfo)
	return r
}

// SetProgram installs a new program revision. Session-lifetime caches
// keyed by AST identity survive; stable IDs keep them valid for
// untouched subtrees.
func (r *Resolver) SetProgram(p *ast.Program) {
	r.programIn.Set(unit{}, p)
}

func (r *Resolver) prog() *ast.Program      { return r.programIn.Get(unit{}) }
func (r *Resolver) graph() *scopes.Graph    { return r.scopeGraphQ.Get(unit{}) }
func (r *Resolver) strings() *source.Interner {
	return r.prog().Strings
}

func (r *Resolver) report(code diag.Code, sev diag.Severity, at source.Span, msg string) {
	r.qc.Report(code, sev, at, msg, nil)
}

// ResolveModule resolves every module-level statement of a module and
// returns per-expression results keyed by postorder ID.
func (r *Resolver) ResolveModule(module ast.ID) *ModuleResolution {
	return r.resolveModQ.Get(module)
}

// TypeForModuleLevelSymbol returns the qualified type of one
// module-level declaration.
func (r *Resolver) TypeForModuleLevelSymbol(id ast.ID) types.QualifiedType {
	return r.moduleTypeQ.Get(id)
}

// ResolveFunction resolves a function body for an instantiated
// signature under a POI scope, reusing a prior resolution when the
// POI-visible overloads it used are identical.
func (r *Resolver) ResolveFunction(sig *TypedSignature, poi *PoiScope) *ResolvedFunction {
	if sig == nil || sig.NeedsInstantiation {
		return nil
	}
	return r.fnByInfoQ.Get(fnInfoKey{Sig: sig, Poi: poi})
}

// ResolveConcreteFunction resolves a non-generic function straight
// from its declaration, nil when the function is generic.
func (r *Resolver) ResolveConcreteFunction(fn ast.ID) *ResolvedFunction {
	u := r.untypedSigQ.Get(fn)
	if u == nil {
		return nil
	}
	sig := r.initialSigQ.Get(u)
	if sig == nil || sig.NeedsInstantiation {
		return nil
	}
	return r.ResolveFunction(sig, nil)
}

// UntypedSignatureFor exposes the untyped signature query.
func (r *Resolver) UntypedSignatureFor(fn ast.ID) *UntypedSignature {
	return r.untypedSigQ.Get(fn)
}

// InitialSignature exposes the initial typed signature query.
func (r *Resolver) InitialSignature(u *UntypedSignature) *TypedSignature {
	return r.initialSigQ.Get(u)
}

// TypeConstructorFor exposes the synthesized type-constructor query.
func (r *Resolver) TypeConstructorFor(t types.TypeID) *TypedSignature {
	return r.typeCtorQ.Get(t)
}

// NominalFor returns the uninstantiated nominal type of an aggregate
// declaration.
func (r *Resolver) NominalFor(decl ast.ID) types.TypeID {
	return r.nominalQ.Get(decl)
}

// FieldsForTypeDecl exposes the memoized field resolution for one
// nominal type under a defaults policy.
func (r *Resolver) FieldsForTypeDecl(t types.TypeID, policy DefaultsPolicy) *ResolvedFields {
	return r.fieldsQ.Get(fieldsKey{Type: t, Policy: policy})
}

// TypeGenericity exposes the memoized genericity classification.
func (r *Resolver) TypeGenericity(t types.TypeID) types.Genericity {
	return r.genericityQ.Get(t)
}

// HasForwardingCycle exposes the forwarding cycle check.
func (r *Resolver) HasForwardingCycle(t types.TypeID) bool {
	return r.fwdCycleQ.Get(t)
}
