package resolution

import (
	"fmt"
	"sort"
	"strings"

	"litho/internal/ast"
	"litho/internal/query"
	"litho/internal/scopes"
)

// PoiScope is one link of a point-of-instantiation chain: the scope a
// generic instantiation was requested from, linked to the POI in
// effect when the enclosing function was itself being resolved.
// Interned, so pointer equality is identity.
type PoiScope struct {
	Scope   scopes.ScopeID
	InFnPoi *PoiScope
}

type poiKey struct {
	Scope  scopes.ScopeID
	Parent *PoiScope
}

// PoiScopeFor interns the POI scope for a call site under the current
// chain.
func (r *Resolver) PoiScopeFor(scope scopes.ScopeID, parent *PoiScope) *PoiScope {
	key := poiKey{Scope: scope, Parent: parent}
	if got, ok := r.poiScopes[key]; ok {
		return got
	}
	ps := &PoiScope{Scope: scope, InFnPoi: parent}
	r.poiScopes[key] = ps
	return ps
}

// poiPair records that resolving some call selected a function that
// was only visible through a POI scope.
type poiPair struct {
	Call ast.ID
	Fn   ast.ID
}

// PoiInfo accumulates which POI-visible functions a resolution
// actually used. Two instantiations of the same signature can share a
// resolved body exactly when these sets agree.
type PoiInfo struct {
	PoiScopesUsed    map[*PoiScope]unit
	PoiFnIdsUsed     map[poiPair]unit
	RecursiveFnsUsed map[*TypedSignature]unit
}

func newPoiInfo() PoiInfo {
	return PoiInfo{
		PoiScopesUsed:    make(map[*PoiScope]unit),
		PoiFnIdsUsed:     make(map[poiPair]unit),
		RecursiveFnsUsed: make(map[*TypedSignature]unit),
	}
}

func (p *PoiInfo) addIdsUsed(call, fn ast.ID) {
	p.PoiFnIdsUsed[poiPair{Call: call, Fn: fn}] = unit{}
}

func (p *PoiInfo) addScopeUsed(ps *PoiScope) {
	if ps != nil {
		p.PoiScopesUsed[ps] = unit{}
	}
}

func (p *PoiInfo) addRecursive(sig *TypedSignature) {
	p.RecursiveFnsUsed[sig] = unit{}
}

// accumulate folds a callee resolution's POI usage into the caller's.
func (p *PoiInfo) accumulate(other *PoiInfo) {
	for k := range other.PoiScopesUsed {
		p.PoiScopesUsed[k] = unit{}
	}
	for k := range other.PoiFnIdsUsed {
		p.PoiFnIdsUsed[k] = unit{}
	}
	for k := range other.RecursiveFnsUsed {
		p.RecursiveFnsUsed[k] = unit{}
	}
}

// usedKey is a deterministic rendering of the used set, the second
// cache level's key extension.
func (p *PoiInfo) usedKey() string {
	keys := make([]string, 0, len(p.PoiScopesUsed)+len(p.PoiFnIdsUsed)+len(p.RecursiveFnsUsed))
	for k := range p.PoiScopesUsed {
		keys = append(keys, "p"+poiChainKey(k))
	}
	for k := range p.PoiFnIdsUsed {
		keys = append(keys, fmt.Sprintf("c%d:%d>f%d:%d", k.Call.Symbol, k.Call.Postorder, k.Fn.Symbol, k.Fn.Postorder))
	}
	for k := range p.RecursiveFnsUsed {
		keys = append(keys, "r"+untypedKey(k.Untyped))
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

// poiChainKey renders a POI chain outermost-last, deterministically.
func poiChainKey(ps *PoiScope) string {
	var sb strings.Builder
	for ; ps != nil; ps = ps.InFnPoi {
		fmt.Fprintf(&sb, "%d<", ps.Scope)
	}
	return sb.String()
}

type poisKey struct {
	Sig  *TypedSignature
	Used string
}

// resolveFunctionByInfo resolves an instantiated function's body under
// a POI scope. After the body resolves, the set of POI-visible
// functions it used keys a second cache level: when an earlier
// resolution from a different POI used the identical set, that result
// is shared.
func (r *Resolver) resolveFunctionByInfo(_ *query.Context, key fnInfoKey) *ResolvedFunction {
	rf := r.resolveFunctionBody(key.Sig, key.Poi)
	if rf == nil {
		return nil
	}
	pk := poisKey{Sig: key.Sig, Used: rf.PoiInfo.usedKey()}
	if cached, ok := r.fnByPois[pk]; ok {
		return cached
	}
	r.fnByPois[pk] = rf
	return rf
}
