package resolution

// disambiguate keeps the candidates not strictly less specific than
// any other. More than one survivor means the call is ambiguous.
func (r *Resolver) disambiguate(cands []candidate, ci *CallInfo) []candidate {
	if len(cands) <= 1 {
		return cands
	}
	var out []candidate
	for i := range cands {
		dominated := false
		for j := range cands {
			if i == j {
				continue
			}
			if r.morePreferred(&cands[j], &cands[i], ci) {
				dominated = true
				break
			}
		}
		if !dominated {
			out = append(out, cands[i])
		}
	}
	// duplicate signatures (the same decl reached twice) collapse
	seen := make(map[*TypedSignature]unit, len(out))
	dedup := out[:0]
	for _, c := range out {
		if _, ok := seen[c.Sig]; ok {
			continue
		}
		seen[c.Sig] = unit{}
		dedup = append(dedup, c)
	}
	return dedup
}

// morePreferred reports whether a is strictly more specific than b:
// at least one formal binds strictly better and none binds worse, with
// non-instantiated and where-constrained candidates winning ties.
func (r *Resolver) morePreferred(a, b *candidate, ci *CallInfo) bool {
	aBind := r.bindingRanks(a, ci)
	bBind := r.bindingRanks(b, ci)

	if len(aBind) == len(bBind) {
		better, worse := false, false
		for i := range aBind {
			if aBind[i] < bBind[i] {
				better = true
			}
			if aBind[i] > bBind[i] {
				worse = true
			}
		}
		if better && !worse {
			return true
		}
		if worse {
			return false
		}
	}

	// formal-by-formal tie: prefer the non-instantiated candidate
	if !a.Result.Instantiated && b.Result.Instantiated {
		return true
	}
	if a.Result.Instantiated && !b.Result.Instantiated {
		return false
	}
	// then a satisfied where clause beats no where clause
	if a.Sig.Where == WhereTrue && b.Sig.Where == WhereNone {
		return true
	}
	return false
}

// binding ranks, lower is more specific
const (
	rankExact = iota
	rankInstantiated
	rankConvert
	rankPromote
)

// bindingRanks classifies how each actual bound to the candidate's
// formals.
func (r *Resolver) bindingRanks(c *candidate, ci *CallInfo) []int {
	m := buildFormalActualMap(c.Sig, ci)
	if m.Failed {
		return nil
	}
	ranks := make([]int, 0, len(m.ByFormal))
	for i := range m.ByFormal {
		fa := &m.ByFormal[i]
		if !fa.HasActual {
			continue
		}
		if fa.Formal.IsVarArgs || fa.IsQuestion {
			ranks = append(ranks, rankInstantiated)
			continue
		}
		cp := r.Types.CanPass(fa.ActualType, fa.FormalType)
		switch {
		case cp.Promotes:
			ranks = append(ranks, rankPromote)
		case cp.Converts:
			ranks = append(ranks, rankConvert)
		case cp.Instantiates || c.Sig.FormalInstantiated(i):
			ranks = append(ranks, rankInstantiated)
		default:
			ranks = append(ranks, rankExact)
		}
	}
	return ranks
}
