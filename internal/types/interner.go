package types

import (
	"fmt"
	"sort"
	"strings"

	"fortio.org/safecast"

	"litho/internal/ast"
)

// Builtins stores TypeIDs for the primitive types.
type Builtins struct {
	Unknown   TypeID
	Erroneous TypeID
	Any       TypeID
	Nothing   TypeID
	Void      TypeID
	Bool      TypeID
	Int       TypeID
	Real      TypeID
	String    TypeID
}

// Sub is one field or formal substitution of a nominal instantiation.
type Sub struct {
	Decl  ast.ID
	Value QualifiedType
}

// NominalInfo describes one record, class or union type. An
// uninstantiated generic has no Subs; instantiations point back at
// their Root. Parent is the instantiated superclass, classes only.
type NominalInfo struct {
	Decl         ast.ID
	Root         TypeID
	Parent       TypeID
	Subs         []Sub
	Instantiated bool
}

// TupleInfo describes an anonymous tuple, including vararg bundles.
type TupleInfo struct {
	Elems []QualifiedType
}

// Interner provides stable TypeIDs by content. Nominal and tuple
// descriptors carry variable-length payloads, so they intern through
// string keys into side tables.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	byKey    map[string]TypeID
	nominals []NominalInfo
	tuples   []TupleInfo
	builtins Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:    make(map[Type]TypeID, 64),
		byKey:    make(map[string]TypeID, 64),
		nominals: make([]NominalInfo, 1), // reserve 0 as invalid sentinel
		tuples:   make([]TupleInfo, 1),
	}
	in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unknown = in.Intern(Type{Kind: KindUnknown})
	in.builtins.Erroneous = in.Intern(Type{Kind: KindErroneous})
	in.builtins.Any = in.Intern(Type{Kind: KindAny})
	in.builtins.Nothing = in.Intern(Type{Kind: KindNothing})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Real = in.Intern(Type{Kind: KindReal})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID. Nominal
// and tuple descriptors must go through NewNominal and NewTuple.
func (in *Interner) Intern(t Type) TypeID {
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// Kind returns the kind of a TypeID, KindInvalid for bad IDs.
func (in *Interner) Kind(id TypeID) Kind {
	t, ok := in.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return t.Kind
}

// IsErroneous reports the error-propagation sentinel.
func (in *Interner) IsErroneous(id TypeID) bool { return id == in.builtins.Erroneous }

// Nominal returns the side-table entry of a nominal TypeID.
func (in *Interner) Nominal(id TypeID) *NominalInfo {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindNominal {
		return nil
	}
	return &in.nominals[t.Payload]
}

// Tuple returns the side-table entry of a tuple TypeID.
func (in *Interner) Tuple(id TypeID) *TupleInfo {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindTuple {
		return nil
	}
	return &in.tuples[t.Payload]
}

// NewNominal interns the uninstantiated type of an aggregate decl.
func (in *Interner) NewNominal(decl ast.ID) TypeID {
	return in.nominal(NominalInfo{Decl: decl})
}

// InstantiateNominal interns an instantiation of root with the given
// substitutions. concrete marks a full instantiation. Substitution
// order does not affect identity.
func (in *Interner) InstantiateNominal(root TypeID, subs []Sub, concrete bool) TypeID {
	info := in.Nominal(root)
	if info == nil {
		return in.builtins.Erroneous
	}
	if len(subs) == 0 {
		return root
	}
	sorted := append([]Sub(nil), subs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Decl.Symbol != sorted[j].Decl.Symbol {
			return sorted[i].Decl.Symbol < sorted[j].Decl.Symbol
		}
		return sorted[i].Decl.Postorder < sorted[j].Decl.Postorder
	})
	rootID := root
	if info.Root.IsValid() {
		rootID = info.Root
	}
	return in.nominal(NominalInfo{
		Decl:         info.Decl,
		Root:         rootID,
		Parent:       info.Parent,
		Subs:         sorted,
		Instantiated: concrete,
	})
}

// SetParent records the instantiated superclass of a class type.
func (in *Interner) SetParent(id, parent TypeID) {
	if info := in.Nominal(id); info != nil {
		info.Parent = parent
	}
}

// Root returns the uninstantiated origin of a nominal type, the type
// itself when it is not an instantiation.
func (in *Interner) Root(id TypeID) TypeID {
	info := in.Nominal(id)
	if info == nil || !info.Root.IsValid() {
		return id
	}
	return info.Root
}

// SubFor returns the substitution recorded for a field decl, if any.
func (in *Interner) SubFor(id TypeID, decl ast.ID) (QualifiedType, bool) {
	info := in.Nominal(id)
	if info == nil {
		return UnknownQT, false
	}
	for _, s := range info.Subs {
		if s.Decl == decl {
			return s.Value, true
		}
	}
	return UnknownQT, false
}

// NewTuple interns a tuple type from element qualified types.
func (in *Interner) NewTuple(elems []QualifiedType) TypeID {
	var sb strings.Builder
	sb.WriteString("tup")
	for _, e := range elems {
		fmt.Fprintf(&sb, "|%d:%d:%s", e.Qual, e.Type, e.Param)
	}
	key := sb.String()
	if id, ok := in.byKey[key]; ok {
		return id
	}
	payload, err := safecast.Conv[uint32](len(in.tuples))
	if err != nil {
		panic(fmt.Errorf("tuple table overflow: %w", err))
	}
	in.tuples = append(in.tuples, TupleInfo{Elems: append([]QualifiedType(nil), elems...)})
	id := in.internRaw(Type{Kind: KindTuple, Payload: payload})
	in.byKey[key] = id
	return id
}

func (in *Interner) nominal(info NominalInfo) TypeID {
	var sb strings.Builder
	fmt.Fprintf(&sb, "nom|%d:%d", info.Decl.Symbol, info.Decl.Postorder)
	for _, s := range info.Subs {
		fmt.Fprintf(&sb, "|%d:%d=%d:%d:%s", s.Decl.Symbol, s.Decl.Postorder, s.Value.Qual, s.Value.Type, s.Value.Param)
	}
	key := sb.String()
	if id, ok := in.byKey[key]; ok {
		return id
	}
	payload, err := safecast.Conv[uint32](len(in.nominals))
	if err != nil {
		panic(fmt.Errorf("nominal table overflow: %w", err))
	}
	in.nominals = append(in.nominals, info)
	id := in.internRaw(Type{Kind: KindNominal, Payload: payload})
	in.byKey[key] = id
	return id
}
