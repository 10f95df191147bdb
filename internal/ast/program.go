package ast

import (
	"fmt"

	"fortio.org/safecast"

	"litho/internal/source"
)

// Program is an immutable forest of module trees plus the stable-ID
// index built over it. The out-of-scope parser produces one Program per
// revision; the resolver only ever reads it.
type Program struct {
	Strings *source.Interner

	nodes     []Node // index 0 reserved for NoNodeID
	ids       []ID
	parents   []NodeID
	contained []int32 // same-symbol descendants per node
	byID      map[ID]NodeID
	symSize   map[source.StringID]int32 // symbol path -> postorder count
	modules   []NodeID
}

func newProgram(strings *source.Interner) *Program {
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Program{
		Strings:   strings,
		nodes:     make([]Node, 1, 64),
		ids:       make([]ID, 1, 64),
		parents:   make([]NodeID, 1, 64),
		contained: make([]int32, 1, 64),
		byID:      make(map[ID]NodeID),
		symSize:   make(map[source.StringID]int32),
	}
}

func (p *Program) newNode(n Node) NodeID {
	value, err := safecast.Conv[uint32](len(p.nodes))
	if err != nil {
		panic(fmt.Errorf("ast arena overflow: %w", err))
	}
	id := NodeID(value)
	p.nodes = append(p.nodes, n)
	p.ids = append(p.ids, NoID)
	p.parents = append(p.parents, NoNodeID)
	p.contained = append(p.contained, 0)
	return id
}

// Node returns the node for an arena index, or nil when invalid.
func (p *Program) Node(id NodeID) *Node {
	if !id.IsValid() || int(id) >= len(p.nodes) {
		return nil
	}
	return &p.nodes[id]
}

// Modules returns the arena indexes of all top-level modules.
func (p *Program) Modules() []NodeID {
	return p.modules
}

// IDOf returns the stable ID assigned to an arena index.
func (p *Program) IDOf(id NodeID) ID {
	if !id.IsValid() || int(id) >= len(p.ids) {
		return NoID
	}
	return p.ids[id]
}

// NodeForID maps a stable ID back to its arena index.
func (p *Program) NodeForID(id ID) NodeID {
	return p.byID[id]
}

// IDToNode returns the node denoted by a stable ID, or nil.
func (p *Program) IDToNode(id ID) *Node {
	return p.Node(p.byID[id])
}

// IDToParentID returns the stable ID of the node's lexical parent.
func (p *Program) IDToParentID(id ID) ID {
	return p.IDOf(p.parents[p.byID[id]])
}

// ParentOf returns the arena index of a node's parent.
func (p *Program) ParentOf(id NodeID) NodeID {
	if !id.IsValid() || int(id) >= len(p.parents) {
		return NoNodeID
	}
	return p.parents[id]
}

// NumContained reports how many same-symbol descendants a node has.
// A node's subtree within its symbol occupies the dense postorder
// range [Postorder-NumContained, Postorder].
func (p *Program) NumContained(id ID) int32 {
	return p.contained[p.byID[id]]
}

// SymbolSize reports the number of postorder-numbered nodes within a
// symbol, used to size dense per-symbol result tables.
func (p *Program) SymbolSize(symbol source.StringID) int32 {
	return p.symSize[symbol]
}

// Formals returns the formal declarations of a function node in order.
func (p *Program) Formals(fn NodeID) []NodeID {
	n := p.Node(fn)
	if n == nil || n.Tag != TagFunction {
		return nil
	}
	out := make([]NodeID, 0, len(n.Children))
	for _, c := range n.Children {
		ct := p.Node(c).Tag
		if ct == TagFormal || ct == TagVarArgFormal {
			out = append(out, c)
		}
	}
	return out
}

// EnclosingSymbolID walks parents until it reaches a symbol decl and
// returns that symbol's stable ID, or NoID at a top-level module.
func (p *Program) EnclosingSymbolID(id ID) ID {
	nid := p.byID[id]
	for cur := p.parents[nid]; cur.IsValid(); cur = p.parents[cur] {
		if p.nodes[cur].Tag.IsSymbolDecl() {
			return p.ids[cur]
		}
	}
	return NoID
}

// assignIDs numbers every node. Nodes inside one symbol get dense
// postorder indexes that skip nested symbol subtrees; nested symbols
// get their own dotted path and postorder -1.
func (p *Program) assignIDs() {
	for _, m := range p.modules {
		name, _ := p.Strings.Lookup(p.nodes[m].Name)
		p.assignSymbol(m, NoNodeID, name)
	}
}

func (p *Program) assignSymbol(sym, parent NodeID, path string) {
	// overloads share a name; suffix an ordinal so each declaration
	// keeps a distinct stable ID
	base := path
	pathID := p.Strings.Intern(path)
	for n := 1; ; n++ {
		if _, taken := p.byID[ID{Symbol: pathID, Postorder: -1}]; !taken {
			break
		}
		path = fmt.Sprintf("%s#%d", base, n)
		pathID = p.Strings.Intern(path)
	}
	p.parents[sym] = parent
	symID := ID{Symbol: pathID, Postorder: -1}
	p.ids[sym] = symID
	p.byID[symID] = sym

	counter := int32(0)
	for _, c := range p.nodes[sym].Children {
		p.numberSubtree(c, sym, pathID, path, &counter)
	}
	p.symSize[pathID] = counter
}

// numberSubtree assigns postorder ids within the symbol identified by
// pathID, returning after setting parent links. Nested symbol decls
// are not numbered here; they start their own path.
func (p *Program) numberSubtree(n, parent NodeID, pathID source.StringID, path string, counter *int32) {
	p.parents[n] = parent

	if p.nodes[n].Tag.IsSymbolDecl() {
		name, _ := p.Strings.Lookup(p.nodes[n].Name)
		p.assignSymbol(n, parent, path+"."+name)
		return
	}

	before := *counter
	for _, c := range p.nodes[n].Children {
		p.numberSubtree(c, n, pathID, path, counter)
	}

	id := ID{Symbol: pathID, Postorder: *counter}
	*counter++
	p.ids[n] = id
	p.byID[id] = n
	p.contained[n] = id.Postorder - before
}
