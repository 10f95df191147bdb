package ast

import (
	"fmt"

	"litho/internal/source"
)

// NodeID is a position-dependent arena index. It is valid only within
// one Program and never crosses revisions; stable references use ID.
type NodeID uint32

const NoNodeID NodeID = 0

func (id NodeID) IsValid() bool { return id != NoNodeID }

// ID is a stable, position-independent reference to a syntax node:
// the interned dotted path of the enclosing symbol plus the node's
// post-order index within that symbol. Symbol-introducing nodes use
// postorder -1 and their own path.
//
// Two IDs are equal iff they denote the same node across incremental
// re-parses that do not touch that node's subtree.
type ID struct {
	Symbol    source.StringID
	Postorder int32
}

var NoID = ID{}

func (id ID) IsValid() bool {
	return id.Symbol != source.NoStringID
}

// IsSymbolID reports whether the ID denotes the symbol node itself.
func (id ID) IsSymbolID() bool {
	return id.Postorder < 0
}

func (id ID) String() string {
	return fmt.Sprintf("%d@%d", id.Symbol, id.Postorder)
}
