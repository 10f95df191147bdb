package ast

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"litho/internal/source"
)

// ErrSnapshotSchema marks a snapshot written by an incompatible
// frontend version.
var ErrSnapshotSchema = errors.New("unsupported snapshot schema")

// Current schema version - increment when snapshot format changes
const snapshotSchemaVersion uint16 = 1

// snapNode is the wire form of one arena slot.
type snapNode struct {
	Tag      uint8
	Intent   uint8
	Flags    uint16
	Name     uint32
	File     uint32
	Start    uint32
	End      uint32
	Children []uint32

	TypeExpr    uint32
	InitExpr    uint32
	VarArgCount uint32
	Where       uint32
	Body        uint32
	Inherits    uint32

	IntVal  int64
	RealVal float64
	BoolVal bool
	StrVal  uint32
	ByName  uint32
}

// Snapshot is the serialized form of a Program, the format the parser
// frontend emits as *.astc files.
type Snapshot struct {
	Schema  uint16
	Strings []string
	Nodes   []snapNode
	Modules []uint32
}

// EncodeSnapshot writes the program as a msgpack snapshot.
func EncodeSnapshot(w io.Writer, p *Program) error {
	snap := Snapshot{
		Schema:  snapshotSchemaVersion,
		Strings: p.Strings.Snapshot(),
		Nodes:   make([]snapNode, len(p.nodes)),
		Modules: make([]uint32, len(p.modules)),
	}
	for i, n := range p.nodes {
		children := make([]uint32, len(n.Children))
		for j, c := range n.Children {
			children[j] = uint32(c)
		}
		snap.Nodes[i] = snapNode{
			Tag: uint8(n.Tag), Intent: uint8(n.Intent), Flags: uint16(n.Flags),
			Name: uint32(n.Name), Children: children,
			File: uint32(n.Span.File), Start: n.Span.Start, End: n.Span.End,
			TypeExpr: uint32(n.TypeExpr), InitExpr: uint32(n.InitExpr),
			VarArgCount: uint32(n.VarArgCount), Where: uint32(n.Where),
			Body: uint32(n.Body), Inherits: uint32(n.Inherits),
			IntVal: n.IntVal, RealVal: n.RealVal, BoolVal: n.BoolVal,
			StrVal: uint32(n.StrVal), ByName: uint32(n.ByName),
		}
	}
	for i, m := range p.modules {
		snap.Modules[i] = uint32(m)
	}
	return msgpack.NewEncoder(w).Encode(&snap)
}

// DecodeSnapshot reads a msgpack snapshot and rebuilds the Program,
// including the stable-ID index.
func DecodeSnapshot(r io.Reader) (*Program, error) {
	var snap Snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, err
	}
	if snap.Schema != snapshotSchemaVersion {
		return nil, fmt.Errorf("ast: schema %d, want %d: %w", snap.Schema, snapshotSchemaVersion, ErrSnapshotSchema)
	}
	if len(snap.Strings) == 0 || len(snap.Nodes) == 0 {
		return nil, fmt.Errorf("ast: empty snapshot")
	}

	p := newProgram(source.NewInternerFromSnapshot(snap.Strings))
	for _, sn := range snap.Nodes[1:] {
		children := make([]NodeID, len(sn.Children))
		for j, c := range sn.Children {
			children[j] = NodeID(c)
		}
		p.newNode(Node{
			Tag: Tag(sn.Tag), Intent: Intent(sn.Intent), Flags: Flags(sn.Flags),
			Name: source.StringID(sn.Name), Children: children,
			Span: source.Span{File: source.FileID(sn.File), Start: sn.Start, End: sn.End},
			TypeExpr: NodeID(sn.TypeExpr), InitExpr: NodeID(sn.InitExpr),
			VarArgCount: NodeID(sn.VarArgCount), Where: NodeID(sn.Where),
			Body: NodeID(sn.Body), Inherits: NodeID(sn.Inherits),
			IntVal: sn.IntVal, RealVal: sn.RealVal, BoolVal: sn.BoolVal,
			StrVal: source.StringID(sn.StrVal), ByName: source.StringID(sn.ByName),
		})
	}
	for _, m := range snap.Modules {
		p.modules = append(p.modules, NodeID(m))
	}
	p.assignIDs()
	return p, nil
}

// LoadSnapshot decodes a *.astc file from disk.
func LoadSnapshot(path string) (*Program, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			panic(closeErr)
		}
	}()
	return DecodeSnapshot(f)
}
