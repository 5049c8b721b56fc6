// Package cfg defines the control flow graph built from a Bril function.
// Nodes are basic blocks identified by a BlockName; edges are typed branches.
// Every return in the source becomes an edge into a single synthesized exit block,
// so each graph has exactly one entry and one exit.
package cfg

import (
	"fmt"
	"slices"

	"github.com/raymyers/ralph-bril/pkg/bril"
)

// NodeID is a stable index of a block within one Cfg
type NodeID int

// BlockKind distinguishes the entry, the exit, and label-named blocks
type BlockKind int

const (
	EntryBlock BlockKind = iota
	ExitBlock
	NamedBlock
)

// BlockName identifies a basic block. It is comparable and usable as a map key;
// two named blocks are equal iff their labels are equal.
type BlockName struct {
	Kind  BlockKind
	Label string // set only for NamedBlock
}

// Entry returns the name of the function entry block
func Entry() BlockName { return BlockName{Kind: EntryBlock} }

// Exit returns the name of the synthesized exit block
func Exit() BlockName { return BlockName{Kind: ExitBlock} }

// Named returns the name of the block introduced by label
func Named(label string) BlockName { return BlockName{Kind: NamedBlock, Label: label} }

func (n BlockName) String() string {
	switch n.Kind {
	case EntryBlock:
		return "entry"
	case ExitBlock:
		return "exit"
	default:
		return "." + n.Label
	}
}

// BasicBlock is a node: straight-line instructions without control transfers
type BasicBlock struct {
	Name   BlockName
	Instrs []bril.Instruction
	Pos    *bril.Position // position of the introducing label; nil for entry and exit
}

// --- Branch operations ---

// BranchOp is the kind of control transfer an edge represents
type BranchOp interface {
	implBranchOp()
	String() string
}

// Jmp is an unconditional transfer: a jump, a fallthrough, or a return without a value
type Jmp struct{}

// Cond is one side of a conditional branch on Arg; Val is the outcome this edge is taken on
type Cond struct {
	Arg string
	Val bool
}

// RetVal is a return carrying the value of Arg
type RetVal struct {
	Arg string
}

func (Jmp) implBranchOp()    {}
func (Cond) implBranchOp()   {}
func (RetVal) implBranchOp() {}

func (Jmp) String() string      { return "jmp" }
func (o Cond) String() string   { return fmt.Sprintf("br %s=%t", o.Arg, o.Val) }
func (o RetVal) String() string { return "ret " + o.Arg }

// Branch is an edge weight
type Branch struct {
	Op  BranchOp
	Pos *bril.Position // position of the terminator that produced the edge
}

// Edge is a directed edge Src -> Dst
type Edge struct {
	Src    NodeID
	Dst    NodeID
	Branch Branch
}

// --- Graph ---

// Cfg is the control flow graph of one function. It is built by a Builder
// and read-only afterwards: accessors return copies.
type Cfg struct {
	name   string
	args   []bril.Argument
	blocks []BasicBlock
	edges  []Edge
	entry  NodeID
	exit   NodeID
}

// Name returns the source function name
func (c *Cfg) Name() string { return c.name }

// Args returns the function's formal arguments
func (c *Cfg) Args() []bril.Argument { return slices.Clone(c.args) }

// Entry returns the entry block
func (c *Cfg) Entry() NodeID { return c.entry }

// Exit returns the exit block
func (c *Cfg) Exit() NodeID { return c.exit }

// NumBlocks returns the number of blocks
func (c *Cfg) NumBlocks() int { return len(c.blocks) }

// NumEdges returns the number of edges
func (c *Cfg) NumEdges() int { return len(c.edges) }

// Block returns the block with the given id. It panics if id is out of range.
func (c *Cfg) Block(id NodeID) BasicBlock {
	b := c.blocks[id]
	b.Instrs = slices.Clone(b.Instrs)
	return b
}

// Blocks returns all blocks indexed by NodeID
func (c *Cfg) Blocks() []BasicBlock {
	blocks := make([]BasicBlock, len(c.blocks))
	for i := range c.blocks {
		blocks[i] = c.Block(NodeID(i))
	}
	return blocks
}

// Edges returns all edges in insertion order
func (c *Cfg) Edges() []Edge { return slices.Clone(c.edges) }

// OutEdges returns the edges leaving id, in insertion order
func (c *Cfg) OutEdges(id NodeID) []Edge {
	var out []Edge
	for _, e := range c.edges {
		if e.Src == id {
			out = append(out, e)
		}
	}
	return out
}

// InEdges returns the edges entering id, in insertion order
func (c *Cfg) InEdges(id NodeID) []Edge {
	var in []Edge
	for _, e := range c.edges {
		if e.Dst == id {
			in = append(in, e)
		}
	}
	return in
}

// Successors returns the targets of id's outgoing edges; duplicates are kept
func (c *Cfg) Successors(id NodeID) []NodeID {
	var succs []NodeID
	for _, e := range c.edges {
		if e.Src == id {
			succs = append(succs, e.Dst)
		}
	}
	return succs
}

// Lookup finds the block with the given name
func (c *Cfg) Lookup(name BlockName) (NodeID, bool) {
	for i, b := range c.blocks {
		if b.Name == name {
			return NodeID(i), true
		}
	}
	return 0, false
}
