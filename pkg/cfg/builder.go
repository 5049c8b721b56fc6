package cfg

import (
	"fmt"
	"slices"

	"github.com/raymyers/ralph-bril/pkg/bril"
)

// Builder constructs a Cfg incrementally.
// It owns the graph under construction and maps labels to blocks, creating a
// block the first time a label is seen, whether as a target or a declaration.
type Builder struct {
	cfg         *Cfg
	labelBlocks map[string]NodeID // label -> block
}

// NewBuilder creates a builder holding just the entry and exit blocks
func NewBuilder(name string, args []bril.Argument) *Builder {
	b := &Builder{
		cfg: &Cfg{
			name: name,
			args: slices.Clone(args),
		},
		labelBlocks: make(map[string]NodeID),
	}
	b.cfg.entry = b.addBlock(Entry())
	b.cfg.exit = b.addBlock(Exit())
	return b
}

func (b *Builder) addBlock(name BlockName) NodeID {
	id := NodeID(len(b.cfg.blocks))
	b.cfg.blocks = append(b.cfg.blocks, BasicBlock{Name: name})
	return id
}

// graph returns the graph under construction; it panics once finalized
func (b *Builder) graph() *Cfg {
	if b.cfg == nil {
		panic("cfg: builder used after Finalize")
	}
	return b.cfg
}

// Entry returns the entry block
func (b *Builder) Entry() NodeID { return b.graph().entry }

// Exit returns the exit block
func (b *Builder) Exit() NodeID { return b.graph().exit }

// Resolve returns the block for a label, creating an empty one on first use.
func (b *Builder) Resolve(label string) NodeID {
	b.graph()
	if id, ok := b.labelBlocks[label]; ok {
		return id
	}
	id := b.addBlock(Named(label))
	b.labelBlocks[label] = id
	return id
}

// Lookup returns the block for a label if it exists.
func (b *Builder) Lookup(label string) (NodeID, bool) {
	b.graph()
	id, ok := b.labelBlocks[label]
	return id, ok
}

// CommitInstructions assigns a block's instructions.
// The block must not have any yet; blocks are filled exactly once.
func (b *Builder) CommitInstructions(id NodeID, instrs []bril.Instruction) {
	blk := &b.graph().blocks[id]
	if len(blk.Instrs) > 0 {
		panic(fmt.Sprintf("cfg: block %s already has instructions", blk.Name))
	}
	blk.Instrs = instrs
}

// SetPosition records the source position of the label that introduced a block
func (b *Builder) SetPosition(id NodeID, pos *bril.Position) {
	b.graph().blocks[id].Pos = pos
}

// AddEdge adds an edge src -> dst. Parallel edges are allowed.
func (b *Builder) AddEdge(src, dst NodeID, branch Branch) {
	g := b.graph()
	g.edges = append(g.edges, Edge{Src: src, Dst: dst, Branch: branch})
}

// OutDegree returns the number of edges leaving id
func (b *Builder) OutDegree(id NodeID) int {
	n := 0
	for _, e := range b.graph().edges {
		if e.Src == id {
			n++
		}
	}
	return n
}

// Finalize completes the graph and returns it.
// If nothing leaves the entry block (the body never branches, jumps or returns)
// an unconditional edge entry -> exit is added. The builder cannot be used afterwards.
func (b *Builder) Finalize() *Cfg {
	g := b.graph()
	if b.OutDegree(g.entry) == 0 {
		b.AddEdge(g.entry, g.exit, Branch{Op: Jmp{}})
	}
	b.cfg = nil
	b.labelBlocks = nil
	return g
}
