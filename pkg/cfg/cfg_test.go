package cfg

import (
	"testing"

	"github.com/raymyers/ralph-bril/pkg/bril"
)

// diamond builds:
//
//	entry --br c--> .then / .else, both --jmp--> .join --ret x--> exit
//
// plus an unreachable block .dead that returns.
func diamond() *Cfg {
	b := NewBuilder("diamond", []bril.Argument{{Name: "c", Type: bril.Prim(bril.TBool)}})
	then := b.Resolve("then")
	els := b.Resolve("else")
	join := b.Resolve("join")
	dead := b.Resolve("dead")

	brPos := &bril.Position{Pos: bril.ColRow{Row: 2, Col: 3}}
	b.AddEdge(b.Entry(), then, Branch{Op: Cond{Arg: "c", Val: true}, Pos: brPos})
	b.AddEdge(b.Entry(), els, Branch{Op: Cond{Arg: "c", Val: false}, Pos: brPos})
	b.CommitInstructions(then, []bril.Instruction{
		bril.Constant{Dest: "x", Type: bril.Prim(bril.TInt), Value: bril.IntLit(1)},
	})
	b.AddEdge(then, join, Branch{Op: Jmp{}})
	b.CommitInstructions(els, []bril.Instruction{
		bril.Constant{Dest: "x", Type: bril.Prim(bril.TInt), Value: bril.IntLit(2)},
	})
	b.AddEdge(els, join, Branch{Op: Jmp{}})
	b.SetPosition(join, &bril.Position{Pos: bril.ColRow{Row: 9, Col: 1}})
	b.AddEdge(join, b.Exit(), Branch{Op: RetVal{Arg: "x"}})
	b.AddEdge(dead, b.Exit(), Branch{Op: Jmp{}})
	return b.Finalize()
}

func TestBlockNameEquality(t *testing.T) {
	if Named("a") != Named("a") {
		t.Error("Named values with equal labels should be equal")
	}
	if Named("a") == Named("b") {
		t.Error("Named values with different labels should differ")
	}
	if Entry() == Exit() {
		t.Error("Entry and Exit should differ")
	}
	if Named("") == Entry() {
		t.Error("Named(\"\") should differ from Entry")
	}

	m := map[BlockName]int{Entry(): 1, Exit(): 2, Named("a"): 3}
	if m[Named("a")] != 3 {
		t.Error("Named should work as a map key")
	}
}

func TestBlockNameString(t *testing.T) {
	tests := []struct {
		name BlockName
		want string
	}{
		{Entry(), "entry"},
		{Exit(), "exit"},
		{Named("loop"), ".loop"},
	}
	for _, tt := range tests {
		if got := tt.name.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestBranchOpString(t *testing.T) {
	tests := []struct {
		op   BranchOp
		want string
	}{
		{Jmp{}, "jmp"},
		{Cond{Arg: "c", Val: true}, "br c=true"},
		{Cond{Arg: "c", Val: false}, "br c=false"},
		{RetVal{Arg: "v"}, "ret v"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestCfgAccessors(t *testing.T) {
	c := diamond()

	if c.Name() != "diamond" {
		t.Errorf("Name = %s, want diamond", c.Name())
	}
	if c.NumBlocks() != 6 {
		t.Errorf("NumBlocks = %d, want 6", c.NumBlocks())
	}
	if c.NumEdges() != 6 {
		t.Errorf("NumEdges = %d, want 6", c.NumEdges())
	}

	join, ok := c.Lookup(Named("join"))
	if !ok {
		t.Fatal("Lookup(.join) failed")
	}
	if got := len(c.InEdges(join)); got != 2 {
		t.Errorf("join has %d in edges, want 2", got)
	}
	if got := len(c.InEdges(c.Exit())); got != 2 {
		t.Errorf("exit has %d in edges, want 2", got)
	}
	if _, ok := c.Lookup(Named("nowhere")); ok {
		t.Error("Lookup of unknown label should fail")
	}
	if id, ok := c.Lookup(Exit()); !ok || id != c.Exit() {
		t.Errorf("Lookup(exit) = %d, %v", id, ok)
	}
}

func TestCfgAccessorsReturnCopies(t *testing.T) {
	c := diamond()
	then, _ := c.Lookup(Named("then"))

	blk := c.Block(then)
	blk.Instrs[0] = bril.Effect{Op: bril.OpNop}
	if _, ok := c.Block(then).Instrs[0].(bril.Constant); !ok {
		t.Error("mutating a returned block changed the graph")
	}

	edges := c.Edges()
	edges[0].Dst = c.Exit()
	if c.Edges()[0].Dst == c.Exit() {
		t.Error("mutating returned edges changed the graph")
	}

	args := c.Args()
	args[0].Name = "changed"
	if c.Args()[0].Name != "c" {
		t.Error("mutating returned args changed the graph")
	}
}
