// Package cfggen lowers Bril functions to control flow graphs.
// Each function is translated in a single pass over its instruction stream;
// returns are redirected to one synthesized exit block.
package cfggen

import (
	"github.com/raymyers/ralph-bril/pkg/bril"
	"github.com/raymyers/ralph-bril/pkg/cfg"
)

// cursorState tracks whether the current block already ended in a control transfer
type cursorState int

const (
	filling        cursorState = iota // a label here gets a fallthrough edge
	justTerminated                    // a label here starts a block with no fallthrough
)

// translator holds state during translation of one function
type translator struct {
	fn       *bril.Function
	b        *cfg.Builder
	current  cfg.NodeID         // block being filled
	pending  []bril.Instruction // instructions for current
	state    cursorState

	// declared labels and where they were declared
	declared map[string]*bril.Position
}

// TranslateFunction builds the CFG of fn.
// The graph reproduces the function's branching structure exactly (unreachable
// blocks and duplicate targets included), adding only the exit block that every
// return branches to.
func TranslateFunction(fn *bril.Function) (*cfg.Cfg, error) {
	b := cfg.NewBuilder(fn.Name, fn.Args)
	t := &translator{
		fn:       fn,
		b:        b,
		current:  b.Entry(),
		state:    filling,
		declared: make(map[string]*bril.Position),
	}

	for _, code := range fn.Instrs {
		if err := t.translateCode(code); err != nil {
			return nil, err
		}
	}
	t.flush()
	return b.Finalize(), nil
}

func (t *translator) translateCode(code bril.Code) error {
	switch c := code.(type) {
	case bril.Label:
		return t.label(c)
	case bril.Effect:
		switch c.Op {
		case bril.OpBranch:
			return t.branch(c)
		case bril.OpJump:
			return t.jump(c)
		case bril.OpReturn:
			return t.ret(c)
		}
		t.pending = append(t.pending, c)
	case bril.Instruction:
		t.pending = append(t.pending, c)
	}
	return nil
}

// flush commits the pending instructions to the current block
func (t *translator) flush() {
	t.b.CommitInstructions(t.current, t.pending)
	t.pending = nil
}

// label ends the current block and starts the labelled one
func (t *translator) label(l bril.Label) error {
	if prev, ok := t.declared[l.Name]; ok {
		return &DuplicateLabelError{Func: t.fn.Name, Label: l.Name, Pos: l.Pos, Prev: prev}
	}
	t.declared[l.Name] = l.Pos

	next := t.b.Resolve(l.Name)
	t.flush()
	t.b.SetPosition(next, l.Pos)
	if t.state == filling {
		t.b.AddEdge(t.current, next, cfg.Branch{Op: cfg.Jmp{}, Pos: l.Pos})
	}
	t.current = next
	t.state = filling
	return nil
}

func (t *translator) branch(e bril.Effect) error {
	if len(e.Args) != 1 || len(e.Labels) != 2 {
		return t.malformed(e)
	}
	ifSo := t.b.Resolve(e.Labels[0])
	ifNot := t.b.Resolve(e.Labels[1])
	arg := e.Args[0]
	t.b.AddEdge(t.current, ifSo, cfg.Branch{Op: cfg.Cond{Arg: arg, Val: true}, Pos: e.Pos})
	t.b.AddEdge(t.current, ifNot, cfg.Branch{Op: cfg.Cond{Arg: arg, Val: false}, Pos: e.Pos})
	t.state = justTerminated
	return nil
}

func (t *translator) jump(e bril.Effect) error {
	if len(e.Labels) != 1 {
		return t.malformed(e)
	}
	dest := t.b.Resolve(e.Labels[0])
	t.b.AddEdge(t.current, dest, cfg.Branch{Op: cfg.Jmp{}, Pos: e.Pos})
	t.state = justTerminated
	return nil
}

func (t *translator) ret(e bril.Effect) error {
	var op cfg.BranchOp
	switch len(e.Args) {
	case 0:
		op = cfg.Jmp{}
	case 1:
		op = cfg.RetVal{Arg: e.Args[0]}
	default:
		return t.malformed(e)
	}
	t.b.AddEdge(t.current, t.b.Exit(), cfg.Branch{Op: op, Pos: e.Pos})
	t.state = justTerminated
	return nil
}

func (t *translator) malformed(e bril.Effect) error {
	return &MalformedTerminatorError{
		Func:   t.fn.Name,
		Op:     e.Op,
		Args:   len(e.Args),
		Labels: len(e.Labels),
		Pos:    e.Pos,
	}
}
