package cfg

import (
	"fmt"
	"io"

	"github.com/raymyers/ralph-bril/pkg/bril"
)

// Printer outputs a Cfg as text, one block per paragraph:
//
//	@main(x: int) {
//	  0 entry:
//	    -> 2 jmp
//	  1 exit:
//	  2 .loop @3:1:
//	    print x;
//	    -> 1 ret x @5:3
//	}
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new CFG printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintAll prints several graphs separated by blank lines
func (p *Printer) PrintAll(graphs []*Cfg) {
	for i, g := range graphs {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		p.PrintCfg(g)
	}
}

// PrintCfg prints every block in NodeID order followed by its outgoing edges
func (p *Printer) PrintCfg(c *Cfg) {
	fmt.Fprintf(p.w, "@%s%s {\n", c.name, bril.FormatArgs(c.args))

	out := make([][]Edge, len(c.blocks))
	for _, e := range c.edges {
		out[e.Src] = append(out[e.Src], e)
	}

	for i, b := range c.blocks {
		fmt.Fprintf(p.w, "  %d %s", i, b.Name)
		if b.Pos != nil {
			fmt.Fprintf(p.w, " @%s", b.Pos)
		}
		fmt.Fprintln(p.w, ":")
		for _, instr := range b.Instrs {
			fmt.Fprintf(p.w, "    %s\n", bril.FormatInstruction(instr))
		}
		for _, e := range out[i] {
			fmt.Fprintf(p.w, "    -> %d %s", e.Dst, e.Branch.Op)
			if e.Branch.Pos != nil {
				fmt.Fprintf(p.w, " @%s", e.Branch.Pos)
			}
			fmt.Fprintln(p.w)
		}
	}

	fmt.Fprintln(p.w, "}")
}
