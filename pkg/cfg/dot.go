package cfg

import (
	"fmt"
	"io"
	"strings"

	"github.com/raymyers/ralph-bril/pkg/bril"
)

// DotOptions configures Graphviz output
type DotOptions struct {
	// ShowInstrs includes block instructions in node labels
	ShowInstrs bool

	// RankDir is the layout direction: TB, LR, BT, RL
	RankDir string
}

// DefaultDotOptions returns DotOptions with instructions shown, top to bottom
func DefaultDotOptions() DotOptions {
	return DotOptions{ShowInstrs: true, RankDir: "TB"}
}

// edgeStyles gives each branch kind its Graphviz style
var edgeStyles = map[string]struct {
	style string
	color string
}{
	"jmp":  {style: "solid", color: "black"},
	"cond": {style: "solid", color: "#1f77b4"},
	"ret":  {style: "dashed", color: "#d62728"},
}

// WriteDot writes the graphs as one Graphviz digraph, one cluster per function.
// Blocks that cannot be reached from the entry are drawn grey.
func WriteDot(w io.Writer, graphs []*Cfg, opts DotOptions) error {
	if opts.RankDir == "" {
		opts.RankDir = "TB"
	}

	var sb strings.Builder
	sb.WriteString("digraph cfg {\n")
	fmt.Fprintf(&sb, "  rankdir=%s;\n", opts.RankDir)
	sb.WriteString("  node [shape=box, fontname=\"monospace\"];\n")

	for gi, c := range graphs {
		fmt.Fprintf(&sb, "  subgraph cluster_%d {\n", gi)
		fmt.Fprintf(&sb, "    label=%s;\n", dotQuote("@"+c.name))

		reached := c.Reachable()
		for i, b := range c.blocks {
			attrs := []string{"label=" + dotQuote(blockLabel(b, opts.ShowInstrs))}
			switch {
			case b.Name.Kind != NamedBlock:
				attrs = append(attrs, "shape=ellipse")
			case !reached[i]:
				attrs = append(attrs, "style=filled", "fillcolor=\"#dddddd\"", "fontcolor=\"#777777\"")
			}
			fmt.Fprintf(&sb, "    %s [%s];\n", dotNode(gi, NodeID(i)), strings.Join(attrs, ", "))
		}

		for _, e := range c.edges {
			kind, label := edgeKind(e.Branch.Op)
			style := edgeStyles[kind]
			attrs := []string{
				"style=" + style.style,
				"color=" + dotQuote(style.color),
			}
			if label != "" {
				attrs = append(attrs, "label="+dotQuote(label))
			}
			fmt.Fprintf(&sb, "    %s -> %s [%s];\n", dotNode(gi, e.Src), dotNode(gi, e.Dst), strings.Join(attrs, ", "))
		}
		sb.WriteString("  }\n")
	}

	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func edgeKind(op BranchOp) (kind, label string) {
	switch o := op.(type) {
	case Cond:
		if o.Val {
			return "cond", o.Arg
		}
		return "cond", "!" + o.Arg
	case RetVal:
		return "ret", o.Arg
	default:
		return "jmp", ""
	}
}

func blockLabel(b BasicBlock, showInstrs bool) string {
	if !showInstrs || len(b.Instrs) == 0 {
		return b.Name.String()
	}
	lines := []string{b.Name.String()}
	for _, instr := range b.Instrs {
		lines = append(lines, bril.FormatInstruction(instr))
	}
	// \l left-justifies each line in Graphviz
	return strings.Join(lines, "\\l") + "\\l"
}

func dotNode(graph int, id NodeID) string {
	return fmt.Sprintf("f%d_b%d", graph, id)
}

// dotQuote quotes s as a DOT string, keeping \l escapes intact
func dotQuote(s string) string {
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return "\"" + s + "\""
}
