// Bril text printing, in the format produced by bril2txt
package bril

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs Bril programs in text form
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new Bril printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints every function, separated by blank lines
func (p *Printer) PrintProgram(prog *Program) {
	for i := range prog.Functions {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		p.PrintFunction(&prog.Functions[i])
	}
}

// PrintFunction prints a function header and body
func (p *Printer) PrintFunction(fn *Function) {
	fmt.Fprintf(p.w, "@%s%s", fn.Name, FormatArgs(fn.Args))
	if fn.ReturnType != nil {
		fmt.Fprintf(p.w, ": %s", fn.ReturnType)
	}
	fmt.Fprintln(p.w, " {")
	for _, c := range fn.Instrs {
		if _, ok := c.(Label); ok {
			fmt.Fprintln(p.w, FormatCode(c))
		} else {
			fmt.Fprintf(p.w, "  %s\n", FormatCode(c))
		}
	}
	fmt.Fprintln(p.w, "}")
}

// FormatArgs formats a parameter list as "(a: int, b: bool)", or "" when empty
func FormatArgs(args []Argument) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%s: %s", a.Name, a.Type)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FormatCode formats a label as ".name:" and instructions as FormatInstruction does
func FormatCode(c Code) string {
	switch c := c.(type) {
	case Label:
		return "." + c.Name + ":"
	case Instruction:
		return FormatInstruction(c)
	default:
		return fmt.Sprintf("<unknown %T>", c)
	}
}

// FormatInstruction formats a single instruction including the trailing semicolon
func FormatInstruction(instr Instruction) string {
	switch i := instr.(type) {
	case Constant:
		return fmt.Sprintf("%s: %s = const %s;", i.Dest, i.Type, literalText(i.Value))
	case Value:
		return fmt.Sprintf("%s: %s = %s;", i.Dest, i.Type, operation(i.Op, i.Funcs, i.Args, i.Labels))
	case Effect:
		return operation(string(i.Op), i.Funcs, i.Args, i.Labels) + ";"
	default:
		return fmt.Sprintf("<unknown %T>;", instr)
	}
}

// operation joins op @funcs args .labels
func operation(op string, funcs, args, labels []string) string {
	parts := []string{op}
	for _, f := range funcs {
		parts = append(parts, "@"+f)
	}
	parts = append(parts, args...)
	for _, l := range labels {
		parts = append(parts, "."+l)
	}
	return strings.Join(parts, " ")
}

func literalText(l Literal) string {
	if l == nil {
		return "?"
	}
	return l.String()
}
