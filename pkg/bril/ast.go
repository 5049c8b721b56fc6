// Package bril defines the Bril intermediate representation consumed by the CFG builder.
// A Bril function is a flat sequence of labels and instructions; control flow is expressed
// with jmp/br/ret effect operations that name labels.
package bril

import (
	"fmt"
	"strconv"
)

// ColRow is a row/column pair in a source file (1-based).
type ColRow struct {
	Row uint64 `json:"row"`
	Col uint64 `json:"col"`
}

// Position locates an item in the Bril text it was parsed from.
type Position struct {
	Pos    ColRow
	PosEnd *ColRow // optional end of the range
	Src    string  // optional source file name
}

func (p Position) String() string {
	s := fmt.Sprintf("%d:%d", p.Pos.Row, p.Pos.Col)
	if p.Src != "" {
		return p.Src + ":" + s
	}
	return s
}

// --- Types ---

// Type is a Bril type: a primitive name, or a pointer when Elem is set.
type Type struct {
	Prim string // "int", "bool", "float", "char"; empty for pointers
	Elem *Type  // pointee type for ptr<T>
}

// Primitive type names
const (
	TInt   = "int"
	TBool  = "bool"
	TFloat = "float"
	TChar  = "char"
)

// Prim returns a primitive type
func Prim(name string) Type { return Type{Prim: name} }

// Ptr returns ptr<elem>
func Ptr(elem Type) Type { return Type{Elem: &elem} }

// IsPtr reports whether t is a pointer type
func (t Type) IsPtr() bool { return t.Elem != nil }

func (t Type) String() string {
	if t.Elem != nil {
		return "ptr<" + t.Elem.String() + ">"
	}
	return t.Prim
}

// Argument is a formal function parameter
type Argument struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// --- Literals ---

// Literal is the value of a const instruction
type Literal interface {
	implLiteral()
	String() string
}

// IntLit is an int literal
type IntLit int64

// BoolLit is a bool literal
type BoolLit bool

// FloatLit is a float literal
type FloatLit float64

// CharLit is a char literal
type CharLit rune

func (IntLit) implLiteral()   {}
func (BoolLit) implLiteral()  {}
func (FloatLit) implLiteral() {}
func (CharLit) implLiteral()  {}

func (l IntLit) String() string   { return strconv.FormatInt(int64(l), 10) }
func (l BoolLit) String() string  { return strconv.FormatBool(bool(l)) }
func (l FloatLit) String() string { return strconv.FormatFloat(float64(l), 'g', -1, 64) }
func (l CharLit) String() string  { return "'" + string(rune(l)) + "'" }

// --- Operations ---

// EffectOp names an effect operation (an instruction without a destination)
type EffectOp string

// Effect operations. Jump, Branch and Return are the control transfers.
const (
	OpJump      EffectOp = "jmp"
	OpBranch    EffectOp = "br"
	OpReturn    EffectOp = "ret"
	OpCall      EffectOp = "call"
	OpPrint     EffectOp = "print"
	OpNop       EffectOp = "nop"
	OpStore     EffectOp = "store"
	OpFree      EffectOp = "free"
	OpSpeculate EffectOp = "speculate"
	OpCommit    EffectOp = "commit"
	OpGuard     EffectOp = "guard"
	OpSet       EffectOp = "set"
)

// IsControl reports whether the op transfers control
func (op EffectOp) IsControl() bool {
	switch op {
	case OpJump, OpBranch, OpReturn:
		return true
	}
	return false
}

// --- Code items ---

// Code is one item in a function body: a Label or an Instruction
type Code interface {
	implCode()
}

// Label declares the start of a basic block
type Label struct {
	Name string
	Pos  *Position
}

// Instruction is any non-label item
type Instruction interface {
	Code
	implInstruction()
	Position() *Position
}

// Constant: dest: type = const value
type Constant struct {
	Dest  string
	Type  Type
	Value Literal
	Pos   *Position
}

// Value: dest: type = op args...
type Value struct {
	Op     string
	Dest   string
	Type   Type
	Args   []string
	Funcs  []string
	Labels []string
	Pos    *Position
}

// Effect: op args... (no destination)
type Effect struct {
	Op     EffectOp
	Args   []string
	Funcs  []string
	Labels []string
	Pos    *Position
}

func (Label) implCode()    {}
func (Constant) implCode() {}
func (Value) implCode()    {}
func (Effect) implCode()   {}

func (Constant) implInstruction() {}
func (Value) implInstruction()    {}
func (Effect) implInstruction()   {}

func (i Constant) Position() *Position { return i.Pos }
func (i Value) Position() *Position    { return i.Pos }
func (i Effect) Position() *Position   { return i.Pos }

// --- Function and Program ---

// Function is a Bril function
type Function struct {
	Name       string
	Args       []Argument
	ReturnType *Type // nil for functions without a return value
	Instrs     []Code
	Pos        *Position
}

// Program is a complete Bril program
type Program struct {
	Functions []Function
}

// Function returns the function with the given name
func (p *Program) Function(name string) (*Function, bool) {
	for i := range p.Functions {
		if p.Functions[i].Name == name {
			return &p.Functions[i], true
		}
	}
	return nil, false
}
