package cfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/raymyers/ralph-bril/pkg/bril"
	"github.com/vmihailenco/msgpack/v5"
)

// FormatVersion is the version of the msgpack encoding written by Encode
const FormatVersion = 1

// ErrCorrupt indicates encoded data that does not describe a valid graph
var ErrCorrupt = errors.New("corrupt cfg encoding")

// Edge kinds on the wire
const (
	wireJmp uint8 = iota
	wireCond
	wireRetVal
)

type wireFile struct {
	Version   int       `msgpack:"version"`
	Functions []wireCfg `msgpack:"functions"`
}

type wireCfg struct {
	Name   string      `msgpack:"name"`
	Args   []wireArg   `msgpack:"args"`
	Entry  int         `msgpack:"entry"`
	Exit   int         `msgpack:"exit"`
	Blocks []wireBlock `msgpack:"blocks"`
	Edges  []wireEdge  `msgpack:"edges"`
}

type wireArg struct {
	Name string `msgpack:"name"`
	Type []byte `msgpack:"type"` // Bril JSON type
}

type wireBlock struct {
	Kind   int            `msgpack:"kind"`
	Label  string         `msgpack:"label,omitempty"`
	Instrs [][]byte       `msgpack:"instrs"` // Bril JSON instructions
	Pos    *bril.Position `msgpack:"pos,omitempty"`
}

type wireEdge struct {
	Src  int            `msgpack:"src"`
	Dst  int            `msgpack:"dst"`
	Kind uint8          `msgpack:"kind"`
	Arg  string         `msgpack:"arg,omitempty"`
	Val  bool           `msgpack:"val,omitempty"`
	Pos  *bril.Position `msgpack:"pos,omitempty"`
}

// Encode writes graphs to w using msgpack. Instructions are embedded in their
// Bril JSON form so the next stage can decode them without this package.
func Encode(w io.Writer, graphs []*Cfg) error {
	file := wireFile{Version: FormatVersion, Functions: make([]wireCfg, 0, len(graphs))}
	for _, c := range graphs {
		wc, err := toWire(c)
		if err != nil {
			return fmt.Errorf("encoding @%s: %w", c.name, err)
		}
		file.Functions = append(file.Functions, wc)
	}
	return msgpack.NewEncoder(w).Encode(&file)
}

// Decode reads graphs written by Encode
func Decode(r io.Reader) ([]*Cfg, error) {
	var file wireFile
	if err := msgpack.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if file.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, file.Version)
	}
	graphs := make([]*Cfg, 0, len(file.Functions))
	for _, wc := range file.Functions {
		c, err := fromWire(wc)
		if err != nil {
			return nil, fmt.Errorf("%w: @%s: %v", ErrCorrupt, wc.Name, err)
		}
		graphs = append(graphs, c)
	}
	return graphs, nil
}

func toWire(c *Cfg) (wireCfg, error) {
	wc := wireCfg{
		Name:   c.name,
		Entry:  int(c.entry),
		Exit:   int(c.exit),
		Args:   make([]wireArg, 0, len(c.args)),
		Blocks: make([]wireBlock, 0, len(c.blocks)),
		Edges:  make([]wireEdge, 0, len(c.edges)),
	}
	for _, a := range c.args {
		t, err := json.Marshal(a.Type)
		if err != nil {
			return wc, err
		}
		wc.Args = append(wc.Args, wireArg{Name: a.Name, Type: t})
	}
	for _, b := range c.blocks {
		wb := wireBlock{Kind: int(b.Name.Kind), Label: b.Name.Label, Pos: b.Pos}
		for _, instr := range b.Instrs {
			data, err := bril.MarshalCode(instr)
			if err != nil {
				return wc, err
			}
			wb.Instrs = append(wb.Instrs, data)
		}
		wc.Blocks = append(wc.Blocks, wb)
	}
	for _, e := range c.edges {
		we := wireEdge{Src: int(e.Src), Dst: int(e.Dst), Pos: e.Branch.Pos}
		switch op := e.Branch.Op.(type) {
		case Jmp:
			we.Kind = wireJmp
		case Cond:
			we.Kind, we.Arg, we.Val = wireCond, op.Arg, op.Val
		case RetVal:
			we.Kind, we.Arg = wireRetVal, op.Arg
		default:
			return wc, fmt.Errorf("unknown branch op %T", e.Branch.Op)
		}
		wc.Edges = append(wc.Edges, we)
	}
	return wc, nil
}

// fromWire rebuilds a graph and checks the structural invariants
func fromWire(wc wireCfg) (*Cfg, error) {
	c := &Cfg{name: wc.Name, entry: NodeID(wc.Entry), exit: NodeID(wc.Exit)}
	n := len(wc.Blocks)
	if wc.Entry < 0 || wc.Entry >= n || wc.Exit < 0 || wc.Exit >= n {
		return nil, errors.New("entry or exit out of range")
	}

	for _, a := range wc.Args {
		var t bril.Type
		if err := json.Unmarshal(a.Type, &t); err != nil {
			return nil, fmt.Errorf("argument %s: %v", a.Name, err)
		}
		c.args = append(c.args, bril.Argument{Name: a.Name, Type: t})
	}

	labels := make(map[string]bool)
	var entries, exits int
	for i, wb := range wc.Blocks {
		name := BlockName{Kind: BlockKind(wb.Kind), Label: wb.Label}
		switch name.Kind {
		case EntryBlock:
			entries++
		case ExitBlock:
			exits++
		case NamedBlock:
			if labels[name.Label] {
				return nil, fmt.Errorf("duplicate block .%s", name.Label)
			}
			labels[name.Label] = true
		default:
			return nil, fmt.Errorf("block %d has unknown kind %d", i, wb.Kind)
		}

		b := BasicBlock{Name: name, Pos: wb.Pos}
		for _, data := range wb.Instrs {
			code, err := bril.UnmarshalCode(data)
			if err != nil {
				return nil, fmt.Errorf("block %s: %v", name, err)
			}
			instr, ok := code.(bril.Instruction)
			if !ok {
				return nil, fmt.Errorf("block %s contains a label", name)
			}
			b.Instrs = append(b.Instrs, instr)
		}
		c.blocks = append(c.blocks, b)
	}
	if entries != 1 || exits != 1 {
		return nil, fmt.Errorf("want one entry and one exit, got %d and %d", entries, exits)
	}
	if c.blocks[c.entry].Name.Kind != EntryBlock || c.blocks[c.exit].Name.Kind != ExitBlock {
		return nil, errors.New("entry or exit index names the wrong block")
	}

	for _, we := range wc.Edges {
		if we.Src < 0 || we.Src >= n || we.Dst < 0 || we.Dst >= n {
			return nil, fmt.Errorf("edge %d -> %d out of range", we.Src, we.Dst)
		}
		var op BranchOp
		switch we.Kind {
		case wireJmp:
			op = Jmp{}
		case wireCond:
			op = Cond{Arg: we.Arg, Val: we.Val}
		case wireRetVal:
			op = RetVal{Arg: we.Arg}
		default:
			return nil, fmt.Errorf("edge has unknown kind %d", we.Kind)
		}
		c.edges = append(c.edges, Edge{
			Src:    NodeID(we.Src),
			Dst:    NodeID(we.Dst),
			Branch: Branch{Op: op, Pos: we.Pos},
		})
	}
	return c, nil
}
