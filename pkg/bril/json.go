package bril

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrInvalidProgram indicates JSON input that is not a Bril program
var ErrInvalidProgram = errors.New("invalid bril program")

// Load decodes a JSON Bril program from r
func Load(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON Bril program
func Parse(data []byte) (*Program, error) {
	var prog Program
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&prog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}
	return &prog, nil
}

// --- Type ---

func (t Type) MarshalJSON() ([]byte, error) {
	if t.Elem != nil {
		return json.Marshal(map[string]Type{"ptr": *t.Elem})
	}
	return json.Marshal(t.Prim)
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var prim string
	if err := json.Unmarshal(data, &prim); err == nil {
		*t = Type{Prim: prim}
		return nil
	}
	var ptr struct {
		Ptr *Type `json:"ptr"`
	}
	if err := json.Unmarshal(data, &ptr); err != nil || ptr.Ptr == nil {
		return fmt.Errorf("unrecognized type %s", data)
	}
	*t = Type{Elem: ptr.Ptr}
	return nil
}

// --- Program / Function ---

type rawProgram struct {
	Functions []Function `json:"functions"`
}

func (p Program) MarshalJSON() ([]byte, error) {
	funcs := p.Functions
	if funcs == nil {
		funcs = []Function{}
	}
	return json.Marshal(rawProgram{Functions: funcs})
}

func (p *Program) UnmarshalJSON(data []byte) error {
	var raw rawProgram
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Functions = raw.Functions
	return nil
}

type rawFunction struct {
	Name   string            `json:"name"`
	Args   []Argument        `json:"args,omitempty"`
	Type   *Type             `json:"type,omitempty"`
	Instrs []json.RawMessage `json:"instrs"`
	rawPos
}

// rawPos holds the position fields Bril flattens into every object
type rawPos struct {
	Pos    *ColRow `json:"pos,omitempty"`
	PosEnd *ColRow `json:"pos_end,omitempty"`
	Src    string  `json:"src,omitempty"`
}

func (r rawPos) position() *Position {
	if r.Pos == nil {
		return nil
	}
	return &Position{Pos: *r.Pos, PosEnd: r.PosEnd, Src: r.Src}
}

func fromPosition(p *Position) rawPos {
	if p == nil {
		return rawPos{}
	}
	pos := p.Pos
	return rawPos{Pos: &pos, PosEnd: p.PosEnd, Src: p.Src}
}

func (f Function) MarshalJSON() ([]byte, error) {
	raw := rawFunction{
		Name:   f.Name,
		Args:   f.Args,
		Type:   f.ReturnType,
		Instrs: make([]json.RawMessage, 0, len(f.Instrs)),
		rawPos: fromPosition(f.Pos),
	}
	for _, c := range f.Instrs {
		b, err := MarshalCode(c)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", f.Name, err)
		}
		raw.Instrs = append(raw.Instrs, b)
	}
	return json.Marshal(raw)
}

func (f *Function) UnmarshalJSON(data []byte) error {
	var raw rawFunction
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Name == "" {
		return errors.New("function without a name")
	}
	instrs := make([]Code, 0, len(raw.Instrs))
	for i, b := range raw.Instrs {
		c, err := UnmarshalCode(b)
		if err != nil {
			return fmt.Errorf("function %s: item %d: %w", raw.Name, i, err)
		}
		instrs = append(instrs, c)
	}
	*f = Function{
		Name:       raw.Name,
		Args:       raw.Args,
		ReturnType: raw.Type,
		Instrs:     instrs,
		Pos:        raw.position(),
	}
	return nil
}

// --- Code ---

type rawCode struct {
	Label  *string         `json:"label,omitempty"`
	Op     string          `json:"op,omitempty"`
	Dest   string          `json:"dest,omitempty"`
	Type   *Type           `json:"type,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	Args   []string        `json:"args,omitempty"`
	Funcs  []string        `json:"funcs,omitempty"`
	Labels []string        `json:"labels,omitempty"`
	rawPos
}

// MarshalCode encodes a label or instruction in Bril JSON form
func MarshalCode(c Code) ([]byte, error) {
	var raw rawCode
	switch i := c.(type) {
	case Label:
		name := i.Name
		raw = rawCode{Label: &name, rawPos: fromPosition(i.Pos)}
	case Constant:
		typ := i.Type
		v, err := marshalLiteral(i.Value)
		if err != nil {
			return nil, err
		}
		raw = rawCode{Op: "const", Dest: i.Dest, Type: &typ, Value: v, rawPos: fromPosition(i.Pos)}
	case Value:
		typ := i.Type
		raw = rawCode{Op: i.Op, Dest: i.Dest, Type: &typ, Args: i.Args, Funcs: i.Funcs, Labels: i.Labels, rawPos: fromPosition(i.Pos)}
	case Effect:
		raw = rawCode{Op: string(i.Op), Args: i.Args, Funcs: i.Funcs, Labels: i.Labels, rawPos: fromPosition(i.Pos)}
	default:
		return nil, fmt.Errorf("unknown code item %T", c)
	}
	return json.Marshal(raw)
}

// UnmarshalCode decodes one item of a function body
func UnmarshalCode(data []byte) (Code, error) {
	var raw rawCode
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	pos := raw.position()

	if raw.Label != nil {
		return Label{Name: *raw.Label, Pos: pos}, nil
	}
	if raw.Op == "" {
		return nil, errors.New("item is neither a label nor an instruction")
	}
	if raw.Op == "const" {
		if raw.Dest == "" || raw.Type == nil {
			return nil, errors.New("const without dest or type")
		}
		lit, err := unmarshalLiteral(*raw.Type, raw.Value)
		if err != nil {
			return nil, fmt.Errorf("const %s: %w", raw.Dest, err)
		}
		return Constant{Dest: raw.Dest, Type: *raw.Type, Value: lit, Pos: pos}, nil
	}
	if raw.Dest != "" {
		if raw.Type == nil {
			return nil, fmt.Errorf("%s to %s without a type", raw.Op, raw.Dest)
		}
		return Value{
			Op:     raw.Op,
			Dest:   raw.Dest,
			Type:   *raw.Type,
			Args:   raw.Args,
			Funcs:  raw.Funcs,
			Labels: raw.Labels,
			Pos:    pos,
		}, nil
	}
	return Effect{
		Op:     EffectOp(raw.Op),
		Args:   raw.Args,
		Funcs:  raw.Funcs,
		Labels: raw.Labels,
		Pos:    pos,
	}, nil
}

func marshalLiteral(l Literal) (json.RawMessage, error) {
	switch v := l.(type) {
	case IntLit:
		return json.Marshal(int64(v))
	case BoolLit:
		return json.Marshal(bool(v))
	case FloatLit:
		return json.Marshal(float64(v))
	case CharLit:
		return json.Marshal(string(rune(v)))
	case nil:
		return nil, errors.New("const without a value")
	default:
		return nil, fmt.Errorf("unknown literal %T", l)
	}
}

// unmarshalLiteral interprets the raw value according to the declared type
func unmarshalLiteral(t Type, data json.RawMessage) (Literal, error) {
	if len(data) == 0 {
		return nil, errors.New("missing value")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	switch t.Prim {
	case TBool:
		if b, ok := v.(bool); ok {
			return BoolLit(b), nil
		}
	case TFloat:
		if n, ok := v.(json.Number); ok {
			f, err := n.Float64()
			if err != nil {
				return nil, err
			}
			return FloatLit(f), nil
		}
	case TChar:
		if s, ok := v.(string); ok && utf8.RuneCountInString(s) == 1 {
			r, _ := utf8.DecodeRuneInString(s)
			return CharLit(r), nil
		}
	default:
		switch n := v.(type) {
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, err
			}
			return IntLit(i), nil
		case bool:
			// bril2json emits booleans for int consts written as true/false
			if n {
				return IntLit(1), nil
			}
			return IntLit(0), nil
		}
	}
	return nil, fmt.Errorf("value %s does not match type %s", data, t)
}
