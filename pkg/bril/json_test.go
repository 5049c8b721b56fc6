package bril

import (
	"errors"
	"strings"
	"testing"
)

const sampleProgram = `{
  "functions": [
    {
      "name": "main",
      "args": [{"name": "n", "type": "int"}, {"name": "p", "type": {"ptr": "int"}}],
      "type": "int",
      "instrs": [
        {"op": "const", "dest": "one", "type": "int", "value": 1, "pos": {"row": 2, "col": 3}},
        {"op": "const", "dest": "t", "type": "bool", "value": true},
        {"op": "const", "dest": "f", "type": "float", "value": 1.5},
        {"op": "const", "dest": "c", "type": "char", "value": "x"},
        {"op": "lt", "dest": "cond", "type": "bool", "args": ["n", "one"]},
        {"op": "br", "args": ["cond"], "labels": ["then", "else"], "pos": {"row": 4, "col": 3}, "src": "main.bril"},
        {"label": "then", "pos": {"row": 5, "col": 1}},
        {"op": "call", "funcs": ["helper"], "args": ["n"]},
        {"op": "ret", "args": ["n"]},
        {"label": "else"},
        {"op": "ret", "args": ["one"]}
      ]
    }
  ]
}`

func TestParseProgram(t *testing.T) {
	prog, err := Parse([]byte(sampleProgram))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(prog.Functions))
	}

	fn := prog.Functions[0]
	if fn.Name != "main" {
		t.Errorf("Name = %s, want main", fn.Name)
	}
	if len(fn.Args) != 2 {
		t.Fatalf("got %d args, want 2", len(fn.Args))
	}
	if fn.Args[1].Type.String() != "ptr<int>" {
		t.Errorf("second arg type = %s, want ptr<int>", fn.Args[1].Type)
	}
	if fn.ReturnType == nil || fn.ReturnType.Prim != TInt {
		t.Errorf("ReturnType = %v, want int", fn.ReturnType)
	}
	if len(fn.Instrs) != 11 {
		t.Fatalf("got %d items, want 11", len(fn.Instrs))
	}

	c, ok := fn.Instrs[0].(Constant)
	if !ok {
		t.Fatalf("item 0 should be Constant, got %T", fn.Instrs[0])
	}
	if c.Value != IntLit(1) {
		t.Errorf("const value = %v, want 1", c.Value)
	}
	if c.Pos == nil || c.Pos.Pos.Row != 2 || c.Pos.Pos.Col != 3 {
		t.Errorf("const pos = %v, want 2:3", c.Pos)
	}

	if lit := fn.Instrs[1].(Constant).Value; lit != BoolLit(true) {
		t.Errorf("bool const = %v, want true", lit)
	}
	if lit := fn.Instrs[2].(Constant).Value; lit != FloatLit(1.5) {
		t.Errorf("float const = %v, want 1.5", lit)
	}
	if lit := fn.Instrs[3].(Constant).Value; lit != CharLit('x') {
		t.Errorf("char const = %v, want 'x'", lit)
	}

	v, ok := fn.Instrs[4].(Value)
	if !ok {
		t.Fatalf("item 4 should be Value, got %T", fn.Instrs[4])
	}
	if v.Op != "lt" || v.Dest != "cond" || len(v.Args) != 2 {
		t.Errorf("unexpected value instruction %+v", v)
	}

	br, ok := fn.Instrs[5].(Effect)
	if !ok {
		t.Fatalf("item 5 should be Effect, got %T", fn.Instrs[5])
	}
	if br.Op != OpBranch {
		t.Errorf("op = %s, want br", br.Op)
	}
	if br.Pos == nil || br.Pos.String() != "main.bril:4:3" {
		t.Errorf("br pos = %v, want main.bril:4:3", br.Pos)
	}

	lbl, ok := fn.Instrs[6].(Label)
	if !ok {
		t.Fatalf("item 6 should be Label, got %T", fn.Instrs[6])
	}
	if lbl.Name != "then" || lbl.Pos == nil {
		t.Errorf("label = %+v, want then with a position", lbl)
	}
	if lbl := fn.Instrs[9].(Label); lbl.Pos != nil {
		t.Errorf("label else should have no position, got %v", lbl.Pos)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{`},
		{"nameless function", `{"functions": [{"instrs": []}]}`},
		{"empty item", `{"functions": [{"name": "f", "instrs": [{}]}]}`},
		{"const without type", `{"functions": [{"name": "f", "instrs": [{"op": "const", "dest": "x", "value": 1}]}]}`},
		{"bool value for char", `{"functions": [{"name": "f", "instrs": [{"op": "const", "dest": "x", "type": "char", "value": true}]}]}`},
		{"value op without type", `{"functions": [{"name": "f", "instrs": [{"op": "add", "dest": "x", "args": ["a", "b"]}]}]}`},
		{"bad type", `{"functions": [{"name": "f", "args": [{"name": "a", "type": 3}], "instrs": []}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, ErrInvalidProgram) {
				t.Errorf("expected ErrInvalidProgram, got %v", err)
			}
		})
	}
}

func TestMarshalCodeRoundTrip(t *testing.T) {
	items := []Code{
		Label{Name: "loop", Pos: &Position{Pos: ColRow{Row: 1, Col: 1}}},
		Constant{Dest: "x", Type: Prim(TInt), Value: IntLit(-7)},
		Value{Op: "add", Dest: "y", Type: Prim(TInt), Args: []string{"x", "x"}},
		Effect{Op: OpJump, Labels: []string{"loop"}, Pos: &Position{Pos: ColRow{Row: 3, Col: 5}, Src: "a.bril"}},
	}

	for _, item := range items {
		data, err := MarshalCode(item)
		if err != nil {
			t.Fatalf("MarshalCode(%v): %v", item, err)
		}
		got, err := UnmarshalCode(data)
		if err != nil {
			t.Fatalf("UnmarshalCode(%s): %v", data, err)
		}
		if FormatCode(got) != FormatCode(item) {
			t.Errorf("round trip of %s gave %s", FormatCode(item), FormatCode(got))
		}
	}
}

func TestLoad(t *testing.T) {
	prog, err := Load(strings.NewReader(`{"functions": [{"name": "empty", "instrs": []}]}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fn, ok := prog.Function("empty")
	if !ok {
		t.Fatal("function empty not found")
	}
	if len(fn.Instrs) != 0 {
		t.Errorf("got %d items, want 0", len(fn.Instrs))
	}
	if _, ok := prog.Function("missing"); ok {
		t.Error("lookup of missing function should fail")
	}
}
