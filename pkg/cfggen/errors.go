package cfggen

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-bril/pkg/bril"
)

var (
	// ErrMalformedTerminator indicates a br, jmp or ret with the wrong number of operands
	ErrMalformedTerminator = errors.New("malformed terminator")

	// ErrDuplicateLabel indicates a label declared more than once in a function
	ErrDuplicateLabel = errors.New("duplicate label")
)

// MalformedTerminatorError reports a control transfer whose shape cannot be lowered
type MalformedTerminatorError struct {
	Func   string
	Op     bril.EffectOp
	Args   int
	Labels int
	Pos    *bril.Position
}

func (e *MalformedTerminatorError) Error() string {
	var want string
	switch e.Op {
	case bril.OpBranch:
		want = "1 argument and 2 labels"
	case bril.OpJump:
		want = "1 label"
	case bril.OpReturn:
		want = "at most 1 argument"
	}
	return fmt.Sprintf("%s%s: want %s, got %d arguments and %d labels",
		location(e.Func, e.Pos), e.Op, want, e.Args, e.Labels)
}

func (e *MalformedTerminatorError) Unwrap() error { return ErrMalformedTerminator }

// DuplicateLabelError reports a second declaration of a label
type DuplicateLabelError struct {
	Func  string
	Label string
	Pos   *bril.Position // second declaration
	Prev  *bril.Position // first declaration
}

func (e *DuplicateLabelError) Error() string {
	msg := fmt.Sprintf("%slabel .%s declared twice", location(e.Func, e.Pos), e.Label)
	if e.Prev != nil {
		msg += fmt.Sprintf(" (first at %s)", e.Prev)
	}
	return msg
}

func (e *DuplicateLabelError) Unwrap() error { return ErrDuplicateLabel }

// FunctionError ties an error to the function it came from
type FunctionError struct {
	Func string
	Err  error
}

func (e *FunctionError) Error() string { return e.Err.Error() }

func (e *FunctionError) Unwrap() error { return e.Err }

// location formats "@f: 3:5: " or "@f: "
func location(fn string, pos *bril.Position) string {
	if pos == nil {
		return fmt.Sprintf("@%s: ", fn)
	}
	return fmt.Sprintf("@%s: %s: ", fn, pos)
}
