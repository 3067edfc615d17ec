// Package diagnostics holds the status taxonomy and compile-time error
// accumulation shared by lowering, emission, and the engine.
package diagnostics

import "fmt"

// Status is the small enum of runtime outcomes the engine can surface to a
// driver. A Status other than Ok maps to a nonzero process exit code.
type Status uint8

const (
	Ok Status = iota
	SetupError
	OpError
	ArgError
	MemError
	MathError
	UserError
	AnyError
)

var statusNames = map[Status]string{
	Ok:         "ok",
	SetupError: "setup_error",
	OpError:    "op_error",
	ArgError:   "arg_error",
	MemError:   "mem_error",
	MathError:  "math_error",
	UserError:  "user_error",
	AnyError:   "any_error",
}

// String implements fmt.Stringer, falling back to a numbered placeholder
// for any value outside the known range.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ExitCode maps a Status to a process exit code: 0 for Ok, nonzero otherwise.
// The specific nonzero values distinguish the failure class for scripting.
func (s Status) ExitCode() int {
	if s == Ok {
		return 0
	}
	return int(s)
}

// Stage identifies which pipeline stage produced a Diagnostic.
type Stage uint8

const (
	StageLowering Stage = iota
	StageEmission
	StageEngine
)

func (st Stage) String() string {
	switch st {
	case StageLowering:
		return "lowering"
	case StageEmission:
		return "emission"
	case StageEngine:
		return "engine"
	default:
		return "unknown"
	}
}

// Diagnostic is one accumulated error from lowering or emission. Line/Column
// are zero when the producing stage has no source-location information for
// the failure (the bytecode emitter operates purely on abstract IR and never
// has a source position available).
type Diagnostic struct {
	Stage   Stage
	Message string
	Line    int
	Column  int
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", d.Stage, d.Line, d.Column, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Stage, d.Message)
}

// Bag accumulates diagnostics across a single lowering or emission pass,
// mirroring the teacher's two-pass compiler, which counts errors instead of
// failing on the first one so a single run reports everything wrong with a
// program.
type Bag struct {
	items []Diagnostic
}

// Add appends a diagnostic to the bag.
func (b *Bag) Add(stage Stage, line, column int, format string, args ...any) {
	b.items = append(b.items, Diagnostic{
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  column,
	})
}

// HasErrors reports whether any diagnostic has been recorded.
func (b *Bag) HasErrors() bool {
	return len(b.items) > 0
}

// Items returns the accumulated diagnostics.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Error implements the error interface so a Bag can be returned directly.
func (b *Bag) Error() string {
	if len(b.items) == 0 {
		return "no errors"
	}
	if len(b.items) == 1 {
		return b.items[0].String()
	}
	msg := fmt.Sprintf("%d errors:", len(b.items))
	for _, d := range b.items {
		msg += "\n  " + d.String()
	}
	return msg
}
