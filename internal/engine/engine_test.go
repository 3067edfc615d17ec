package engine_test

import (
	"testing"

	"github.com/chazu/rasp/internal/diagnostics"
	"github.com/chazu/rasp/internal/emitter"
	"github.com/chazu/rasp/internal/engine"
	"github.com/chazu/rasp/internal/frontend"
	"github.com/chazu/rasp/internal/lowering"
	"github.com/chazu/rasp/internal/value"
)

func run(t *testing.T, src string, natives *engine.NativeTable) diagnostics.Status {
	t.Helper()
	prog, err := frontend.ParseProgram(src)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if errs := frontend.NewChecker().Check(prog); len(errs) != 0 {
		t.Fatalf("Check: %v", errs)
	}
	full, err := lowering.Lower(prog)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	bc, err := emitter.Emit(full)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if natives == nil {
		natives = engine.NewNativeTable()
	}
	e, status, err := engine.New(bc, natives, engine.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if status != diagnostics.Ok {
		t.Fatalf("New: setup status = %v", status)
	}
	return e.Run()
}

// S1: arithmetic. 2 + 3*4 - 14 == 0.
func TestS1Arithmetic(t *testing.T) {
	status := run(t, `
fun main: [] => {
	return 2 + 3 * 4 - 14
}
`, nil)
	if status != diagnostics.Ok {
		t.Fatalf("status = %v, want ok", status)
	}
}

// S2: while loop accumulates 0+1+2+3+4 == 10.
func TestS2WhileLoop(t *testing.T) {
	status := run(t, `
fun main: [] => {
	def i = 0
	def s = 0
	while i < 5 {
		s = s + i
		i = i + 1
	}
	return s - 10
}
`, nil)
	if status != diagnostics.Ok {
		t.Fatalf("status = %v, want ok", status)
	}
}

// S3: break exits the loop once i reaches 3.
func TestS3Break(t *testing.T) {
	status := run(t, `
fun main: [] => {
	def i = 0
	while 1 {
		if i == 3 {
			break
		}
		i = i + 1
	}
	return i - 3
}
`, nil)
	if status != diagnostics.Ok {
		t.Fatalf("status = %v, want ok", status)
	}
}

// S4: tuple access reads back the element stored at that index.
func TestS4TupleAccess(t *testing.T) {
	status := run(t, `
fun main: [] => {
	def t = [10, 20, 30]
	return t.1 - 20
}
`, nil)
	if status != diagnostics.Ok {
		t.Fatalf("status = %v, want ok", status)
	}
}

// S5: recursion computes 5! == 120.
func TestS5Recursion(t *testing.T) {
	status := run(t, `
fun fact: [n] => {
	if n <= 1 {
		return 1
	}
	return n * fact(n - 1)
}
fun main: [] => {
	return fact(5) - 120
}
`, nil)
	if status != diagnostics.Ok {
		t.Fatalf("status = %v, want ok", status)
	}
}

// S6: a native call reads its string argument and reports success.
func TestS6NativeCallAndString(t *testing.T) {
	var seen string
	natives := engine.NewNativeTable()
	natives.Register("print", func(e *engine.Engine, argc int16) bool {
		arg, err := e.Access(argc, 0)
		if err != nil {
			return false
		}
		if !arg.IsStringRef() {
			return false
		}
		obj, err := e.AccessHeap().Get(arg.HeapID())
		if err != nil {
			return false
		}
		seen = string(obj.Bytes)
		return e.Return(value.Int(0), argc) == nil
	})

	status := run(t, `
native fun print: [x]
fun main: [] => {
	print("hi")
	return 0
}
`, natives)
	if status != diagnostics.Ok {
		t.Fatalf("status = %v, want ok", status)
	}
	if seen != "hi" {
		t.Fatalf("native saw %q, want %q", seen, "hi")
	}
}

// S7: integer division by zero surfaces as a math error, not a crash.
func TestS7DivisionByZero(t *testing.T) {
	status := run(t, `
fun main: [] => {
	return 1 / 0
}
`, nil)
	if status != diagnostics.MathError {
		t.Fatalf("status = %v, want math_error", status)
	}
}

func TestNonzeroReturnIsUserError(t *testing.T) {
	status := run(t, `
fun main: [] => {
	return 7
}
`, nil)
	if status != diagnostics.UserError {
		t.Fatalf("status = %v, want user_error", status)
	}
}

// A mutable sequence literal ({...}) exercises seq_obj_push without the
// tuple literal's trailing freeze.
func TestMutableSequenceAccess(t *testing.T) {
	status := run(t, `
fun main: [] => {
	def s = {5, 6, 7}
	return s.2 - 7
}
`, nil)
	if status != diagnostics.Ok {
		t.Fatalf("status = %v, want ok", status)
	}
}

// Indexed assignment through the access operator writes through to the
// backing heap slot rather than being rejected at lowering.
func TestIndexedAssignment(t *testing.T) {
	status := run(t, `
fun main: [] => {
	def s = {5, 6, 7}
	s.1 = 99
	return s.1 - 99
}
`, nil)
	if status != diagnostics.Ok {
		t.Fatalf("status = %v, want ok", status)
	}
}

// Mixed int32/float64 operands are an arg_error, not a silent promotion.
func TestMixedTagArithIsArgError(t *testing.T) {
	status := run(t, `
fun main: [] => {
	return 1 + 1.5
}
`, nil)
	if status != diagnostics.ArgError {
		t.Fatalf("status = %v, want arg_error", status)
	}
}

// A call whose non-first argument needs its own temp to compute (here, a
// binary expression) must not let that intermediate temp wedge itself
// between the argument-carrying temps: the call window is the newest
// argc temps, contiguous, and each parameter must land in the position
// matching its argument's position.
func TestCallArgumentsStayContiguous(t *testing.T) {
	status := run(t, `
fun add2: [a, b] => {
	return a - 2 + b - 3
}
fun main: [] => {
	def x = 1
	return add2(x + 1, x + 2)
}
`, nil)
	if status != diagnostics.Ok {
		t.Fatalf("status = %v, want ok", status)
	}
}
