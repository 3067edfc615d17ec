package natives

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chazu/rasp/internal/diagnostics"
	"github.com/chazu/rasp/internal/emitter"
	"github.com/chazu/rasp/internal/engine"
	"github.com/chazu/rasp/internal/frontend"
	"github.com/chazu/rasp/internal/lowering"
)

func TestBuildTableRejectsUnknownNative(t *testing.T) {
	if _, err := BuildTable([]string{"not_a_real_native"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown native")
	}
}

func TestBuildTableOrdersIdsByDeclaration(t *testing.T) {
	table, err := BuildTable([]string{"len", "print"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	lenID, ok := table.IDOf("len")
	if !ok || lenID != 0 {
		t.Fatalf("len id = %d, ok=%v, want 0,true", lenID, ok)
	}
	printID, ok := table.IDOf("print")
	if !ok || printID != 1 {
		t.Fatalf("print id = %d, ok=%v, want 1,true", printID, ok)
	}
}

func TestPrintNativeEndToEnd(t *testing.T) {
	var out bytes.Buffer
	table, err := BuildTable([]string{"print"}, &out)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	prog, err := frontend.ParseProgram(`
native fun print: [x]
fun main: [] => {
	print("hello")
	return 0
}
`)
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
	e, status, err := engine.New(bc, table, engine.DefaultConfig(), nil)
	if err != nil || status != diagnostics.Ok {
		t.Fatalf("New: status=%v err=%v", status, err)
	}
	if got := e.Run(); got != diagnostics.Ok {
		t.Fatalf("Run: status = %v", got)
	}
	if !strings.Contains(out.String(), "hello") {
		t.Fatalf("stdout = %q, want it to contain %q", out.String(), "hello")
	}
}

// A native call that is not the first computation in its function must
// still read its argument from the call window, not from whatever
// happens to sit at rbp — native_call never moves rbp, so Access/Return
// address relative to rft.
func TestPrintNativeNotFirstStatement(t *testing.T) {
	var out bytes.Buffer
	table, err := BuildTable([]string{"print"}, &out)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	prog, err := frontend.ParseProgram(`
native fun print: [x]
fun main: [] => {
	def x = 1
	print("world")
	return 0
}
`)
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
	e, status, err := engine.New(bc, table, engine.DefaultConfig(), nil)
	if err != nil || status != diagnostics.Ok {
		t.Fatalf("New: status=%v err=%v", status, err)
	}
	if got := e.Run(); got != diagnostics.Ok {
		t.Fatalf("Run: status = %v", got)
	}
	if !strings.Contains(out.String(), "world") {
		t.Fatalf("stdout = %q, want it to contain %q", out.String(), "world")
	}
}
