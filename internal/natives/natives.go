// Package natives implements the built-in native procedure table: the
// example host primitives bound to native_call ids at startup, following
// the engine.NativeProc ABI (§6).
package natives

import (
	"bufio"
	"fmt"
	"io"

	"github.com/chazu/rasp/internal/engine"
	"github.com/chazu/rasp/internal/heap"
	"github.com/chazu/rasp/internal/value"
)

// builtinOrder is the fixed registration order MustBuildAll uses when no
// source-declared order is available (e.g. running a standalone .rbc
// file with no accompanying source).
var builtinOrder = []string{"print", "len", "query_rows"}

// Builtins returns the known native procedures by name. A native_call's
// id is assigned by lowering in the order `native fun` declarations
// appear in source, not in any order fixed here — BuildTable is what
// lines the two up.
func Builtins(stdout io.Writer) map[string]engine.NativeProc {
	w := bufio.NewWriter(stdout)
	return map[string]engine.NativeProc{
		"print":      printNative(w),
		"len":        lenNative,
		"query_rows": queryRowsNative,
	}
}

// BuildTable registers exactly the natives in declOrder, in that order,
// so the resulting NativeTable's ids match the ids lowering assigned to
// the same declarations. Returns an error naming the first declared
// native with no known Go implementation.
func BuildTable(declOrder []string, stdout io.Writer) (*engine.NativeTable, error) {
	known := Builtins(stdout)
	t := engine.NewNativeTable()
	for _, name := range declOrder {
		proc, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("natives: no implementation registered for native %q", name)
		}
		t.Register(name, proc)
	}
	return t, nil
}

// MustBuildAll registers every known builtin in builtinOrder's fixed
// sequence. Every name in builtinOrder is guaranteed present in Builtins,
// so this never errors; it panics instead of returning one to keep
// cmd/rasp's exec path simple.
func MustBuildAll(stdout io.Writer) *engine.NativeTable {
	t, err := BuildTable(builtinOrder, stdout)
	if err != nil {
		panic(fmt.Sprintf("natives: builtinOrder out of sync with Builtins: %v", err))
	}
	return t
}

// printNative writes a string_ref or char8 argument to w, flushing after
// every call so output interleaves correctly with the host process's own
// stderr logging.
func printNative(w *bufio.Writer) engine.NativeProc {
	return func(e *engine.Engine, argc int16) bool {
		if argc != 1 {
			return false
		}
		arg, err := e.Access(argc, 0)
		if err != nil {
			return false
		}
		switch {
		case arg.IsStringRef():
			obj, err := e.AccessHeap().Get(arg.HeapID())
			if err != nil || obj.Kind != heap.String {
				return false
			}
			fmt.Fprintln(w, string(obj.Bytes))
		case arg.IsChar():
			fmt.Fprintln(w, string(rune(arg.Char())))
		case arg.IsInt():
			fmt.Fprintln(w, arg.Int())
		case arg.IsFloat():
			fmt.Fprintln(w, arg.Float())
		case arg.IsBool():
			fmt.Fprintln(w, arg.Bool())
		default:
			return false
		}
		if err := w.Flush(); err != nil {
			return false
		}
		return e.Return(value.Int(0), argc) == nil
	}
}

// lenNative reports the element count of a sequence, or the byte length of
// a string.
func lenNative(e *engine.Engine, argc int16) bool {
	if argc != 1 {
		return false
	}
	arg, err := e.Access(argc, 0)
	if err != nil {
		return false
	}
	if !arg.IsSequenceRef() && !arg.IsStringRef() {
		return false
	}
	obj, err := e.AccessHeap().Get(arg.HeapID())
	if err != nil {
		return false
	}
	var n int
	if obj.Kind == heap.String {
		n = len(obj.Bytes)
	} else {
		n = len(obj.Items)
	}
	return e.Return(value.Int(int32(n)), argc) == nil
}
