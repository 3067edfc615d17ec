// Package engine implements the register-based virtual machine: a flat
// preallocated memory vector addressed through a movable register
// window, a synchronous call-frame stack, and a dispatch loop driven by
// bytecode.Program chunks.
//
// State-register naming (rfi/rip/rbp/rft/rrd/res) and the single flat
// memory vector are grounded in the teacher's github.com/chazu/maggie
// vm/vm.go dispatch loop, adapted from its stack-machine operand model
// to the spec's fixed register-window addressing.
package engine

import (
	"fmt"

	"github.com/chazu/rasp/internal/bytecode"
	"github.com/chazu/rasp/internal/diagnostics"
	"github.com/chazu/rasp/internal/heap"
	"github.com/chazu/rasp/internal/value"
)

// Config bounds the engine's resource usage.
type Config struct {
	RegBufferLimit int
	CallFrameMax   int
	GCThreshold    int
}

// DefaultConfig mirrors the scale the teacher's vm.Config uses for its
// own object/goroutine pools, sized down to this VM's register window.
func DefaultConfig() Config {
	return Config{
		RegBufferLimit: 4096,
		CallFrameMax:   256,
		GCThreshold:    64,
	}
}

// CallFrame is the saved register snapshot restored at a matching ret.
type CallFrame struct {
	rfi int
	rip int
	rbp int
	rft int
	res diagnostics.Status
}

// NativeProc is the native-procedure ABI: given the engine and the
// caller-supplied argument count, it reads arguments via Engine.Access,
// writes its result via Engine.Return, and reports success.
type NativeProc func(e *Engine, argc int16) bool

// NativeTable is the id-indexed registry native_call dispatches through.
type NativeTable struct {
	procs  []NativeProc
	names  []string
	byName map[string]int16
}

func NewNativeTable() *NativeTable {
	return &NativeTable{byName: make(map[string]int16)}
}

// Register assigns name the next monotonically increasing id and
// associates it with proc. Returns the assigned id.
func (t *NativeTable) Register(name string, proc NativeProc) int16 {
	id := int16(len(t.procs))
	t.procs = append(t.procs, proc)
	t.names = append(t.names, name)
	t.byName[name] = id
	return id
}

func (t *NativeTable) Lookup(id int16) (NativeProc, bool) {
	if int(id) < 0 || int(id) >= len(t.procs) {
		return nil, false
	}
	return t.procs[id], true
}

func (t *NativeTable) IDOf(name string) (int16, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Engine is one self-contained VM instance. It owns its memory vector,
// heap, call-frame stack, and native table exclusively — per §5, there
// is no sharing between Engine instances and no locking.
type Engine struct {
	prog    bytecode.Program
	natives *NativeTable
	cfg     Config

	memory []value.Value
	heap   *heap.Heap
	frames []CallFrame

	rfi int
	rip int
	rbp int
	rft int
	rrd int
	res diagnostics.Status

	argv []string
}

// New constructs an Engine ready to Run prog. It returns a setup_error
// wrapped as a Status if prog has no entry function or natives is nil.
func New(prog bytecode.Program, natives *NativeTable, cfg Config, argv []string) (*Engine, diagnostics.Status, error) {
	if prog.EntryID < 0 || prog.EntryID >= len(prog.Chunks) {
		return nil, diagnostics.SetupError, fmt.Errorf("engine: no valid entry function (entry_id = %d)", prog.EntryID)
	}
	if natives == nil {
		return nil, diagnostics.SetupError, fmt.Errorf("engine: no native table supplied")
	}

	e := &Engine{
		prog:    prog,
		natives: natives,
		cfg:     cfg,
		memory:  make([]value.Value, cfg.RegBufferLimit),
		heap:    heap.New(cfg.GCThreshold),
		argv:    argv,
	}
	for _, pre := range prog.PreObjects {
		if pre.IsString {
			e.heap.NewString(pre.String)
		} else {
			e.heap.NewSequence()
		}
	}
	e.rfi = prog.EntryID
	e.rip = 0
	e.rbp = 0
	e.rft = 0
	e.rrd = 1
	e.res = diagnostics.Ok
	return e, diagnostics.Ok, nil
}

// Run drives the dispatch loop to completion and returns the final
// status. Per §4.7, the loop exits when rrd reaches 0 or res departs
// from ok; on a clean rrd==0 exit, the final status is ok iff
// memory[0] holds integer zero, matching the exit-code convention.
func (e *Engine) Run() diagnostics.Status {
	for e.rrd > 0 && e.res == diagnostics.Ok {
		e.step()
	}
	if e.res != diagnostics.Ok {
		return e.res
	}
	if e.memory[0].IsInt() && e.memory[0].Int() == 0 {
		return diagnostics.Ok
	}
	return diagnostics.UserError
}

func (e *Engine) fail(status diagnostics.Status) {
	e.res = status
}

func (e *Engine) regIndex(id int16) int { return e.rbp + int(id) }

// Access reads the native call's offset'th argument. A native_call does
// not move rbp the way a call does (per §4.7), so the argument window is
// [rft-argc+1, rft+1) relative to rft, not rbp — offset must satisfy
// 0 <= offset < argc.
func (e *Engine) Access(argc, offset int16) (value.Value, error) {
	if offset < 0 || offset >= argc {
		return value.Value{}, fmt.Errorf("engine: native access offset %d out of range [0,%d)", offset, argc)
	}
	idx := e.rft - int(argc) + 1 + int(offset)
	if idx < 0 || idx >= len(e.memory) {
		return value.Value{}, fmt.Errorf("engine: native access index %d out of bounds", idx)
	}
	return e.memory[idx], nil
}

// Return writes a native procedure's result into the call window's result
// slot, the window's low end relative to rft — the same register the
// lowering package's result-slot convention reads the call's result from.
func (e *Engine) Return(v value.Value, argc int16) error {
	idx := e.rft - int(argc) + 1
	if idx < 0 || idx >= len(e.memory) {
		return fmt.Errorf("engine: native return index %d out of bounds", idx)
	}
	e.memory[idx] = v
	if idx > e.rft {
		e.rft = idx
	}
	return nil
}

// AccessHeap exposes the engine's heap allocator to a native procedure so
// it can build string/sequence results (e.g. a native returning a string
// must allocate it on this heap, not construct a StringRef out of thin air).
func (e *Engine) AccessHeap() *heap.Heap { return e.heap }

// AccessArgv exposes the process-level argument vector supplied to New, for
// natives that expose command-line arguments to the running program.
func (e *Engine) AccessArgv() []string { return e.argv }
