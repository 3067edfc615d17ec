package engine

import (
	"github.com/chazu/rasp/internal/bytecode"
	"github.com/chazu/rasp/internal/diagnostics"
	"github.com/chazu/rasp/internal/heap"
	"github.com/chazu/rasp/internal/value"
)

// step fetches and executes chunks[rfi][rip]. Every handler is
// responsible for advancing rip on success; a handler that detects an
// error calls e.fail and leaves rip untouched, since the dispatch loop
// exits on the next check.
func (e *Engine) step() {
	chunk := e.prog.Chunks[e.rfi].Instructions
	if e.rip < 0 || e.rip >= len(chunk) {
		e.fail(diagnostics.MemError)
		return
	}
	in := chunk[e.rip]

	switch in.Op {
	case bytecode.OpNop:
		e.rip++
	case bytecode.OpMov:
		e.execMov(in)
	case bytecode.OpNeg:
		e.execNeg(in)
	case bytecode.OpInc, bytecode.OpDec:
		e.fail(diagnostics.OpError)
	case bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpAdd, bytecode.OpSub:
		e.execArith(in)
	case bytecode.OpEqu, bytecode.OpNeq:
		e.execEquality(in)
	case bytecode.OpLt, bytecode.OpGt, bytecode.OpLte, bytecode.OpGte:
		e.execRelational(in)
	case bytecode.OpLoadConst:
		e.execLoadConst(in)
	case bytecode.OpMakeStr:
		e.execMakeStr(in)
	case bytecode.OpMakeSeq:
		e.execMakeSeq(in)
	case bytecode.OpFrzSeqObj:
		e.execFreeze(in)
	case bytecode.OpSeqObjPush:
		e.execSeqPush(in)
	case bytecode.OpSeqObjPop:
		e.execSeqPop(in)
	case bytecode.OpSeqObjGet:
		e.execSeqGet(in)
	case bytecode.OpJump:
		e.rip = int(in.Args[0])
	case bytecode.OpJumpIf:
		e.execJumpCond(in, true)
	case bytecode.OpJumpElse:
		e.execJumpCond(in, false)
	case bytecode.OpCall:
		e.execCall(in)
	case bytecode.OpNativeCall:
		e.execNativeCall(in)
	case bytecode.OpRet:
		e.execRet(in)
	case bytecode.OpHalt:
		e.fail(diagnostics.OpError)
	default:
		e.fail(diagnostics.OpError)
	}
}

// readValue resolves a register/constant/immediate/heap operand to a
// Value for ops that consume it as data (arithmetic, comparisons, mov
// sources). Immediate operands resolve to an int32 Value; structural
// uses of immediate (jump targets, fn/native ids) read in.Args directly
// instead of going through this path.
func (e *Engine) readValue(mode bytecode.ArgMode, raw int16) (value.Value, bool) {
	switch mode {
	case bytecode.ModeReg:
		idx := e.regIndex(raw)
		if idx < 0 || idx >= len(e.memory) || idx > e.rft {
			e.fail(diagnostics.MemError)
			return value.Value{}, false
		}
		return e.memory[idx], true
	case bytecode.ModeConstant:
		if int(raw) < 0 || int(raw) >= len(e.prog.Constants) {
			e.fail(diagnostics.MemError)
			return value.Value{}, false
		}
		return constToValue(e.prog.Constants[raw]), true
	case bytecode.ModeImmediate:
		return value.Int(int32(raw)), true
	case bytecode.ModeHeap:
		obj, err := e.heap.Get(int32(raw))
		if err != nil {
			e.fail(diagnostics.MemError)
			return value.Value{}, false
		}
		if obj.Kind == heap.String {
			return value.StringRefOf(int32(raw)), true
		}
		return value.SequenceRefOf(int32(raw)), true
	default:
		e.fail(diagnostics.ArgError)
		return value.Value{}, false
	}
}

func constToValue(c bytecode.ConstValue) value.Value {
	switch c.Kind {
	case bytecode.ConstInt:
		return value.Int(c.Int)
	case bytecode.ConstFloat:
		return value.Float(c.Float)
	case bytecode.ConstBool:
		return value.Bool(c.Bool)
	case bytecode.ConstChar:
		return value.Char(c.Char)
	default:
		return value.Nil()
	}
}

// writeReg stores v into register dst directly, bumping rft to track
// the high-water mark as the spec requires for every successful
// arithmetic/comparison/move/access op.
func (e *Engine) writeReg(mode bytecode.ArgMode, raw int16, v value.Value) bool {
	if mode != bytecode.ModeReg {
		e.fail(diagnostics.ArgError)
		return false
	}
	idx := e.regIndex(raw)
	if idx < 0 || idx >= len(e.memory) {
		e.fail(diagnostics.MemError)
		return false
	}
	e.memory[idx] = v
	if idx > e.rft {
		e.rft = idx
	}
	return true
}

func (e *Engine) execMov(in bytecode.Instruction) {
	src, ok := e.readValue(in.Mode(1), in.Args[1])
	if !ok {
		return
	}
	idx := e.regIndex(in.Args[0])
	if idx < 0 || idx >= len(e.memory) {
		e.fail(diagnostics.MemError)
		return
	}
	merged, err := value.EmplaceOther(e.heap, e.memory[idx], src)
	if err != nil {
		e.fail(diagnostics.MemError)
		return
	}
	e.memory[idx] = merged
	if idx > e.rft {
		e.rft = idx
	}
	e.rip++
}

func (e *Engine) execNeg(in bytecode.Instruction) {
	idx := e.regIndex(in.Args[0])
	if idx < 0 || idx >= len(e.memory) {
		e.fail(diagnostics.MemError)
		return
	}
	negated, err := value.Negate(e.heap, e.memory[idx])
	if err != nil {
		e.fail(diagnostics.ArgError)
		return
	}
	e.memory[idx] = negated
	e.rip++
}

func (e *Engine) execArith(in bytecode.Instruction) {
	a, ok := e.readValue(in.Mode(1), in.Args[1])
	if !ok {
		return
	}
	b, ok := e.readValue(in.Mode(2), in.Args[2])
	if !ok {
		return
	}
	var result value.Value
	var err error
	switch in.Op {
	case bytecode.OpMul:
		result, err = value.Mul(e.heap, a, b)
	case bytecode.OpDiv:
		result, err = value.Div(e.heap, a, b)
	case bytecode.OpMod:
		result, err = value.Mod(e.heap, a, b)
	case bytecode.OpAdd:
		result, err = value.Add(e.heap, a, b)
	case bytecode.OpSub:
		result, err = value.Sub(e.heap, a, b)
	}
	if err != nil {
		e.failArith(err)
		return
	}
	if !e.writeReg(in.Mode(0), in.Args[0], result) {
		return
	}
	e.rip++
}

func (e *Engine) failArith(err error) {
	if _, ok := err.(*value.MathError); ok {
		e.fail(diagnostics.MathError)
		return
	}
	e.fail(diagnostics.ArgError)
}

func (e *Engine) execEquality(in bytecode.Instruction) {
	a, ok := e.readValue(in.Mode(1), in.Args[1])
	if !ok {
		return
	}
	b, ok := e.readValue(in.Mode(2), in.Args[2])
	if !ok {
		return
	}
	eq, err := value.Equals(e.heap, a, b)
	if err != nil {
		e.fail(diagnostics.MemError)
		return
	}
	if in.Op == bytecode.OpNeq {
		eq = !eq
	}
	if !e.writeReg(in.Mode(0), in.Args[0], value.Bool(eq)) {
		return
	}
	e.rip++
}

func (e *Engine) execRelational(in bytecode.Instruction) {
	a, ok := e.readValue(in.Mode(1), in.Args[1])
	if !ok {
		return
	}
	b, ok := e.readValue(in.Mode(2), in.Args[2])
	if !ok {
		return
	}
	cmp, err := value.Compare(e.heap, a, b)
	if err != nil {
		e.failArith(err)
		return
	}
	var result bool
	switch in.Op {
	case bytecode.OpLt:
		result = cmp < 0
	case bytecode.OpGt:
		result = cmp > 0
	case bytecode.OpLte:
		result = cmp <= 0
	case bytecode.OpGte:
		result = cmp >= 0
	}
	if !e.writeReg(in.Mode(0), in.Args[0], value.Bool(result)) {
		return
	}
	e.rip++
}

func (e *Engine) execLoadConst(in bytecode.Instruction) {
	v, ok := e.readValue(bytecode.ModeConstant, in.Args[1])
	if !ok {
		return
	}
	if !e.writeReg(in.Mode(0), in.Args[0], v) {
		return
	}
	e.rip++
}

func (e *Engine) execMakeStr(in bytecode.Instruction) {
	// The preloaded heap object at in.Args[1] is the literal's backing
	// store, shared across every call site the way a string constant is
	// shared: make_str just aliases it rather than cloning.
	if !e.writeReg(in.Mode(0), in.Args[0], value.StringRefOf(int32(in.Args[1]))) {
		return
	}
	e.rip++
}

func (e *Engine) execMakeSeq(in bytecode.Instruction) {
	id := e.heap.NewSequence()
	if !e.writeReg(in.Mode(0), in.Args[0], value.SequenceRefOf(id)) {
		return
	}
	e.rip++
}

func (e *Engine) execFreeze(in bytecode.Instruction) {
	v, ok := e.readValue(in.Mode(0), in.Args[0])
	if !ok {
		return
	}
	id, ok := refHeapID(v)
	if !ok {
		e.fail(diagnostics.ArgError)
		return
	}
	if err := e.heap.Freeze(id); err != nil {
		e.fail(diagnostics.MemError)
		return
	}
	e.rip++
}

func (e *Engine) execSeqPush(in bytecode.Instruction) {
	seqVal, ok := e.readValue(in.Mode(0), in.Args[0])
	if !ok {
		return
	}
	id, ok := refHeapID(seqVal)
	if !ok {
		e.fail(diagnostics.ArgError)
		return
	}
	item, ok := e.readValue(in.Mode(1), in.Args[1])
	if !ok {
		return
	}
	if err := e.heap.Push(id, item); err != nil {
		e.fail(diagnostics.MemError)
		return
	}
	e.rip++
}

func (e *Engine) execSeqPop(in bytecode.Instruction) {
	seqVal, ok := e.readValue(in.Mode(0), in.Args[0])
	if !ok {
		return
	}
	id, ok := refHeapID(seqVal)
	if !ok {
		e.fail(diagnostics.ArgError)
		return
	}
	popped, err := e.heap.Pop(id)
	if err != nil {
		e.fail(diagnostics.MemError)
		return
	}
	if !e.writeReg(in.Mode(1), in.Args[1], popped) {
		return
	}
	e.rip++
}

func (e *Engine) execSeqGet(in bytecode.Instruction) {
	baseVal, ok := e.readValue(in.Mode(1), in.Args[1])
	if !ok {
		return
	}
	id, ok := refHeapID(baseVal)
	if !ok {
		e.fail(diagnostics.ArgError)
		return
	}
	idxVal, ok := e.readValue(in.Mode(2), in.Args[2])
	if !ok {
		return
	}
	if !idxVal.IsInt() {
		e.fail(diagnostics.ArgError)
		return
	}
	idx := int(idxVal.Int())

	obj, err := e.heap.Get(id)
	if err != nil {
		e.fail(diagnostics.MemError)
		return
	}
	var result value.Value
	switch obj.Kind {
	case heap.Sequence:
		if idx < 0 || idx >= len(obj.Items) {
			e.fail(diagnostics.ArgError)
			return
		}
		result = value.RefTo(value.Locator{HeapID: id, Index: idx})
	case heap.String:
		if idx < 0 || idx >= len(obj.Bytes) {
			e.fail(diagnostics.ArgError)
			return
		}
		result = value.Char(obj.Bytes[idx])
	default:
		e.fail(diagnostics.ArgError)
		return
	}
	if !e.writeReg(in.Mode(0), in.Args[0], result) {
		return
	}
	e.rip++
}

func refHeapID(v value.Value) (int32, bool) {
	switch {
	case v.IsSequenceRef(), v.IsStringRef():
		return v.HeapID(), true
	case v.IsValueRef():
		return v.Locator().HeapID, true
	default:
		return 0, false
	}
}

func (e *Engine) execJumpCond(in bytecode.Instruction, onTruthy bool) {
	cond, ok := e.readValue(in.Mode(0), in.Args[0])
	if !ok {
		return
	}
	truthy, err := value.IsTruthy(e.heap, cond)
	if err != nil {
		e.fail(diagnostics.ArgError)
		return
	}
	if truthy == onTruthy {
		e.rip = int(in.Args[1])
		return
	}
	e.rip++
}

func (e *Engine) execCall(in bytecode.Instruction) {
	fnID := int(in.Args[0])
	argc := int(in.Args[1])
	if fnID < 0 || fnID >= len(e.prog.Chunks) {
		e.fail(diagnostics.MemError)
		return
	}
	if len(e.frames) >= e.cfg.CallFrameMax {
		e.fail(diagnostics.MemError)
		return
	}
	newRBP := e.rft - argc + 1
	if newRBP < 0 || newRBP >= len(e.memory) {
		e.fail(diagnostics.MemError)
		return
	}

	e.frames = append(e.frames, CallFrame{rfi: e.rfi, rip: e.rip + 1, rbp: e.rbp, rft: e.rft, res: e.res})
	e.rfi = fnID
	e.rip = 0
	e.rbp = newRBP
	e.rrd++
}

func (e *Engine) execNativeCall(in bytecode.Instruction) {
	nativeID := in.Args[0]
	argc := in.Args[1]
	proc, ok := e.natives.Lookup(nativeID)
	if !ok {
		e.fail(diagnostics.OpError)
		return
	}
	if !proc(e, argc) {
		e.fail(diagnostics.OpError)
		return
	}
	e.rip++
}

func (e *Engine) execRet(in bytecode.Instruction) {
	retVal, ok := e.readValue(in.Mode(0), in.Args[0])
	if !ok {
		return
	}
	idx := e.rbp
	if idx < 0 || idx >= len(e.memory) {
		e.fail(diagnostics.MemError)
		return
	}
	e.memory[idx] = retVal

	n := len(e.frames)
	if n == 0 {
		// The entry function's own ret: there is no caller frame to
		// restore (New never pushes one for it), so this just ends the
		// run. memory[0] already holds the return value Run checks.
		e.rrd--
		return
	}
	frame := e.frames[n-1]
	e.frames = e.frames[:n-1]
	e.rfi = frame.rfi
	e.rip = frame.rip
	e.rbp = frame.rbp
	e.rft = frame.rft
	e.res = frame.res
	e.rrd--

	if e.heap.ShouldCollect() {
		e.heap.Collect(e.memory[0 : e.rft+1])
	}
}
