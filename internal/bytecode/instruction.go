// Package bytecode defines the fixed 3-operand instruction encoding, the
// runtime opcode table, and the linear Program the emitter produces and
// the engine executes.
//
// Instruction/Opcode layout is grounded in the teacher's
// github.com/chazu/maggie vm/bytecode.go (Opcode type + opcodeTable +
// Disassemble), generalized from its variable-length stack-machine
// encoding to the spec's fixed {args[3]int16, metadata uint16, op
// Opcode} register-machine shape.
package bytecode

import "fmt"

// ArgMode is the 4-bit per-operand addressing mode packed into an
// Instruction's metadata. `Stack` is reserved per the spec's open
// question and is never produced by this emitter; the engine treats it
// as an arg_error if ever encountered.
type ArgMode uint8

const (
	ModeImmediate ArgMode = iota
	ModeConstant
	ModeReg
	ModeHeap
	ModeStack // reserved, unreachable
)

func (m ArgMode) String() string {
	switch m {
	case ModeImmediate:
		return "immediate"
	case ModeConstant:
		return "constant"
	case ModeReg:
		return "reg"
	case ModeHeap:
		return "heap"
	case ModeStack:
		return "stack"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Opcode is the runtime instruction mnemonic.
type Opcode uint8

const (
	OpNop Opcode = iota
	OpMakeStr
	OpMakeSeq
	OpSeqObjPush
	OpSeqObjPop
	OpSeqObjGet
	OpFrzSeqObj
	OpLoadConst
	OpMov
	OpNeg
	OpInc
	OpDec
	OpMul
	OpDiv
	OpMod
	OpAdd
	OpSub
	OpEqu
	OpNeq
	OpLt
	OpGt
	OpLte
	OpGte
	OpJump
	OpJumpIf
	OpJumpElse
	OpCall
	OpNativeCall
	OpRet
	OpHalt
)

// opcodeInfo describes one opcode's name and fixed arity, mirroring the
// teacher's opcodeTable-driven Name()/Info() pattern.
type opcodeInfo struct {
	name  string
	arity int
}

var opcodeTable = map[Opcode]opcodeInfo{
	OpNop:        {"nop", 0},
	OpMakeStr:    {"make_str", 2},
	OpMakeSeq:    {"make_seq", 1},
	OpSeqObjPush: {"seq_obj_push", 3},
	OpSeqObjPop:  {"seq_obj_pop", 3},
	OpSeqObjGet:  {"seq_obj_get", 3},
	OpFrzSeqObj:  {"frz_seq_obj", 1},
	OpLoadConst:  {"load_const", 2},
	OpMov:        {"mov", 2},
	OpNeg:        {"neg", 1},
	OpInc:        {"inc", 1},
	OpDec:        {"dec", 1},
	OpMul:        {"mul", 3},
	OpDiv:        {"div", 3},
	OpMod:        {"mod", 3},
	OpAdd:        {"add", 3},
	OpSub:        {"sub", 3},
	OpEqu:        {"equ", 3},
	OpNeq:        {"neq", 3},
	OpLt:         {"lt", 3},
	OpGt:         {"gt", 3},
	OpLte:        {"lte", 3},
	OpGte:        {"gte", 3},
	OpJump:       {"jump", 1},
	OpJumpIf:     {"jump_if", 2},
	OpJumpElse:   {"jump_else", 2},
	OpCall:       {"call", 2},
	OpNativeCall: {"native_call", 2},
	OpRet:        {"ret", 1},
	OpHalt:       {"halt", 0},
}

// Name returns the opcode's mnemonic, falling back to a numbered
// placeholder for anything outside the known table.
func (o Opcode) Name() string {
	if info, ok := opcodeTable[o]; ok {
		return info.name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(o))
}

func (o Opcode) String() string { return o.Name() }

// Arity returns the opcode's fixed operand count (0..3).
func (o Opcode) Arity() int {
	if info, ok := opcodeTable[o]; ok {
		return info.arity
	}
	return 0
}

// Instruction is the fixed-size unit the engine dispatches: up to three
// int16 operands plus packed per-operand addressing modes.
type Instruction struct {
	Args     [3]int16
	Metadata uint16
	Op       Opcode
}

const (
	arityMask    = 0x3
	arg0ModeMask = 0xF
	arg0Shift    = 2
	arg1Shift    = 6
	arg2Shift    = 10
)

// NewInstruction packs an opcode, its operands, and their addressing
// modes into an Instruction.
func NewInstruction(op Opcode, arity int, args [3]int16, modes [3]ArgMode) Instruction {
	meta := uint16(arity) & arityMask
	meta |= (uint16(modes[0]) & arg0ModeMask) << arg0Shift
	meta |= (uint16(modes[1]) & arg0ModeMask) << arg1Shift
	meta |= (uint16(modes[2]) & arg0ModeMask) << arg2Shift
	return Instruction{Args: args, Metadata: meta, Op: op}
}

// Arity returns the packed operand count.
func (i Instruction) Arity() int { return int(i.Metadata & arityMask) }

// Mode returns the addressing mode of operand index (0..2).
func (i Instruction) Mode(index int) ArgMode {
	switch index {
	case 0:
		return ArgMode((i.Metadata >> arg0Shift) & arg0ModeMask)
	case 1:
		return ArgMode((i.Metadata >> arg1Shift) & arg0ModeMask)
	case 2:
		return ArgMode((i.Metadata >> arg2Shift) & arg0ModeMask)
	default:
		return ModeStack
	}
}

// Chunk is the linear instruction sequence for one function.
type Chunk struct {
	Instructions []Instruction
}

// Program is the emitter's output: one chunk per function plus the
// shared constant pool, preloaded heap objects, and the entry function.
type Program struct {
	Chunks     []Chunk
	Constants  []ConstValue
	PreObjects []PreObject
	EntryID    int
}

// ConstValue mirrors ir.ConstValue at the Program layer — duplicated
// rather than imported so bytecode has no dependency on ir, matching
// the spec's "constants transferred by value" rule at each stage
// boundary.
type ConstValue struct {
	Kind  ConstKind
	Int   int32
	Float float64
	Bool  bool
	Char  byte
}

type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstBool
	ConstChar
)

// PreObject mirrors ir.PreObject at the Program layer.
type PreObject struct {
	IsString bool
	String   string
}
