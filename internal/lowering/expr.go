package lowering

import (
	"github.com/chazu/rasp/internal/frontend"
	"github.com/chazu/rasp/internal/ir"
)

var binaryOps = map[string]ir.Op{
	"*": ir.OpMul, "/": ir.OpDiv, "%": ir.OpMod, "+": ir.OpAdd, "-": ir.OpSub,
	"==": ir.OpEqu, "!=": ir.OpNeq, "<": ir.OpLt, ">": ir.OpGt, "<=": ir.OpLte, ">=": ir.OpGte,
}

// lowerExpr lowers e and returns the AbsAddress its value lives in once
// emitted. Errors are accumulated in l.diags; a failed lowering still
// returns a usable placeholder address so the caller can keep walking
// the tree and report every error in one pass.
func (fl *funcLowerer) lowerExpr(e frontend.Expr) ir.AbsAddress {
	switch expr := e.(type) {
	case frontend.IntLit:
		id := fl.l.internConst(expr.Text, func() ir.ConstValue {
			return ir.ConstValue{Kind: ir.ConstInt, Int: expr.Value}
		})
		return ir.Const(id)
	case frontend.FloatLit:
		id := fl.l.internConst(expr.Text, func() ir.ConstValue {
			return ir.ConstValue{Kind: ir.ConstFloat, Float: expr.Value}
		})
		return ir.Const(id)
	case frontend.BoolLit:
		id := fl.l.internConst(expr.Text, func() ir.ConstValue {
			return ir.ConstValue{Kind: ir.ConstBool, Bool: expr.Value}
		})
		return ir.Const(id)
	case frontend.CharLit:
		id := fl.l.internConst(expr.Text, func() ir.ConstValue {
			return ir.ConstValue{Kind: ir.ConstChar, Char: expr.Value}
		})
		return ir.Const(id)
	case frontend.StringLit:
		return fl.lowerStringLit(expr)
	case frontend.SeqLit:
		return fl.lowerSeqLit(expr)
	case frontend.Ident:
		return fl.lowerIdent(expr)
	case frontend.UnaryExpr:
		return fl.lowerUnaryExpr(expr)
	case frontend.BinaryExpr:
		return fl.lowerBinaryExpr(expr)
	case frontend.CallExpr:
		return fl.lowerCallExpr(expr)
	default:
		fl.l.errorf(frontend.Position{}, "lowering: unhandled expression kind %T", e)
		return ir.Imm(0)
	}
}

func (fl *funcLowerer) lowerStringLit(s frontend.StringLit) ir.AbsAddress {
	heapPreID := fl.l.internString(s.Value)
	dest := fl.newTemp()
	fl.emit(ir.OperBinary{Arg0: dest, Arg1: ir.Hp(heapPreID), Oper: ir.OpMakeStr})
	return dest
}

// lowerSeqLit emits `make_seq` into a fresh temp, then one
// `seq_obj_push` per item; `[...]` tuples additionally freeze the
// result. The ternary's third operand is a push-mode placeholder — the
// source surface has no syntax for anything but append, so lowering
// always supplies `immediate 0`.
func (fl *funcLowerer) lowerSeqLit(s frontend.SeqLit) ir.AbsAddress {
	seqReg := fl.newTemp()
	fl.emit(ir.OperUnary{Arg0: seqReg, Oper: ir.OpMakeSeq})
	for _, item := range s.Items {
		itemAddr := fl.lowerExpr(item)
		fl.emit(ir.OperTernary{Arg0: seqReg, Arg1: itemAddr, Arg2: ir.Imm(0), Oper: ir.OpSeqObjPush})
	}
	if s.Frozen {
		fl.emit(ir.OperUnary{Arg0: seqReg, Oper: ir.OpFrzSeqObj})
	}
	return seqReg
}

// lowerIdent resolves a bare name in the spec's mandated order: native
// registry, then globals (user functions), then locals. A name that
// resolves to a callable outside of call position lowers to its
// immediate function/native id as a value.
func (fl *funcLowerer) lowerIdent(id frontend.Ident) ir.AbsAddress {
	if c, ok := fl.l.funcs[id.Name]; ok {
		return ir.Imm(c.id)
	}
	if addr, ok := fl.scope.resolve(id.Name); ok {
		return addr
	}
	fl.l.errorf(id.Pos, "undefined name %q", id.Name)
	return ir.Imm(0)
}

func (fl *funcLowerer) lowerUnaryExpr(u frontend.UnaryExpr) ir.AbsAddress {
	inner := fl.lowerExpr(u.Inner)
	if u.Op != "-" {
		fl.l.errorf(u.Pos, "unsupported unary operator %q", u.Op)
		return ir.Imm(0)
	}
	// Negate always lands in a fresh temp rather than overwriting inner
	// in place: inner may be a constant-pool or immediate address, which
	// is not a writable destination.
	dest := fl.newTemp()
	fl.emit(ir.TACUnary{Dest: dest, Arg0: inner, Oper: ir.OpNeg})
	return dest
}

// lowerBinaryExpr handles both arithmetic/comparison (→ a fresh-temp
// TACBinary) and the access operator `a.b` (→ seq_obj_get into a fresh
// temp).
func (fl *funcLowerer) lowerBinaryExpr(b frontend.BinaryExpr) ir.AbsAddress {
	if b.Op == "." {
		baseAddr := fl.lowerExpr(b.Left)
		idxAddr := fl.lowerExpr(b.Right)
		dest := fl.newTemp()
		fl.emit(ir.OperTernary{Arg0: dest, Arg1: baseAddr, Arg2: idxAddr, Oper: ir.OpSeqObjGet})
		return dest
	}
	op, ok := binaryOps[b.Op]
	if !ok {
		fl.l.errorf(b.Pos, "unsupported binary operator %q", b.Op)
		return ir.Imm(0)
	}
	leftAddr := fl.lowerExpr(b.Left)
	rightAddr := fl.lowerExpr(b.Right)
	dest := fl.newTemp()
	fl.emit(ir.TACBinary{Dest: dest, Arg0: leftAddr, Arg1: rightAddr, Oper: op})
	return dest
}

// lowerCallExpr lowers every argument expression first, then moves each
// result into a fresh temp in a second pass, back-to-back with no other
// temp allocation interleaved. That contiguity is load-bearing: the
// native ABI's `access`/`return` offset math (spec §4.7) and the
// engine's `newRBP = rft − argc + 1` (execCall) both assume the final
// argc temps are the newest, adjacent ones. Lowering an argument
// expression can itself allocate temps (a nested call, a binary
// expression, a literal) — doing the move right after each argument's
// lowering would let those intermediate temps wedge between one
// argument's slot and the next's, so every argument must be fully
// lowered before any argument's move is emitted. A zero-argument call
// still reserves one temp for the result slot, since the engine's call
// window is always at least one register wide.
func (fl *funcLowerer) lowerCallExpr(c frontend.CallExpr) ir.AbsAddress {
	ident, ok := c.Callee.(frontend.Ident)
	if !ok {
		fl.l.errorf(c.Pos, "call target must be a function or native name")
		return ir.Imm(0)
	}
	target, ok := fl.l.funcs[ident.Name]
	if !ok {
		fl.l.errorf(ident.Pos, "call to undefined function %q", ident.Name)
		return ir.Imm(0)
	}
	if target.argc != len(c.Args) {
		fl.l.errorf(c.Pos, "%q called with %d argument(s), wants %d", ident.Name, len(c.Args), target.argc)
	}

	argAddrs := make([]ir.AbsAddress, len(c.Args))
	for i, argExpr := range c.Args {
		argAddrs[i] = fl.lowerExpr(argExpr)
	}

	var resultSlot ir.AbsAddress
	if len(c.Args) == 0 {
		resultSlot = fl.newTemp()
	}
	for i, valAddr := range argAddrs {
		argTmp := fl.newTemp()
		fl.emit(ir.TACUnary{Dest: argTmp, Arg0: valAddr, Oper: ir.OpNop})
		if i == 0 {
			resultSlot = argTmp
		}
	}

	switch target.kind {
	case calleeFunc:
		fl.emit(ir.OperBinary{Arg0: ir.Imm(target.id), Arg1: ir.Imm(int16(len(c.Args))), Oper: ir.OpCall})
	case calleeNative:
		fl.emit(ir.OperBinary{Arg0: ir.Imm(target.id), Arg1: ir.Imm(int16(len(c.Args))), Oper: ir.OpNativeCall})
	}
	return resultSlot
}
