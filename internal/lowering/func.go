package lowering

import (
	"github.com/chazu/rasp/internal/frontend"
	"github.com/chazu/rasp/internal/ir"
)

// varScope is one lexical block's name→temp bindings, chained to its
// parent. Mirrors frontend.scope but carries an AbsAddress instead of a
// presence bit, since lowering needs the binding, not just a yes/no.
type varScope struct {
	parent *varScope
	vars   map[string]ir.AbsAddress
}

func newVarScope(parent *varScope) *varScope {
	return &varScope{parent: parent, vars: make(map[string]ir.AbsAddress)}
}

func (s *varScope) define(name string, addr ir.AbsAddress) bool {
	if _, exists := s.vars[name]; exists {
		return false
	}
	s.vars[name] = addr
	return true
}

func (s *varScope) resolve(name string) (ir.AbsAddress, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if addr, ok := cur.vars[name]; ok {
			return addr, true
		}
	}
	return ir.AbsAddress{}, false
}

// funcLowerer holds the per-function state reset between functions: the
// CFG under construction, the current block being appended to (which
// moves forward as nested control flow creates new blocks), and the
// monotonic temp counter.
type funcLowerer struct {
	l       *Lowerer
	cfg     *ir.CFG
	cur     int
	nextTmp int16
	scope   *varScope
}

// lowerFunc lowers one function declaration into a fresh CFG. The CFG is
// returned even when lowering recorded errors for this function; those
// errors go to l.diags, which Lower checks before returning any IR.
func (l *Lowerer) lowerFunc(fn frontend.FuncDecl) *ir.CFG {
	fl := &funcLowerer{l: l, cfg: ir.NewCFG(), cur: 0, scope: newVarScope(nil)}
	for _, param := range fn.Params {
		addr := fl.newTemp()
		fl.scope.define(param, addr)
	}
	for _, stmt := range fn.Body {
		fl.lowerStmt(stmt)
	}
	fl.ensureTerminated()
	return fl.cfg
}

func (fl *funcLowerer) newTemp() ir.AbsAddress {
	addr := ir.Tmp(fl.nextTmp)
	fl.nextTmp++
	return addr
}

func (fl *funcLowerer) emit(step ir.Step) {
	block, err := fl.cfg.Get(fl.cur)
	if err != nil {
		// cur is always a block this funcLowerer itself created via
		// AddBlock; an out-of-range id here would be a lowering bug,
		// not a user-reachable error.
		panic(err)
	}
	block.Emit(step)
}

// ensureTerminated appends a default `ret 0` if the function's last
// reachable statement was not already a return — falling off the end of
// a chunk has no defined dispatch behavior, so lowering makes the
// fallthrough explicit rather than leaving it to the engine.
func (fl *funcLowerer) ensureTerminated() {
	block, err := fl.cfg.Get(fl.cur)
	if err != nil {
		return
	}
	if len(block.Steps) > 0 {
		if last, ok := block.Steps[len(block.Steps)-1].(ir.OperUnary); ok && last.Oper == ir.OpRet {
			return
		}
	}
	block.Emit(ir.OperUnary{Arg0: ir.Imm(0), Oper: ir.OpRet})
}

func (fl *funcLowerer) lowerStmt(stmt frontend.Stmt) {
	switch s := stmt.(type) {
	case frontend.DefStmt:
		fl.lowerDefStmt(s)
	case frontend.AssignStmt:
		fl.lowerAssignStmt(s)
	case frontend.ExprStmt:
		fl.lowerExpr(s.Expr)
	case frontend.IfStmt:
		fl.lowerIfStmt(s)
	case frontend.WhileStmt:
		fl.lowerWhileStmt(s)
	case frontend.BreakStmt:
		fl.emit(ir.OperUnary{Arg0: ir.Imm(0), Oper: ir.OpJump})
		fl.emit(ir.OperNonary{Oper: ir.OpMetaMarkBreak})
	case frontend.ReturnStmt:
		fl.lowerReturnStmt(s)
	default:
		fl.l.errorf(frontend.Position{}, "lowering: unhandled statement kind %T", stmt)
	}
}

func (fl *funcLowerer) lowerDefStmt(s frontend.DefStmt) {
	valAddr := fl.lowerExpr(s.Value)
	dest := fl.newTemp()
	fl.emit(ir.TACUnary{Dest: dest, Arg0: valAddr, Oper: ir.OpNop})
	if !fl.scope.define(s.Name, dest) {
		fl.l.errorf(s.Pos, "%q redefined in the same scope", s.Name)
	}
}

// lowerAssignStmt supports two LHS shapes: a plain name (`x = e`, which
// reuses x's existing temp) and an access expression (`seq.i = e`, which
// resolves to the same seq_obj_get-produced value_ref a read of `seq.i`
// would, then emits a nop move into it). A value_ref destination makes
// that move an emplace_other, per §4.1 — it aliases the sequence slot
// instead of overwriting the register, so writing through it mutates the
// heap the same way a push/pop would.
func (fl *funcLowerer) lowerAssignStmt(s frontend.AssignStmt) {
	switch lhs := s.Lhs.(type) {
	case frontend.Ident:
		dest, ok := fl.scope.resolve(lhs.Name)
		if !ok {
			fl.l.errorf(lhs.Pos, "undefined name %q", lhs.Name)
			return
		}
		valAddr := fl.lowerExpr(s.Value)
		fl.emit(ir.TACUnary{Dest: dest, Arg0: valAddr, Oper: ir.OpNop})
	case frontend.BinaryExpr:
		if lhs.Op != "." {
			fl.l.errorf(s.Pos, "assignment target must be a name or an access expression")
			return
		}
		baseAddr := fl.lowerExpr(lhs.Left)
		idxAddr := fl.lowerExpr(lhs.Right)
		ref := fl.newTemp()
		fl.emit(ir.OperTernary{Arg0: ref, Arg1: baseAddr, Arg2: idxAddr, Oper: ir.OpSeqObjGet})
		valAddr := fl.lowerExpr(s.Value)
		fl.emit(ir.TACUnary{Dest: ref, Arg0: valAddr, Oper: ir.OpNop})
	default:
		fl.l.errorf(s.Pos, "assignment target must be a name or an access expression")
	}
}

func (fl *funcLowerer) lowerReturnStmt(s frontend.ReturnStmt) {
	var addr ir.AbsAddress
	if s.Value != nil {
		addr = fl.lowerExpr(s.Value)
	} else {
		addr = ir.Imm(0)
	}
	fl.emit(ir.OperUnary{Arg0: addr, Oper: ir.OpRet})
}

// lowerIfStmt implements the §4.3.1 shape: the pre-block carries the
// check and its markers, a dedicated truthy block carries the then-body,
// an optional falsy block carries the else-body, and a fresh post-block
// is where control resumes. Block ids are assigned in the order pre,
// truthy, [falsy], post, which is exactly the creation order the
// emitter's ascending-id linearization relies on.
func (fl *funcLowerer) lowerIfStmt(s frontend.IfStmt) {
	preID := fl.cur
	fl.emit(ir.OperNonary{Oper: ir.OpMetaBeginIfElse})
	condAddr := fl.lowerExpr(s.Cond)
	fl.emit(ir.OperBinary{Arg0: condAddr, Arg1: ir.Imm(0), Oper: ir.OpJumpElse})
	fl.emit(ir.OperNonary{Oper: ir.OpMetaMarkIfElseCheck})

	truthyID := fl.cfg.AddBlock()
	mustLink(fl.cfg, preID, truthyID)
	fl.cur = truthyID
	fl.newScope(func() {
		for _, stmt := range s.Then {
			fl.lowerStmt(stmt)
		}
	})
	truthyTailID := fl.cur

	if s.HasElse {
		falsyID := fl.cfg.AddBlock()
		mustLink(fl.cfg, preID, falsyID)

		fl.cur = truthyTailID
		fl.emit(ir.OperUnary{Arg0: ir.Imm(0), Oper: ir.OpJump})
		fl.emit(ir.OperNonary{Oper: ir.OpMetaMarkIfElseAlt})
		fl.emit(ir.OperNonary{Oper: ir.OpNop})

		fl.cur = falsyID
		fl.newScope(func() {
			for _, stmt := range s.Else {
				fl.lowerStmt(stmt)
			}
		})
		falsyTailID := fl.cur

		postID := fl.cfg.AddBlock()
		mustLink(fl.cfg, truthyTailID, postID)
		mustLink(fl.cfg, falsyTailID, postID)
		fl.cur = postID
		fl.emit(ir.OperNonary{Oper: ir.OpNop})
		fl.emit(ir.OperNonary{Oper: ir.OpMetaEndIfElse})
		return
	}

	postID := fl.cfg.AddBlock()
	mustLink(fl.cfg, preID, postID)
	mustLink(fl.cfg, truthyTailID, postID)
	fl.cur = postID
	fl.emit(ir.OperNonary{Oper: ir.OpNop})
	fl.emit(ir.OperNonary{Oper: ir.OpMetaEndIfElse})
}

// lowerWhileStmt implements the §4.3.2 shape: the pre-block holds the
// loop-start nop and check, a dedicated body block ends with the
// back-edge jump, and a post-block is where `break` and the falsy check
// both land.
func (fl *funcLowerer) lowerWhileStmt(s frontend.WhileStmt) {
	preID := fl.cur
	fl.emit(ir.OperNonary{Oper: ir.OpMetaBeginWhile})
	fl.emit(ir.OperNonary{Oper: ir.OpNop})
	condAddr := fl.lowerExpr(s.Cond)
	fl.emit(ir.OperBinary{Arg0: condAddr, Arg1: ir.Imm(0), Oper: ir.OpJumpElse})
	fl.emit(ir.OperNonary{Oper: ir.OpMetaMarkWhileCheck})

	bodyID := fl.cfg.AddBlock()
	mustLink(fl.cfg, preID, bodyID)
	fl.cur = bodyID
	fl.newScope(func() {
		for _, stmt := range s.Body {
			fl.lowerStmt(stmt)
		}
	})
	bodyTailID := fl.cur
	fl.cur = bodyTailID
	fl.emit(ir.OperUnary{Arg0: ir.Imm(0), Oper: ir.OpJump})
	fl.emit(ir.OperNonary{Oper: ir.OpMetaMarkContinue})
	mustLink(fl.cfg, bodyTailID, preID)

	postID := fl.cfg.AddBlock()
	mustLink(fl.cfg, preID, postID)
	fl.cur = postID
	fl.emit(ir.OperNonary{Oper: ir.OpNop})
	fl.emit(ir.OperNonary{Oper: ir.OpMetaEndWhile})
}

func (fl *funcLowerer) newScope(body func()) {
	outer := fl.scope
	fl.scope = newVarScope(outer)
	body()
	fl.scope = outer
}

func mustLink(cfg *ir.CFG, from, to int) {
	if err := cfg.Link(from, to); err != nil {
		// from/to are always ids this package itself just allocated;
		// a Link failure here means the §4.3.1/§4.3.2 shape above was
		// built wrong, which is a lowering bug, not a user error.
		panic(err)
	}
}
