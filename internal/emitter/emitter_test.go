package emitter

import (
	"testing"

	"github.com/chazu/rasp/internal/bytecode"
	"github.com/chazu/rasp/internal/ir"
)

func buildWhileCFG() *ir.CFG {
	cfg := ir.NewCFG() // block 0 = pre
	body := cfg.AddBlock()
	post := cfg.AddBlock()

	must(cfg.Link(0, body)) // truthy
	must(cfg.Link(body, 0)) // back edge
	must(cfg.Link(0, post)) // falsy

	pre, _ := cfg.Get(0)
	pre.Emit(ir.OperNonary{Oper: ir.OpMetaBeginWhile})
	pre.Emit(ir.OperNonary{Oper: ir.OpNop})
	pre.Emit(ir.TACBinary{Dest: ir.Tmp(2), Arg0: ir.Tmp(0), Arg1: ir.Const(0), Oper: ir.OpLt})
	pre.Emit(ir.OperBinary{Arg0: ir.Tmp(2), Arg1: ir.Imm(0), Oper: ir.OpJumpElse})
	pre.Emit(ir.OperNonary{Oper: ir.OpMetaMarkWhileCheck})

	bodyBlock, _ := cfg.Get(body)
	bodyBlock.Emit(ir.OperUnary{Arg0: ir.Imm(0), Oper: ir.OpJump})
	bodyBlock.Emit(ir.OperNonary{Oper: ir.OpMetaMarkContinue})

	postBlock, _ := cfg.Get(post)
	postBlock.Emit(ir.OperNonary{Oper: ir.OpNop})
	postBlock.Emit(ir.OperNonary{Oper: ir.OpMetaEndWhile})

	return cfg
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func TestEmitWhilePatchesJumpElseAndBackedge(t *testing.T) {
	full := &ir.FullIR{CFGs: []*ir.CFG{buildWhileCFG()}, MainID: 0}
	prog, err := Emit(full)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	chunk := prog.Chunks[0].Instructions
	if len(chunk) != 5 {
		t.Fatalf("expected 5 instructions (meta-markers stripped), got %d", len(chunk))
	}

	// ip0 nop (loop start), ip1 lt, ip2 jump_else, ip3 jump (body), ip4 nop (post)
	if chunk[2].Op != bytecode.OpJumpElse {
		t.Fatalf("ip2 = %s, want jump_else", chunk[2].Op)
	}
	if chunk[2].Args[1] != 4 {
		t.Fatalf("jump_else target = %d, want 4 (post-block nop)", chunk[2].Args[1])
	}
	if chunk[3].Op != bytecode.OpJump {
		t.Fatalf("ip3 = %s, want jump", chunk[3].Op)
	}
	if chunk[3].Args[0] != 0 {
		t.Fatalf("continue jump target = %d, want 0 (loop start)", chunk[3].Args[0])
	}
}

func buildIfElseCFG(withElse bool) *ir.CFG {
	cfg := ir.NewCFG() // block 0 = pre
	truthy := cfg.AddBlock()
	var falsy int
	if withElse {
		falsy = cfg.AddBlock()
	}
	post := cfg.AddBlock()

	must(cfg.Link(0, truthy))
	if withElse {
		must(cfg.Link(0, falsy))
		must(cfg.Link(truthy, post))
		must(cfg.Link(falsy, post))
	} else {
		must(cfg.Link(0, post))
		must(cfg.Link(truthy, post))
	}

	pre, _ := cfg.Get(0)
	pre.Emit(ir.OperNonary{Oper: ir.OpMetaBeginIfElse})
	pre.Emit(ir.TACBinary{Dest: ir.Tmp(1), Arg0: ir.Tmp(0), Arg1: ir.Const(0), Oper: ir.OpEqu})
	pre.Emit(ir.OperBinary{Arg0: ir.Tmp(1), Arg1: ir.Imm(0), Oper: ir.OpJumpElse})
	pre.Emit(ir.OperNonary{Oper: ir.OpMetaMarkIfElseCheck})

	truthyBlock, _ := cfg.Get(truthy)
	if withElse {
		truthyBlock.Emit(ir.OperUnary{Arg0: ir.Imm(0), Oper: ir.OpJump})
		truthyBlock.Emit(ir.OperNonary{Oper: ir.OpMetaMarkIfElseAlt})
		truthyBlock.Emit(ir.OperNonary{Oper: ir.OpNop})

		falsyBlock, _ := cfg.Get(falsy)
		falsyBlock.Emit(ir.OperNonary{Oper: ir.OpNop})
	}

	postBlock, _ := cfg.Get(post)
	postBlock.Emit(ir.OperNonary{Oper: ir.OpNop})
	postBlock.Emit(ir.OperNonary{Oper: ir.OpMetaEndIfElse})

	return cfg
}

func TestEmitIfElsePatchesCheckAndAlt(t *testing.T) {
	full := &ir.FullIR{CFGs: []*ir.CFG{buildIfElseCFG(true)}, MainID: 0}
	prog, err := Emit(full)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	chunk := prog.Chunks[0].Instructions
	// ip0 equ, ip1 jump_else, ip2 jump, ip3 nop(truthy trailer), ip4 nop(falsy), ip5 nop(post)
	if chunk[1].Op != bytecode.OpJumpElse {
		t.Fatalf("ip1 = %s, want jump_else", chunk[1].Op)
	}
	if chunk[1].Args[1] != 3 { // altIP(2) + 1
		t.Fatalf("jump_else target = %d, want 3", chunk[1].Args[1])
	}
	if chunk[2].Op != bytecode.OpJump {
		t.Fatalf("ip2 = %s, want jump", chunk[2].Op)
	}
	if chunk[2].Args[0] != 5 { // endIP
		t.Fatalf("truthy-arm jump target = %d, want 5", chunk[2].Args[0])
	}
}

func TestEmitIfNoElsePatchesCheckToEnd(t *testing.T) {
	full := &ir.FullIR{CFGs: []*ir.CFG{buildIfElseCFG(false)}, MainID: 0}
	prog, err := Emit(full)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	chunk := prog.Chunks[0].Instructions
	// ip0 equ, ip1 jump_else, ip2 nop(post)
	if len(chunk) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(chunk))
	}
	if chunk[1].Args[1] != 2 {
		t.Fatalf("jump_else target = %d, want 2 (post nop)", chunk[1].Args[1])
	}
}

func TestEmitRejectsUnmatchedMetaMarker(t *testing.T) {
	cfg := ir.NewCFG()
	b, _ := cfg.Get(0)
	b.Emit(ir.OperNonary{Oper: ir.OpMetaEndWhile})
	full := &ir.FullIR{CFGs: []*ir.CFG{cfg}, MainID: 0}
	if _, err := Emit(full); err == nil {
		t.Fatalf("expected error for meta_end_while without matching begin")
	}
}

func TestEmitRejectsInvalidAbsAddrTag(t *testing.T) {
	cfg := ir.NewCFG()
	b, _ := cfg.Get(0)
	b.Emit(ir.TACUnary{Dest: ir.AbsAddress{Tag: ir.AddrTag(99), ID: 0}, Arg0: ir.Tmp(0), Oper: ir.OpNop})
	full := &ir.FullIR{CFGs: []*ir.CFG{cfg}, MainID: 0}
	if _, err := Emit(full); err == nil {
		t.Fatalf("expected error for invalid AbsAddrTag")
	}
}

func TestEmitRejectsMissingMain(t *testing.T) {
	full := &ir.FullIR{CFGs: []*ir.CFG{ir.NewCFG()}, MainID: -1}
	if _, err := Emit(full); err == nil {
		t.Fatalf("expected setup error for main_id = -1")
	}
}
