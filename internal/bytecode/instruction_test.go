package bytecode

import "testing"

func TestInstructionPackingRoundTrips(t *testing.T) {
	in := NewInstruction(OpAdd, 3, [3]int16{5, 1, 2}, [3]ArgMode{ModeReg, ModeReg, ModeConstant})
	if in.Arity() != 3 {
		t.Fatalf("Arity() = %d, want 3", in.Arity())
	}
	if in.Mode(0) != ModeReg || in.Mode(1) != ModeReg || in.Mode(2) != ModeConstant {
		t.Fatalf("modes = (%s,%s,%s), want (reg,reg,constant)", in.Mode(0), in.Mode(1), in.Mode(2))
	}
	if in.Args != [3]int16{5, 1, 2} {
		t.Fatalf("args = %v, want [5 1 2]", in.Args)
	}
}

func TestOpcodeNameFallback(t *testing.T) {
	var unknown Opcode = 255
	if unknown.Name() != "UNKNOWN(255)" {
		t.Fatalf("Name() = %q, want UNKNOWN(255)", unknown.Name())
	}
}

func TestDisassembleJumpShowsTarget(t *testing.T) {
	in := NewInstruction(OpJump, 1, [3]int16{7, 0, 0}, [3]ArgMode{ModeImmediate, 0, 0})
	s := DisassembleInstruction(3, in)
	if s != "0003  jump 7 (-> 0007)" {
		t.Fatalf("DisassembleInstruction = %q", s)
	}
}

func TestWireRoundTrip(t *testing.T) {
	p := Program{
		Chunks: []Chunk{
			{Instructions: []Instruction{
				NewInstruction(OpAdd, 3, [3]int16{0, 1, 2}, [3]ArgMode{ModeReg, ModeReg, ModeReg}),
				NewInstruction(OpRet, 1, [3]int16{0, 0, 0}, [3]ArgMode{ModeReg, 0, 0}),
			}},
		},
		Constants:  []ConstValue{{Kind: ConstInt, Int: 42}},
		PreObjects: []PreObject{{IsString: true, String: "hi"}},
		EntryID:    0,
	}
	data, err := Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Chunks) != 1 || len(got.Chunks[0].Instructions) != 2 {
		t.Fatalf("round trip lost instructions: %+v", got)
	}
	if got.Constants[0].Int != 42 {
		t.Fatalf("round trip lost constant: %+v", got.Constants)
	}
	if got.PreObjects[0].String != "hi" {
		t.Fatalf("round trip lost pre-object: %+v", got.PreObjects)
	}
}
