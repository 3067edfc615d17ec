package bytecode

import (
	"fmt"
	"strings"
)

// DisassembleInstruction formats a single instruction, special-casing
// jump and call targets the way the teacher's DisassembleInstruction
// (vm/bytecode.go) annotates jump offsets with their resolved target.
func DisassembleInstruction(ip int, in Instruction) string {
	name := in.Op.Name()
	arity := in.Arity()
	if arity == 0 {
		return fmt.Sprintf("%04d  %s", ip, name)
	}

	parts := make([]string, arity)
	for i := 0; i < arity; i++ {
		parts[i] = fmt.Sprintf("%s:%d", in.Mode(i), in.Args[i])
	}

	switch in.Op {
	case OpJump:
		return fmt.Sprintf("%04d  %s %d (-> %04d)", ip, name, in.Args[0], in.Args[0])
	case OpJumpIf, OpJumpElse:
		return fmt.Sprintf("%04d  %s %s, %d (-> %04d)", ip, name, parts[0], in.Args[1], in.Args[1])
	case OpCall:
		return fmt.Sprintf("%04d  %s fn=%d argc=%d", ip, name, in.Args[0], in.Args[1])
	case OpNativeCall:
		return fmt.Sprintf("%04d  %s native=%d argc=%d", ip, name, in.Args[0], in.Args[1])
	default:
		return fmt.Sprintf("%04d  %s %s", ip, name, strings.Join(parts, ", "))
	}
}

// Disassemble renders every chunk in a Program as human-readable text,
// one function per section.
func Disassemble(p Program) string {
	var b strings.Builder
	for fnID, chunk := range p.Chunks {
		fmt.Fprintf(&b, "; function %d\n", fnID)
		for ip, in := range chunk.Instructions {
			b.WriteString(DisassembleInstruction(ip, in))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
