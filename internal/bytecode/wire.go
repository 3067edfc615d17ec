package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// wireInstruction is the CBOR-friendly shape of Instruction: cbor/v2
// handles fixed-size arrays and structs natively, so this only exists to
// give the encoding stable field names independent of the in-memory
// struct's layout.
type wireInstruction struct {
	Args     [3]int16 `cbor:"args"`
	Metadata uint16   `cbor:"metadata"`
	Op       Opcode   `cbor:"op"`
}

type wireChunk struct {
	Instructions []wireInstruction `cbor:"instructions"`
}

type wireProgram struct {
	Chunks     []wireChunk  `cbor:"chunks"`
	Constants  []ConstValue `cbor:"constants"`
	PreObjects []PreObject  `cbor:"pre_objects"`
	EntryID    int          `cbor:"entry_id"`
}

// Marshal serializes a Program to its on-disk CBOR form, used by `rasp
// build` to emit a compiled .rbc file.
func Marshal(p Program) ([]byte, error) {
	wp := wireProgram{Constants: p.Constants, PreObjects: p.PreObjects, EntryID: p.EntryID}
	for _, c := range p.Chunks {
		wc := wireChunk{Instructions: make([]wireInstruction, len(c.Instructions))}
		for i, in := range c.Instructions {
			wc.Instructions[i] = wireInstruction{Args: in.Args, Metadata: in.Metadata, Op: in.Op}
		}
		wp.Chunks = append(wp.Chunks, wc)
	}
	data, err := cbor.Marshal(wp)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal program: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a Program previously produced by Marshal, used by
// `rasp exec` to load a compiled .rbc file.
func Unmarshal(data []byte) (Program, error) {
	var wp wireProgram
	if err := cbor.Unmarshal(data, &wp); err != nil {
		return Program{}, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	p := Program{Constants: wp.Constants, PreObjects: wp.PreObjects, EntryID: wp.EntryID}
	for _, wc := range wp.Chunks {
		c := Chunk{Instructions: make([]Instruction, len(wc.Instructions))}
		for i, win := range wc.Instructions {
			c.Instructions[i] = Instruction{Args: win.Args, Metadata: win.Metadata, Op: win.Op}
		}
		p.Chunks = append(p.Chunks, c)
	}
	return p, nil
}
