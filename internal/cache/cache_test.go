package cache

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/rasp/internal/bytecode"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleProgram() bytecode.Program {
	return bytecode.Program{
		Chunks:  []bytecode.Chunk{{Instructions: []bytecode.Instruction{bytecode.NewInstruction(bytecode.OpHalt, 0, [3]int16{}, [3]bytecode.ArgMode{})}}},
		EntryID: 0,
	}
}

func TestLookupMissReturnsErrNotFound(t *testing.T) {
	c := openTestCache(t)
	if _, err := c.Lookup("fun main: [] => { return 0 }"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup = %v, want ErrNotFound", err)
	}
}

func TestStoreThenLookupRoundTrips(t *testing.T) {
	c := openTestCache(t)
	src := "fun main: [] => { return 0 }"
	prog := sampleProgram()

	if _, err := c.Store(src, prog); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := c.Lookup(src)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got.Chunks) != len(prog.Chunks) || got.EntryID != prog.EntryID {
		t.Fatalf("round-tripped program = %+v, want %+v", got, prog)
	}
}

func TestStoreReplacesPriorEntry(t *testing.T) {
	c := openTestCache(t)
	src := "fun main: [] => { return 0 }"
	if _, err := c.Store(src, sampleProgram()); err != nil {
		t.Fatalf("Store: %v", err)
	}
	id2, err := c.Store(src, sampleProgram())
	if err != nil {
		t.Fatalf("second Store: %v", err)
	}
	if id2 == "" {
		t.Fatalf("expected non-empty id on replace")
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	c := openTestCache(t)
	src := "fun main: [] => { return 0 }"
	if _, err := c.Store(src, sampleProgram()); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Delete(src); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Lookup(src); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup after delete = %v, want ErrNotFound", err)
	}
}

func TestHashSourceIsStableAndDistinguishing(t *testing.T) {
	a := HashSource("fun main: [] => { return 0 }")
	b := HashSource("fun main: [] => { return 1 }")
	if a == b {
		t.Fatalf("distinct sources hashed to the same key")
	}
	if a != HashSource("fun main: [] => { return 0 }") {
		t.Fatalf("HashSource not stable across calls")
	}
}
