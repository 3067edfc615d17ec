package ir

import "testing"

func TestLinkSetsTruthyThenFalsy(t *testing.T) {
	cfg := NewCFG()
	a := cfg.AddBlock()
	b := cfg.AddBlock()

	if err := cfg.Link(0, a); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := cfg.Link(0, b); err != nil {
		t.Fatalf("Link: %v", err)
	}
	entry, _ := cfg.Get(0)
	if entry.TruthyID != a || entry.FalsyID != b {
		t.Fatalf("entry successors = (%d,%d), want (%d,%d)", entry.TruthyID, entry.FalsyID, a, b)
	}

	if err := cfg.Link(0, a); err == nil {
		t.Fatalf("expected error linking a third successor")
	}
}

func TestLeafBlockHasNoEdges(t *testing.T) {
	cfg := NewCFG()
	entry, _ := cfg.Get(0)
	if entry.TruthyID != NoEdge || entry.FalsyID != NoEdge {
		t.Fatalf("new block should start with no edges")
	}
}

func TestGetOutOfRange(t *testing.T) {
	cfg := NewCFG()
	if _, err := cfg.Get(5); err == nil {
		t.Fatalf("expected error for out-of-range block id")
	}
}

func TestNewestBlockTracksAppends(t *testing.T) {
	cfg := NewCFG()
	if cfg.NewestBlock() != 0 {
		t.Fatalf("expected newest block 0 right after NewCFG")
	}
	id := cfg.AddBlock()
	if cfg.NewestBlock() != id {
		t.Fatalf("NewestBlock() = %d, want %d", cfg.NewestBlock(), id)
	}
}

func TestMetaOpIsMeta(t *testing.T) {
	if !OpMetaBeginWhile.IsMeta() {
		t.Fatalf("expected meta_begin_while to be a meta op")
	}
	if OpNop.IsMeta() {
		t.Fatalf("nop must not be classified as meta")
	}
	if OpAdd.IsMeta() {
		t.Fatalf("add must not be classified as meta")
	}
}
