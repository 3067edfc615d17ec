// Package heap implements the id-addressed object heap: string and
// sequence objects, a free-id-reuse allocator, and the mark-sweep
// collector that runs at function return.
//
// Slot layout is grounded in the teacher's vm.Object
// (github.com/chazu/maggie vm/object.go) — a struct holding a small
// backing store addressed by index rather than raw pointer — but
// generalized from the teacher's fixed 4-inline-slot-plus-overflow class
// instance layout to a single growable slice per object, since sequence
// objects here have no fixed instance-variable count.
package heap

import (
	"fmt"

	"github.com/chazu/rasp/internal/value"
)

// Kind distinguishes the two heap object shapes the spec defines.
type Kind uint8

const (
	Sequence Kind = iota
	String
)

// Object is a single heap-resident value: either a sequence of Values or
// an immutable byte string. Frozen sequences reject further push/pop/set
// per the spec's freeze discipline.
type Object struct {
	Kind   Kind
	Items  []value.Value // meaningful when Kind == Sequence
	Bytes  []byte        // meaningful when Kind == String
	Frozen bool
}

// MemoryScore is the cost the spec's GC threshold accounts against: one
// unit per element for a sequence, one unit per byte for a string.
func (o *Object) MemoryScore() int {
	if o.Kind == String {
		return len(o.Bytes)
	}
	return len(o.Items)
}

var (
	errOutOfRange  = fmt.Errorf("heap: index out of range")
	errFrozen      = fmt.Errorf("heap: sequence is frozen")
	errWrongKind   = fmt.Errorf("heap: operation not valid for object kind")
	errUnknownID   = fmt.Errorf("heap: unknown object id")
)

// slot is one entry in the heap's id-indexed table: either a live Object
// or, once freed, a free-list link encoded as occupied==false.
type slot struct {
	obj      *Object
	occupied bool
}

// Heap is the flat, id-indexed object table. Ids are reused: freeing an
// object pushes its id onto freeList, and the next allocation pops from
// freeList before growing the table, matching the spec's "freed ids are
// reused before the table grows" rule.
type Heap struct {
	slots     []slot
	freeList  []int32
	gcThreshold int
	score     int
}

// New creates an empty heap. gcThreshold is the cumulative memory_score
// at which the next function return triggers a mark-sweep collection (0
// disables automatic collection; the caller can still call Collect
// directly).
func New(gcThreshold int) *Heap {
	return &Heap{gcThreshold: gcThreshold}
}

// Alloc stores obj at a reused or newly appended id and returns that id.
func (h *Heap) Alloc(obj *Object) int32 {
	h.score += obj.MemoryScore()
	if n := len(h.freeList); n > 0 {
		id := h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.slots[id] = slot{obj: obj, occupied: true}
		return id
	}
	id := int32(len(h.slots))
	h.slots = append(h.slots, slot{obj: obj, occupied: true})
	return id
}

// NewSequence allocates an empty, unfrozen sequence object.
func (h *Heap) NewSequence() int32 {
	return h.Alloc(&Object{Kind: Sequence})
}

// NewString allocates an immutable string object.
func (h *Heap) NewString(s string) int32 {
	return h.Alloc(&Object{Kind: String, Bytes: []byte(s), Frozen: true})
}

// Get returns the object at id, or an error if id is unallocated.
func (h *Heap) Get(id int32) (*Object, error) {
	if id < 0 || int(id) >= len(h.slots) || !h.slots[id].occupied {
		return nil, fmt.Errorf("%w: %d", errUnknownID, id)
	}
	return h.slots[id].obj, nil
}

// GetAt implements value.Dereferencer: resolves a Locator into a sequence
// element.
func (h *Heap) GetAt(loc value.Locator) (value.Value, error) {
	obj, err := h.Get(loc.HeapID)
	if err != nil {
		return value.Value{}, err
	}
	if obj.Kind != Sequence {
		return value.Value{}, errWrongKind
	}
	if loc.Index < 0 || loc.Index >= len(obj.Items) {
		return value.Value{}, errOutOfRange
	}
	return obj.Items[loc.Index], nil
}

// SetAt implements value.Dereferencer: writes through a Locator into a
// sequence element, subject to the freeze discipline.
func (h *Heap) SetAt(loc value.Locator, v value.Value) error {
	obj, err := h.Get(loc.HeapID)
	if err != nil {
		return err
	}
	if obj.Kind != Sequence {
		return errWrongKind
	}
	if obj.Frozen {
		return errFrozen
	}
	if loc.Index < 0 || loc.Index >= len(obj.Items) {
		return errOutOfRange
	}
	obj.Items[loc.Index] = v
	return nil
}

// Push appends v to the sequence at id.
func (h *Heap) Push(id int32, v value.Value) error {
	obj, err := h.Get(id)
	if err != nil {
		return err
	}
	if obj.Kind != Sequence {
		return errWrongKind
	}
	if obj.Frozen {
		return errFrozen
	}
	obj.Items = append(obj.Items, v)
	h.score++
	return nil
}

// Pop removes and returns the last element of the sequence at id.
func (h *Heap) Pop(id int32) (value.Value, error) {
	obj, err := h.Get(id)
	if err != nil {
		return value.Value{}, err
	}
	if obj.Kind != Sequence {
		return value.Value{}, errWrongKind
	}
	if obj.Frozen {
		return value.Value{}, errFrozen
	}
	n := len(obj.Items)
	if n == 0 {
		return value.Value{}, errOutOfRange
	}
	v := obj.Items[n-1]
	obj.Items = obj.Items[:n-1]
	h.score--
	return v, nil
}

// Freeze marks the sequence at id immutable; a frozen sequence can still
// be read, push/pop/SetAt onto it becomes an error.
func (h *Heap) Freeze(id int32) error {
	obj, err := h.Get(id)
	if err != nil {
		return err
	}
	obj.Frozen = true
	return nil
}

// Clone allocates a shallow copy of the object at id and returns its new
// id. A sequence clone is unfrozen even if the source is frozen; a string
// clone is frozen, like every string.
func (h *Heap) Clone(id int32) (int32, error) {
	obj, err := h.Get(id)
	if err != nil {
		return 0, err
	}
	switch obj.Kind {
	case Sequence:
		items := make([]value.Value, len(obj.Items))
		copy(items, obj.Items)
		return h.Alloc(&Object{Kind: Sequence, Items: items}), nil
	case String:
		b := make([]byte, len(obj.Bytes))
		copy(b, obj.Bytes)
		return h.Alloc(&Object{Kind: String, Bytes: b, Frozen: true}), nil
	default:
		return 0, errWrongKind
	}
}

// Score returns the heap's running memory_score, the sum of every live
// object's per-element/per-byte cost.
func (h *Heap) Score() int {
	return h.score
}

// ShouldCollect reports whether the accumulated score has crossed the
// configured GC threshold. A zero threshold disables automatic
// collection.
func (h *Heap) ShouldCollect() bool {
	return h.gcThreshold > 0 && h.score >= h.gcThreshold
}
