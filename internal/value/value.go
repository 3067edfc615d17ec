// Package value implements the tagged value cell described in the register
// VM's data model: a small fixed-size struct carrying a type tag plus either
// an inline scalar or a non-owning reference into the heap.
//
// The design follows the teacher's NaN-boxed vm.Value (github.com/chazu/maggie
// vm/value.go) in spirit — a single comparable value type with Is*/As*
// predicate-and-accessor pairs, an IsTruthy rule, and an Equals method — but
// uses an explicit tag field rather than bit-packing a float's NaN space,
// since the spec calls out five distinct heap-free tags plus three distinct
// reference tags (value_ref, string_ref, sequence_ref) that need to stay
// individually nameable.
package value

import (
	"fmt"
	"math"
)

// Tag identifies which variant a Value holds.
type Tag uint8

const (
	Dud Tag = iota
	Boolean
	Char8
	Int32
	Float64
	ValueRef
	StringRef
	SequenceRef
)

func (t Tag) String() string {
	switch t {
	case Dud:
		return "dud"
	case Boolean:
		return "boolean"
	case Char8:
		return "char8"
	case Int32:
		return "int32"
	case Float64:
		return "float64"
	case ValueRef:
		return "value_ref"
	case StringRef:
		return "string_ref"
	case SequenceRef:
		return "sequence_ref"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// Locator names a single element slot inside a heap-resident sequence
// object: the owning object's heap id plus an element index. A value_ref
// Value is exactly a Locator — mutating through it writes to the heap
// object's backing storage by id and index rather than through a raw
// pointer, per the index-discipline the heap is built on (see
// internal/heap).
type Locator struct {
	HeapID int32
	Index  int
}

// Value is the tagged cell. Only the field matching Tag is meaningful;
// the others are zero. bits holds the bool/char8/int32 payload and the
// IEEE-754 bits of a float64 so the struct stays comparable with ==.
type Value struct {
	Tag     Tag
	bits    uint64
	heapID  int32
	locator Locator
}

// Dereferencer resolves a value_ref Locator to the Value it currently holds
// and writes a new Value through it. internal/heap.Heap implements this.
type Dereferencer interface {
	GetAt(loc Locator) (Value, error)
	SetAt(loc Locator, v Value) error
}

func Nil() Value { return Value{Tag: Dud} }

func Bool(b bool) Value {
	v := Value{Tag: Boolean}
	if b {
		v.bits = 1
	}
	return v
}

func Char(c byte) Value            { return Value{Tag: Char8, bits: uint64(c & 0x7F)} }
func Int(n int32) Value            { return Value{Tag: Int32, bits: uint64(uint32(n))} }
func Float(f float64) Value        { return Value{Tag: Float64, bits: math.Float64bits(f)} }
func StringRefOf(id int32) Value   { return Value{Tag: StringRef, heapID: id} }
func SequenceRefOf(id int32) Value { return Value{Tag: SequenceRef, heapID: id} }
func RefTo(loc Locator) Value      { return Value{Tag: ValueRef, locator: loc} }

func (v Value) IsBool() bool        { return v.Tag == Boolean }
func (v Value) IsChar() bool        { return v.Tag == Char8 }
func (v Value) IsInt() bool         { return v.Tag == Int32 }
func (v Value) IsFloat() bool       { return v.Tag == Float64 }
func (v Value) IsValueRef() bool    { return v.Tag == ValueRef }
func (v Value) IsStringRef() bool   { return v.Tag == StringRef }
func (v Value) IsSequenceRef() bool { return v.Tag == SequenceRef }
func (v Value) IsDud() bool         { return v.Tag == Dud }

func (v Value) Bool() bool        { return v.bits != 0 }
func (v Value) Char() byte        { return byte(v.bits & 0x7F) }
func (v Value) Int() int32        { return int32(uint32(v.bits)) }
func (v Value) Float() float64    { return math.Float64frombits(v.bits) }
func (v Value) HeapID() int32     { return v.heapID }
func (v Value) Locator() Locator  { return v.locator }

// Deref resolves a value_ref to its pointee. Any other tag is returned
// unchanged — non-ValueRef values delegate to themselves.
func Deref(d Dereferencer, v Value) (Value, error) {
	if v.Tag != ValueRef {
		return v, nil
	}
	return d.GetAt(v.locator)
}

// EmplaceOther implements the spec's emplace_other: writing through a
// value_ref aliases the pointee, while writing through anything else just
// overwrites the destination outright.
func EmplaceOther(d Dereferencer, dest Value, other Value) (Value, error) {
	if dest.Tag == ValueRef {
		if err := d.SetAt(dest.locator, other); err != nil {
			return Value{}, err
		}
		return dest, nil
	}
	return other, nil
}

// IsTruthy implements the spec's §4.1 truthiness rule: boolean/char/int
// nonzero is true, float nonzero is true, every other tag is false.
func IsTruthy(d Dereferencer, v Value) (bool, error) {
	rv, err := Deref(d, v)
	if err != nil {
		return false, err
	}
	switch rv.Tag {
	case Boolean:
		return rv.bits&1 != 0, nil
	case Char8, Int32:
		return rv.bits != 0, nil
	case Float64:
		return rv.Float() != 0, nil
	default:
		return false, nil
	}
}

// Equals implements cross-tag equality: mismatched tags are always false,
// matching tags compare their payload (heap id for refs).
func Equals(d Dereferencer, a, b Value) (bool, error) {
	ra, err := Deref(d, a)
	if err != nil {
		return false, err
	}
	rb, err := Deref(d, b)
	if err != nil {
		return false, err
	}
	if ra.Tag != rb.Tag {
		return false, nil
	}
	switch ra.Tag {
	case Dud:
		return true, nil
	case StringRef, SequenceRef:
		return ra.heapID == rb.heapID, nil
	default:
		return ra.bits == rb.bits, nil
	}
}

func (v Value) String() string {
	switch v.Tag {
	case Dud:
		return "dud"
	case Boolean:
		return fmt.Sprintf("%t", v.Bool())
	case Char8:
		return fmt.Sprintf("%q", rune(v.Char()))
	case Int32:
		return fmt.Sprintf("%d", v.Int())
	case Float64:
		return fmt.Sprintf("%g", v.Float())
	case ValueRef:
		return fmt.Sprintf("&heap[%d][%d]", v.locator.HeapID, v.locator.Index)
	case StringRef:
		return fmt.Sprintf("string_ref(%d)", v.heapID)
	case SequenceRef:
		return fmt.Sprintf("sequence_ref(%d)", v.heapID)
	default:
		return "?"
	}
}
