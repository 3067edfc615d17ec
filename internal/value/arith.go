package value

import "fmt"

// OpError is returned for a type mismatch (wrong tag for the operator),
// which the engine reports as arg_error, versus MathError (right tags,
// bad operands — e.g. division by zero), which it reports as math_error.
type OpError struct {
	Op  string
	Tag Tag
}

func (e *OpError) Error() string {
	return fmt.Sprintf("operator %s not defined for %s", e.Op, e.Tag)
}

// MathError is returned for a well-typed arithmetic operation that fails
// at runtime, such as integer division by zero.
type MathError struct {
	Op string
}

func (e *MathError) Error() string {
	return fmt.Sprintf("math error in %s", e.Op)
}

// Negate implements unary negation: arithmetic inversion for int32/float64,
// logical inversion for boolean. Any other tag is an op_error.
func Negate(d Dereferencer, v Value) (Value, error) {
	rv, err := Deref(d, v)
	if err != nil {
		return Value{}, err
	}
	switch rv.Tag {
	case Int32:
		return Int(-rv.Int()), nil
	case Float64:
		return Float(-rv.Float()), nil
	case Boolean:
		return Bool(!rv.Bool()), nil
	default:
		return Value{}, &OpError{Op: "negate", Tag: rv.Tag}
	}
}

// numeric derefs both operands and reports whether they're a float64
// pair. Arithmetic is defined only when both operands share the same
// numeric tag — a mismatched int32/float64 pair is an op_error, not a
// promotion; nothing in this VM's numeric tower coerces across tags.
func numeric(d Dereferencer, a, b Value) (af, bf float64, isFloat bool, ai, bi int32, err error) {
	ra, err := Deref(d, a)
	if err != nil {
		return
	}
	rb, err := Deref(d, b)
	if err != nil {
		return
	}
	switch {
	case ra.Tag == Int32 && rb.Tag == Int32:
		ai, bi = ra.Int(), rb.Int()
		af, bf = float64(ai), float64(bi)
		return af, bf, false, ai, bi, nil
	case ra.Tag == Float64 && rb.Tag == Float64:
		af, bf = ra.Float(), rb.Float()
		return af, bf, true, 0, 0, nil
	default:
		return 0, 0, false, 0, 0, &OpError{Op: "arith", Tag: ra.Tag}
	}
}

// Add implements +: numeric addition for int32/float64 pairs.
func Add(d Dereferencer, a, b Value) (Value, error) {
	af, bf, isFloat, ai, bi, err := numeric(d, a, b)
	if err != nil {
		return Value{}, err
	}
	if isFloat {
		return Float(af + bf), nil
	}
	return Int(ai + bi), nil
}

// Sub implements binary -.
func Sub(d Dereferencer, a, b Value) (Value, error) {
	af, bf, isFloat, ai, bi, err := numeric(d, a, b)
	if err != nil {
		return Value{}, err
	}
	if isFloat {
		return Float(af - bf), nil
	}
	return Int(ai - bi), nil
}

// Mul implements *.
func Mul(d Dereferencer, a, b Value) (Value, error) {
	af, bf, isFloat, ai, bi, err := numeric(d, a, b)
	if err != nil {
		return Value{}, err
	}
	if isFloat {
		return Float(af * bf), nil
	}
	return Int(ai * bi), nil
}

// Div implements /. Division by zero is a math_error for both int32 and
// float64 operands — the original's operator/ guards both branches with
// the same zero-check, it isn't an integer-only rule.
func Div(d Dereferencer, a, b Value) (Value, error) {
	af, bf, isFloat, ai, bi, err := numeric(d, a, b)
	if err != nil {
		return Value{}, err
	}
	if isFloat {
		if bf == 0 {
			return Value{}, &MathError{Op: "div"}
		}
		return Float(af / bf), nil
	}
	if bi == 0 {
		return Value{}, &MathError{Op: "div"}
	}
	return Int(ai / bi), nil
}

// Mod implements %, defined only over int32 operands.
func Mod(d Dereferencer, a, b Value) (Value, error) {
	ra, err := Deref(d, a)
	if err != nil {
		return Value{}, err
	}
	rb, err := Deref(d, b)
	if err != nil {
		return Value{}, err
	}
	if ra.Tag != Int32 || rb.Tag != Int32 {
		return Value{}, &OpError{Op: "mod", Tag: ra.Tag}
	}
	if rb.Int() == 0 {
		return Value{}, &MathError{Op: "mod"}
	}
	return Int(ra.Int() % rb.Int()), nil
}

// Compare implements the ordering operators over int32/float64 pairs,
// returning -1/0/1 the way sort.Interface comparisons do.
func Compare(d Dereferencer, a, b Value) (int, error) {
	af, bf, _, _, _, err := numeric(d, a, b)
	if err != nil {
		return 0, err
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}
