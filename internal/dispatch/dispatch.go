// Package dispatch implements the operator dispatch table keyed by
// (OpCode, operand type[, operand type]) that the interpreter consults for
// every arithmetic/bitwise opcode. Grounded on
// original_source/src/runtime/operator_dispatcher.cpp.
//
// Equality (EQ/NEQ) and unary NOT are defined over the *entire* type
// lattice and never miss, so the interpreter resolves those directly
// through value.Equal/value.Truthy. Ordering (LT/LE/GT/GE) is not in this
// table either: the interpreter checks value.Orderable itself and raises
// for any pair outside the numeric lattice and (string, string) before
// calling value.Less and friends. Only arithmetic, bitwise, NEG and BIT_NOT
// are looked up here per operand-type pair.
package dispatch

import (
	"fmt"
	"math"

	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

type binaryKey struct {
	op   opcode.Code
	l, r value.Tag
}

type unaryKey struct {
	op opcode.Code
	t  value.Tag
}

// BinaryFn computes a binary op's result once the table has confirmed the
// operand-type pair is supported.
type BinaryFn func(l, r value.Value) value.Value

// UnaryFn computes a unary op's result.
type UnaryFn func(v value.Value) value.Value

// Table is the dispatcher: immutable once built, safe for concurrent reads.
type Table struct {
	binary map[binaryKey]BinaryFn
	unary  map[unaryKey]UnaryFn
}

// DispatchError reports a dispatch miss: an operator with no registered
// handler for the given operand type(s). Mirrors the original's runtime
// error naming the op and both operand type names.
type DispatchError struct {
	Op    opcode.Code
	Left  string
	Right string // empty for unary ops
}

func (e *DispatchError) Error() string {
	if e.Right == "" {
		return fmt.Sprintf("unsupported operand type for %s: '%s'", e.Op, e.Left)
	}
	return fmt.Sprintf("unsupported operand types for %s: '%s' and '%s'", e.Op, e.Left, e.Right)
}

// TypeName renders a value.Tag the way the original's valueTypeName does,
// for use in DispatchError messages (distinct from value.TypeName, which
// produces the lowercase names the `typeof` builtin returns).
func TypeName(t value.Tag) string {
	switch t {
	case value.TagNull:
		return "Null"
	case value.TagInt:
		return "Int"
	case value.TagReal:
		return "Real"
	case value.TagBool:
		return "Bool"
	case value.TagString:
		return "String"
	case value.TagArray:
		return "Array"
	case value.TagObject:
		return "Object"
	case value.TagClass:
		return "Class"
	case value.TagInstance:
		return "Instance"
	case value.TagClosure:
		return "Function"
	case value.TagBoundMethod:
		return "BoundMethod"
	case value.TagProto:
		return "Proto"
	case value.TagUpvalue:
		return "Upvalue"
	case value.TagModule:
		return "Module"
	case value.TagNative:
		return "NativeFn"
	default:
		return "Unknown"
	}
}

func (t *Table) registerBinary(op opcode.Code, l, r value.Tag, fn BinaryFn) {
	t.binary[binaryKey{op, l, r}] = fn
}

func (t *Table) registerUnary(op opcode.Code, v value.Tag, fn UnaryFn) {
	t.unary[unaryKey{op, v}] = fn
}

// FindBinary looks up the handler for (op, left.Tag(), right.Tag()).
func (t *Table) FindBinary(op opcode.Code, left, right value.Value) (BinaryFn, error) {
	fn, ok := t.binary[binaryKey{op, left.Tag(), right.Tag()}]
	if !ok {
		return nil, &DispatchError{Op: op, Left: TypeName(left.Tag()), Right: TypeName(right.Tag())}
	}
	return fn, nil
}

// FindUnary looks up the handler for (op, operand.Tag()).
func (t *Table) FindUnary(op opcode.Code, operand value.Value) (UnaryFn, error) {
	fn, ok := t.unary[unaryKey{op, operand.Tag()}]
	if !ok {
		return nil, &DispatchError{Op: op, Left: TypeName(operand.Tag())}
	}
	return fn, nil
}

// New builds the fully populated dispatch table.
func New() *Table {
	t := &Table{
		binary: make(map[binaryKey]BinaryFn),
		unary:  make(map[unaryKey]UnaryFn),
	}
	t.buildArithmetic()
	t.buildBitwise()
	t.buildUnary()
	return t
}

func inf(positive bool) float64 {
	if positive {
		return math.Inf(1)
	}
	return math.Inf(-1)
}

// divByZero returns the zero-divisor result by the dividend's sign:
// +Infinity for positive, -Infinity for negative, NaN for exactly zero.
func divByZero(dividend float64) value.Value {
	switch {
	case dividend > 0:
		return value.Real(inf(true))
	case dividend < 0:
		return value.Real(inf(false))
	default:
		return value.Real(math.NaN())
	}
}

// repeatString implements the MUL (string, count) semantics shared by the
// (string,int)/(string,bool)/(string,real) pairs.
func repeatString(s string, times int64) string {
	if times <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*int(times))
	for i := int64(0); i < times; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func (t *Table) buildArithmetic() {
	I, R, B, S := value.TagInt, value.TagReal, value.TagBool, value.TagString

	// ADD: numeric cross-promotion over {Int,Real,Bool} (NOT including
	// Bool,Bool — the original never registers that pair) plus string
	// concatenation with int/real/bool stringified onto the string side.
	t.registerBinary(opcode.ADD, I, I, func(l, r value.Value) value.Value { return value.Int(l.AsInt() + r.AsInt()) })
	t.registerBinary(opcode.ADD, R, R, func(l, r value.Value) value.Value { return value.Real(l.AsReal() + r.AsReal()) })
	t.registerBinary(opcode.ADD, I, R, func(l, r value.Value) value.Value { return value.Real(float64(l.AsInt()) + r.AsReal()) })
	t.registerBinary(opcode.ADD, R, I, func(l, r value.Value) value.Value { return value.Real(l.AsReal() + float64(r.AsInt())) })
	t.registerBinary(opcode.ADD, I, B, func(l, r value.Value) value.Value { return value.Int(l.AsInt() + r.ToInt()) })
	t.registerBinary(opcode.ADD, B, I, func(l, r value.Value) value.Value { return value.Int(l.ToInt() + r.AsInt()) })
	t.registerBinary(opcode.ADD, R, B, func(l, r value.Value) value.Value { return value.Real(l.AsReal() + r.ToFloat()) })
	t.registerBinary(opcode.ADD, B, R, func(l, r value.Value) value.Value { return value.Real(l.ToFloat() + r.AsReal()) })
	t.registerBinary(opcode.ADD, S, S, func(l, r value.Value) value.Value { return value.Str(l.AsString() + r.AsString()) })
	t.registerBinary(opcode.ADD, S, I, func(l, r value.Value) value.Value { return value.Str(l.AsString() + r.ToString()) })
	t.registerBinary(opcode.ADD, I, S, func(l, r value.Value) value.Value { return value.Str(l.ToString() + r.AsString()) })
	t.registerBinary(opcode.ADD, S, R, func(l, r value.Value) value.Value { return value.Str(l.AsString() + r.ToString()) })
	t.registerBinary(opcode.ADD, R, S, func(l, r value.Value) value.Value { return value.Str(l.ToString() + r.AsString()) })
	t.registerBinary(opcode.ADD, S, B, func(l, r value.Value) value.Value { return value.Str(l.AsString() + r.ToString()) })
	t.registerBinary(opcode.ADD, B, S, func(l, r value.Value) value.Value { return value.Str(l.ToString() + r.AsString()) })

	// SUB: same numeric pairs as ADD, no string form.
	t.registerBinary(opcode.SUB, I, I, func(l, r value.Value) value.Value { return value.Int(l.AsInt() - r.AsInt()) })
	t.registerBinary(opcode.SUB, R, R, func(l, r value.Value) value.Value { return value.Real(l.AsReal() - r.AsReal()) })
	t.registerBinary(opcode.SUB, I, R, func(l, r value.Value) value.Value { return value.Real(float64(l.AsInt()) - r.AsReal()) })
	t.registerBinary(opcode.SUB, R, I, func(l, r value.Value) value.Value { return value.Real(l.AsReal() - float64(r.AsInt())) })
	t.registerBinary(opcode.SUB, I, B, func(l, r value.Value) value.Value { return value.Int(l.AsInt() - r.ToInt()) })
	t.registerBinary(opcode.SUB, B, I, func(l, r value.Value) value.Value { return value.Int(l.ToInt() - r.AsInt()) })
	t.registerBinary(opcode.SUB, R, B, func(l, r value.Value) value.Value { return value.Real(l.AsReal() - r.ToFloat()) })
	t.registerBinary(opcode.SUB, B, R, func(l, r value.Value) value.Value { return value.Real(l.ToFloat() - r.AsReal()) })

	// MUL: same numeric pairs as ADD, plus string-repeat forms.
	t.registerBinary(opcode.MUL, I, I, func(l, r value.Value) value.Value { return value.Int(l.AsInt() * r.AsInt()) })
	t.registerBinary(opcode.MUL, R, R, func(l, r value.Value) value.Value { return value.Real(l.AsReal() * r.AsReal()) })
	t.registerBinary(opcode.MUL, I, R, func(l, r value.Value) value.Value { return value.Real(float64(l.AsInt()) * r.AsReal()) })
	t.registerBinary(opcode.MUL, R, I, func(l, r value.Value) value.Value { return value.Real(l.AsReal() * float64(r.AsInt())) })
	t.registerBinary(opcode.MUL, I, B, func(l, r value.Value) value.Value { return value.Int(l.AsInt() * r.ToInt()) })
	t.registerBinary(opcode.MUL, B, I, func(l, r value.Value) value.Value { return value.Int(l.ToInt() * r.AsInt()) })
	t.registerBinary(opcode.MUL, R, B, func(l, r value.Value) value.Value { return value.Real(l.AsReal() * r.ToFloat()) })
	t.registerBinary(opcode.MUL, B, R, func(l, r value.Value) value.Value { return value.Real(l.ToFloat() * r.AsReal()) })
	t.registerBinary(opcode.MUL, S, I, func(l, r value.Value) value.Value { return value.Str(repeatString(l.AsString(), r.AsInt())) })
	t.registerBinary(opcode.MUL, S, B, func(l, r value.Value) value.Value { return value.Str(repeatString(l.AsString(), r.ToInt())) })
	t.registerBinary(opcode.MUL, S, R, func(l, r value.Value) value.Value {
		rv := r.AsReal()
		whole, frac := math.Modf(rv)
		if frac == 0 && whole >= 0 && whole <= float64(math.MaxInt64) {
			return value.Str(repeatString(l.AsString(), int64(whole)))
		}
		return value.Real(math.NaN())
	})

	// DIV: zero-divisor yields +-Inf/NaN by dividend sign; non-zero is
	// always real-valued division (including Int/Int).
	t.registerBinary(opcode.DIV, I, I, func(l, r value.Value) value.Value {
		rv := r.AsInt()
		if rv == 0 {
			return divByZero(float64(l.AsInt()))
		}
		return value.Real(float64(l.AsInt()) / float64(rv))
	})
	t.registerBinary(opcode.DIV, R, R, func(l, r value.Value) value.Value {
		rv := r.AsReal()
		if rv == 0 {
			return divByZero(l.AsReal())
		}
		return value.Real(l.AsReal() / rv)
	})
	t.registerBinary(opcode.DIV, I, R, func(l, r value.Value) value.Value {
		rv := r.AsReal()
		if rv == 0 {
			return divByZero(float64(l.AsInt()))
		}
		return value.Real(float64(l.AsInt()) / rv)
	})
	t.registerBinary(opcode.DIV, R, I, func(l, r value.Value) value.Value {
		rv := r.AsInt()
		if rv == 0 {
			return divByZero(l.AsReal())
		}
		return value.Real(l.AsReal() / float64(rv))
	})
	t.registerBinary(opcode.DIV, I, B, func(l, r value.Value) value.Value {
		d := r.ToInt()
		if d == 0 {
			return divByZero(float64(l.AsInt()))
		}
		return value.Real(float64(l.AsInt()) / float64(d))
	})
	t.registerBinary(opcode.DIV, R, B, func(l, r value.Value) value.Value {
		d := r.ToInt()
		if d == 0 {
			return divByZero(l.AsReal())
		}
		return value.Real(l.AsReal() / float64(d))
	})
	t.registerBinary(opcode.DIV, B, I, func(l, r value.Value) value.Value {
		num := l.ToInt()
		d := r.AsInt()
		if d == 0 {
			return divByZero(float64(num))
		}
		return value.Real(float64(num) / float64(d))
	})
	t.registerBinary(opcode.DIV, B, R, func(l, r value.Value) value.Value {
		num := l.ToInt()
		d := r.AsReal()
		if d == 0 {
			return divByZero(float64(num))
		}
		return value.Real(float64(num) / d)
	})

	// MOD: zero divisor yields NaN; otherwise integer remainder. Unlike
	// the other arithmetic ops, Bool,Bool IS registered (the original
	// does so explicitly).
	t.registerBinary(opcode.MOD, I, I, func(l, r value.Value) value.Value {
		rv := r.AsInt()
		if rv == 0 {
			return value.Real(math.NaN())
		}
		return value.Int(l.AsInt() % rv)
	})
	t.registerBinary(opcode.MOD, I, B, func(l, r value.Value) value.Value {
		d := r.ToInt()
		if d == 0 {
			return value.Real(math.NaN())
		}
		return value.Int(l.AsInt() % d)
	})
	t.registerBinary(opcode.MOD, B, I, func(l, r value.Value) value.Value {
		d := r.AsInt()
		if d == 0 {
			return value.Real(math.NaN())
		}
		return value.Int(l.ToInt() % d)
	})
	t.registerBinary(opcode.MOD, B, B, func(l, r value.Value) value.Value {
		d := r.ToInt()
		if d == 0 {
			return value.Real(math.NaN())
		}
		return value.Int(l.ToInt() % d)
	})

	// POW: always real-valued exponentiation, over the same numeric pairs
	// as ADD/SUB (minus Bool,Bool, which the original never registers).
	t.registerBinary(opcode.POW, I, I, func(l, r value.Value) value.Value { return value.Real(math.Pow(float64(l.AsInt()), float64(r.AsInt()))) })
	t.registerBinary(opcode.POW, R, R, func(l, r value.Value) value.Value { return value.Real(math.Pow(l.AsReal(), r.AsReal())) })
	t.registerBinary(opcode.POW, I, R, func(l, r value.Value) value.Value { return value.Real(math.Pow(float64(l.AsInt()), r.AsReal())) })
	t.registerBinary(opcode.POW, R, I, func(l, r value.Value) value.Value { return value.Real(math.Pow(l.AsReal(), float64(r.AsInt()))) })
	t.registerBinary(opcode.POW, B, I, func(l, r value.Value) value.Value { return value.Real(math.Pow(float64(l.ToInt()), float64(r.AsInt()))) })
	t.registerBinary(opcode.POW, B, R, func(l, r value.Value) value.Value { return value.Real(math.Pow(float64(l.ToInt()), r.AsReal())) })
	t.registerBinary(opcode.POW, I, B, func(l, r value.Value) value.Value { return value.Real(math.Pow(float64(l.AsInt()), float64(r.ToInt()))) })
	t.registerBinary(opcode.POW, R, B, func(l, r value.Value) value.Value { return value.Real(math.Pow(l.AsReal(), float64(r.ToInt()))) })
}

func (t *Table) buildBitwise() {
	I, B := value.TagInt, value.TagBool

	t.registerBinary(opcode.BIT_AND, I, I, func(l, r value.Value) value.Value { return value.Int(l.AsInt() & r.AsInt()) })
	t.registerBinary(opcode.BIT_OR, I, I, func(l, r value.Value) value.Value { return value.Int(l.AsInt() | r.AsInt()) })
	t.registerBinary(opcode.BIT_XOR, I, I, func(l, r value.Value) value.Value { return value.Int(l.AsInt() ^ r.AsInt()) })
	t.registerBinary(opcode.LSHIFT, I, I, func(l, r value.Value) value.Value { return value.Int(l.AsInt() << uint64(r.AsInt())) })
	t.registerBinary(opcode.RSHIFT, I, I, func(l, r value.Value) value.Value { return value.Int(l.AsInt() >> uint64(r.AsInt())) })

	t.registerBinary(opcode.BIT_AND, B, B, func(l, r value.Value) value.Value { return value.Int(l.ToInt() & r.ToInt()) })
	t.registerBinary(opcode.BIT_OR, B, B, func(l, r value.Value) value.Value { return value.Int(l.ToInt() | r.ToInt()) })

	t.registerBinary(opcode.BIT_AND, I, B, func(l, r value.Value) value.Value { return value.Int(l.AsInt() & r.ToInt()) })
	t.registerBinary(opcode.BIT_AND, B, I, func(l, r value.Value) value.Value { return value.Int(l.ToInt() & r.AsInt()) })
	t.registerBinary(opcode.BIT_OR, I, B, func(l, r value.Value) value.Value { return value.Int(l.AsInt() | r.ToInt()) })
	t.registerBinary(opcode.BIT_OR, B, I, func(l, r value.Value) value.Value { return value.Int(l.ToInt() | r.AsInt()) })
	t.registerBinary(opcode.BIT_XOR, I, B, func(l, r value.Value) value.Value { return value.Int(l.AsInt() ^ r.ToInt()) })
	t.registerBinary(opcode.BIT_XOR, B, I, func(l, r value.Value) value.Value { return value.Int(l.ToInt() ^ r.AsInt()) })

	t.registerBinary(opcode.LSHIFT, I, B, func(l, r value.Value) value.Value { return value.Int(l.AsInt() << uint64(r.ToInt())) })
	t.registerBinary(opcode.RSHIFT, I, B, func(l, r value.Value) value.Value { return value.Int(l.AsInt() >> uint64(r.ToInt())) })
}

func (t *Table) buildUnary() {
	t.registerUnary(opcode.NEG, value.TagInt, func(v value.Value) value.Value { return value.Int(-v.AsInt()) })
	t.registerUnary(opcode.NEG, value.TagReal, func(v value.Value) value.Value { return value.Real(-v.AsReal()) })
	t.registerUnary(opcode.BIT_NOT, value.TagInt, func(v value.Value) value.Value { return value.Int(^v.AsInt()) })
}
