package vm

import (
	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// opBinary handles the arithmetic and bitwise family, all three-operand
// [dst, lhs, rhs]: consult the dispatch table for the operand-type pair and
// raise if no handler is registered. Grounded on
// original_source/src/runtime/operator_dispatcher.cpp's dispatch call sites.
func (it *Interpreter) opBinary(f *callFrame, op opcode.Code, inst value.Instruction) {
	dst, lhs, rhs := inst.Args[0], inst.Args[1], inst.Args[2]
	l, r := it.reg(f, lhs), it.reg(f, rhs)

	fn, err := it.disp.FindBinary(op, l, r)
	if err != nil {
		it.raise("%s", err.Error())
	}
	it.setReg(f, dst, fn(l, r))
}

// opUnary handles NEG and BIT_NOT, both two-operand [dst, src].
func (it *Interpreter) opUnary(f *callFrame, op opcode.Code, inst value.Instruction) {
	dst, src := inst.Args[0], inst.Args[1]
	v := it.reg(f, src)

	fn, err := it.disp.FindUnary(op, v)
	if err != nil {
		it.raise("%s", err.Error())
	}
	it.setReg(f, dst, fn(v))
}

// opCompare handles EQ/NEQ/GT/GE/LT/LE, all three-operand [dst, lhs, rhs].
// Equality is total over every value pairing; ordering is defined only over
// the numeric lattice and (string, string), so GT/GE/LT/LE raise a dispatch
// error outside that domain rather than consulting internal/dispatch (which
// never registers comparison operators at all). Grounded on
// operator_dispatcher.cpp's separate equality/ordering paths.
func (it *Interpreter) opCompare(f *callFrame, op opcode.Code, inst value.Instruction) {
	dst, lhs, rhs := inst.Args[0], inst.Args[1], inst.Args[2]
	l, r := it.reg(f, lhs), it.reg(f, rhs)

	var result bool
	switch op {
	case opcode.EQ:
		result = value.Equal(l, r)
	case opcode.NEQ:
		result = value.NotEqual(l, r)
	default:
		if !value.Orderable(l, r) {
			it.raise("unsupported operand types for %s: '%s' and '%s'", op, l.TypeName(), r.TypeName())
		}
		switch op {
		case opcode.GT:
			result = value.Greater(l, r)
		case opcode.GE:
			result = value.GreaterEqual(l, r)
		case opcode.LT:
			result = value.Less(l, r)
		case opcode.LE:
			result = value.LessEqual(l, r)
		}
	}
	it.setReg(f, dst, value.Bool(result))
}

// opNot handles NOT: logical negation of a register's truthiness, defined
// for every type.
func (it *Interpreter) opNot(f *callFrame, inst value.Instruction) {
	dst, src := inst.Args[0], inst.Args[1]
	it.setReg(f, dst, value.Bool(!it.reg(f, src).Truthy()))
}
