package vm

import (
	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// opLoad handles MOVE and the LOAD_* family. Grounded on
// original_source/src/meow-vm/op-functions/load_store.cpp.
func (it *Interpreter) opLoad(f *callFrame, op opcode.Code, inst value.Instruction) {
	switch op {
	case opcode.MOVE:
		dst, src := inst.Args[0], inst.Args[1]
		it.setReg(f, dst, it.reg(f, src))
	case opcode.LOAD_CONST:
		dst, cidx := inst.Args[0], inst.Args[1]
		consts := f.proto().Constants
		if int(cidx) < 0 || int(cidx) >= len(consts) {
			it.raise("constant index %d out of range (pool size %d)", cidx, len(consts))
		}
		it.setReg(f, dst, consts[cidx])
	case opcode.LOAD_INT:
		dst, imm := inst.Args[0], inst.Args[1]
		it.setReg(f, dst, value.Int(int64(imm)))
	case opcode.LOAD_NULL:
		it.setReg(f, inst.Args[0], value.Null)
	case opcode.LOAD_TRUE:
		it.setReg(f, inst.Args[0], value.Bool(true))
	case opcode.LOAD_FALSE:
		it.setReg(f, inst.Args[0], value.Bool(false))
	}
}

// opGlobal handles GET_GLOBAL/SET_GLOBAL, addressed against the current
// frame's module rather than the operand stack.
func (it *Interpreter) opGlobal(f *callFrame, op opcode.Code, inst value.Instruction) {
	consts := f.proto().Constants
	switch op {
	case opcode.GET_GLOBAL:
		dst, nameConst := inst.Args[0], inst.Args[1]
		if int(nameConst) < 0 || int(nameConst) >= len(consts) || !consts[nameConst].IsString() {
			it.raise("GET_GLOBAL: bad name constant index %d", nameConst)
		}
		name := consts[nameConst].AsString()
		v, ok := f.Module.Globals[name]
		if !ok {
			v = value.Null
		}
		it.setReg(f, dst, v)
	case opcode.SET_GLOBAL:
		nameConst, src := inst.Args[0], inst.Args[1]
		if int(nameConst) < 0 || int(nameConst) >= len(consts) || !consts[nameConst].IsString() {
			it.raise("SET_GLOBAL: bad name constant index %d", nameConst)
		}
		f.Module.Globals[consts[nameConst].AsString()] = it.reg(f, src)
	}
}
