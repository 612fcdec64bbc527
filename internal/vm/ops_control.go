package vm

import (
	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// opJump handles JUMP, JUMP_IF_FALSE and JUMP_IF_TRUE. Targets are absolute
// instruction indices already resolved by the loader (from labels, in the
// textual form). Grounded on control_flow.cpp's opJump/opJumpIfFalse/
// opJumpIfTrue.
func (it *Interpreter) opJump(f *callFrame, op opcode.Code, inst value.Instruction) {
	var target int32
	switch op {
	case opcode.JUMP:
		target = inst.Args[0]
	case opcode.JUMP_IF_FALSE:
		if it.reg(f, inst.Args[0]).Truthy() {
			return
		}
		target = inst.Args[1]
	case opcode.JUMP_IF_TRUE:
		if !it.reg(f, inst.Args[0]).Truthy() {
			return
		}
		target = inst.Args[1]
	}

	code := f.proto().Code
	if target < 0 || int(target) > len(code) {
		it.raise("jump target %d out of range (code length %d)", target, len(code))
	}
	f.IP = value.Addr(target)
}

// opCall handles CALL: [dst, fnReg, argStart, argc], all relative to the
// current frame's register window except dst which may be -1 (noDest) to
// discard the result. Grounded on control_flow.cpp's opCall.
func (it *Interpreter) opCall(f *callFrame, inst value.Instruction) {
	dst, fnReg, argStart, argc := inst.Args[0], inst.Args[1], inst.Args[2], inst.Args[3]

	callee := it.reg(f, fnReg)
	absDst := noDest
	if dst >= 0 {
		absDst = f.SlotStart + int(dst)
	}
	absArgStart := f.SlotStart + int(argStart)
	it.executeCall(absDst, callee, absArgStart, int(argc))
}

// opReturn handles RETURN: an optional source register, absent (or negative)
// meaning "return null". Closes any upvalues still open over this frame's
// window, pops the frame, trims the window off the shared stack, and writes
// the result into the caller's destination slot unless that call discarded
// it. Grounded on control_flow.cpp's opReturn.
func (it *Interpreter) opReturn(f *callFrame, inst value.Instruction) {
	srcReg := inst.Arg(0, -1)
	result := value.Null
	if srcReg >= 0 {
		result = it.reg(f, srcReg)
	}

	it.closeUpvalues(f.SlotStart)
	it.callStack = it.callStack[:len(it.callStack)-1]
	it.stack = it.stack[:f.SlotStart]
	it.finishModuleFrame(f)

	if f.RetSlot != noDest {
		it.ensureStackLen(f.RetSlot)
		it.stack[f.RetSlot] = result
	}
}

// opUpvalue handles GET_UPVALUE, SET_UPVALUE, CLOSURE and CLOSE_UPVALUES.
// Grounded on control_flow.cpp's opClosure/opCloseUpvalues and
// handle_call.cpp's captureUpvalue.
func (it *Interpreter) opUpvalue(f *callFrame, op opcode.Code, inst value.Instruction) {
	switch op {
	case opcode.GET_UPVALUE:
		dst, idx := inst.Args[0], inst.Args[1]
		uv := it.frameUpvalue(f, idx)
		it.setReg(f, dst, it.readUpvalue(uv))
	case opcode.SET_UPVALUE:
		idx, src := inst.Args[0], inst.Args[1]
		uv := it.frameUpvalue(f, idx)
		it.writeUpvalue(uv, it.reg(f, src))
	case opcode.CLOSURE:
		dst, protoIdx := inst.Args[0], inst.Args[1]
		consts := f.proto().Constants
		if int(protoIdx) < 0 || int(protoIdx) >= len(consts) || !consts[protoIdx].IsProto() {
			it.raise("CLOSURE: bad prototype constant index %d", protoIdx)
		}
		proto := consts[protoIdx].AsProto()

		upvals := make([]*value.Upvalue, len(proto.UpvalueDescs))
		for i, desc := range proto.UpvalueDescs {
			if desc.IsLocal {
				upvals[i] = it.captureUpvalue(f.SlotStart + int(desc.Index))
			} else {
				upvals[i] = it.frameUpvalue(f, desc.Index)
			}
		}
		closure := heap.NewObject(it.h, &value.Closure{Proto: proto, Upvalues: upvals})
		it.setReg(f, dst, value.Obj(closure))
	case opcode.CLOSE_UPVALUES:
		it.closeUpvalues(f.SlotStart + int(inst.Args[0]))
	}
}

func (it *Interpreter) frameUpvalue(f *callFrame, idx int32) *value.Upvalue {
	if int(idx) < 0 || int(idx) >= len(f.Closure.Upvalues) {
		it.raise("upvalue index %d out of range (closure has %d)", idx, len(f.Closure.Upvalues))
	}
	return f.Closure.Upvalues[idx]
}

func (it *Interpreter) readUpvalue(uv *value.Upvalue) value.Value {
	if uv.Closed {
		return uv.Value
	}
	return it.stack[uv.SlotIndex]
}

func (it *Interpreter) writeUpvalue(uv *value.Upvalue, v value.Value) {
	if uv.Closed {
		uv.Value = v
	} else {
		it.stack[uv.SlotIndex] = v
	}
}
