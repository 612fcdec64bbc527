package vm

import (
	"github.com/MeowNBK/meow-vm-legacy/internal/engine"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// opThrow handles THROW reg: raises a VMError whose message is the
// stringification of the named register. Grounded on exception.cpp's
// opThrow.
func (it *Interpreter) opThrow(f *callFrame, inst value.Instruction) {
	it.raise("%s", it.Stringify(it.reg(f, inst.Args[0])))
}

// opSetupTry handles SETUP_TRY catchTarget [errorReg]. errorReg defaults to
// register 0 when the one-argument form is used (see value.ExceptionHandler's
// doc comment for why this, rather than the two-argument form's own
// register, is also what every unwind targets when omitted). Grounded on
// exception.cpp's opSetupTry.
func (it *Interpreter) opSetupTry(f *callFrame, inst value.Instruction) {
	target := inst.Args[0]
	errorReg := inst.Arg(1, 0)

	it.handlers = append(it.handlers, value.ExceptionHandler{
		CatchIP:    value.Addr(target),
		FrameDepth: len(it.callStack) - 1,
		StackDepth: len(it.stack),
		ErrorReg:   value.Reg(errorReg),
	})
}

// opPopTry handles POP_TRY: discards the innermost handler, if any.
func (it *Interpreter) opPopTry() {
	if len(it.handlers) > 0 {
		it.handlers = it.handlers[:len(it.handlers)-1]
	}
}

// handleRuntimeException is the unwind protocol a recovered *engine.VMError
// drives: with no active handler the fault is fatal; otherwise pop frames
// down to the handler's frame depth (closing upvalues as each goes), trim
// the operand stack to the handler's stack depth, resume at its catch
// address, and write the error message into its error register. Grounded on
// meow_vm.cpp's _handleRuntimeException, generalized to honor the handler's
// own ErrorReg (the raw source always writes to register 0; this resolves
// to the same register 0 default when the handler was set up with the
// one-argument SETUP_TRY form, but honors an explicit second argument).
func (it *Interpreter) handleRuntimeException(f *callFrame, inst value.Instruction, ve *engine.VMError) {
	if len(it.handlers) == 0 {
		it.fatal = it.diagnostic(f, inst, ve.Message)
		it.callStack = nil
		return
	}

	handler := it.handlers[len(it.handlers)-1]
	it.handlers = it.handlers[:len(it.handlers)-1]

	for len(it.callStack)-1 > handler.FrameDepth {
		top := it.callStack[len(it.callStack)-1]
		it.callStack = it.callStack[:len(it.callStack)-1]
		it.closeUpvalues(top.SlotStart)
	}
	if len(it.stack) > handler.StackDepth {
		it.stack = it.stack[:handler.StackDepth]
	}

	top := it.callStack[len(it.callStack)-1]
	top.IP = handler.CatchIP
	if top.proto().NumRegisters > 0 {
		abs := top.SlotStart + int(handler.ErrorReg)
		it.ensureStackLen(abs)
		it.stack[abs] = value.Str(ve.Message)
	}
}
