package vm

import "github.com/MeowNBK/meow-vm-legacy/internal/value"

// noDest is the sentinel retReg value meaning "this call's result is
// discarded", matching the original's convention of -1 for a statement
// call or the implicit outer call.
const noDest = -1

// callFrame is one activation record: a closure, the absolute stack offset
// where its register window begins, the module it runs under (for
// globals/exports), the instruction pointer, and the destination slot for
// its return value. Mirrors meow_vm.h's CallFrame, except RetSlot is stored
// as an already-resolved absolute stack index rather than a register
// relative to the caller's own window — the caller's slotStart is known
// once at call time, so there is no need to re-derive it on every RETURN.
//
// Deliberately not a value.HeapObject: it is interpreter-internal
// bookkeeping, not something a script can hold a reference to or that the
// GC traces directly (the root walk visits frames' Closure/Module fields
// explicitly instead).
type callFrame struct {
	Closure   *value.Closure
	SlotStart int
	Module    *value.Module
	IP        value.Addr
	RetSlot   int

	// IsModuleMain marks a frame as running Module's own @main prototype,
	// as opposed to some other closure that merely happens to belong to
	// that module. Consulted on RETURN/implicit-return to flip
	// Module.IsExecuting/IsExecuted only once this specific frame finishes,
	// rather than eagerly when the frame is first pushed.
	IsModuleMain bool
}

func (f *callFrame) proto() *value.FunctionProto {
	return f.Closure.Proto
}
