// Package engine defines the surface a native module or native function
// body uses to call back into the running interpreter: re-entrant calls,
// memory-manager access, and registration of built-in methods/getters on a
// type. Grounded on original_source/include/vm/meow_engine.h — the Go
// analogue of the abstract MeowEngine base that MeowVM implements and that
// CreateMeowModule(engine) receives.
package engine

import (
	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// Engine is implemented by the interpreter (internal/vm.Interpreter) and
// consumed by internal/natives and any shared-library module loaded through
// internal/importer.
type Engine interface {
	// Call re-enters the interpreter to invoke callee with args, returning
	// its result. Mirrors MeowEngine::call.
	Call(callee value.Value, args []value.Value) value.Value

	// Heap exposes the memory manager so a native module can allocate
	// heap objects of its own (arrays, objects, instances) through the
	// same collector the interpreter uses. Mirrors
	// MeowEngine::getMemoryManager.
	Heap() *heap.Heap

	// RegisterMethod installs a method value.NativeFn under typeName
	// (e.g. "Array", "String") so GET_PROP/GET_INDEX resolution can find
	// it. Mirrors MeowEngine::registerMethod.
	RegisterMethod(typeName, methodName string, method value.Value)

	// RegisterGetter installs a getter, called immediately with the
	// receiver rather than returning a bound callable. Mirrors
	// MeowEngine::registerGetter.
	RegisterGetter(typeName, propName string, getter value.Value)

	// Arguments returns the extra command-line arguments passed through
	// to the running script beyond the entry file itself. Mirrors
	// MeowEngine::getArguments.
	Arguments() []string
}

// VMError is a runtime fault recoverable by SETUP_TRY — the Go analogue of
// the original's `class VMError : public std::runtime_error`. Only a
// VMError is catchable by a script-level try handler: errors the opcode
// handlers get back (dispatch misses, failed imports) are raised as one,
// while any other panic out of the interpreter's instruction dispatch ends
// the run with a diagnostic without unwinding to a handler.
type VMError struct {
	Message string
}

func (e *VMError) Error() string { return e.Message }

func NewVMError(msg string) *VMError {
	return &VMError{Message: msg}
}
