// Package vm implements the interpreter core: call frames, the main
// decode/dispatch loop over a flat instruction stream with register-relative
// addressing, closure/upvalue capture and closing, exception unwinding,
// property/magic-method resolution, and the GC root walk. Grounded on
// original_source/src/meow-vm/meow_vm.cpp and the op-functions/*.cpp family,
// continuing backend/interpreter.go's main-loop shape generalized from a
// single switch over a byte opcode to a handler-per-opcode-family layout
// since this instruction set is considerably larger.
package vm

import (
	"fmt"

	"github.com/MeowNBK/meow-vm-legacy/internal/dispatch"
	"github.com/MeowNBK/meow-vm-legacy/internal/engine"
	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/importer"
	"github.com/MeowNBK/meow-vm-legacy/internal/natives"
	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// Interpreter is the running VM: one per program execution. It satisfies
// engine.Engine (so native modules and builtins can re-enter it) and
// heap.RootWalker (so the heap can ask it for the live root set).
type Interpreter struct {
	h    *heap.Heap
	disp *dispatch.Table
	imp  *importer.Importer
	args []string

	nativeGlobals  map[string]value.Value
	builtinMethods map[string]map[string]value.Value
	builtinGetters map[string]map[string]value.Value

	callStack []*callFrame
	stack     []value.Value
	upvalues  []*value.Upvalue
	handlers  []value.ExceptionHandler

	// fatal is set once a runtime fault propagates past every active
	// handler, or some other internal fault is not recoverable at all;
	// it carries the fully rendered structured diagnostic. The main loop
	// and any nested re-entrant call both exit promptly once set.
	fatal error
}

// New constructs an Interpreter rooted at entryDir (the directory imports
// performed by the entry module itself resolve against) with args available
// to scripts through Engine.Arguments. The "array"/"object"/"string"
// standard-library shared libraries are preloaded best-effort, matching
// define_natives.cpp's silent-failure preload.
func New(entryDir string, args []string) *Interpreter {
	it := &Interpreter{
		disp:           dispatch.New(),
		args:           args,
		builtinMethods: make(map[string]map[string]value.Value),
		builtinGetters: make(map[string]map[string]value.Value),
	}
	it.h = heap.New()
	it.h.SetRootWalker(it)
	it.nativeGlobals = natives.Builtins(it)
	it.imp = importer.New(it.h, entryDir, it.nativeGlobals)
	it.imp.PreloadStdlib([]string{"array", "object", "string"}, it)
	return it
}

// Run loads path as the entry module and, if it has not already run,
// executes its @main to completion. Mirrors MeowVM::interpret: resets
// nothing (a freshly constructed Interpreter is already empty) and reports
// an unhandled runtime fault as an error carrying the structured diagnostic
// rather than a bare message.
func (it *Interpreter) Run(path string) error {
	mod, err := it.imp.Resolve(path, "", it)
	if err != nil {
		return err
	}
	if !mod.HasMain {
		return fmt.Errorf("entry module %q has no @main prototype", path)
	}
	if mod.IsExecuted || mod.IsExecuting {
		return nil
	}

	it.runModuleMain(mod)
	return it.fatal
}

// runModuleMain pushes mod's @main as the sole frame at depth 0 (a
// statement call: its result, if any, is discarded) and drives the main
// loop until completion. The pushed frame is marked IsModuleMain so that
// opReturn/implicitReturn flip mod.IsExecuted only once it actually
// finishes — the correction over the original's IMPORT_MODULE path, which
// sets it eagerly right after pushing the frame; the same frame-completion
// hook handles both the entry module here and every nested import
// (opImportModule).
func (it *Interpreter) runModuleMain(mod *value.Module) {
	mod.IsExecuting = true
	closure := &value.Closure{Proto: mod.MainProto}
	f := it.pushFrame(closure, mod, len(it.stack), 0, noDest)
	f.IsModuleMain = true
	it.loop(0)
}

// loop drives frame dispatch until the call stack depth returns to
// targetDepth (0 for the outermost Run, the snapshotted depth-at-entry for
// a re-entrant Call) or a fatal fault ends the program outright.
func (it *Interpreter) loop(targetDepth int) {
	for len(it.callStack) > targetDepth && it.fatal == nil {
		it.step()
	}
}

// step executes exactly one instruction of the top frame, or performs an
// implicit null return if the frame has run off the end of its code.
func (it *Interpreter) step() {
	f := it.callStack[len(it.callStack)-1]
	proto := f.proto()
	if int(f.IP) >= len(proto.Code) {
		it.implicitReturn(f)
		return
	}

	inst := proto.Code[f.IP]
	f.IP++

	release := it.h.SuppressGC()
	defer release()
	defer it.recoverInstruction(f, inst)
	it.dispatch(f, inst)
}

// recoverInstruction is the single point runtime faults are caught at,
// mirroring MeowVM::run's catch(VMError)/catch(exception) split: a VMError
// is routed through the ordinary unwind protocol (recoverable by
// SETUP_TRY); anything else is treated as an unrecoverable fault, exactly
// like the original's "log and clear the call stack" branch.
func (it *Interpreter) recoverInstruction(f *callFrame, inst value.Instruction) {
	r := recover()
	if r == nil {
		return
	}
	if ve, ok := r.(*engine.VMError); ok {
		it.handleRuntimeException(f, inst, ve)
		return
	}
	it.fatal = it.diagnostic(f, inst, fmt.Sprintf("%v", r))
	it.callStack = nil
}

// dispatch routes a decoded instruction to its opcode family's handler.
func (it *Interpreter) dispatch(f *callFrame, inst value.Instruction) {
	op := opcode.Code(inst.Op)
	switch {
	case op == opcode.LOAD_CONST || op == opcode.LOAD_NULL || op == opcode.LOAD_TRUE ||
		op == opcode.LOAD_FALSE || op == opcode.LOAD_INT || op == opcode.MOVE:
		it.opLoad(f, op, inst)
	case op == opcode.GET_GLOBAL || op == opcode.SET_GLOBAL:
		it.opGlobal(f, op, inst)
	case op == opcode.GET_UPVALUE || op == opcode.SET_UPVALUE || op == opcode.CLOSURE || op == opcode.CLOSE_UPVALUES:
		it.opUpvalue(f, op, inst)
	case op == opcode.JUMP || op == opcode.JUMP_IF_FALSE || op == opcode.JUMP_IF_TRUE:
		it.opJump(f, op, inst)
	case op == opcode.CALL:
		it.opCall(f, inst)
	case op == opcode.RETURN:
		it.opReturn(f, inst)
	case op == opcode.HALT:
		it.callStack = nil
	case isArithmeticOrBitwise(op):
		it.opBinary(f, op, inst)
	case op == opcode.NEG || op == opcode.BIT_NOT:
		it.opUnary(f, op, inst)
	case op == opcode.EQ || op == opcode.NEQ || op == opcode.GT || op == opcode.GE || op == opcode.LT || op == opcode.LE:
		it.opCompare(f, op, inst)
	case op == opcode.NOT:
		it.opNot(f, inst)
	case op == opcode.NEW_ARRAY || op == opcode.NEW_HASH:
		it.opNewAggregate(f, op, inst)
	case op == opcode.GET_INDEX:
		it.opGetIndex(f, inst)
	case op == opcode.SET_INDEX:
		it.opSetIndex(f, inst)
	case op == opcode.GET_KEYS || op == opcode.GET_VALUES:
		it.opKeysValues(f, op, inst)
	case op == opcode.NEW_CLASS:
		it.opNewClass(f, inst)
	case op == opcode.NEW_INSTANCE:
		it.opNewInstance(f, inst)
	case op == opcode.GET_PROP:
		it.opGetProp(f, inst)
	case op == opcode.SET_PROP:
		it.opSetProp(f, inst)
	case op == opcode.SET_METHOD:
		it.opSetMethod(f, inst)
	case op == opcode.INHERIT:
		it.opInherit(f, inst)
	case op == opcode.GET_SUPER:
		it.opGetSuper(f, inst)
	case op == opcode.THROW:
		it.opThrow(f, inst)
	case op == opcode.SETUP_TRY:
		it.opSetupTry(f, inst)
	case op == opcode.POP_TRY:
		it.opPopTry()
	case op == opcode.IMPORT_MODULE:
		it.opImportModule(f, inst)
	case op == opcode.EXPORT:
		it.opExport(f, inst)
	case op == opcode.GET_EXPORT:
		it.opGetExport(f, inst)
	case op == opcode.GET_MODULE_EXPORT:
		it.opGetModuleExport(f, inst)
	case op == opcode.IMPORT_ALL:
		it.opImportAll(f, inst)
	default:
		it.raise("invalid opcode %d at instruction %d of %q", inst.Op, f.IP-1, f.proto().SourceName)
	}
}

func isArithmeticOrBitwise(op opcode.Code) bool {
	switch op {
	case opcode.ADD, opcode.SUB, opcode.MUL, opcode.DIV, opcode.MOD, opcode.POW,
		opcode.BIT_AND, opcode.BIT_OR, opcode.BIT_XOR, opcode.LSHIFT, opcode.RSHIFT:
		return true
	default:
		return false
	}
}

// raise panics with a *engine.VMError, the one kind of fault recoverable by
// SETUP_TRY. Every op handler that detects a runtime fault calls this
// instead of returning an error, matching the original's throwVMError call
// sites and natives.Builtins' own panic(engine.NewVMError(...)) texture.
func (it *Interpreter) raise(format string, args ...any) {
	panic(engine.NewVMError(fmt.Sprintf(format, args...)))
}

// --- register/stack plumbing ---

// ensureStackLen grows the stack with Null padding so index n is valid.
func (it *Interpreter) ensureStackLen(n int) {
	for len(it.stack) <= n {
		it.stack = append(it.stack, value.Null)
	}
}

func (it *Interpreter) reg(f *callFrame, r int32) value.Value {
	idx := f.SlotStart + int(r)
	if idx < 0 || idx >= len(it.stack) {
		return value.Null
	}
	return it.stack[idx]
}

func (it *Interpreter) setReg(f *callFrame, r int32, v value.Value) {
	idx := f.SlotStart + int(r)
	it.ensureStackLen(idx)
	it.stack[idx] = v
}

// pushFrame opens a new frame for closure cl, copying min(argc,
// proto.NumRegisters) values starting at the absolute stack index argStart
// into the new register window. retSlot is the absolute destination index
// for the call's result, or noDest for a statement call.
func (it *Interpreter) pushFrame(cl *value.Closure, mod *value.Module, argStart, argc int, retSlot int) *callFrame {
	slotStart := len(it.stack)
	n := cl.Proto.NumRegisters
	window := make([]value.Value, n)
	copyCount := argc
	if copyCount > n {
		copyCount = n
	}
	for i := 0; i < copyCount; i++ {
		window[i] = it.stack[argStart+i]
	}
	it.stack = append(it.stack, window...)

	f := &callFrame{Closure: cl, SlotStart: slotStart, Module: mod, RetSlot: retSlot}
	it.callStack = append(it.callStack, f)
	return f
}

// implicitReturn handles a frame running off the end of its code without an
// explicit RETURN: writes null into the caller's destination slot (if any)
// and pops. Deliberately does not trim the stack back to the caller's
// window the way opReturn does — the original's own implicit-return path
// (run()'s `ip >= code.size()` branch) never trims either, and this path is
// reached only by malformed or defensively-terminated bytecode, not by
// ordinary RETURN-less functions (every compiled prototype ends in RETURN
// or HALT).
func (it *Interpreter) implicitReturn(f *callFrame) {
	it.callStack = it.callStack[:len(it.callStack)-1]
	it.finishModuleFrame(f)
	if len(it.callStack) == 0 {
		return
	}
	if f.RetSlot != noDest {
		it.ensureStackLen(f.RetSlot)
		it.stack[f.RetSlot] = value.Null
	}
}

// finishModuleFrame flips Module.IsExecuting/IsExecuted once a frame marked
// IsModuleMain actually finishes, whether by RETURN, implicit return, or an
// unhandled fault (in which case IsExecuted is deliberately left false: the
// module never completed).
func (it *Interpreter) finishModuleFrame(f *callFrame) {
	if !f.IsModuleMain {
		return
	}
	f.Module.IsExecuting = false
	if it.fatal == nil {
		f.Module.IsExecuted = true
	}
}

// currentModule returns the module the top frame is running under, for
// GET_GLOBAL/SET_GLOBAL and the module opcodes.
func (it *Interpreter) currentModule(f *callFrame) *value.Module {
	return f.Module
}

// --- engine.Engine ---

func (it *Interpreter) Heap() *heap.Heap { return it.h }

func (it *Interpreter) Arguments() []string { return it.args }

func (it *Interpreter) RegisterMethod(typeName, methodName string, method value.Value) {
	m, ok := it.builtinMethods[typeName]
	if !ok {
		m = make(map[string]value.Value)
		it.builtinMethods[typeName] = m
	}
	m[methodName] = method
}

func (it *Interpreter) RegisterGetter(typeName, propName string, getter value.Value) {
	g, ok := it.builtinGetters[typeName]
	if !ok {
		g = make(map[string]value.Value)
		it.builtinGetters[typeName] = g
	}
	g[propName] = getter
}

// Call is the re-entrant call used by native code, __str__ resolution, and
// anything else that needs to invoke a Meow callable from outside the main
// loop. Mirrors handle_call.cpp's call(): stage args plus one destination
// slot at the top of the stack, run an inner loop until the call stack
// shrinks back to the depth at entry, then read off and return the
// destination slot, restoring the stack to its pre-call height.
func (it *Interpreter) Call(callee value.Value, args []value.Value) value.Value {
	release := it.h.SuppressGC()
	defer release()

	depth := len(it.callStack)
	argStart := len(it.stack)
	for _, a := range args {
		it.stack = append(it.stack, a)
	}
	dst := len(it.stack)
	it.stack = append(it.stack, value.Null)

	it.executeCall(dst, callee, argStart, len(args))
	it.loop(depth)

	var result value.Value
	if dst < len(it.stack) {
		result = it.stack[dst]
	}
	it.stack = it.stack[:argStart]
	return result
}

// Stringify implements natives.Host: value.ToString augmented with a
// __str__ resolution for instances, which requires a re-entrant call and so
// cannot live in internal/value. Mirrors helper_functions.cpp's _toString
// instance branch, including that a non-string __str__ result is ignored in
// favor of the default "<ClassName object>" rendering, and that a __str__
// lookup or call failure is swallowed rather than propagated.
func (it *Interpreter) Stringify(v value.Value) string {
	if !v.IsInstance() {
		return v.ToString()
	}
	method, ok := it.resolveInstanceMethod(v.AsInstance(), "__str__")
	if !ok {
		return v.ToString()
	}
	result := it.tryCall(method, []value.Value{v})
	if result.IsString() {
		return result.AsString()
	}
	return v.ToString()
}

// tryCall invokes callee via Call, swallowing any runtime fault raised
// during the call and returning Null instead — used where the original
// wraps a re-entrant call in a try/catch that discards the error (the
// __str__ resolution path in particular).
func (it *Interpreter) tryCall(callee value.Value, args []value.Value) (result value.Value) {
	defer func() {
		if recover() != nil {
			result = value.Null
		}
	}()
	return it.Call(callee, args)
}

// --- heap.RootWalker ---

// TraceRoots visits every GC root: every stack slot, every cached module,
// every open upvalue, every frame's closure and module, and every
// registered builtin method/getter. Mirrors MeowVM::traceRoots (not the
// legacy, unused findRoots).
func (it *Interpreter) TraceRoots(v value.Visitor) {
	for _, slot := range it.stack {
		v.VisitValue(slot)
	}
	for _, mod := range it.imp.Modules() {
		v.VisitObject(mod)
	}
	for _, uv := range it.upvalues {
		v.VisitObject(uv)
	}
	for _, f := range it.callStack {
		v.VisitObject(f.Closure)
		if f.Module != nil {
			v.VisitObject(f.Module)
		}
	}
	for _, methods := range it.builtinMethods {
		for _, m := range methods {
			v.VisitValue(m)
		}
	}
	for _, getters := range it.builtinGetters {
		for _, g := range getters {
			v.VisitValue(g)
		}
	}
}
