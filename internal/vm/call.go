package vm

import (
	"sort"

	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// captureUpvalue returns the open upvalue over absolute stack slot absSlot,
// reusing one already open over that exact slot. openUpvalues is kept
// sorted ascending by SlotIndex; reverse-scanning lets the common case (the
// most recently opened upvalues are usually the ones reused) bail out
// early once a lower slot index is seen. Grounded on
// handle_call.cpp's captureUpvalue.
func (it *Interpreter) captureUpvalue(absSlot int) *value.Upvalue {
	for i := len(it.upvalues) - 1; i >= 0; i-- {
		uv := it.upvalues[i]
		if uv.SlotIndex == absSlot {
			return uv
		}
		if uv.SlotIndex < absSlot {
			break
		}
	}

	uv := heap.NewObject(it.h, &value.Upvalue{SlotIndex: absSlot})
	pos := sort.Search(len(it.upvalues), func(i int) bool { return it.upvalues[i].SlotIndex >= absSlot })
	it.upvalues = append(it.upvalues, nil)
	copy(it.upvalues[pos+1:], it.upvalues[pos:])
	it.upvalues[pos] = uv
	return uv
}

// closeUpvalues closes every open upvalue at or past absSlot, copying the
// live stack value into it. Invoked on RETURN, CLOSE_UPVALUES, and unwind.
func (it *Interpreter) closeUpvalues(absSlot int) {
	for len(it.upvalues) > 0 && it.upvalues[len(it.upvalues)-1].SlotIndex >= absSlot {
		uv := it.upvalues[len(it.upvalues)-1]
		it.upvalues = it.upvalues[:len(it.upvalues)-1]
		uv.Value = it.stack[uv.SlotIndex]
		uv.Closed = true
	}
}

// executeCall is the four-variant call-dispatch protocol: Closure,
// BoundMethod, Class (instantiation, recursing into init if present),
// NativeFn. dstAbs is an absolute stack index, or noDest to discard the
// result. argStartAbs is the absolute index of the first of argc
// contiguous argument values. Grounded on handle_call.cpp's _executeCall.
func (it *Interpreter) executeCall(dstAbs int, callee value.Value, argStartAbs, argc int) {
	args := make([]value.Value, argc)
	copy(args, it.stack[argStartAbs:argStartAbs+argc])

	switch {
	case callee.IsClosure():
		it.openCallFrame(callee.AsClosure(), args, dstAbs, 0)
	case callee.IsBoundMethod():
		bm := callee.AsBoundMethod()
		it.openCallFrame(bm.Callable, args, dstAbs, 1)
		// The receiver occupies slot 0 of the new window; openCallFrame
		// left it at its zero value, so set it explicitly.
		newFrame := it.callStack[len(it.callStack)-1]
		it.stack[newFrame.SlotStart] = value.Obj(bm.Receiver)
	case callee.IsClass():
		klass := callee.AsClass()
		inst := heap.NewObject(it.h, value.NewInstance(klass))
		if dstAbs != noDest {
			it.ensureStackLen(dstAbs)
			it.stack[dstAbs] = value.Obj(inst)
		}
		if initV, ok := klass.Methods["init"]; ok && initV.IsClosure() {
			bound := heap.NewObject(it.h, &value.BoundMethod{Receiver: inst, Callable: initV.AsClosure()})
			it.executeCall(noDest, value.Obj(bound), argStartAbs, argc)
		}
	case callee.IsNative():
		result := callee.AsNative().Invoke(it, args)
		if dstAbs != noDest {
			it.ensureStackLen(dstAbs)
			it.stack[dstAbs] = result
		}
	default:
		it.raise("value of type '%s' is not callable: %s", callee.TypeName(), callee.ToString())
	}
}

// openCallFrame pushes a new frame for cl, placing args starting at
// register receiverSlots (0 for a plain closure call, 1 for a bound method
// where slot 0 is reserved for the receiver), clamped to the window size.
func (it *Interpreter) openCallFrame(cl *value.Closure, args []value.Value, dstAbs, receiverSlots int) {
	mod := it.callStack[len(it.callStack)-1].Module
	newStart := len(it.stack)
	window := make([]value.Value, cl.Proto.NumRegisters)

	room := cl.Proto.NumRegisters - receiverSlots
	copyCount := len(args)
	if copyCount > room {
		copyCount = room
	}
	for i := 0; i < copyCount; i++ {
		window[receiverSlots+i] = args[i]
	}
	it.stack = append(it.stack, window...)
	it.callStack = append(it.callStack, &callFrame{Closure: cl, SlotStart: newStart, Module: mod, RetSlot: dstAbs})
}

// resolveInstanceMethod walks an instance's own fields, then its class
// chain, looking for name and binding it to the instance if it is a
// closure, bound method, or native. Returns ok=false if nothing is found at
// any level. Grounded on handle_method.cpp's getMagicMethod, Instance
// branch.
func (it *Interpreter) resolveInstanceMethod(inst *value.Instance, name string) (value.Value, bool) {
	if field, ok := inst.Fields[name]; ok {
		return it.bindReceiver(field, inst), true
	}
	for klass := inst.Class; klass != nil; klass = klass.Superclass {
		if m, ok := klass.Methods[name]; ok {
			return it.bindReceiver(m, inst), true
		}
	}
	return value.Null, false
}

// bindReceiver rebinds v to receiver when v is itself callable in a way
// that needs a receiver: a bare closure becomes a BoundMethod, an existing
// bound method is rebound to the new receiver, and a native is wrapped so
// the receiver is prepended as its first argument. Any other value (a
// plain field, say) is returned unchanged.
func (it *Interpreter) bindReceiver(v value.Value, receiver *value.Instance) value.Value {
	switch {
	case v.IsClosure():
		return value.Obj(heap.NewObject(it.h, &value.BoundMethod{Receiver: receiver, Callable: v.AsClosure()}))
	case v.IsBoundMethod():
		return value.Obj(heap.NewObject(it.h, &value.BoundMethod{Receiver: receiver, Callable: v.AsBoundMethod().Callable}))
	case v.IsNative():
		return value.Native(v.AsNative().WrapWithReceiver(value.Obj(receiver)))
	default:
		return v
	}
}

// getMagicMethod resolves (receiver, name) to a callable or plain value the
// way GET_PROP/GET_INDEX's non-integer-key path do: Instance fields then
// class chain; Object fields then builtin Object getters (invoked eagerly)
// then builtin Object methods (wrapped); Array/String/Int/Real/Bool builtin
// getters (eager) then methods (wrapped); Class returns its raw method
// entry with no wrapping. Grounded on handle_method.cpp's getMagicMethod.
func (it *Interpreter) getMagicMethod(receiver value.Value, name string) (value.Value, bool) {
	switch {
	case receiver.IsInstance():
		return it.resolveInstanceMethod(receiver.AsInstance(), name)
	case receiver.IsObject():
		obj := receiver.AsObject()
		if field, ok := obj.Fields[name]; ok {
			return field, true
		}
		return it.resolveBuiltin("Object", receiver, name)
	case receiver.IsArray():
		return it.resolveBuiltin("Array", receiver, name)
	case receiver.IsString():
		return it.resolveBuiltin("String", receiver, name)
	case receiver.IsInt():
		return it.resolveBuiltin("Int", receiver, name)
	case receiver.IsReal():
		return it.resolveBuiltin("Real", receiver, name)
	case receiver.IsBool():
		return it.resolveBuiltin("Bool", receiver, name)
	case receiver.IsClass():
		m, ok := receiver.AsClass().Methods[name]
		return m, ok
	default:
		return value.Null, false
	}
}

// resolveBuiltin checks typeName's registered getters first (invoking the
// getter immediately with receiver, since a getter is a computed property,
// not a method to be called later) then its registered methods (wrapped so
// invocation prepends receiver as the first argument).
func (it *Interpreter) resolveBuiltin(typeName string, receiver value.Value, name string) (value.Value, bool) {
	if getters, ok := it.builtinGetters[typeName]; ok {
		if g, ok := getters[name]; ok {
			return it.tryCall(g, []value.Value{receiver}), true
		}
	}
	if methods, ok := it.builtinMethods[typeName]; ok {
		if m, ok := methods[name]; ok && m.IsNative() {
			return value.Native(m.AsNative().WrapWithReceiver(receiver)), true
		}
	}
	return value.Null, false
}
