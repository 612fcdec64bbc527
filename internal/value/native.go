package value

// Engine is the minimal surface a native function body needs from the
// running interpreter: the ability to re-enter the interpreter via a call.
// It is a narrower view than engine.Engine (which also exposes method/getter
// registration) so that this package never has to import the vm package.
type Engine interface {
	Call(callee Value, args []Value) Value
}

// NativeFn is a callable implemented in Go rather than in bytecode. It
// mirrors the original's std::variant<NativeFnSimple, NativeFnAdvanced>: a
// native either ignores the engine (Simple) or asks for it (Advanced) to
// re-enter the interpreter (e.g. to invoke a `__str__` method on an
// argument). Exactly one of Simple/Advanced is set.
type NativeFn struct {
	Simple   func(args []Value) Value
	Advanced func(engine Engine, args []Value) Value
}

// Invoke calls whichever of Simple/Advanced is populated.
func (n NativeFn) Invoke(engine Engine, args []Value) Value {
	if n.Advanced != nil {
		return n.Advanced(engine, args)
	}
	return n.Simple(args)
}

// WrapWithReceiver prepends receiver to the argument list on every call,
// the Go equivalent of the lambda built in handle_method.cpp whenever a
// native function is fetched as a bound method off an instance/array/string/
// number.
func (n NativeFn) WrapWithReceiver(receiver Value) NativeFn {
	return NativeFn{
		Advanced: func(engine Engine, args []Value) Value {
			newArgs := make([]Value, 0, len(args)+1)
			newArgs = append(newArgs, receiver)
			newArgs = append(newArgs, args...)
			return n.Invoke(engine, newArgs)
		},
	}
}
