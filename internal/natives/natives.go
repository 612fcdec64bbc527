// Package natives implements the builtins carried by the "native"
// pseudo-module every script sees implicitly: print, typeof, len, assert,
// int, real, bool, str, ord, char, range, system. Grounded on
// original_source/src/meow-vm/define_natives.cpp, plus a system.argv
// object surfacing MeowVM::commandLineArgs through Engine.Arguments.
package natives

import (
	"fmt"
	"strings"

	"github.com/MeowNBK/meow-vm-legacy/internal/engine"
	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// Host is what a native builtin needs from the running interpreter: the
// full Engine surface (for allocating through the shared heap, as `range`
// does) plus Stringify, which resolves a `__str__` method on instances by
// re-entering the interpreter — something internal/value deliberately
// cannot do on its own.
type Host interface {
	engine.Engine
	Stringify(v value.Value) string
}

// Names lists every builtin this package installs, in registration order.
var Names = []string{
	"print", "typeof", "len", "assert",
	"int", "real", "bool", "str",
	"ord", "char", "range", "system",
}

// Builtins returns the full native table to be installed as the globals of
// the "native" pseudo-module.
func Builtins(h Host) map[string]value.Value {
	m := make(map[string]value.Value, len(Names))
	m["print"] = value.Native(printFn(h))
	m["typeof"] = value.Native(typeofFn())
	m["len"] = value.Native(lenFn())
	m["assert"] = value.Native(assertFn())
	m["int"] = value.Native(intFn())
	m["real"] = value.Native(realFn())
	m["bool"] = value.Native(boolFn())
	m["str"] = value.Native(strFn(h))
	m["ord"] = value.Native(ordFn())
	m["char"] = value.Native(charFn())
	m["range"] = value.Native(rangeFn(h))
	m["system"] = systemObject(h)
	return m
}

// systemObject builds the "system" global: an Object exposing argv, the
// arguments passed through to the script beyond the entry file itself.
// Mirrors MeowEngine::getArguments, surfaced to script code rather than
// only to native modules.
func systemObject(h Host) value.Value {
	argv := make([]value.Value, len(h.Arguments()))
	for i, a := range h.Arguments() {
		argv[i] = value.Str(a)
	}
	obj := heap.NewObject(h.Heap(), value.NewObject())
	obj.Fields["argv"] = value.Obj(heap.NewObject(h.Heap(), &value.Array{Elements: argv}))
	return value.Obj(obj)
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Null
}

func printFn(h Host) value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = h.Stringify(a)
		}
		fmt.Println(strings.Join(parts, " "))
		return value.Null
	}}
}

func typeofFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		return value.Str(arg(args, 0).TypeName())
	}}
}

func lenFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		v := arg(args, 0)
		switch v.Tag() {
		case value.TagString:
			return value.Int(int64(len(v.AsString())))
		case value.TagArray:
			return value.Int(int64(len(v.AsArray().Elements)))
		case value.TagObject:
			return value.Int(int64(len(v.AsObject().Fields)))
		default:
			return value.Int(-1)
		}
	}}
}

func assertFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if !arg(args, 0).Truthy() {
			message := "Assertion failed."
			if len(args) > 1 && args[1].IsString() {
				message = args[1].AsString()
			}
			panic(engine.NewVMError(message))
		}
		return value.Null
	}}
}

func intFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		return value.Int(arg(args, 0).ToInt())
	}}
}

func realFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		return value.Real(arg(args, 0).ToFloat())
	}}
}

func boolFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		return value.Bool(arg(args, 0).Truthy())
	}}
}

func strFn(h Host) value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		return value.Str(h.Stringify(arg(args, 0)))
	}}
}

func ordFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		v := arg(args, 0)
		if !v.IsString() {
			panic(engine.NewVMError("ord() requires a string argument."))
		}
		s := v.AsString()
		if len(s) != 1 {
			panic(engine.NewVMError("ord() accepts only a string of exactly 1 byte."))
		}
		return value.Int(int64(s[0]))
	}}
}

func charFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		v := arg(args, 0)
		if !v.IsInt() {
			panic(engine.NewVMError("char() requires an int argument."))
		}
		code := v.AsInt()
		if code < 0 || code > 255 {
			panic(engine.NewVMError("char() code must be in the range [0, 255]."))
		}
		return value.Str(string([]byte{byte(code)}))
	}}
}

func rangeFn(h Host) value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		for _, a := range args {
			if !a.IsInt() {
				panic(engine.NewVMError("range() requires int arguments."))
			}
		}

		var start, stop, step int64 = 0, 0, 1
		switch len(args) {
		case 1:
			stop = args[0].AsInt()
		case 2:
			start = args[0].AsInt()
			stop = args[1].AsInt()
		default:
			start = args[0].AsInt()
			stop = args[1].AsInt()
			step = args[2].AsInt()
		}
		if step == 0 {
			panic(engine.NewVMError("range() step must not be 0."))
		}

		var elems []value.Value
		if step > 0 {
			for i := start; i < stop; i += step {
				elems = append(elems, value.Int(i))
			}
		} else {
			for i := start; i > stop; i += step {
				elems = append(elems, value.Int(i))
			}
		}

		arr := heap.NewObject(h.Heap(), &value.Array{Elements: elems})
		return value.Obj(arr)
	}}
}
