// Command arraymod is a demonstration shared-library module: built as a Go
// plugin (`go build -buildmode=plugin`), it exports CreateMeowModule and so
// satisfies the same ABI a .so produced by any other language's toolchain
// would. Grounded on original_source/stdlib/src/array.cpp line for line:
// the same export names, the same registerMethod/registerGetter calls, the
// same negative-index and out-of-range conventions. Every export that needs
// to re-enter the interpreter or allocate through its heap captures eng in
// a closure rather than using NativeFn.Advanced, the same way
// internal/natives.Builtins captures its Host.
package main

import (
	"sort"

	"github.com/MeowNBK/meow-vm-legacy/internal/engine"
	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

func isNumber(v value.Value) bool {
	return v.IsInt() || v.IsReal()
}

func asNumber(v value.Value) float64 {
	if v.IsInt() {
		return float64(v.AsInt())
	}
	return v.AsReal()
}

func callable(v value.Value) bool {
	return v.IsClosure() || v.IsNative() || v.IsBoundMethod()
}

func arrayPushFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) == 0 || !args[0].IsArray() {
			return value.Null
		}
		arr := args[0].AsArray()
		arr.Elements = append(arr.Elements, args[1:]...)
		return value.Int(int64(len(arr.Elements)))
	}}
}

func arrayPopFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) == 0 || !args[0].IsArray() {
			return value.Null
		}
		arr := args[0].AsArray()
		n := len(arr.Elements)
		if n == 0 {
			return value.Null
		}
		last := arr.Elements[n-1]
		arr.Elements = arr.Elements[:n-1]
		return last
	}}
}

func arrayGetIndexFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) < 2 || !args[0].IsArray() || !args[1].IsInt() {
			return value.Null
		}
		arr := args[0].AsArray()
		n := int64(len(arr.Elements))
		idx := args[1].AsInt()
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return value.Null
		}
		return arr.Elements[idx]
	}}
}

func arraySliceFn(eng engine.Engine) value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) == 0 || !args[0].IsArray() {
			return value.Null
		}
		src := args[0].AsArray()
		n := int64(len(src.Elements))
		start, end := int64(0), n
		if len(args) > 1 && args[1].IsInt() {
			start = args[1].AsInt()
		}
		if len(args) > 2 && args[2].IsInt() {
			end = args[2].AsInt()
		}
		if start < 0 {
			start += n
		}
		if end < 0 {
			end += n
		}
		if start < 0 {
			start = 0
		}
		if end > n {
			end = n
		}

		dst := heap.NewObject(eng.Heap(), &value.Array{})
		if start < end {
			dst.Elements = make([]value.Value, 0, end-start)
			for i := start; i < end; i++ {
				dst.Elements = append(dst.Elements, src.Elements[i])
			}
		}
		return value.Obj(dst)
	}}
}

func arrayMapFn(eng engine.Engine) value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) < 2 || !args[0].IsArray() {
			return value.Null
		}
		arr := args[0].AsArray()
		cb := args[1]
		dst := heap.NewObject(eng.Heap(), &value.Array{Elements: make([]value.Value, 0, len(arr.Elements))})
		for _, el := range arr.Elements {
			dst.Elements = append(dst.Elements, eng.Call(cb, []value.Value{el}))
		}
		return value.Obj(dst)
	}}
}

func arrayFilterFn(eng engine.Engine) value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) < 2 || !args[0].IsArray() {
			return value.Null
		}
		arr := args[0].AsArray()
		cb := args[1]
		dst := heap.NewObject(eng.Heap(), &value.Array{})
		for _, el := range arr.Elements {
			if eng.Call(cb, []value.Value{el}).Truthy() {
				dst.Elements = append(dst.Elements, el)
			}
		}
		return value.Obj(dst)
	}}
}

func arrayReduceFn(eng engine.Engine) value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) < 3 || !args[0].IsArray() {
			return value.Null
		}
		arr := args[0].AsArray()
		cb := args[1]
		acc := args[2]
		for _, el := range arr.Elements {
			acc = eng.Call(cb, []value.Value{acc, el})
		}
		return acc
	}}
}

func arrayForEachFn(eng engine.Engine) value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) < 2 || !args[0].IsArray() {
			return value.Null
		}
		arr := args[0].AsArray()
		cb := args[1]
		for i, el := range arr.Elements {
			eng.Call(cb, []value.Value{el, value.Int(int64(i))})
		}
		return value.Null
	}}
}

func arrayFindFn(eng engine.Engine) value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) < 2 || !args[0].IsArray() {
			return value.Null
		}
		arr := args[0].AsArray()
		cb := args[1]
		for i, el := range arr.Elements {
			if eng.Call(cb, []value.Value{el, value.Int(int64(i))}).Truthy() {
				return el
			}
		}
		return value.Null
	}}
}

func arrayFindIndexFn(eng engine.Engine) value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) < 2 || !args[0].IsArray() {
			return value.Int(-1)
		}
		arr := args[0].AsArray()
		cb := args[1]
		for i, el := range arr.Elements {
			if eng.Call(cb, []value.Value{el, value.Int(int64(i))}).Truthy() {
				return value.Int(int64(i))
			}
		}
		return value.Int(-1)
	}}
}

func arrayReverseFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) == 0 || !args[0].IsArray() {
			return value.Null
		}
		arr := args[0].AsArray()
		for i, j := 0, len(arr.Elements)-1; i < j; i, j = i+1, j-1 {
			arr.Elements[i], arr.Elements[j] = arr.Elements[j], arr.Elements[i]
		}
		return args[0]
	}}
}

func arraySortFn(eng engine.Engine) value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) == 0 || !args[0].IsArray() {
			return value.Null
		}
		arr := args[0].AsArray()
		hasCmp := len(args) > 1 && callable(args[1])
		var cmp value.Value
		if hasCmp {
			cmp = args[1]
		}

		sort.SliceStable(arr.Elements, func(i, j int) bool {
			a, b := arr.Elements[i], arr.Elements[j]
			if hasCmp {
				r := eng.Call(cmp, []value.Value{a, b})
				if r.IsInt() {
					return r.AsInt() < 0
				}
				if r.IsReal() {
					return r.AsReal() < 0
				}
				return false
			}
			if isNumber(a) && isNumber(b) {
				return asNumber(a) < asNumber(b)
			}
			if a.IsString() && b.IsString() {
				return a.AsString() < b.AsString()
			}
			return false
		})
		return args[0]
	}}
}

func arrayReserveFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) < 2 || !args[0].IsArray() || !args[1].IsInt() {
			return value.Null
		}
		arr := args[0].AsArray()
		capacity := args[1].AsInt()
		if capacity < 0 {
			return value.Null
		}
		if int64(len(arr.Elements)) < capacity {
			grown := make([]value.Value, len(arr.Elements), capacity)
			copy(grown, arr.Elements)
			arr.Elements = grown
		}
		return value.Null
	}}
}

func arrayResizeFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) < 2 || !args[0].IsArray() || !args[1].IsInt() {
			return value.Null
		}
		arr := args[0].AsArray()
		n := args[1].AsInt()
		if n < 0 {
			return value.Null
		}
		fill := value.Null
		if len(args) > 2 {
			fill = args[2]
		}
		cur := int64(len(arr.Elements))
		if n <= cur {
			arr.Elements = arr.Elements[:n]
			return value.Null
		}
		for cur < n {
			arr.Elements = append(arr.Elements, fill)
			cur++
		}
		return value.Null
	}}
}

func arrayLengthFn() value.NativeFn {
	return value.NativeFn{Simple: func(args []value.Value) value.Value {
		if len(args) == 0 || !args[0].IsArray() {
			return value.Null
		}
		return value.Int(int64(len(args[0].AsArray().Elements)))
	}}
}

// CreateMeowModule is the symbol internal/importer's openRealPlugin looks
// up by name. It registers every export both as a direct module export
// (import "array" and call array.push(...)) and, per the original, as an
// Array instance method, so arr.push(...) works too.
func CreateMeowModule(eng engine.Engine) *value.Module {
	mod := heap.NewObject(eng.Heap(), value.NewModule("array", "native:array", false))

	mod.Exports["push"] = value.Native(arrayPushFn())
	mod.Exports["pop"] = value.Native(arrayPopFn())
	mod.Exports["__getindex__"] = value.Native(arrayGetIndexFn())
	mod.Exports["slice"] = value.Native(arraySliceFn(eng))
	mod.Exports["map"] = value.Native(arrayMapFn(eng))
	mod.Exports["filter"] = value.Native(arrayFilterFn(eng))
	mod.Exports["reduce"] = value.Native(arrayReduceFn(eng))
	mod.Exports["forEach"] = value.Native(arrayForEachFn(eng))
	mod.Exports["find"] = value.Native(arrayFindFn(eng))
	mod.Exports["findIndex"] = value.Native(arrayFindIndexFn(eng))
	mod.Exports["reverse"] = value.Native(arrayReverseFn())
	mod.Exports["sort"] = value.Native(arraySortFn(eng))
	mod.Exports["reserve"] = value.Native(arrayReserveFn())
	mod.Exports["resize"] = value.Native(arrayResizeFn())
	mod.Exports["size"] = value.Native(arrayLengthFn())

	for name, fn := range mod.Exports {
		eng.RegisterMethod("Array", name, fn)
	}
	eng.RegisterGetter("Array", "length", value.Native(arrayLengthFn()))

	return mod
}
