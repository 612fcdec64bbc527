package main

import (
	"testing"

	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// fakeEngine satisfies engine.Engine with a real heap and a Call that just
// applies a Go func, enough to exercise map/filter/reduce/forEach/find/
// findIndex/sort without a running interpreter.
type fakeEngine struct {
	h    *heap.Heap
	call func(callee value.Value, args []value.Value) value.Value
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{h: heap.New()}
}

func (e *fakeEngine) Call(callee value.Value, args []value.Value) value.Value {
	return e.call(callee, args)
}
func (e *fakeEngine) Heap() *heap.Heap                                             { return e.h }
func (e *fakeEngine) RegisterMethod(typeName, methodName string, method value.Value) {}
func (e *fakeEngine) RegisterGetter(typeName, propName string, getter value.Value)   {}
func (e *fakeEngine) Arguments() []string                                           { return nil }

func ints(vs ...int64) *value.Array {
	elems := make([]value.Value, len(vs))
	for i, v := range vs {
		elems[i] = value.Int(v)
	}
	return &value.Array{Elements: elems}
}

func intsOf(arr *value.Array) []int64 {
	out := make([]int64, len(arr.Elements))
	for i, e := range arr.Elements {
		out[i] = e.AsInt()
	}
	return out
}

func sameInts(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPushPop(t *testing.T) {
	arr := ints(1, 2)
	push := arrayPushFn()
	n := push.Simple([]value.Value{value.Obj(arr), value.Int(3)})
	if n.AsInt() != 3 || !sameInts(intsOf(arr), []int64{1, 2, 3}) {
		t.Errorf("push result = %v, array = %v", n, arr.Elements)
	}

	pop := arrayPopFn()
	last := pop.Simple([]value.Value{value.Obj(arr)})
	if last.AsInt() != 3 || !sameInts(intsOf(arr), []int64{1, 2}) {
		t.Errorf("pop result = %v, array = %v", last, arr.Elements)
	}

	empty := &value.Array{}
	if got := pop.Simple([]value.Value{value.Obj(empty)}); !got.IsNull() {
		t.Errorf("pop of empty array = %v, want null", got)
	}
}

func TestGetIndexNegativeAndOutOfRange(t *testing.T) {
	arr := ints(10, 20, 30)
	get := arrayGetIndexFn()
	if got := get.Simple([]value.Value{value.Obj(arr), value.Int(-1)}); got.AsInt() != 30 {
		t.Errorf("arr[-1] = %v, want 30", got)
	}
	if got := get.Simple([]value.Value{value.Obj(arr), value.Int(5)}); !got.IsNull() {
		t.Errorf("arr[5] = %v, want null", got)
	}
	if got := get.Simple([]value.Value{value.Obj(arr), value.Int(-10)}); !got.IsNull() {
		t.Errorf("arr[-10] = %v, want null", got)
	}
}

func TestSlice(t *testing.T) {
	eng := newFakeEngine()
	arr := ints(0, 1, 2, 3, 4)
	slice := arraySliceFn(eng)

	got := slice.Simple([]value.Value{value.Obj(arr), value.Int(1), value.Int(3)})
	if !sameInts(intsOf(got.AsArray()), []int64{1, 2}) {
		t.Errorf("slice(1,3) = %v, want [1 2]", got.AsArray().Elements)
	}

	got = slice.Simple([]value.Value{value.Obj(arr), value.Int(-2)})
	if !sameInts(intsOf(got.AsArray()), []int64{3, 4}) {
		t.Errorf("slice(-2) = %v, want [3 4]", got.AsArray().Elements)
	}
}

func TestMapFilterReduce(t *testing.T) {
	eng := newFakeEngine()
	eng.call = func(callee value.Value, args []value.Value) value.Value {
		switch callee.AsString() {
		case "double":
			return value.Int(args[0].AsInt() * 2)
		case "isEven":
			return value.Bool(args[0].AsInt()%2 == 0)
		case "sum":
			return value.Int(args[0].AsInt() + args[1].AsInt())
		}
		return value.Null
	}

	arr := ints(1, 2, 3, 4)

	mapped := arrayMapFn(eng).Simple([]value.Value{value.Obj(arr), value.Str("double")})
	if !sameInts(intsOf(mapped.AsArray()), []int64{2, 4, 6, 8}) {
		t.Errorf("map(double) = %v", mapped.AsArray().Elements)
	}

	filtered := arrayFilterFn(eng).Simple([]value.Value{value.Obj(arr), value.Str("isEven")})
	if !sameInts(intsOf(filtered.AsArray()), []int64{2, 4}) {
		t.Errorf("filter(isEven) = %v", filtered.AsArray().Elements)
	}

	reduced := arrayReduceFn(eng).Simple([]value.Value{value.Obj(arr), value.Str("sum"), value.Int(0)})
	if reduced.AsInt() != 10 {
		t.Errorf("reduce(sum, 0) = %v, want 10", reduced)
	}
}

func TestFindAndFindIndex(t *testing.T) {
	eng := newFakeEngine()
	eng.call = func(callee value.Value, args []value.Value) value.Value {
		return value.Bool(args[0].AsInt() == 3)
	}
	arr := ints(1, 2, 3, 4)

	found := arrayFindFn(eng).Simple([]value.Value{value.Obj(arr), value.Str("eq3")})
	if found.AsInt() != 3 {
		t.Errorf("find(eq3) = %v, want 3", found)
	}

	idx := arrayFindIndexFn(eng).Simple([]value.Value{value.Obj(arr), value.Str("eq3")})
	if idx.AsInt() != 2 {
		t.Errorf("findIndex(eq3) = %v, want 2", idx)
	}

	eng.call = func(callee value.Value, args []value.Value) value.Value { return value.Bool(false) }
	idx = arrayFindIndexFn(eng).Simple([]value.Value{value.Obj(arr), value.Str("never")})
	if idx.AsInt() != -1 {
		t.Errorf("findIndex(never) = %v, want -1", idx)
	}
}

func TestReverseAndSortDefault(t *testing.T) {
	arr := ints(3, 1, 2)
	arrayReverseFn().Simple([]value.Value{value.Obj(arr)})
	if !sameInts(intsOf(arr), []int64{2, 1, 3}) {
		t.Errorf("reverse = %v, want [2 1 3]", arr.Elements)
	}

	eng := newFakeEngine()
	arrayStrSort := &value.Array{Elements: []value.Value{value.Int(3), value.Int(1), value.Int(2)}}
	arraySortFn(eng).Simple([]value.Value{value.Obj(arrayStrSort)})
	if !sameInts(intsOf(arrayStrSort), []int64{1, 2, 3}) {
		t.Errorf("sort (default comparator) = %v, want [1 2 3]", arrayStrSort.Elements)
	}
}

func TestSortWithComparator(t *testing.T) {
	eng := newFakeEngine()
	eng.call = func(callee value.Value, args []value.Value) value.Value {
		// descending order comparator
		return value.Int(args[1].AsInt() - args[0].AsInt())
	}
	// sort only uses a callable comparator; the fake engine's call does the
	// comparing, so any native value serves as the callee.
	cmp := value.Native(value.NativeFn{Simple: func(args []value.Value) value.Value { return value.Null }})
	arr := ints(1, 3, 2)
	arraySortFn(eng).Simple([]value.Value{value.Obj(arr), cmp})
	if !sameInts(intsOf(arr), []int64{3, 2, 1}) {
		t.Errorf("sort(cmp desc) = %v, want [3 2 1]", arr.Elements)
	}
}

func TestReserveAndResize(t *testing.T) {
	arr := ints(1, 2)
	arrayReserveFn().Simple([]value.Value{value.Obj(arr), value.Int(10)})
	if cap(arr.Elements) < 10 {
		t.Errorf("cap after reserve(10) = %d, want >= 10", cap(arr.Elements))
	}
	if len(arr.Elements) != 2 {
		t.Errorf("len after reserve should be unchanged, got %d", len(arr.Elements))
	}

	arrayResizeFn().Simple([]value.Value{value.Obj(arr), value.Int(4), value.Int(9)})
	if !sameInts(intsOf(arr), []int64{1, 2, 9, 9}) {
		t.Errorf("resize(4, fill=9) = %v, want [1 2 9 9]", arr.Elements)
	}

	arrayResizeFn().Simple([]value.Value{value.Obj(arr), value.Int(1)})
	if !sameInts(intsOf(arr), []int64{1}) {
		t.Errorf("resize(1) = %v, want [1]", arr.Elements)
	}
}

func TestLength(t *testing.T) {
	arr := ints(1, 2, 3)
	if got := arrayLengthFn().Simple([]value.Value{value.Obj(arr)}).AsInt(); got != 3 {
		t.Errorf("length = %d, want 3", got)
	}
}

func TestCreateMeowModuleRegistersExportsAndMethods(t *testing.T) {
	eng := newFakeEngine()
	mod := CreateMeowModule(eng)
	if mod.Name != "array" {
		t.Errorf("module name = %q, want %q", mod.Name, "array")
	}
	for _, name := range []string{"push", "pop", "slice", "map", "sort", "size"} {
		if _, ok := mod.Exports[name]; !ok {
			t.Errorf("missing export %q", name)
		}
	}
}
