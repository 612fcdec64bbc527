package natives

import (
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/MeowNBK/meow-vm-legacy/internal/engine"
	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// fakeHost is a minimal engine.Engine + Stringify double: Call is unused by
// any builtin under test here, and Stringify falls back to Value.ToString
// the same way the real interpreter does for anything without a __str__.
type fakeHost struct {
	h    *heap.Heap
	args []string
}

func newFakeHost(args ...string) *fakeHost {
	return &fakeHost{h: heap.New(), args: args}
}

func (f *fakeHost) Call(callee value.Value, args []value.Value) value.Value { return value.Null }
func (f *fakeHost) Heap() *heap.Heap                                        { return f.h }
func (f *fakeHost) RegisterMethod(typeName, methodName string, method value.Value) {}
func (f *fakeHost) RegisterGetter(typeName, propName string, getter value.Value)   {}
func (f *fakeHost) Arguments() []string                                           { return f.args }
func (f *fakeHost) Stringify(v value.Value) string                               { return v.ToString() }

func invoke(t *testing.T, fn value.Value, args ...value.Value) value.Value {
	t.Helper()
	if !fn.IsNative() {
		t.Fatal("expected a native function")
	}
	return fn.AsNative().Invoke(nil, args)
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()
	fn()
	w.Close()
	out, _ := io.ReadAll(r)
	return string(out)
}

func expectPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	fn()
}

func TestPrint(t *testing.T) {
	h := newFakeHost()
	m := Builtins(h)
	out := captureStdout(t, func() {
		invoke(t, m["print"], value.Int(1), value.Str("two"))
	})
	if strings.TrimSpace(out) != "1 two" {
		t.Errorf("print output = %q, want \"1 two\"", out)
	}
}

func TestTypeof(t *testing.T) {
	m := Builtins(newFakeHost())
	if got := invoke(t, m["typeof"], value.Int(1)).AsString(); got != "int" {
		t.Errorf("typeof(1) = %q, want %q", got, "int")
	}
	if got := invoke(t, m["typeof"], value.Str("x")).AsString(); got != "string" {
		t.Errorf("typeof(\"x\") = %q, want %q", got, "string")
	}
}

func TestLen(t *testing.T) {
	h := newFakeHost()
	m := Builtins(h)
	if got := invoke(t, m["len"], value.Str("hello")).AsInt(); got != 5 {
		t.Errorf("len(\"hello\") = %d, want 5", got)
	}
	arr := heap.NewObject(h.Heap(), &value.Array{Elements: []value.Value{value.Int(1), value.Int(2)}})
	if got := invoke(t, m["len"], value.Obj(arr)).AsInt(); got != 2 {
		t.Errorf("len(array) = %d, want 2", got)
	}
	if got := invoke(t, m["len"], value.Int(5)).AsInt(); got != -1 {
		t.Errorf("len(int) = %d, want -1", got)
	}
}

func TestAssert(t *testing.T) {
	m := Builtins(newFakeHost())
	invoke(t, m["assert"], value.Bool(true))

	expectPanic(t, func() {
		invoke(t, m["assert"], value.Bool(false))
	})

	func() {
		defer func() {
			r := recover()
			ve, ok := r.(*engine.VMError)
			if !ok {
				t.Fatalf("expected *engine.VMError, got %T", r)
			}
			if ve.Message != "custom message" {
				t.Errorf("assert message = %q, want %q", ve.Message, "custom message")
			}
		}()
		invoke(t, m["assert"], value.Bool(false), value.Str("custom message"))
	}()
}

func TestCoercions(t *testing.T) {
	m := Builtins(newFakeHost())
	if got := invoke(t, m["int"], value.Str("42")).AsInt(); got != 42 {
		t.Errorf("int(\"42\") = %d, want 42", got)
	}
	if got := invoke(t, m["real"], value.Str("1.5")).AsReal(); got != 1.5 {
		t.Errorf("real(\"1.5\") = %v, want 1.5", got)
	}
	if got := invoke(t, m["bool"], value.Int(0)).AsBool(); got != false {
		t.Errorf("bool(0) = %v, want false", got)
	}
	if got := invoke(t, m["str"], value.Int(7)).AsString(); got != "7" {
		t.Errorf("str(7) = %q, want %q", got, "7")
	}
}

func TestOrdChar(t *testing.T) {
	m := Builtins(newFakeHost())
	if got := invoke(t, m["ord"], value.Str("A")).AsInt(); got != 65 {
		t.Errorf("ord(\"A\") = %d, want 65", got)
	}
	if got := invoke(t, m["char"], value.Int(65)).AsString(); got != "A" {
		t.Errorf("char(65) = %q, want %q", got, "A")
	}
	expectPanic(t, func() { invoke(t, m["ord"], value.Str("ab")) })
	expectPanic(t, func() { invoke(t, m["char"], value.Int(256)) })
}

func TestOrdCharRangeWrongTypeRaisesVMError(t *testing.T) {
	m := Builtins(newFakeHost())

	assertVMError := func(fn func()) {
		t.Helper()
		defer func() {
			r := recover()
			if _, ok := r.(*engine.VMError); !ok {
				t.Errorf("expected a panic of *engine.VMError, got %T (%v)", r, r)
			}
		}()
		fn()
	}

	assertVMError(func() { invoke(t, m["ord"], value.Int(5)) })
	assertVMError(func() { invoke(t, m["char"], value.Str("x")) })
	assertVMError(func() { invoke(t, m["range"], value.Str("a")) })
}

func TestRange(t *testing.T) {
	h := newFakeHost()
	m := Builtins(h)

	toInts := func(v value.Value) []int64 {
		elems := v.AsArray().Elements
		out := make([]int64, len(elems))
		for i, e := range elems {
			out[i] = e.AsInt()
		}
		return out
	}

	got := toInts(invoke(t, m["range"], value.Int(3)))
	want := []int64{0, 1, 2}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("range(3) = %v, want %v", got, want)
	}

	got = toInts(invoke(t, m["range"], value.Int(5), value.Int(2), value.Int(-1)))
	want = []int64{5, 4, 3}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("range(5, 2, -1) = %v, want %v", got, want)
	}

	expectPanic(t, func() { invoke(t, m["range"], value.Int(1), value.Int(2), value.Int(0)) })
}

func TestSystemArgv(t *testing.T) {
	h := newFakeHost("a", "b")
	m := Builtins(h)
	sys := m["system"]
	if !sys.IsObject() {
		t.Fatal("system should be an Object")
	}
	argv, ok := sys.AsObject().Fields["argv"]
	if !ok {
		t.Fatal("system.argv missing")
	}
	elems := argv.AsArray().Elements
	if len(elems) != 2 || elems[0].AsString() != "a" || elems[1].AsString() != "b" {
		t.Errorf("system.argv = %v, want [a b]", elems)
	}
}
