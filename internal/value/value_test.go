package value

import "testing"

func TestScalarConstructorsAndPredicates(t *testing.T) {
	if !Int(5).IsInt() || Int(5).AsInt() != 5 {
		t.Error("Int constructor/predicate/accessor mismatch")
	}
	if !Real(1.5).IsReal() || Real(1.5).AsReal() != 1.5 {
		t.Error("Real constructor/predicate/accessor mismatch")
	}
	if !Bool(true).IsBool() || !Bool(true).AsBool() {
		t.Error("Bool constructor/predicate/accessor mismatch")
	}
	if !Str("hi").IsString() || Str("hi").AsString() != "hi" {
		t.Error("Str constructor/predicate/accessor mismatch")
	}
	if !Null.IsNull() {
		t.Error("Null should report IsNull")
	}
}

func TestAsWrongTagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected AsInt on a string Value to panic")
		}
	}()
	Str("x").AsInt()
}

func TestObjTagsByConcreteType(t *testing.T) {
	arr := &Array{}
	v := Obj(arr)
	if !v.IsArray() || v.AsArray() != arr {
		t.Error("Obj(*Array) should tag as TagArray and round-trip the pointer")
	}

	obj := NewObject()
	v = Obj(obj)
	if !v.IsObject() || v.AsObject() != obj {
		t.Error("Obj(*Object) should tag as TagObject and round-trip the pointer")
	}
}

func TestObjPanicsOnUnrecognizedType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected Obj of an unrecognized HeapObject to panic")
		}
	}()
	Obj(nativeBox{})
}

func TestHeapObjExcludesNatives(t *testing.T) {
	nativeVal := Native(NativeFn{Simple: func(args []Value) Value { return Null }})
	if _, ok := nativeVal.HeapObj(); ok {
		t.Error("a native function should not report a traceable HeapObject")
	}

	arr := &Array{}
	obj, ok := Obj(arr).HeapObj()
	if !ok || obj != HeapObject(arr) {
		t.Error("Obj(*Array).HeapObj() should return the underlying array")
	}

	if _, ok := Null.HeapObj(); ok {
		t.Error("Null should not report a traceable HeapObject")
	}
}
