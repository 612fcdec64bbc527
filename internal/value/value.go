// Package value implements the Meow tagged-union value model: the scalar
// variants carried inline and the heap-object variants carried by pointer.
// It mirrors original_source/include/common/value.h's BaseValue variant and
// definitions.h's Obj* structs, reshaped as a Go tagged union plus a family
// of pointer-identified struct types.
package value

import "fmt"

// Tag identifies which alternative of Value is populated.
type Tag uint8

const (
	TagNull Tag = iota
	TagInt
	TagReal
	TagBool
	TagString
	TagArray
	TagObject
	TagClass
	TagInstance
	TagClosure
	TagBoundMethod
	TagProto
	TagUpvalue
	TagModule
	TagNative
)

// Value is the tagged union every register, constant and field holds.
//
// Scalars (Int, Real, Bool, String) are stored inline; every other variant
// is a pointer to a heap-owned object. The zero Value is Null.
type Value struct {
	tag   Tag
	i     int64
	f     float64
	b     bool
	s     string
	heapv HeapObject
}

// HeapObject is implemented by every heap-owned variant the GC traces:
// Array, Object, Class, Instance, Closure, BoundMethod, FunctionProto,
// Upvalue, Module. It is the Go analogue of MeowObject in meow_object.h.
type HeapObject interface {
	Trace(v Visitor)
}

// Visitor is implemented by the garbage collector; objects call back into
// it from Trace to mark the values/objects they reference. Mirrors
// GCVisitor in meow_object.h.
type Visitor interface {
	VisitValue(Value)
	VisitObject(HeapObject)
}

// Null is the singleton null value.
var Null = Value{tag: TagNull}

func Int(i int64) Value    { return Value{tag: TagInt, i: i} }
func Real(f float64) Value { return Value{tag: TagReal, f: f} }
func Bool(b bool) Value    { return Value{tag: TagBool, b: b} }
func Str(s string) Value   { return Value{tag: TagString, s: s} }

// Native wraps a native function as a first-class Value. NativeFn itself is
// not a HeapObject (it is never traced: natives only ever close over heap
// objects that are also reachable from some other root by the time they
// matter, matching the original's std::function-based NativeFn which the
// GC never traces either).
func Native(fn NativeFn) Value { return Value{tag: TagNative, heapv: nativeBox{fn}} }

// Obj wraps any heap object into a Value, tagging it according to its
// concrete type. Panics on an unrecognized type — every HeapObject the
// runtime creates must be one of the listed variants.
func Obj(obj HeapObject) Value {
	switch o := obj.(type) {
	case *Array:
		return Value{tag: TagArray, heapv: o}
	case *Object:
		return Value{tag: TagObject, heapv: o}
	case *Class:
		return Value{tag: TagClass, heapv: o}
	case *Instance:
		return Value{tag: TagInstance, heapv: o}
	case *Closure:
		return Value{tag: TagClosure, heapv: o}
	case *BoundMethod:
		return Value{tag: TagBoundMethod, heapv: o}
	case *FunctionProto:
		return Value{tag: TagProto, heapv: o}
	case *Upvalue:
		return Value{tag: TagUpvalue, heapv: o}
	case *Module:
		return Value{tag: TagModule, heapv: o}
	default:
		panic(fmt.Sprintf("value.Obj: unrecognized heap object %T", obj))
	}
}

func (v Value) Tag() Tag { return v.tag }

func (v Value) IsNull() bool   { return v.tag == TagNull }
func (v Value) IsInt() bool    { return v.tag == TagInt }
func (v Value) IsReal() bool   { return v.tag == TagReal }
func (v Value) IsBool() bool   { return v.tag == TagBool }
func (v Value) IsString() bool { return v.tag == TagString }
func (v Value) IsArray() bool  { return v.tag == TagArray }
func (v Value) IsObject() bool { return v.tag == TagObject }
func (v Value) IsClass() bool  { return v.tag == TagClass }
func (v Value) IsInstance() bool    { return v.tag == TagInstance }
func (v Value) IsClosure() bool     { return v.tag == TagClosure }
func (v Value) IsBoundMethod() bool { return v.tag == TagBoundMethod }
func (v Value) IsProto() bool       { return v.tag == TagProto }
func (v Value) IsUpvalue() bool     { return v.tag == TagUpvalue }
func (v Value) IsModule() bool      { return v.tag == TagModule }
func (v Value) IsNative() bool      { return v.tag == TagNative }

// AsInt, AsReal, AsBool, AsString panic if the tag does not match; callers
// must check the tag (or use the opcode's own pre-validated path) first,
// mirroring the original's std::get<T> which throws on a bad variant access.
func (v Value) AsInt() int64    { v.expect(TagInt); return v.i }
func (v Value) AsReal() float64 { v.expect(TagReal); return v.f }
func (v Value) AsBool() bool    { v.expect(TagBool); return v.b }
func (v Value) AsString() string {
	v.expect(TagString)
	return v.s
}

func (v Value) expect(t Tag) {
	if v.tag != t {
		panic(fmt.Sprintf("value: expected tag %d, found %d", t, v.tag))
	}
}

func (v Value) AsArray() *Array             { return v.heapv.(*Array) }
func (v Value) AsObject() *Object           { return v.heapv.(*Object) }
func (v Value) AsClass() *Class             { return v.heapv.(*Class) }
func (v Value) AsInstance() *Instance       { return v.heapv.(*Instance) }
func (v Value) AsClosure() *Closure         { return v.heapv.(*Closure) }
func (v Value) AsBoundMethod() *BoundMethod { return v.heapv.(*BoundMethod) }
func (v Value) AsProto() *FunctionProto     { return v.heapv.(*FunctionProto) }
func (v Value) AsUpvalue() *Upvalue         { return v.heapv.(*Upvalue) }
func (v Value) AsModule() *Module           { return v.heapv.(*Module) }
func (v Value) AsNative() NativeFn          { return v.heapv.(nativeBox).fn }

// HeapObj returns the underlying heap object and whether the value carries
// one at all, without caring which concrete variant it is — used by the GC
// root walk and by code that merely needs to mark/trace a value.
func (v Value) HeapObj() (HeapObject, bool) {
	if v.heapv == nil {
		return nil, false
	}
	if _, isNative := v.heapv.(nativeBox); isNative {
		return nil, false
	}
	return v.heapv, true
}

// nativeBox lets a NativeFn ride inside the heapv slot without satisfying
// HeapObject in a way the GC would try to trace (natives are not owned by
// the heap and are never collected).
type nativeBox struct{ fn NativeFn }

func (nativeBox) Trace(Visitor) {}
