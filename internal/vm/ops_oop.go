package vm

import (
	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// constName resolves inst's nameIdx'th argument against f's constant pool,
// raising if it is out of range or not a string. Shared by every opcode that
// names a property/method/class through the constant pool.
func (it *Interpreter) constName(f *callFrame, nameIdx int32, op string) string {
	consts := f.proto().Constants
	if int(nameIdx) < 0 || int(nameIdx) >= len(consts) || !consts[nameIdx].IsString() {
		it.raise("%s: name must be a string constant", op)
	}
	return consts[nameIdx].AsString()
}

// opNewClass handles NEW_CLASS: [dst, nameConst]. Grounded on oop.cpp's
// opNewClass.
func (it *Interpreter) opNewClass(f *callFrame, inst value.Instruction) {
	dst, nameIdx := inst.Args[0], inst.Args[1]
	name := it.constName(f, nameIdx, "NEW_CLASS")
	klass := heap.NewObject(it.h, value.NewClass(name))
	it.setReg(f, dst, value.Obj(klass))
}

// opNewInstance handles NEW_INSTANCE: [dst, classReg]. Grounded on oop.cpp's
// opNewInstance.
func (it *Interpreter) opNewInstance(f *callFrame, inst value.Instruction) {
	dst, classReg := inst.Args[0], inst.Args[1]
	cls := it.reg(f, classReg)
	if !cls.IsClass() {
		it.raise("NEW_INSTANCE on a non-class value of type '%s'", cls.TypeName())
	}
	inst2 := heap.NewObject(it.h, value.NewInstance(cls.AsClass()))
	it.setReg(f, dst, value.Obj(inst2))
}

// opGetProp handles GET_PROP: [dst, objReg, nameConst]. An instance's own
// fields are checked first; anything else (including an instance field
// miss) falls through to the general property resolver, defaulting to null.
// Grounded on oop.cpp's opGetProp.
func (it *Interpreter) opGetProp(f *callFrame, inst value.Instruction) {
	dst, objReg, nameIdx := inst.Args[0], inst.Args[1], inst.Args[2]
	name := it.constName(f, nameIdx, "GET_PROP")
	obj := it.reg(f, objReg)

	if obj.IsInstance() {
		if v, ok := obj.AsInstance().Fields[name]; ok {
			it.setReg(f, dst, v)
			return
		}
	}
	if v, ok := it.getMagicMethod(obj, name); ok {
		it.setReg(f, dst, v)
		return
	}
	it.setReg(f, dst, value.Null)
}

// opSetProp handles SET_PROP: [objReg, nameConst, valReg]. __setprop__ wins
// first, then a direct write on instance/object fields or class methods.
// Grounded on oop.cpp's opSetProp.
func (it *Interpreter) opSetProp(f *callFrame, inst value.Instruction) {
	objReg, nameIdx, valReg := inst.Args[0], inst.Args[1], inst.Args[2]
	name := it.constName(f, nameIdx, "SET_PROP")
	obj := it.reg(f, objReg)
	val := it.reg(f, valReg)

	if mm, ok := it.getMagicMethod(obj, "__setprop__"); ok {
		it.Call(mm, []value.Value{value.Str(name), val})
		return
	}

	switch {
	case obj.IsInstance():
		obj.AsInstance().Fields[name] = val
	case obj.IsObject():
		obj.AsObject().Fields[name] = val
	case obj.IsClass():
		if !val.IsClosure() && !val.IsBoundMethod() {
			it.raise("method must be a closure")
		}
		obj.AsClass().Methods[name] = val
	default:
		it.raise("SET_PROP not supported on type '%s'", obj.TypeName())
	}
}

// opSetMethod handles SET_METHOD: [classReg, nameConst, methodReg]. Grounded
// on oop.cpp's opSetMethod.
func (it *Interpreter) opSetMethod(f *callFrame, inst value.Instruction) {
	classReg, nameIdx, methodReg := inst.Args[0], inst.Args[1], inst.Args[2]
	cls := it.reg(f, classReg)
	if !cls.IsClass() {
		it.raise("SET_METHOD target must be a class")
	}
	name := it.constName(f, nameIdx, "SET_METHOD")
	method := it.reg(f, methodReg)
	if !method.IsClosure() {
		it.raise("method value must be a closure")
	}
	cls.AsClass().Methods[name] = method
}

// opInherit handles INHERIT: [subClassReg, superClassReg]. Copies every
// superclass method not already overridden in the subclass and records the
// superclass link. Grounded on oop.cpp's opInherit.
func (it *Interpreter) opInherit(f *callFrame, inst value.Instruction) {
	subReg, superReg := inst.Args[0], inst.Args[1]
	sub, super := it.reg(f, subReg), it.reg(f, superReg)
	if !sub.IsClass() || !super.IsClass() {
		it.raise("both operands of INHERIT must be classes")
	}
	subClass, superClass := sub.AsClass(), super.AsClass()
	subClass.Superclass = superClass
	for name, m := range superClass.Methods {
		if _, ok := subClass.Methods[name]; !ok {
			subClass.Methods[name] = m
		}
	}
}

// opGetSuper handles GET_SUPER: [dst, nameConst]. The receiver is always
// register 0 of the current frame (the calling convention for an instance
// method). Grounded on oop.cpp's opGetSuper.
func (it *Interpreter) opGetSuper(f *callFrame, inst value.Instruction) {
	dst, nameIdx := inst.Args[0], inst.Args[1]
	name := it.constName(f, nameIdx, "GET_SUPER")

	receiver := it.reg(f, 0)
	if !receiver.IsInstance() {
		it.raise("'super' can only be used inside a method")
	}
	inst2 := receiver.AsInstance()
	super := inst2.Class.Superclass
	if super == nil {
		it.raise("class '%s' has no superclass", inst2.Class.Name)
	}
	method, ok := super.Methods[name]
	if !ok {
		it.raise("superclass '%s' has no method named '%s'", super.Name, name)
	}
	if !method.IsClosure() {
		it.raise("superclass method '%s' is not a callable closure", name)
	}
	bound := heap.NewObject(it.h, &value.BoundMethod{Receiver: inst2, Callable: method.AsClosure()})
	it.setReg(f, dst, value.Obj(bound))
}
