package vm

import (
	"sort"

	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// maxArrayIndex bounds SET_INDEX auto-growth: an index beyond it is a
// runtime error rather than an unbounded allocation. Grounded on
// data_struct.cpp's opSetIndex (`idx > 10000000`).
const maxArrayIndex = 10000000

// opNewAggregate handles NEW_ARRAY and NEW_HASH: [dst, start, count].
// NEW_ARRAY copies count contiguous registers verbatim; NEW_HASH reads count
// key/value pairs (2*count registers) and stringifies each key. Grounded on
// data_struct.cpp's opNewArray/opNewHash.
func (it *Interpreter) opNewAggregate(f *callFrame, op opcode.Code, inst value.Instruction) {
	dst, start, count := inst.Args[0], inst.Args[1], inst.Args[2]
	if count < 0 || start < 0 {
		it.raise("%s: invalid range", op)
	}

	switch op {
	case opcode.NEW_ARRAY:
		elems := make([]value.Value, count)
		for i := int32(0); i < count; i++ {
			elems[i] = it.reg(f, start+i)
		}
		arr := heap.NewObject(it.h, &value.Array{Elements: elems})
		it.setReg(f, dst, value.Obj(arr))
	case opcode.NEW_HASH:
		obj := heap.NewObject(it.h, value.NewObject())
		for i := int32(0); i < count; i++ {
			key := it.reg(f, start+i*2)
			val := it.reg(f, start+i*2+1)
			obj.Fields[it.Stringify(key)] = val
		}
		it.setReg(f, dst, value.Obj(obj))
	}
}

// opGetIndex handles GET_INDEX: [dst, srcReg, keyReg]. Magic method
// __getindex__ always wins first; an integer key then indexes
// array/string/object directly and is a runtime error on any other type; a
// non-integer key falls through to __getprop__ then the general property
// resolver, defaulting to null. Grounded on data_struct.cpp's opGetIndex.
func (it *Interpreter) opGetIndex(f *callFrame, inst value.Instruction) {
	dst, srcReg, keyReg := inst.Args[0], inst.Args[1], inst.Args[2]
	src := it.reg(f, srcReg)
	key := it.reg(f, keyReg)

	if mm, ok := it.getMagicMethod(src, "__getindex__"); ok {
		it.setReg(f, dst, it.Call(mm, []value.Value{key}))
		return
	}

	if key.IsInt() {
		idx := key.AsInt()
		switch {
		case src.IsArray():
			elems := src.AsArray().Elements
			if idx < 0 || idx >= int64(len(elems)) {
				it.raise("index out of range: '%d' (array has %d elements)", idx, len(elems))
			}
			it.setReg(f, dst, elems[idx])
		case src.IsString():
			s := src.AsString()
			if idx < 0 || idx >= int64(len(s)) {
				it.raise("index out of range: '%d' (string has %d bytes)", idx, len(s))
			}
			it.setReg(f, dst, value.Str(string(s[idx])))
		case src.IsObject():
			fields := src.AsObject().Fields
			if v, ok := fields[it.Stringify(key)]; ok {
				it.setReg(f, dst, v)
			} else {
				it.setReg(f, dst, value.Null)
			}
		default:
			it.raise("numeric index not supported on type '%s'", src.TypeName())
		}
		return
	}

	keyName := it.keyString(key)

	if mm, ok := it.getMagicMethod(src, "__getprop__"); ok {
		it.setReg(f, dst, it.Call(mm, []value.Value{value.Str(keyName)}))
		return
	}
	if mm, ok := it.getMagicMethod(src, keyName); ok {
		it.setReg(f, dst, mm)
		return
	}
	it.setReg(f, dst, value.Null)
}

// opSetIndex handles SET_INDEX: [srcReg, keyReg, valReg]. Symmetric with
// GET_INDEX: __setindex__ wins first, then integer-key array/string/object
// writes (arrays auto-grow up to maxArrayIndex, string writes require a
// non-empty string value and an in-range index), then __setprop__, then a
// direct field/method write on instance/object/class. Grounded on
// data_struct.cpp's opSetIndex.
func (it *Interpreter) opSetIndex(f *callFrame, inst value.Instruction) {
	srcReg, keyReg, valReg := inst.Args[0], inst.Args[1], inst.Args[2]
	src := it.reg(f, srcReg)
	key := it.reg(f, keyReg)
	val := it.reg(f, valReg)

	if mm, ok := it.getMagicMethod(src, "__setindex__"); ok {
		it.Call(mm, []value.Value{key, val})
		return
	}

	if key.IsInt() {
		idx := key.AsInt()
		switch {
		case src.IsArray():
			if idx < 0 {
				it.raise("invalid index %d", idx)
			}
			arr := src.AsArray()
			if idx >= int64(len(arr.Elements)) {
				if idx > maxArrayIndex {
					it.raise("index too large: %d", idx)
				}
				grown := make([]value.Value, idx+1)
				copy(grown, arr.Elements)
				for i := len(arr.Elements); i < len(grown); i++ {
					grown[i] = value.Null
				}
				arr.Elements = grown
			}
			arr.Elements[idx] = val
		case src.IsString():
			if !val.IsString() || val.AsString() == "" {
				it.raise("string assignment must be a non-empty string")
			}
			s := src.AsString()
			if idx < 0 || idx >= int64(len(s)) {
				it.raise("index out of range: '%d' (string has %d bytes)", idx, len(s))
			}
			it.setStringByte(f, srcReg, int(idx), val.AsString()[0])
		case src.IsObject():
			src.AsObject().Fields[it.Stringify(key)] = val
		default:
			it.raise("numeric index not supported on type '%s'", src.TypeName())
		}
		return
	}

	keyName := it.keyString(key)

	if mm, ok := it.getMagicMethod(src, "__setprop__"); ok {
		it.Call(mm, []value.Value{value.Str(keyName), val})
		return
	}

	switch {
	case src.IsInstance():
		src.AsInstance().Fields[keyName] = val
	case src.IsObject():
		src.AsObject().Fields[keyName] = val
	case src.IsClass():
		if !val.IsClosure() && !val.IsBoundMethod() {
			it.raise("method must be a closure")
		}
		src.AsClass().Methods[keyName] = val
	default:
		it.raise("SET_INDEX not supported on type '%s'", src.TypeName())
	}
}

// opKeysValues handles GET_KEYS and GET_VALUES: [dst, srcReg]. Keys/values
// of an Instance or Object are emitted in sorted-key order (the original
// iterates an ordered std::map); an Array yields its integer indices;
// a String yields byte positions (GET_KEYS) or one-byte strings
// (GET_VALUES). Any other receiver yields an empty array. Grounded on
// data_struct.cpp's opGetKeys/opGetValues.
func (it *Interpreter) opKeysValues(f *callFrame, op opcode.Code, inst value.Instruction) {
	dst, srcReg := inst.Args[0], inst.Args[1]
	src := it.reg(f, srcReg)

	var out []value.Value
	switch {
	case src.IsInstance():
		out = fieldsInOrder(src.AsInstance().Fields, op == opcode.GET_KEYS)
	case src.IsObject():
		out = fieldsInOrder(src.AsObject().Fields, op == opcode.GET_KEYS)
	case src.IsArray():
		elems := src.AsArray().Elements
		out = make([]value.Value, len(elems))
		for i := range elems {
			if op == opcode.GET_KEYS {
				out[i] = value.Int(int64(i))
			} else {
				out[i] = elems[i]
			}
		}
	case src.IsString():
		s := src.AsString()
		out = make([]value.Value, len(s))
		for i := 0; i < len(s); i++ {
			if op == opcode.GET_KEYS {
				out[i] = value.Int(int64(i))
			} else {
				out[i] = value.Str(string(s[i]))
			}
		}
	default:
		out = nil
	}

	arr := heap.NewObject(it.h, &value.Array{Elements: out})
	it.setReg(f, dst, value.Obj(arr))
}

// keyString renders a non-integer index/property key as the field name to
// use: a string key is used verbatim, anything else is stringified.
func (it *Interpreter) keyString(key value.Value) string {
	if key.IsString() {
		return key.AsString()
	}
	return it.Stringify(key)
}

// setStringByte rewrites register reg with a new string equal to its
// current value with byte idx replaced by b. Go strings are immutable, so
// unlike the original's in-place std::string byte write, this only updates
// the one register the instruction names — other registers or fields that
// happen to hold a copy of the same string value keep the old bytes. A
// script only ever has one live binding to a string it is mutating through
// SET_INDEX (the idiom is `s[i] = c`, acting on s's own slot), so this
// matches observable behavior for that case.
func (it *Interpreter) setStringByte(f *callFrame, reg int32, idx int, b byte) {
	buf := []byte(it.reg(f, reg).AsString())
	buf[idx] = b
	it.setReg(f, reg, value.Str(string(buf)))
}

func fieldsInOrder(fields map[string]value.Value, keys bool) []value.Value {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]value.Value, len(names))
	for i, name := range names {
		if keys {
			out[i] = value.Str(name)
		} else {
			out[i] = fields[name]
		}
	}
	return out
}
