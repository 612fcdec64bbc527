package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// Binary constant-pool type tags, fixed by the wire format.
const (
	binNull     = 0
	binInt      = 1
	binReal     = 2
	binBool     = 3
	binString   = 4
	binProtoRef = 5
)

// ParseBinary reads a compiled module from r and links it into a set of
// prototypes keyed by name, including the leading "@" of the name each
// proto was compiled under — matching ParseText's keying so callers never
// need to care which loader produced a module.
func ParseBinary(h *heap.Heap, r io.Reader) (map[string]*value.FunctionProto, error) {
	br := &binReader{r: bufio.NewReader(r)}

	count, err := br.readInt()
	if err != nil {
		return nil, fmt.Errorf("binary module: reading proto count: %w", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("binary module: negative proto count %d", count)
	}

	protos := make(map[string]*value.FunctionProto, count)
	order := make([]*value.FunctionProto, 0, count)
	refs := make([]pendingRef, 0)

	for p := int64(0); p < count; p++ {
		proto, protoRefs, err := br.readProto(h)
		if err != nil {
			return nil, fmt.Errorf("binary module: proto %d: %w", p, err)
		}
		protos[proto.SourceName] = proto
		order = append(order, proto)
		refs = append(refs, protoRefs...)
	}

	for _, ref := range refs {
		target, ok := protos[ref.name]
		if !ok {
			return nil, fmt.Errorf("binary module: unresolved prototype reference %q", ref.name)
		}
		ref.proto.Constants[ref.constIndex] = value.Obj(target)
	}

	return protos, nil
}

type pendingRef struct {
	proto      *value.FunctionProto
	constIndex int
	name       string
}

type binReader struct {
	r *bufio.Reader
}

func (b *binReader) readInt() (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func (b *binReader) readFloat() (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

func (b *binReader) readByte() (byte, error) {
	return b.r.ReadByte()
}

func (b *binReader) readString() (string, error) {
	n, err := b.readInt()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("negative string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (b *binReader) readProto(h *heap.Heap) (*value.FunctionProto, []pendingRef, error) {
	name, err := b.readString()
	if err != nil {
		return nil, nil, fmt.Errorf("name: %w", err)
	}
	numRegisters, err := b.readInt()
	if err != nil {
		return nil, nil, fmt.Errorf("numRegisters: %w", err)
	}
	numUpvalues, err := b.readInt()
	if err != nil {
		return nil, nil, fmt.Errorf("numUpvalues: %w", err)
	}

	proto := &value.FunctionProto{
		SourceName:   name,
		NumRegisters: int(numRegisters),
		NumUpvalues:  int(numUpvalues),
	}

	numConstants, err := b.readInt()
	if err != nil {
		return nil, nil, fmt.Errorf("numConstants: %w", err)
	}
	var refs []pendingRef
	proto.Constants = make([]value.Value, numConstants)
	for i := int64(0); i < numConstants; i++ {
		tag, err := b.readInt()
		if err != nil {
			return nil, nil, fmt.Errorf("constant %d tag: %w", i, err)
		}
		switch tag {
		case binNull:
			proto.Constants[i] = value.Null
		case binInt:
			v, err := b.readInt()
			if err != nil {
				return nil, nil, fmt.Errorf("constant %d int: %w", i, err)
			}
			proto.Constants[i] = value.Int(v)
		case binReal:
			v, err := b.readFloat()
			if err != nil {
				return nil, nil, fmt.Errorf("constant %d real: %w", i, err)
			}
			proto.Constants[i] = value.Real(v)
		case binBool:
			v, err := b.readByte()
			if err != nil {
				return nil, nil, fmt.Errorf("constant %d bool: %w", i, err)
			}
			proto.Constants[i] = value.Bool(v != 0)
		case binString:
			s, err := b.readString()
			if err != nil {
				return nil, nil, fmt.Errorf("constant %d string: %w", i, err)
			}
			proto.Constants[i] = value.Str(s)
		case binProtoRef:
			s, err := b.readString()
			if err != nil {
				return nil, nil, fmt.Errorf("constant %d proto-ref: %w", i, err)
			}
			// The payload is "@name"; the proto map is keyed the same
			// way a .func directive names itself, so the "@" is part
			// of the lookup key rather than stripped.
			refs = append(refs, pendingRef{proto: proto, constIndex: int(i), name: s})
		default:
			return nil, nil, fmt.Errorf("constant %d: unknown type tag %d", i, tag)
		}
	}

	numUpvalueDescs, err := b.readInt()
	if err != nil {
		return nil, nil, fmt.Errorf("numUpvalueDescs: %w", err)
	}
	proto.UpvalueDescs = make([]value.UpvalueDesc, numUpvalueDescs)
	for i := int64(0); i < numUpvalueDescs; i++ {
		isLocal, err := b.readByte()
		if err != nil {
			return nil, nil, fmt.Errorf("upvalueDesc %d isLocal: %w", i, err)
		}
		index, err := b.readInt()
		if err != nil {
			return nil, nil, fmt.Errorf("upvalueDesc %d index: %w", i, err)
		}
		proto.UpvalueDescs[i] = value.UpvalueDesc{IsLocal: isLocal != 0, Index: int32(index)}
	}

	numInstructions, err := b.readInt()
	if err != nil {
		return nil, nil, fmt.Errorf("numInstructions: %w", err)
	}
	proto.Code = make([]value.Instruction, numInstructions)
	for i := int64(0); i < numInstructions; i++ {
		opVal, err := b.readInt()
		if err != nil {
			return nil, nil, fmt.Errorf("instruction %d opcode: %w", i, err)
		}
		op := opcode.Code(opVal)
		if !op.Valid() {
			return nil, nil, fmt.Errorf("instruction %d: invalid opcode %d", i, opVal)
		}
		numArgs, err := b.readInt()
		if err != nil {
			return nil, nil, fmt.Errorf("instruction %d numArgs: %w", i, err)
		}
		args := make([]int32, numArgs)
		for a := int64(0); a < numArgs; a++ {
			v, err := b.readInt()
			if err != nil {
				return nil, nil, fmt.Errorf("instruction %d arg %d: %w", i, a, err)
			}
			args[a] = int32(v)
		}
		proto.Code[i] = value.Instruction{Op: uint8(op), Args: args}
	}

	heap.NewObject(h, proto)
	return proto, refs, nil
}

// A binary encoder is intentionally not implemented: nothing in this module
// ever produces a compiled module from a running interpreter, only consumes
// one, so there is no call site that would exercise it.
