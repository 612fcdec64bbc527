package loader

import (
	"fmt"
	"strings"

	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// Disassemble renders proto's bytecode in the "<index>: OPCODE args=[...]"
// shape used by diagnostic dumps, grounded on the original's
// _toString(Proto) in helper_functions.cpp (same column layout, same
// right-aligned index / left-aligned mnemonic / bracketed argument list).
func Disassemble(proto *value.FunctionProto) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<function proto %q>\n", proto.SourceName)
	fmt.Fprintf(&b, "  registers=%d upvalues=%d constants=%d code=%d\n",
		proto.NumRegisters, proto.NumUpvalues, len(proto.Constants), len(proto.Code))

	if len(proto.Code) == 0 {
		return b.String()
	}

	opField := 10
	for _, inst := range proto.Code {
		if n := len(opcode.Code(inst.Op).String()) + 2; n > opField {
			opField = n
		}
	}

	for i, inst := range proto.Code {
		mnemonic := opcode.Code(inst.Op).String()
		fmt.Fprintf(&b, "  %4d: %-*s args=[", i, opField, mnemonic)
		for a, arg := range inst.Args {
			if a > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%d", arg)
		}
		b.WriteString("]\n")
	}
	return b.String()
}

// DisassembleConstants renders proto's constant pool for a debug dump, one
// entry per line, using value.DebugString so composite constants (nested
// prototypes, in particular) render compactly rather than recursively.
func DisassembleConstants(proto *value.FunctionProto) string {
	if len(proto.Constants) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range proto.Constants {
		fmt.Fprintf(&b, "  [%d] %s\n", i, c.DebugString())
	}
	return b.String()
}
