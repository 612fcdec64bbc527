package vm

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// diagnosticWindow is how many instructions on either side of the faulting
// one are shown in the bytecode excerpt.
const diagnosticWindow = 5

// diagnostic renders a fully structured runtime fault report: the faulting
// source and instruction, a ±5 instruction window around it, a preview of
// the active prototype's constant pool, the call stack (most recent call
// first), a snapshot of the top of the operand stack, every open upvalue,
// and every still-active exception handler. Grounded on
// helper_functions.cpp's throwVMError, rendered with the column-aligned,
// colorized idiom of feedback/message.go rather than throwVMError's
// ostringstream formatting.
func (it *Interpreter) diagnostic(f *callFrame, inst value.Instruction, msg string) error {
	redBold := color.New(color.FgRed, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", redBold("runtime error:"), msg)

	if f == nil {
		b.WriteString("  (no active frame)\n")
		return fmt.Errorf("%s", b.String())
	}

	proto := f.proto()
	errIdx := int(f.IP) - 1
	if errIdx < 0 {
		errIdx = 0
	}

	fmt.Fprintf(&b, "  %s %s\n", blue("source:"), proto.SourceName)
	fmt.Fprintf(&b, "  %s %d\n", blue("instruction index:"), errIdx)
	if errIdx >= 0 && errIdx < len(proto.Code) {
		fmt.Fprintf(&b, "  %s %s\n\n", blue("opcode:"), opcodeName(proto.Code[errIdx]))
	} else {
		fmt.Fprintf(&b, "  %s <out of range>\n\n", blue("opcode:"))
	}

	writeBytecodeWindow(&b, proto, errIdx)
	writeConstantPool(&b, proto)

	b.WriteString("\n  call stack (most recent first):\n")
	if len(it.callStack) == 0 {
		b.WriteString("    <empty>\n")
	} else {
		for i := len(it.callStack) - 1; i >= 0; i-- {
			frame := it.callStack[i]
			depth := len(it.callStack) - 1 - i
			src := "<native>"
			if frame.Closure != nil && frame.Closure.Proto != nil {
				src = frame.Closure.Proto.SourceName
			}
			fmt.Fprintf(&b, "    #%d %s  ip=%d  slotStart=%d  retSlot=%d\n",
				depth, src, frame.IP, frame.SlotStart, frame.RetSlot)
		}
	}

	b.WriteString("\n  operand stack (top of window):\n")
	writeStackSnapshot(&b, it.stack, f.SlotStart)

	fmt.Fprintf(&b, "\n  open upvalues (%d):\n", len(it.upvalues))
	if len(it.upvalues) == 0 {
		b.WriteString("    <none>\n")
	} else {
		for i, uv := range it.upvalues {
			state := "open"
			val := "<live slot>"
			if uv.Closed {
				state = "closed"
				val = uv.Value.DebugString()
			}
			fmt.Fprintf(&b, "    [%d]: slotIndex=%d state=%s value=%s\n", i, uv.SlotIndex, state, val)
		}
	}

	fmt.Fprintf(&b, "\n  exception handlers (%d):\n", len(it.handlers))
	if len(it.handlers) == 0 {
		b.WriteString("    <none>\n")
	} else {
		for i, h := range it.handlers {
			fmt.Fprintf(&b, "    [%d] catchIp=%d frameDepth=%d stackDepth=%d errorReg=%d\n",
				i, h.CatchIP, h.FrameDepth, h.StackDepth, h.ErrorReg)
		}
	}

	return fmt.Errorf("%s", b.String())
}

func opcodeName(inst value.Instruction) string {
	return codeName(inst.Op)
}

func codeName(op uint8) string {
	return opcode.Code(op).String()
}

func writeBytecodeWindow(b *strings.Builder, proto *value.FunctionProto, errIdx int) {
	blue := color.New(color.FgBlue).SprintFunc()
	codeSize := len(proto.Code)
	if codeSize == 0 {
		fmt.Fprintf(b, "  %s\n", blue("(empty bytecode)"))
		return
	}

	start := errIdx - diagnosticWindow
	if start < 0 {
		start = 0
	}
	end := errIdx + diagnosticWindow
	if end > codeSize-1 {
		end = codeSize - 1
	}

	maxOpLen := 0
	for i := start; i <= end; i++ {
		if l := len(codeName(proto.Code[i].Op)); l > maxOpLen {
			maxOpLen = l
		}
	}
	opField := maxOpLen + 2
	if opField < 10 {
		opField = 10
	}

	fmt.Fprintf(b, "  %s (+/-%d):\n", blue("bytecode window"), diagnosticWindow)
	for i := start; i <= end; i++ {
		instr := proto.Code[i]
		prefix := "     "
		if i == errIdx {
			prefix = "  >> "
		}
		name := codeName(instr.Op)
		fmt.Fprintf(b, "%s%4d: %-*s args=%v", prefix, i, opField, name, instr.Args)
		if i == errIdx {
			b.WriteString("    <-- fault")
		}
		b.WriteString("\n")
	}
}

func writeConstantPool(b *strings.Builder, proto *value.FunctionProto) {
	if len(proto.Constants) == 0 {
		return
	}
	blue := color.New(color.FgBlue).SprintFunc()
	b.WriteString("\n  " + blue("constant pool (preview up to 10):") + "\n")
	maxShow := len(proto.Constants)
	if maxShow > 10 {
		maxShow = 10
	}
	for i := 0; i < maxShow; i++ {
		fmt.Fprintf(b, "    [%d]: %s\n", i, proto.Constants[i].DebugString())
	}
}

func writeStackSnapshot(b *strings.Builder, stack []value.Value, base int) {
	const around = 8
	if len(stack) == 0 {
		b.WriteString("    <empty>\n")
		return
	}
	start := base
	if start < 0 {
		start = 0
	}
	if start > len(stack) {
		start = len(stack)
	}
	end := start + around
	if end > len(stack) {
		end = len(stack)
	}
	for i := start; i < end; i++ {
		prefix := "    "
		if i == base {
			prefix = "  >> "
		}
		fmt.Fprintf(b, "%s%4d: %s\n", prefix, i, stack[i].DebugString())
	}
	if end < len(stack) {
		b.WriteString("    ...\n")
		topCount := 3
		if len(stack) < topCount {
			topCount = len(stack)
		}
		for i := len(stack) - topCount; i < len(stack); i++ {
			fmt.Fprintf(b, "    (top) %4d: %s\n", i, stack[i].DebugString())
		}
	}
}
