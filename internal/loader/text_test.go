package loader

import (
	"strings"
	"testing"

	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
)

func TestParseTextBasicFunction(t *testing.T) {
	src := `
.func @main
.registers 3
.const "hello"
LOAD_CONST 0 0
LOAD_INT 1 42
ADD 2 0 1
RETURN 2
.endfunc
`
	protos, err := ParseText(heap.New(), src, "test.meow")
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	main, ok := protos["@main"]
	if !ok {
		t.Fatal("expected @main prototype")
	}
	if main.NumRegisters != 3 {
		t.Errorf("NumRegisters = %d, want 3", main.NumRegisters)
	}
	if len(main.Code) != 4 {
		t.Fatalf("len(Code) = %d, want 4", len(main.Code))
	}
	if opcode.Code(main.Code[0].Op) != opcode.LOAD_CONST {
		t.Errorf("instruction 0 = %s, want LOAD_CONST", opcode.Code(main.Code[0].Op))
	}
	if len(main.Constants) != 1 || main.Constants[0].AsString() != "hello" {
		t.Errorf("constants = %v, want [\"hello\"]", main.Constants)
	}
}

func TestParseTextLabelResolution(t *testing.T) {
	src := `
.func @main
.registers 1
loop:
LOAD_TRUE 0
JUMP loop
RETURN 0
.endfunc
`
	protos, err := ParseText(heap.New(), src, "test.meow")
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	main := protos["@main"]
	jump := main.Code[1]
	if opcode.Code(jump.Op) != opcode.JUMP {
		t.Fatalf("instruction 1 = %s, want JUMP", opcode.Code(jump.Op))
	}
	if jump.Args[0] != 0 {
		t.Errorf("JUMP target = %d, want 0 (the loop: label)", jump.Args[0])
	}
}

func TestParseTextUnknownLabelFails(t *testing.T) {
	src := `
.func @main
.registers 1
JUMP nowhere
.endfunc
`
	if _, err := ParseText(heap.New(), src, "test.meow"); err == nil {
		t.Fatal("expected an error for a jump to an undefined label")
	}
}

func TestParseTextUnclosedFuncFails(t *testing.T) {
	src := `
.func @main
.registers 1
`
	if _, err := ParseText(heap.New(), src, "test.meow"); err == nil {
		t.Fatal("expected an error for a .func never closed with .endfunc")
	}
}

func TestParseTextProtoRefLinking(t *testing.T) {
	src := `
.func @helper
.registers 1
LOAD_NULL 0
RETURN 0
.endfunc

.func @main
.registers 1
.const @helper
CLOSURE 0 0
RETURN 0
.endfunc
`
	protos, err := ParseText(heap.New(), src, "test.meow")
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	main := protos["@main"]
	if !main.Constants[0].IsProto() {
		t.Fatalf("constant 0 should have been linked to a prototype, got %v", main.Constants[0])
	}
	if main.Constants[0].AsProto().SourceName != "@helper" {
		t.Errorf("linked proto SourceName = %q, want %q", main.Constants[0].AsProto().SourceName, "@helper")
	}
}

func TestParseTextCommentAndBlankLinesIgnored(t *testing.T) {
	src := `
# a leading comment
.func @main   # trailing comment on a directive
.registers 1

# blank line above
LOAD_NULL 0   # load null
RETURN 0
.endfunc
`
	protos, err := ParseText(heap.New(), src, "test.meow")
	if err != nil {
		t.Fatalf("ParseText with comments: %v", err)
	}
	if len(protos["@main"].Code) != 2 {
		t.Errorf("len(Code) = %d, want 2", len(protos["@main"].Code))
	}
}

func TestDisassembleListsMnemonics(t *testing.T) {
	src := `
.func @main
.registers 1
LOAD_INT 0 7
RETURN 0
.endfunc
`
	protos, err := ParseText(heap.New(), src, "test.meow")
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	out := Disassemble(protos["@main"])
	if !strings.Contains(out, "LOAD_INT") || !strings.Contains(out, "RETURN") {
		t.Errorf("Disassemble output missing expected mnemonics:\n%s", out)
	}
}
