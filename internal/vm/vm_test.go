package vm

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.meow")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing test program: %v", err)
	}
	return path
}

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// everything written to it, since natives.printFn writes straight through
// fmt.Println rather than through any injectable writer.
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
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}
	return string(out)
}

func TestRunArithmeticAndPrint(t *testing.T) {
	src := `
.func @main
.registers 3
.const "print"
GET_GLOBAL 0 0
LOAD_INT 1 2
LOAD_INT 2 3
ADD 1 1 2
CALL -1 0 1 1
LOAD_NULL 0
RETURN 0
.endfunc
`
	path := writeProgram(t, src)
	interp := New(filepath.Dir(path), nil)

	out := captureStdout(t, func() {
		if err := interp.Run(path); err != nil {
			t.Fatalf("Run: %v", err)
		}
	})
	if strings.TrimSpace(out) != "5" {
		t.Errorf("printed output = %q, want \"5\"", out)
	}
}

func TestRunDispatchMissProducesDiagnostic(t *testing.T) {
	src := `
.func @main
.registers 2
.const "x"
LOAD_CONST 0 0
LOAD_INT 1 1
SUB 0 0 1
RETURN 0
.endfunc
`
	path := writeProgram(t, src)
	interp := New(filepath.Dir(path), nil)

	err := interp.Run(path)
	if err == nil {
		t.Fatal("expected a runtime fault for SUB(string, int)")
	}
	if !strings.Contains(err.Error(), "runtime error:") {
		t.Errorf("error missing structured diagnostic marker:\n%s", err.Error())
	}
}

func TestRunClosureUpvalueCapture(t *testing.T) {
	src := `
.func @adder
.registers 2
.upvalues 1
.upvalue 0 local 0
GET_UPVALUE 1 0
ADD 0 0 1
RETURN 0
.endfunc

.func @main
.registers 3
.const @adder
.const "print"
LOAD_INT 0 10
CLOSURE 1 0
LOAD_INT 2 7
CALL 2 1 2 1
GET_GLOBAL 0 1
CALL -1 0 2 1
RETURN -1
.endfunc
`
	path := writeProgram(t, src)
	interp := New(filepath.Dir(path), nil)

	out := captureStdout(t, func() {
		if err := interp.Run(path); err != nil {
			t.Fatalf("Run: %v", err)
		}
	})
	if strings.TrimSpace(out) != "17" {
		t.Errorf("printed output = %q, want \"17\" (7 + captured upvalue 10)", out)
	}
}
