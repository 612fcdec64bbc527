package dispatch

import (
	"math"
	"testing"

	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

func TestArithmeticIntInt(t *testing.T) {
	table := New()
	fn, err := table.FindBinary(opcode.ADD, value.Int(2), value.Int(3))
	if err != nil {
		t.Fatalf("FindBinary(ADD, int, int) unexpected error: %v", err)
	}
	got := fn(value.Int(2), value.Int(3))
	if !got.IsInt() || got.AsInt() != 5 {
		t.Errorf("ADD(2, 3) = %v, want 5", got)
	}
}

func TestDivByZeroSign(t *testing.T) {
	table := New()
	fn, _ := table.FindBinary(opcode.DIV, value.Int(5), value.Int(0))
	got := fn(value.Int(5), value.Int(0))
	if !got.IsReal() || !math.IsInf(got.AsReal(), 1) {
		t.Errorf("DIV(5, 0) = %v, want +Inf", got)
	}

	fn, _ = table.FindBinary(opcode.DIV, value.Int(-5), value.Int(0))
	got = fn(value.Int(-5), value.Int(0))
	if !got.IsReal() || !math.IsInf(got.AsReal(), -1) {
		t.Errorf("DIV(-5, 0) = %v, want -Inf", got)
	}

	fn, _ = table.FindBinary(opcode.DIV, value.Int(0), value.Int(0))
	got = fn(value.Int(0), value.Int(0))
	if !got.IsReal() || !math.IsNaN(got.AsReal()) {
		t.Errorf("DIV(0, 0) = %v, want NaN", got)
	}
}

func TestStringConcatAndRepeat(t *testing.T) {
	table := New()

	fn, err := table.FindBinary(opcode.ADD, value.Str("a"), value.Str("b"))
	if err != nil {
		t.Fatalf("ADD(string, string) should dispatch: %v", err)
	}
	if got := fn(value.Str("a"), value.Str("b")).AsString(); got != "ab" {
		t.Errorf("ADD(\"a\", \"b\") = %q, want %q", got, "ab")
	}

	fn, err = table.FindBinary(opcode.MUL, value.Str("ab"), value.Int(3))
	if err != nil {
		t.Fatalf("MUL(string, int) should dispatch: %v", err)
	}
	if got := fn(value.Str("ab"), value.Int(3)).AsString(); got != "ababab" {
		t.Errorf("MUL(\"ab\", 3) = %q, want %q", got, "ababab")
	}
}

func TestDispatchMissErrorMessage(t *testing.T) {
	table := New()
	_, err := table.FindBinary(opcode.ADD, value.Obj(&value.Array{}), value.Int(1))
	if err == nil {
		t.Fatal("expected a dispatch error for ADD(array, int)")
	}
	want := "unsupported operand types for ADD: 'Array' and 'Int'"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestUnaryNegAndBitNot(t *testing.T) {
	table := New()

	fn, err := table.FindUnary(opcode.NEG, value.Int(5))
	if err != nil {
		t.Fatalf("FindUnary(NEG, int) unexpected error: %v", err)
	}
	if got := fn(value.Int(5)).AsInt(); got != -5 {
		t.Errorf("NEG(5) = %d, want -5", got)
	}

	fn, err = table.FindUnary(opcode.BIT_NOT, value.Int(0))
	if err != nil {
		t.Fatalf("FindUnary(BIT_NOT, int) unexpected error: %v", err)
	}
	if got := fn(value.Int(0)).AsInt(); got != -1 {
		t.Errorf("BIT_NOT(0) = %d, want -1", got)
	}

	if _, err := table.FindUnary(opcode.NEG, value.Str("x")); err == nil {
		t.Error("expected a dispatch error for NEG(string)")
	}
}

func TestModZeroDivisorIsNaN(t *testing.T) {
	table := New()
	fn, _ := table.FindBinary(opcode.MOD, value.Int(5), value.Int(0))
	got := fn(value.Int(5), value.Int(0))
	if !got.IsReal() || !math.IsNaN(got.AsReal()) {
		t.Errorf("MOD(5, 0) = %v, want NaN", got)
	}
}

func TestBitwiseBoolBoolPromotesToInt(t *testing.T) {
	table := New()

	fn, err := table.FindBinary(opcode.BIT_AND, value.Bool(true), value.Bool(true))
	if err != nil {
		t.Fatalf("FindBinary(BIT_AND, bool, bool) unexpected error: %v", err)
	}
	got := fn(value.Bool(true), value.Bool(true))
	if got.TypeName() != "int" {
		t.Errorf("typeof(true & true) = %q, want %q", got.TypeName(), "int")
	}
	if !got.IsInt() || got.AsInt() != 1 {
		t.Errorf("true & true = %v, want int 1", got)
	}

	fn, err = table.FindBinary(opcode.BIT_OR, value.Bool(false), value.Bool(true))
	if err != nil {
		t.Fatalf("FindBinary(BIT_OR, bool, bool) unexpected error: %v", err)
	}
	got = fn(value.Bool(false), value.Bool(true))
	if got.TypeName() != "int" {
		t.Errorf("typeof(false | true) = %q, want %q", got.TypeName(), "int")
	}
	if !got.IsInt() || got.AsInt() != 1 {
		t.Errorf("false | true = %v, want int 1", got)
	}
}
