package opcode

import "testing"

func TestLookupRoundTrip(t *testing.T) {
	for c := Code(0); c < TOTAL_OPCODES; c++ {
		name := c.String()
		got, ok := Lookup(name)
		if !ok {
			t.Errorf("Lookup(%q) not found for code %d", name, c)
			continue
		}
		if got != c {
			t.Errorf("Lookup(%q) = %d, want %d", name, got, c)
		}
	}
}

func TestLookupUnknownMnemonic(t *testing.T) {
	if _, ok := Lookup("NOT_A_REAL_OPCODE"); ok {
		t.Error("Lookup of a nonexistent mnemonic should fail")
	}
}

func TestStringOutOfRange(t *testing.T) {
	if got := TOTAL_OPCODES.String(); got != "UNKNOWN_OPCODE" {
		t.Errorf("TOTAL_OPCODES.String() = %q, want %q", got, "UNKNOWN_OPCODE")
	}
	if Code(255).Valid() {
		t.Error("Code(255) should not be Valid")
	}
}

func TestLabelArgumentShape(t *testing.T) {
	if !JUMP.TakesLabelTarget() {
		t.Error("JUMP should take a label target as its first argument")
	}
	if !SETUP_TRY.TakesLabelTarget() {
		t.Error("SETUP_TRY should take a label target as its first argument")
	}
	if ADD.TakesLabelTarget() {
		t.Error("ADD should not take a label target")
	}
	if !JUMP_IF_FALSE.TakesLabelSecondArg() {
		t.Error("JUMP_IF_FALSE should take a label as its second argument")
	}
	if !JUMP_IF_TRUE.TakesLabelSecondArg() {
		t.Error("JUMP_IF_TRUE should take a label as its second argument")
	}
}
