// Package opcode defines the fixed instruction set of the Meow bytecode: a
// stable enumeration plus the mnemonic table used by both the disassembler
// and the textual loader. Mirrors original_source's `enum class OpCode` (not
// itself present in the retrieved header set, but fully reconstructable from
// its uses in helper_functions.cpp's opToString and
// src/loader/bytecode_parser.cpp's OPC table) and continues
// backend/opcodes.go's pattern of named uint8 constants over a bare int.
package opcode

// Code identifies one instruction kind. Values are stable across a process
// but, unlike the single-byte backend.Opcode it is modeled on, are not
// wire-frozen across versions of this module — the binary format
// (internal/loader) stores each opcode as its numeric value, so a binary
// module is read against the order of this list.
type Code uint8

const (
	LOAD_CONST Code = iota
	LOAD_NULL
	LOAD_TRUE
	LOAD_FALSE
	LOAD_INT
	MOVE

	ADD
	SUB
	MUL
	DIV
	MOD
	POW

	EQ
	NEQ
	GT
	GE
	LT
	LE

	NEG
	NOT

	GET_GLOBAL
	SET_GLOBAL
	GET_UPVALUE
	SET_UPVALUE
	CLOSURE
	CLOSE_UPVALUES

	JUMP
	JUMP_IF_FALSE
	JUMP_IF_TRUE
	CALL
	RETURN
	HALT

	NEW_ARRAY
	NEW_HASH
	GET_INDEX
	SET_INDEX
	GET_KEYS
	GET_VALUES

	NEW_CLASS
	NEW_INSTANCE
	GET_PROP
	SET_PROP
	SET_METHOD
	INHERIT
	GET_SUPER

	BIT_AND
	BIT_OR
	BIT_XOR
	BIT_NOT
	LSHIFT
	RSHIFT

	THROW
	SETUP_TRY
	POP_TRY

	IMPORT_MODULE
	EXPORT
	GET_EXPORT
	GET_MODULE_EXPORT
	IMPORT_ALL

	TOTAL_OPCODES
)

// names is indexed by Code; String and the loader's reverse lookup both
// derive from this single table so the two directions can never drift apart.
var names = [TOTAL_OPCODES]string{
	LOAD_CONST:         "LOAD_CONST",
	LOAD_NULL:          "LOAD_NULL",
	LOAD_TRUE:          "LOAD_TRUE",
	LOAD_FALSE:         "LOAD_FALSE",
	LOAD_INT:           "LOAD_INT",
	MOVE:               "MOVE",
	ADD:                "ADD",
	SUB:                "SUB",
	MUL:                "MUL",
	DIV:                "DIV",
	MOD:                "MOD",
	POW:                "POW",
	EQ:                 "EQ",
	NEQ:                "NEQ",
	GT:                 "GT",
	GE:                 "GE",
	LT:                 "LT",
	LE:                 "LE",
	NEG:                "NEG",
	NOT:                "NOT",
	GET_GLOBAL:         "GET_GLOBAL",
	SET_GLOBAL:         "SET_GLOBAL",
	GET_UPVALUE:        "GET_UPVALUE",
	SET_UPVALUE:        "SET_UPVALUE",
	CLOSURE:            "CLOSURE",
	CLOSE_UPVALUES:     "CLOSE_UPVALUES",
	JUMP:               "JUMP",
	JUMP_IF_FALSE:      "JUMP_IF_FALSE",
	JUMP_IF_TRUE:       "JUMP_IF_TRUE",
	CALL:               "CALL",
	RETURN:             "RETURN",
	HALT:               "HALT",
	NEW_ARRAY:          "NEW_ARRAY",
	NEW_HASH:           "NEW_HASH",
	GET_INDEX:          "GET_INDEX",
	SET_INDEX:          "SET_INDEX",
	GET_KEYS:           "GET_KEYS",
	GET_VALUES:         "GET_VALUES",
	NEW_CLASS:          "NEW_CLASS",
	NEW_INSTANCE:       "NEW_INSTANCE",
	GET_PROP:           "GET_PROP",
	SET_PROP:           "SET_PROP",
	SET_METHOD:         "SET_METHOD",
	INHERIT:            "INHERIT",
	GET_SUPER:          "GET_SUPER",
	BIT_AND:            "BIT_AND",
	BIT_OR:             "BIT_OR",
	BIT_XOR:            "BIT_XOR",
	BIT_NOT:            "BIT_NOT",
	LSHIFT:             "LSHIFT",
	RSHIFT:             "RSHIFT",
	THROW:              "THROW",
	SETUP_TRY:          "SETUP_TRY",
	POP_TRY:            "POP_TRY",
	IMPORT_MODULE:      "IMPORT_MODULE",
	EXPORT:             "EXPORT",
	GET_EXPORT:         "GET_EXPORT",
	GET_MODULE_EXPORT:  "GET_MODULE_EXPORT",
	IMPORT_ALL:         "IMPORT_ALL",
}

// byName is built once from names for the loader's mnemonic -> Code lookup.
var byName map[string]Code

func init() {
	byName = make(map[string]Code, len(names))
	for c, n := range names {
		byName[n] = Code(c)
	}
}

// String returns the mnemonic, or a placeholder for an out-of-range code —
// callers that must treat an unknown opcode as fatal should check Valid
// first rather than relying on this string.
func (c Code) String() string {
	if int(c) < 0 || c >= TOTAL_OPCODES {
		return "UNKNOWN_OPCODE"
	}
	return names[c]
}

// Valid reports whether c is a real, dispatchable opcode.
func (c Code) Valid() bool {
	return c >= 0 && c < TOTAL_OPCODES
}

// Lookup resolves a mnemonic (as found in a textual bytecode file) to its
// Code. Matches the parser's OPC table in bytecode_parser.cpp exactly,
// including that it is case-sensitive on the already-uppercased mnemonic
// the caller passes in.
func Lookup(mnemonic string) (Code, bool) {
	c, ok := byName[mnemonic]
	return c, ok
}

// TakesLabelTarget reports whether this opcode's *first* argument is a jump
// target that the textual loader should resolve against the label table
// rather than parse as a bare integer (JUMP, SETUP_TRY).
func (c Code) TakesLabelTarget() bool {
	return c == JUMP || c == SETUP_TRY
}

// TakesLabelSecondArg reports whether this opcode's *second* argument is a
// jump target (JUMP_IF_FALSE, JUMP_IF_TRUE — the first argument is a plain
// register).
func (c Code) TakesLabelSecondArg() bool {
	return c == JUMP_IF_FALSE || c == JUMP_IF_TRUE
}
