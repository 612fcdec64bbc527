// Package loader implements the textual assembler and binary reader that
// turn a bytecode file into a set of linked function prototypes, plus the
// disassembler used for debug dumps. Grounded nearly line-for-line on
// original_source/src/loader/bytecode_parser.cpp (text format) and
// src/loader/binary_parser.cpp (binary format).
package loader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/opcode"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// protoRefPrefix marks an unlinked constant-pool entry referencing another
// prototype by name, pre-link. Mirrors "::function_proto::" in the
// original — kept distinct from a bare "@name" so a user string constant
// that merely starts with "@" is never mistaken for one.
const protoRefPrefix = "::function_proto::"

type pendingJump struct {
	instIndex int
	argIndex  int
	label     string
}

type building struct {
	proto   *value.FunctionProto
	pending []pendingJump
}

type textParser struct {
	heap    *heap.Heap
	protos  map[string]*building
	current *building
}

// ParseText assembles source (in the textual bytecode assembly format)
// into a linked set of prototypes keyed by name (including the leading
// "@" their .func directive was declared with, so "@main" is found the
// same way under both loaders).
func ParseText(h *heap.Heap, source, sourceName string) (map[string]*value.FunctionProto, error) {
	p := &textParser{heap: h, protos: make(map[string]*building)}

	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := skipComment(scanner.Text())
		if line == "" {
			continue
		}
		if err := p.parseLine(line); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", sourceName, lineno, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if p.current != nil {
		return nil, fmt.Errorf("%s: file ended but .func was never closed with .endfunc", sourceName)
	}

	if err := p.resolveLabels(); err != nil {
		return nil, err
	}
	result := make(map[string]*value.FunctionProto, len(p.protos))
	for name, b := range p.protos {
		result[name] = b.proto
	}
	linkProtoRefs(result)
	return result, nil
}

func skipComment(line string) string {
	inString := false
	cut := -1
	for i := 0; i < len(line); i++ {
		if line[i] == '"' && (i == 0 || line[i-1] != '\\') {
			inString = !inString
		}
		if line[i] == '#' && !inString {
			cut = i
			break
		}
	}
	if cut >= 0 {
		line = line[:cut]
	}
	return strings.TrimSpace(line)
}

func (p *textParser) parseLine(line string) error {
	if strings.HasSuffix(line, ":") {
		if p.current == nil {
			return fmt.Errorf("label must be inside a .func block")
		}
		label := line[:len(line)-1]
		if _, exists := p.current.proto.Labels[label]; exists {
			return fmt.Errorf("label %q already defined", label)
		}
		if p.current.proto.Labels == nil {
			p.current.proto.Labels = make(map[string]value.Addr)
		}
		p.current.proto.Labels[label] = value.Addr(len(p.current.proto.Code))
		return nil
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	if strings.HasPrefix(parts[0], ".") {
		return p.parseDirective(parts)
	}

	if p.current == nil {
		return fmt.Errorf("instruction must be inside a .func block")
	}
	return p.parseInstruction(parts)
}

func (p *textParser) parseDirective(parts []string) error {
	cmd := parts[0]
	switch cmd {
	case ".func":
		if p.current != nil {
			return fmt.Errorf("cannot start a new .func inside another .func")
		}
		if len(parts) < 2 {
			return fmt.Errorf(".func requires a function name")
		}
		name := parts[1]
		proto := &value.FunctionProto{SourceName: name, Labels: make(map[string]value.Addr)}
		heap.NewObject(p.heap, proto)
		b := &building{proto: proto}
		p.protos[name] = b
		p.current = b
		return nil
	case ".endfunc":
		if p.current == nil {
			return fmt.Errorf("found .endfunc with no matching .func")
		}
		p.current = nil
		return nil
	}

	if p.current == nil {
		return fmt.Errorf("%q directive must be inside a .func block", cmd)
	}

	switch cmd {
	case ".registers":
		if len(parts) < 2 {
			return fmt.Errorf(".registers requires 1 argument")
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf(".registers argument must be an integer: %w", err)
		}
		p.current.proto.NumRegisters = n
		return nil
	case ".upvalues":
		if len(parts) < 2 {
			return fmt.Errorf(".upvalues requires 1 argument")
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf(".upvalues argument must be an integer: %w", err)
		}
		p.current.proto.NumUpvalues = n
		return nil
	case ".const":
		if len(parts) < 2 {
			return fmt.Errorf(".const is missing its value")
		}
		rest := strings.Join(parts[1:], " ")
		v, err := parseConstValue(rest)
		if err != nil {
			return err
		}
		p.current.proto.Constants = append(p.current.proto.Constants, v)
		return nil
	case ".upvalue":
		if len(parts) < 4 {
			return fmt.Errorf(".upvalue requires 3 arguments")
		}
		idx, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf(".upvalue index must be an integer: %w", err)
		}
		kind := parts[2]
		if kind != "local" && kind != "parent_upvalue" {
			return fmt.Errorf("invalid upvalue kind %q", kind)
		}
		slot, err := strconv.Atoi(parts[3])
		if err != nil {
			return fmt.Errorf(".upvalue slot must be an integer: %w", err)
		}
		for len(p.current.proto.UpvalueDescs) <= idx {
			p.current.proto.UpvalueDescs = append(p.current.proto.UpvalueDescs, value.UpvalueDesc{})
		}
		p.current.proto.UpvalueDescs[idx] = value.UpvalueDesc{IsLocal: kind == "local", Index: int32(slot)}
		return nil
	default:
		return fmt.Errorf("unrecognized directive %q", cmd)
	}
}

func (p *textParser) parseInstruction(parts []string) error {
	op, ok := opcode.Lookup(strings.ToUpper(parts[0]))
	if !ok {
		return fmt.Errorf("invalid opcode %q", parts[0])
	}

	instIndex := len(p.current.proto.Code)
	var args []int32

	switch {
	case op.TakesLabelTarget():
		if len(parts) < 2 {
			return fmt.Errorf("%s requires a label or instruction index", parts[0])
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			p.current.pending = append(p.current.pending, pendingJump{instIndex, 0, parts[1]})
			args = append(args, 0)
		} else {
			args = append(args, int32(n))
		}
		// SETUP_TRY's optional second argument (errorReg) is a plain
		// register index, never a label.
		if op == opcode.SETUP_TRY && len(parts) >= 3 {
			reg, err := strconv.Atoi(parts[2])
			if err != nil {
				return fmt.Errorf("SETUP_TRY errorReg must be an integer: %w", err)
			}
			args = append(args, int32(reg))
		}
	case op.TakesLabelSecondArg():
		if len(parts) < 3 {
			return fmt.Errorf("%s requires 2 arguments: register and label/index", parts[0])
		}
		reg, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf("%s register argument must be an integer: %w", parts[0], err)
		}
		args = append(args, int32(reg))
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			p.current.pending = append(p.current.pending, pendingJump{instIndex, 1, parts[2]})
			args = append(args, 0)
		} else {
			args = append(args, int32(n))
		}
	default:
		for _, tok := range parts[1:] {
			n, err := strconv.Atoi(tok)
			if err != nil {
				return fmt.Errorf("invalid argument %q for %s: all arguments must be integers", tok, parts[0])
			}
			args = append(args, int32(n))
		}
	}

	p.current.proto.Code = append(p.current.proto.Code, value.Instruction{Op: uint8(op), Args: args})
	return nil
}

func unescapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	escaping := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaping {
			switch c {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte('\\')
				b.WriteByte(c)
			}
			escaping = false
		} else if c == '\\' {
			escaping = true
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func parseConstValue(token string) (value.Value, error) {
	s := strings.TrimSpace(token)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return value.Str(unescapeString(s[1 : len(s)-1])), nil
	}
	if len(s) > 0 && s[0] == '@' {
		return value.Str(protoRefPrefix + s), nil
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return value.Real(f), nil
		}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i), nil
	}
	switch s {
	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	case "null":
		return value.Null, nil
	}
	return value.Value{}, fmt.Errorf("invalid constant literal %q", s)
}

func (p *textParser) resolveLabels() error {
	for _, b := range p.protos {
		for _, j := range b.pending {
			target, ok := b.proto.Labels[j.label]
			if !ok {
				return fmt.Errorf("label %q not found in function %q", j.label, b.proto.SourceName)
			}
			b.proto.Code[j.instIndex].Args[j.argIndex] = int32(target)
		}
		b.pending = nil
	}
	return nil
}

// linkProtoRefs replaces every constant-pool entry of shape
// "::function_proto::@name" with a direct reference to the named
// prototype, satisfying the invariant that no such placeholder string
// survives linking.
func linkProtoRefs(protos map[string]*value.FunctionProto) {
	for _, proto := range protos {
		for i, c := range proto.Constants {
			if !c.IsString() {
				continue
			}
			s := c.AsString()
			if !strings.HasPrefix(s, protoRefPrefix) {
				continue
			}
			name := strings.TrimPrefix(s, protoRefPrefix)
			if target, ok := protos[name]; ok {
				proto.Constants[i] = value.Obj(target)
			}
		}
	}
}
