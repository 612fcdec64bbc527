package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// TypeName returns one of the fixed type-name strings. Mirrors the table in
// definitions.h: null, int, real, bool, string, array, object, function,
// native, upvalue, module, proto, class, instance, bound_method.
func (v Value) TypeName() string {
	switch v.tag {
	case TagNull:
		return "null"
	case TagInt:
		return "int"
	case TagReal:
		return "real"
	case TagBool:
		return "bool"
	case TagString:
		return "string"
	case TagArray:
		return "array"
	case TagObject:
		return "object"
	case TagClass:
		return "class"
	case TagInstance:
		return "instance"
	case TagClosure:
		return "function"
	case TagBoundMethod:
		return "bound_method"
	case TagProto:
		return "proto"
	case TagUpvalue:
		return "upvalue"
	case TagModule:
		return "module"
	case TagNative:
		return "native"
	default:
		return "unknown"
	}
}

// Truthy implements the language's truthiness table.
func (v Value) Truthy() bool {
	switch v.tag {
	case TagNull:
		return false
	case TagBool:
		return v.b
	case TagInt:
		return v.i != 0
	case TagReal:
		return v.f != 0 && !math.IsNaN(v.f)
	case TagString:
		return v.s != ""
	case TagArray:
		return len(v.AsArray().Elements) != 0
	case TagObject:
		return len(v.AsObject().Fields) != 0
	default:
		return true
	}
}

func trimTrailingZeros(s string) string {
	dot := strings.IndexByte(s, '.')
	if dot == -1 {
		return s
	}
	end := len(s)
	for end > dot+1 && s[end-1] == '0' {
		end--
	}
	if end == dot+1 {
		end = dot
	}
	return s[:end]
}

func realToString(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == 0 && math.Signbit(f) {
		return "-0"
	}
	return trimTrailingZeros(strconv.FormatFloat(f, 'f', 15, 64))
}

// ToString is the default stringification for every variant that needs no
// re-entrant call into the interpreter. Instances are rendered with the
// generic "<ClassName object>" form here; internal/vm.Stringify wraps this
// to additionally resolve a __str__ method, which requires calling back
// into the running interpreter and so cannot live in this package.
func (v Value) ToString() string {
	switch v.tag {
	case TagNull:
		return "null"
	case TagBool:
		if v.b {
			return "true"
		}
		return "false"
	case TagInt:
		return strconv.FormatInt(v.i, 10)
	case TagReal:
		return realToString(v.f)
	case TagString:
		return v.s
	case TagInstance:
		return "<" + v.AsInstance().Class.Name + " object>"
	case TagClass:
		return "<class '" + v.AsClass().Name + "'>"
	case TagClosure:
		return "<fn '" + v.AsClosure().Proto.SourceName + "'>"
	case TagBoundMethod:
		return "<bound method>"
	case TagArray:
		elems := v.AsArray().Elements
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range elems {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.ToString())
		}
		b.WriteByte(']')
		return b.String()
	case TagObject:
		fields := v.AsObject().Fields
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(fields[k].ToString())
		}
		b.WriteByte('}')
		return b.String()
	case TagModule:
		return "<module '" + v.AsModule().Name + "'>"
	case TagNative:
		return "<native fn>"
	case TagUpvalue:
		return "upvalue"
	case TagProto:
		return "<function proto '" + v.AsProto().SourceName + "'>"
	default:
		return "<unknown_type>"
	}
}

// ToInt coerces v to an integer following the original's whitespace-trim,
// sign, 0b/0x/0o/leading-zero-octal and strtoll-with-ERANGE-clamp string
// parsing rules.
func (v Value) ToInt() int64 {
	switch v.tag {
	case TagInt:
		return v.i
	case TagReal:
		if math.IsInf(v.f, 1) {
			return math.MaxInt64
		}
		if math.IsInf(v.f, -1) {
			return math.MinInt64
		}
		if math.IsNaN(v.f) {
			return 0
		}
		return int64(v.f)
	case TagBool:
		if v.b {
			return 1
		}
		return 0
	case TagString:
		return parseInt(v.s)
	default:
		return 0
	}
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	neg := false
	i := 0
	if s[i] == '+' || s[i] == '-' {
		neg = s[i] == '-'
		i++
		if i >= len(s) {
			return 0
		}
	}
	token := s[i:]

	if len(token) >= 2 && token[0] == '0' && (token[1] == 'b' || token[1] == 'B') {
		var acc uint64
		const limit = uint64(math.MaxInt64)
		j := 2
		for ; j < len(token); j++ {
			c := token[j]
			if c != '0' && c != '1' {
				break
			}
			d := uint64(c - '0')
			if acc > (limit-d)/2 {
				if neg {
					return math.MinInt64
				}
				return math.MaxInt64
			}
			acc = acc<<1 | d
		}
		result := int64(acc)
		if neg {
			return -result
		}
		return result
	}

	base := 10
	if len(token) >= 2 && token[0] == '0' && (token[1] == 'x' || token[1] == 'X') {
		base = 16
		token = token[2:]
	} else if len(token) >= 2 && token[0] == '0' && (token[1] == 'o' || token[1] == 'O') {
		base = 8
		token = token[2:]
	} else if len(token) >= 2 && token[0] == '0' && token[1] >= '0' && token[1] <= '9' {
		base = 8
	}

	end := 0
	for end < len(token) && isBaseDigit(token[end], base) {
		end++
	}
	if end == 0 {
		return 0
	}

	val, err := strconv.ParseInt(token[:end], base, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			if neg {
				return math.MinInt64
			}
			return math.MaxInt64
		}
		return 0
	}
	if neg {
		return -val
	}
	return val
}

func isBaseDigit(c byte, base int) bool {
	var d int
	switch {
	case c >= '0' && c <= '9':
		d = int(c - '0')
	case c >= 'a' && c <= 'z':
		d = int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		d = int(c-'A') + 10
	default:
		return false
	}
	return d < base
}

// ToFloat coerces v to a real following the original's nan/infinity keyword
// handling plus strtod-style parsing.
func (v Value) ToFloat() float64 {
	switch v.tag {
	case TagReal:
		return v.f
	case TagInt:
		return float64(v.i)
	case TagBool:
		if v.b {
			return 1
		}
		return 0
	case TagString:
		s := strings.ToLower(v.s)
		switch s {
		case "nan":
			return math.NaN()
		case "infinity", "+infinity", "inf", "+inf":
			return math.Inf(1)
		case "-infinity", "-inf":
			return math.Inf(-1)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
				if f > 0 {
					return math.Inf(1)
				}
				return math.Inf(-1)
			}
			return parsePrefixFloat(v.s)
		}
		return f
	default:
		return 0
	}
}

// parsePrefixFloat handles strtod's leading-prefix tolerance (e.g. "3.14abc"
// parses as 3.14), which strconv.ParseFloat rejects outright.
func parsePrefixFloat(s string) float64 {
	end := 0
	seenDigit := false
	seenDot := false
	seenExp := false
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		case (c == '+' || c == '-') && end > 0 && (s[end-1] == 'e' || s[end-1] == 'E'):
		case (c == '+' || c == '-') && end == 0:
		default:
			goto done
		}
		end++
	}
done:
	if !seenDigit {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

const realEqEpsilon = 1e-12

func realEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	diff := math.Abs(a - b)
	maxab := math.Max(math.Abs(a), math.Abs(b))
	return diff <= realEqEpsilon*math.Max(1, maxab)
}

func isNumericTag(t Tag) bool {
	return t == TagInt || t == TagReal || t == TagBool
}

// Equal implements value equality: same-tag scalars compare
// directly (with the epsilon rule for reals), numeric types cross-promote,
// strings compare byte-wise, bool coerces through truthiness against null
// and against any other non-numeric reference, and everything else —
// including two references of the same non-scalar kind — is unequal.
func Equal(a, b Value) bool {
	if a.tag == b.tag {
		switch a.tag {
		case TagNull:
			return true
		case TagBool:
			return a.b == b.b
		case TagInt:
			return a.i == b.i
		case TagReal:
			return realEquals(a.f, b.f)
		case TagString:
			return a.s == b.s
		}
	}

	aNum, bNum := isNumericTag(a.tag), isNumericTag(b.tag)
	if aNum && bNum {
		if a.tag == TagReal || b.tag == TagReal {
			return realEquals(a.ToFloat(), b.ToFloat())
		}
		return a.ToInt() == b.ToInt()
	}

	switch {
	case a.tag == TagBool && b.tag == TagNull:
		return !a.b
	case a.tag == TagNull && b.tag == TagBool:
		return !b.b
	case a.tag == TagBool && !bNum:
		return a.b == b.Truthy()
	case b.tag == TagBool && !aNum:
		return b.b == a.Truthy()
	}

	return false
}

// NotEqual is the logical negation of Equal.
func NotEqual(a, b Value) bool {
	return !Equal(a, b)
}

// Less/LessEqual/Greater/GreaterEqual implement value ordering:
// defined only across the numeric lattice and for (string, string); any
// other pairing is a dispatch error the caller must raise itself (these
// helpers only ever get called once the caller has confirmed through
// Orderable that the pair is ordered).
func Less(a, b Value) bool {
	if a.tag == TagString && b.tag == TagString {
		return a.s < b.s
	}
	return a.ToFloat() < b.ToFloat()
}

func LessEqual(a, b Value) bool {
	if a.tag == TagString && b.tag == TagString {
		return a.s <= b.s
	}
	return a.ToFloat() <= b.ToFloat()
}

func Greater(a, b Value) bool { return Less(b, a) }

func GreaterEqual(a, b Value) bool { return LessEqual(b, a) }

// Orderable reports whether the pair falls into the ordering domain:
// numeric/numeric or string/string.
func Orderable(a, b Value) bool {
	aNum := a.tag == TagInt || a.tag == TagReal || a.tag == TagBool
	bNum := b.tag == TagInt || b.tag == TagReal || b.tag == TagBool
	if aNum && bNum {
		return true
	}
	return a.tag == TagString && b.tag == TagString
}

// DebugString renders v the way the original's diagnostic path does:
// non-recursive, quoting strings, and naming composite variants by kind
// only (never dumping their full contents). Used for the structured
// runtime diagnostic's operand-stack snapshot.
func (v Value) DebugString() string {
	switch v.tag {
	case TagNull:
		return "<null>"
	case TagInt:
		return strconv.FormatInt(v.i, 10)
	case TagReal:
		return realToString(v.f)
	case TagBool:
		if v.b {
			return "true"
		}
		return "false"
	case TagString:
		return fmt.Sprintf("%q", v.s)
	case TagProto:
		return "<function proto>"
	case TagClosure:
		return "<closure>"
	case TagInstance:
		return "<instance>"
	case TagClass:
		return "<class>"
	case TagArray:
		return "<array>"
	case TagObject:
		return "<object>"
	case TagUpvalue:
		return "<upvalue>"
	case TagModule:
		return "<module>"
	case TagBoundMethod:
		return "<bound method>"
	case TagNative:
		return "<native fn>"
	default:
		return "<unknown value>"
	}
}
