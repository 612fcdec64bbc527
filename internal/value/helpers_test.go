package value

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null, false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero int", Int(0), false},
		{"nonzero int", Int(1), true},
		{"zero real", Real(0), false},
		{"nan real", Real(nan()), false},
		{"empty string", Str(""), false},
		{"nonempty string", Str("x"), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("%s: Truthy() = %v, want %v", c.name, got, c.want)
		}
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestTypeName(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Null, "null"},
		{Int(1), "int"},
		{Real(1.5), "real"},
		{Bool(true), "bool"},
		{Str("s"), "string"},
	}
	for _, c := range cases {
		if got := c.v.TypeName(); got != c.want {
			t.Errorf("TypeName(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestEqualCrossNumeric(t *testing.T) {
	if !Equal(Int(1), Real(1.0)) {
		t.Error("Int(1) should equal Real(1.0)")
	}
	if !Equal(Bool(true), Int(1)) {
		t.Error("Bool(true) should equal Int(1) via numeric cross-promotion")
	}
	if Equal(Int(1), Str("1")) {
		t.Error("Int should never equal a string, even a matching digit string")
	}
	if !Equal(Null, Null) {
		t.Error("Null should equal Null")
	}
	if Equal(Bool(false), Null) == false {
		t.Error("Bool(false) should equal Null (both falsy, per the bool/null cross rule)")
	}
}

func TestEqualRealEpsilon(t *testing.T) {
	a := Real(0.1 + 0.2)
	b := Real(0.3)
	if !Equal(a, b) {
		t.Errorf("0.1+0.2 should equal 0.3 within epsilon, got a=%v b=%v", a.AsReal(), b.AsReal())
	}
}

func TestOrderableAndLess(t *testing.T) {
	if !Orderable(Int(1), Real(2)) {
		t.Error("int/real should be orderable")
	}
	if !Orderable(Str("a"), Str("b")) {
		t.Error("string/string should be orderable")
	}
	if Orderable(Str("a"), Int(1)) {
		t.Error("string/int should not be orderable")
	}
	if !Less(Int(1), Real(2)) {
		t.Error("1 should be less than 2")
	}
	if !Less(Str("a"), Str("b")) {
		t.Error("\"a\" should be less than \"b\"")
	}
}

func TestToIntStringForms(t *testing.T) {
	cases := []struct {
		s    string
		want int64
	}{
		{"42", 42},
		{"  -7  ", -7},
		{"0x1F", 31},
		{"0b101", 5},
		{"0o17", 15},
		{"not a number", 0},
	}
	for _, c := range cases {
		if got := Str(c.s).ToInt(); got != c.want {
			t.Errorf("ToInt(%q) = %d, want %d", c.s, got, c.want)
		}
	}
}

func TestToFloatKeywords(t *testing.T) {
	if f := Str("infinity").ToFloat(); f != posInf() {
		t.Errorf("ToFloat(\"infinity\") = %v, want +Inf", f)
	}
	if f := Str("-inf").ToFloat(); f != negInf() {
		t.Errorf("ToFloat(\"-inf\") = %v, want -Inf", f)
	}
}

func posInf() float64 { var z float64; return 1 / z }
func negInf() float64 { var z float64; return -1 / z }

func TestToStringArrayAndObject(t *testing.T) {
	arr := &Array{Elements: []Value{Int(1), Str("two")}}
	if got, want := Obj(arr).ToString(), `[1, two]`; got != want {
		t.Errorf("array ToString() = %q, want %q", got, want)
	}

	obj := NewObject()
	obj.Fields["b"] = Int(2)
	obj.Fields["a"] = Int(1)
	if got, want := Obj(obj).ToString(), `{a: 1, b: 2}`; got != want {
		t.Errorf("object ToString() = %q, want %q (keys must sort)", got, want)
	}
}
