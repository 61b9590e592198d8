package value

import (
	"testing"
	"time"
)

func TestFlattenString(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{name: "null", v: Null(), want: ""},
		{name: "bool true", v: Bool(true), want: "true"},
		{name: "bool false", v: Bool(false), want: "false"},
		{name: "int", v: Int(42), want: "42"},
		{name: "float", v: Float(25.5), want: "25.5"},
		{name: "float whole", v: Float(2550), want: "2550"},
		{name: "string", v: String("heat"), want: "heat"},
		{name: "time", v: Time(ts), want: "2026-03-01T12:30:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.FlattenString(); got != tt.want {
				t.Errorf("FlattenString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Int(2550), Float(2550)) {
		t.Error("int and whole float with the same flattened form should be equal")
	}
	if !Equal(Null(), Null()) {
		t.Error("null should equal null")
	}
	if Equal(Null(), String("")) {
		t.Error("null should not equal the empty string")
	}
	if Equal(Float(25.5), Float(25.6)) {
		t.Error("distinct floats should not be equal")
	}
}

func TestFloat64Widening(t *testing.T) {
	f, ok := Int(7).Float64()
	if !ok || f != 7 {
		t.Errorf("Int(7).Float64() = %v, %v", f, ok)
	}
	if _, ok := String("7").Float64(); ok {
		t.Error("String should not report a numeric payload")
	}
}

func TestFromAny(t *testing.T) {
	if v := FromAny(nil); !v.IsNull() {
		t.Error("FromAny(nil) should be null")
	}
	if v := FromAny(true); v.Kind() != KindBool {
		t.Errorf("FromAny(true) kind = %v, want bool", v.Kind())
	}
	if v := FromAny(float64(1.5)); v.Kind() != KindFloat {
		t.Errorf("FromAny(float64) kind = %v, want float", v.Kind())
	}
	if v := FromAny("x"); v.Kind() != KindString {
		t.Errorf("FromAny(string) kind = %v, want string", v.Kind())
	}
	// Already-wrapped values pass through.
	if v := FromAny(Int(3)); v.Kind() != KindInt {
		t.Errorf("FromAny(Value) kind = %v, want int", v.Kind())
	}
}
