package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind int

// Kind constants.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
)

// Value is a tagged union over the small set of primitive types a property
// state can hold: bool, int, float, string, timestamp, or null. The zero
// Value is null.
//
// Values are immutable; all operations return new Values.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Time returns a timestamp Value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Kind returns the variant held by the Value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the Value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload. The second result is false when the
// Value does not hold a bool.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Int64 returns the integer payload. The second result is false when the
// Value does not hold an int.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float64 returns the numeric payload, widening ints to float64. The second
// result is false for non-numeric Values.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Str returns the string payload. The second result is false when the Value
// does not hold a string.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Timestamp returns the time payload. The second result is false when the
// Value does not hold a timestamp.
func (v Value) Timestamp() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// Flatten returns the primitive payload for serialization: bool, int64,
// float64, string, RFC3339 string, or nil.
func (v Value) Flatten() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindTime:
		return v.t.UTC().Format(time.RFC3339)
	default:
		return nil
	}
}

// FlattenString returns the canonical string form of the Value. Null
// flattens to the empty string. This form is used for storage and for
// value equality checks (invalid-sentinel comparison, reconciliation).
func (v Value) FlattenString() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return v.s
	case KindTime:
		return v.t.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// Equal reports whether two Values are equal on their flattened string form.
func Equal(a, b Value) bool {
	if a.IsNull() != b.IsNull() {
		return false
	}
	return a.FlattenString() == b.FlattenString()
}

// MarshalJSON serializes the flattened payload.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Flatten())
}

// UnmarshalJSON decodes a flattened payload back into a Value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// FromAny adapts a decoded primitive (e.g. from JSON) into a Value.
// Unknown types are stringified.
func FromAny(raw any) Value {
	switch val := raw.(type) {
	case nil:
		return Null()
	case Value:
		return val
	case bool:
		return Bool(val)
	case int:
		return Int(int64(val))
	case int64:
		return Int(val)
	case float64:
		return Float(val)
	case float32:
		return Float(float64(val))
	case string:
		return String(val)
	case time.Time:
		return Time(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i)
		}
		if f, err := val.Float64(); err == nil {
			return Float(f)
		}
		return String(val.String())
	default:
		return String(fmt.Sprint(raw))
	}
}
