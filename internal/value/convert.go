package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/emberhome/devices-core/internal/catalog"
)

// intBounds holds the intrinsic bounds of the integer data types.
var intBounds = map[catalog.DataType][2]int64{
	catalog.DataTypeChar:   {-128, 127},
	catalog.DataTypeUChar:  {0, 255},
	catalog.DataTypeShort:  {-32768, 32767},
	catalog.DataTypeUShort: {0, 65535},
	catalog.DataTypeInt:    {math.MinInt32, math.MaxInt32},
	catalog.DataTypeUInt:   {0, math.MaxUint32},
}

// temporalLayouts are tried in order when coercing strings into temporal
// values. Stored values always use RFC3339, wire values may use the short
// date or time-of-day forms.
var temporalLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
}

// Coerce converts a flattened primitive into the property's declared data
// type (e.g. string "23.5" into a float). Null passes through. Fails with
// ErrInvalidValue when the input is not representable in the declared type.
func Coerce(v Value, dt catalog.DataType) (Value, error) {
	if v.IsNull() {
		return v, nil
	}

	switch {
	case dt == catalog.DataTypeBool:
		return coerceBool(v)
	case dt.IsInteger():
		return coerceInt(v, dt)
	case dt == catalog.DataTypeFloat:
		return coerceFloat(v)
	case dt == catalog.DataTypeString:
		return String(v.FlattenString()), nil
	case dt.IsEnumLike():
		// Enum-like payloads are token strings in every representation.
		return String(v.FlattenString()), nil
	case dt == catalog.DataTypeDate, dt == catalog.DataTypeTime, dt == catalog.DataTypeDateTime:
		return coerceTemporal(v)
	default:
		return Null(), fmt.Errorf("%w: unknown data type %q", ErrInvalidValue, dt)
	}
}

func coerceBool(v Value) (Value, error) {
	switch v.Kind() {
	case KindBool:
		return v, nil
	case KindInt, KindFloat:
		f, _ := v.Float64()
		switch f {
		case 0:
			return Bool(false), nil
		case 1:
			return Bool(true), nil
		}
	case KindString:
		s, _ := v.Str()
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "on", "yes":
			return Bool(true), nil
		case "false", "0", "off", "no":
			return Bool(false), nil
		}
	}
	return Null(), fmt.Errorf("%w: %q is not a bool", ErrInvalidValue, v.FlattenString())
}

func coerceInt(v Value, dt catalog.DataType) (Value, error) {
	var i int64

	switch v.Kind() {
	case KindInt:
		i, _ = v.Int64()
	case KindFloat:
		f, _ := v.Float64()
		if math.Trunc(f) != f {
			return Null(), fmt.Errorf("%w: %v is not a whole number", ErrInvalidValue, f)
		}
		i = int64(f)
	case KindString:
		s, _ := v.Str()
		s = strings.TrimSpace(s)
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Accept float syntax for whole numbers ("25.0").
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || math.Trunc(f) != f {
				return Null(), fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, s)
			}
			parsed = int64(f)
		}
		i = parsed
	default:
		return Null(), fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, v.FlattenString())
	}

	bounds := intBounds[dt]
	if i < bounds[0] || i > bounds[1] {
		return Null(), fmt.Errorf("%w: %d outside %s bounds [%d, %d]", ErrInvalidValue, i, dt, bounds[0], bounds[1])
	}

	return Int(i), nil
}

func coerceFloat(v Value) (Value, error) {
	switch v.Kind() {
	case KindInt, KindFloat:
		f, _ := v.Float64()
		return Float(f), nil
	case KindString:
		s, _ := v.Str()
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Null(), fmt.Errorf("%w: %q is not a float", ErrInvalidValue, s)
		}
		return Float(f), nil
	default:
		return Null(), fmt.Errorf("%w: %q is not a float", ErrInvalidValue, v.FlattenString())
	}
}

func coerceTemporal(v Value) (Value, error) {
	switch v.Kind() {
	case KindTime:
		return v, nil
	case KindString:
		s, _ := v.Str()
		s = strings.TrimSpace(s)
		for _, layout := range temporalLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return Time(t), nil
			}
		}
	}
	return Null(), fmt.Errorf("%w: %q is not a timestamp", ErrInvalidValue, v.FlattenString())
}

// Normalize validates a coerced value against the property's declared
// format: numeric range membership for numeric types, token-set membership
// for enum-like types. Null passes through; other types have no format
// constraints. Fails with ErrInvalidValue.
func Normalize(v Value, p *catalog.Property) (Value, error) {
	if v.IsNull() {
		return v, nil
	}

	switch {
	case p.DataType.IsNumeric():
		r, err := p.NumberRange()
		if err != nil {
			return Null(), fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		f, ok := v.Float64()
		if !ok {
			return Null(), fmt.Errorf("%w: %q is not numeric", ErrInvalidValue, v.FlattenString())
		}
		if !r.Contains(f) {
			return Null(), fmt.Errorf("%w: %v outside declared range", ErrInvalidValue, f)
		}
		return v, nil

	case p.DataType.IsEnumLike():
		set, err := p.EnumSet()
		if err != nil {
			return Null(), fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if set == nil {
			return v, nil
		}
		tok := v.FlattenString()
		if _, ok := set.BySystem(tok); !ok {
			return Null(), fmt.Errorf("%w: %q is not in the declared value set", ErrInvalidValue, tok)
		}
		return v, nil

	default:
		return v, nil
	}
}

// ToScale multiplies a numeric value by 10^scale, converting from the
// system's canonical form to the device's raw form. No-op for null,
// non-numeric types, or an unset scale.
func ToScale(v Value, p *catalog.Property) Value {
	return applyScale(v, p, false)
}

// FromScale divides a numeric value by 10^scale, converting from the
// device's raw form to the system's canonical form. The result of scaling
// an integer type may be fractional and is carried as a float.
func FromScale(v Value, p *catalog.Property) Value {
	return applyScale(v, p, true)
}

func applyScale(v Value, p *catalog.Property, divide bool) Value {
	if v.IsNull() || p.Scale == nil || *p.Scale == 0 || !p.DataType.IsNumeric() {
		return v
	}
	f, ok := v.Float64()
	if !ok {
		return v
	}

	factor := math.Pow10(*p.Scale)
	if divide {
		return Float(f / factor)
	}
	return Float(f * factor)
}

// FromDevice maps a device-reported token into the system's canonical token
// for enum-like properties. A token already in system form passes through.
// No-op for other types or when no value set is declared.
func FromDevice(v Value, p *catalog.Property) (Value, error) {
	if v.IsNull() || !p.DataType.IsEnumLike() {
		return v, nil
	}
	set, err := p.EnumSet()
	if err != nil {
		return Null(), fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if set == nil {
		return v, nil
	}

	tok := v.FlattenString()
	if item, ok := set.ByDeviceRead(tok); ok {
		return String(item.System), nil
	}
	if _, ok := set.BySystem(tok); ok {
		return v, nil
	}
	return Null(), fmt.Errorf("%w: device token %q is not in the declared value set", ErrInvalidValue, tok)
}

// ToDevice maps a system token into the device's write token for enum-like
// properties. No-op for other types or when no value set is declared.
func ToDevice(v Value, p *catalog.Property) (Value, error) {
	if v.IsNull() || !p.DataType.IsEnumLike() {
		return v, nil
	}
	set, err := p.EnumSet()
	if err != nil {
		return Null(), fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if set == nil {
		return v, nil
	}

	tok := v.FlattenString()
	if item, ok := set.BySystem(tok); ok {
		return String(item.DeviceWrite), nil
	}
	return Null(), fmt.Errorf("%w: system token %q is not in the declared value set", ErrInvalidValue, tok)
}
