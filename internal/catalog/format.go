package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// NumberRange is the parsed form of a numeric property format, "min:max".
// Either bound may be absent (open-ended range).
type NumberRange struct {
	Min *float64
	Max *float64
}

// Contains reports whether v falls inside the range.
func (r NumberRange) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// EnumItem is one member of an enum-like property's declared value set.
//
// A plain item uses the same token in every representation. A triple
// "system:deviceRead:deviceWrite" declares distinct tokens for the canonical
// system form, the value the device reports, and the value written toward
// the device.
type EnumItem struct {
	System      string
	DeviceRead  string
	DeviceWrite string
}

// EnumSet is the parsed form of an enum-like property format.
type EnumSet []EnumItem

// BySystem finds the item whose canonical system token matches tok.
func (s EnumSet) BySystem(tok string) (EnumItem, bool) {
	for _, item := range s {
		if item.System == tok {
			return item, true
		}
	}
	return EnumItem{}, false
}

// ByDeviceRead finds the item whose device-reported token matches tok.
func (s EnumSet) ByDeviceRead(tok string) (EnumItem, bool) {
	for _, item := range s {
		if item.DeviceRead == tok {
			return item, true
		}
	}
	return EnumItem{}, false
}

// ParseNumberRange parses a "min:max" format string. Both bounds are
// optional; an empty string or lone ":" yields an unbounded range.
func ParseNumberRange(format string) (NumberRange, error) {
	var r NumberRange

	format = strings.TrimSpace(format)
	if format == "" {
		return r, nil
	}

	parts := strings.Split(format, ":")
	if len(parts) > 2 {
		return r, fmt.Errorf("%w: %q is not a min:max range", ErrInvalidFormat, format)
	}

	if min := strings.TrimSpace(parts[0]); min != "" {
		v, err := strconv.ParseFloat(min, 64)
		if err != nil {
			return r, fmt.Errorf("%w: range minimum %q: %v", ErrInvalidFormat, min, err)
		}
		r.Min = &v
	}

	if len(parts) == 2 {
		if max := strings.TrimSpace(parts[1]); max != "" {
			v, err := strconv.ParseFloat(max, 64)
			if err != nil {
				return r, fmt.Errorf("%w: range maximum %q: %v", ErrInvalidFormat, max, err)
			}
			r.Max = &v
		}
	}

	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return NumberRange{}, fmt.Errorf("%w: range minimum %v above maximum %v", ErrInvalidFormat, *r.Min, *r.Max)
	}

	return r, nil
}

// ParseEnum parses a comma-separated enum format string. Each item is either
// a single token, or a "system:deviceRead:deviceWrite" triple.
func ParseEnum(format string) (EnumSet, error) {
	format = strings.TrimSpace(format)
	if format == "" {
		return nil, nil
	}

	items := strings.Split(format, ",")
	set := make(EnumSet, 0, len(items))

	for _, raw := range items {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		parts := strings.Split(raw, ":")
		switch len(parts) {
		case 1:
			tok := strings.TrimSpace(parts[0])
			set = append(set, EnumItem{System: tok, DeviceRead: tok, DeviceWrite: tok})
		case 3:
			set = append(set, EnumItem{
				System:      strings.TrimSpace(parts[0]),
				DeviceRead:  strings.TrimSpace(parts[1]),
				DeviceWrite: strings.TrimSpace(parts[2]),
			})
		default:
			return nil, fmt.Errorf("%w: enum item %q must be a token or a system:read:write triple", ErrInvalidFormat, raw)
		}
	}

	if len(set) == 0 {
		return nil, nil
	}
	return set, nil
}

// NumberRange returns the parsed numeric range for the property, or an
// unbounded range when no format is declared. Only meaningful for numeric
// data types.
func (p *Property) NumberRange() (NumberRange, error) {
	if p.Format == nil {
		return NumberRange{}, nil
	}
	return ParseNumberRange(*p.Format)
}

// EnumSet returns the parsed enum value set for the property, or nil when no
// format is declared. Only meaningful for enum-like data types.
func (p *Property) EnumSet() (EnumSet, error) {
	if p.Format == nil {
		return nil, nil
	}
	return ParseEnum(*p.Format)
}
