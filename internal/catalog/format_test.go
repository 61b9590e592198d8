package catalog

import (
	"errors"
	"testing"
)

func TestParseNumberRange(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		min     *float64
		max     *float64
		wantErr bool
	}{
		{name: "both bounds", format: "0:100", min: f(0), max: f(100)},
		{name: "negative min", format: "-40:85", min: f(-40), max: f(85)},
		{name: "min only", format: "5:", min: f(5)},
		{name: "max only", format: ":10", max: f(10)},
		{name: "empty", format: ""},
		{name: "lone colon", format: ":"},
		{name: "floats", format: "0.5:99.5", min: f(0.5), max: f(99.5)},
		{name: "too many parts", format: "1:2:3", wantErr: true},
		{name: "bad min", format: "abc:10", wantErr: true},
		{name: "bad max", format: "0:xyz", wantErr: true},
		{name: "inverted", format: "10:5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseNumberRange(tt.format)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFormat) {
					t.Fatalf("ParseNumberRange(%q) error = %v, want ErrInvalidFormat", tt.format, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNumberRange(%q) error = %v", tt.format, err)
			}
			if !floatPtrEqual(r.Min, tt.min) {
				t.Errorf("Min = %v, want %v", ptrVal(r.Min), ptrVal(tt.min))
			}
			if !floatPtrEqual(r.Max, tt.max) {
				t.Errorf("Max = %v, want %v", ptrVal(r.Max), ptrVal(tt.max))
			}
		})
	}
}

func TestNumberRange_Contains(t *testing.T) {
	r, err := ParseNumberRange("0:100")
	if err != nil {
		t.Fatalf("ParseNumberRange() error = %v", err)
	}

	if !r.Contains(0) || !r.Contains(100) || !r.Contains(50) {
		t.Error("Contains() should accept values inside the bounds")
	}
	if r.Contains(-0.1) || r.Contains(100.1) {
		t.Error("Contains() should reject values outside the bounds")
	}

	open := NumberRange{}
	if !open.Contains(-1e9) || !open.Contains(1e9) {
		t.Error("unbounded range should contain everything")
	}
}

func TestParseEnum(t *testing.T) {
	t.Run("plain tokens", func(t *testing.T) {
		set, err := ParseEnum("heat,cool,auto")
		if err != nil {
			t.Fatalf("ParseEnum() error = %v", err)
		}
		if len(set) != 3 {
			t.Fatalf("len(set) = %d, want 3", len(set))
		}
		item, ok := set.BySystem("cool")
		if !ok {
			t.Fatal("BySystem(cool) not found")
		}
		if item.DeviceRead != "cool" || item.DeviceWrite != "cool" {
			t.Errorf("plain token should use the same token in all forms, got %+v", item)
		}
	})

	t.Run("triples", func(t *testing.T) {
		set, err := ParseEnum("on:1:true,off:0:false")
		if err != nil {
			t.Fatalf("ParseEnum() error = %v", err)
		}
		item, ok := set.ByDeviceRead("1")
		if !ok {
			t.Fatal("ByDeviceRead(1) not found")
		}
		if item.System != "on" || item.DeviceWrite != "true" {
			t.Errorf("triple mismatch, got %+v", item)
		}
	})

	t.Run("empty", func(t *testing.T) {
		set, err := ParseEnum("")
		if err != nil {
			t.Fatalf("ParseEnum() error = %v", err)
		}
		if set != nil {
			t.Errorf("ParseEnum(\"\") = %v, want nil", set)
		}
	})

	t.Run("bad item", func(t *testing.T) {
		if _, err := ParseEnum("on:1"); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("ParseEnum(two-part item) error = %v, want ErrInvalidFormat", err)
		}
	})
}

func f(v float64) *float64 { return &v }

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptrVal(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
