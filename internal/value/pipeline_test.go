package value

import (
	"errors"
	"testing"

	"github.com/emberhome/devices-core/internal/catalog"
)

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	pl, err := NewPipeline()
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	return pl
}

// mappedProperty builds a mapped float property over the given parent with
// forward and inverse equations.
func mappedProperty(parentID, eqTo, eqFrom string) *catalog.Property {
	p := &catalog.Property{
		ID:         "mapped-1",
		EntityKind: catalog.EntityChannel,
		OwnerID:    "channel-1",
		Kind:       catalog.KindMapped,
		Identifier: "temperature_f",
		DataType:   catalog.DataTypeFloat,
		Settable:   true,
		ParentID:   &parentID,
	}
	if eqTo != "" {
		p.EquationTo = &eqTo
	}
	if eqFrom != "" {
		p.EquationFrom = &eqFrom
	}
	return p
}

func TestForActualWrite_ScaledFloat(t *testing.T) {
	pl := newPipeline(t)
	p := floatProperty("0:100", 2)

	// Raw device value "2550" with scale 2 stores as 25.5.
	stored, err := pl.ForActualWrite(p, String("2550"))
	if err != nil {
		t.Fatalf("ForActualWrite() error = %v", err)
	}
	if got, _ := stored.Float64(); got != 25.5 {
		t.Errorf("stored = %v, want 25.5", got)
	}

	// Out-of-range raw value fails validation after scaling.
	if _, err := pl.ForActualWrite(p, String("999999")); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("ForActualWrite(999999) error = %v, want ErrInvalidValue", err)
	}
}

func TestForActualWrite_EnumTokens(t *testing.T) {
	pl := newPipeline(t)
	p := enumProperty("on:1:true,off:0:false")

	stored, err := pl.ForActualWrite(p, String("1"))
	if err != nil {
		t.Fatalf("ForActualWrite() error = %v", err)
	}
	if stored.FlattenString() != "on" {
		t.Errorf("stored = %q, want on", stored.FlattenString())
	}
}

func TestReadAndGetViews_RoundTrip(t *testing.T) {
	pl := newPipeline(t)
	p := floatProperty("0:100", 2)

	stored, err := pl.ForActualWrite(p, String("2550"))
	if err != nil {
		t.Fatalf("ForActualWrite() error = %v", err)
	}

	read, err := pl.ReadView(p, stored)
	if err != nil {
		t.Fatalf("ReadView() error = %v", err)
	}
	if got, _ := read.Float64(); got != 25.5 {
		t.Errorf("read view = %v, want 25.5", got)
	}

	// The get view restores the raw device form: write/read round trip.
	get, err := pl.GetView(p, stored)
	if err != nil {
		t.Fatalf("GetView() error = %v", err)
	}
	if !Equal(get, String("2550")) {
		t.Errorf("get view = %q, want 2550", get.FlattenString())
	}
}

func TestGetView_EnumDeviceWriteToken(t *testing.T) {
	pl := newPipeline(t)
	p := enumProperty("on:1:true,off:0:false")

	get, err := pl.GetView(p, String("on"))
	if err != nil {
		t.Fatalf("GetView() error = %v", err)
	}
	if get.FlattenString() != "true" {
		t.Errorf("get view = %q, want true", get.FlattenString())
	}
}

func TestReadView_CorruptStored(t *testing.T) {
	pl := newPipeline(t)
	p := floatProperty("0:100", 0)

	if _, err := pl.ReadView(p, String("garbage")); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("ReadView(garbage) error = %v, want ErrInvalidValue", err)
	}
}

func TestMappedReadView_OneExtraEquationStep(t *testing.T) {
	pl := newPipeline(t)
	parent := floatProperty("0:100", 0)
	child := mappedProperty(parent.ID, "x * 1.8 + 32.0", "(x - 32.0) / 1.8")

	stored := Float(20)

	parentRead, err := pl.ReadView(parent, stored)
	if err != nil {
		t.Fatalf("ReadView(parent) error = %v", err)
	}
	childRead, err := pl.MappedReadView(child, parent, stored)
	if err != nil {
		t.Fatalf("MappedReadView() error = %v", err)
	}

	if got, _ := parentRead.Float64(); got != 20 {
		t.Errorf("parent read = %v, want 20", got)
	}
	if got, _ := childRead.Float64(); got != 68 {
		t.Errorf("mapped read = %v, want 68 (exactly one equation step)", got)
	}
}

func TestForMappedExpectedWrite_InverseIntoParentSpace(t *testing.T) {
	pl := newPipeline(t)
	parent := floatProperty("0:100", 0)
	child := mappedProperty(parent.ID, "x * 1.8 + 32.0", "(x - 32.0) / 1.8")

	stored, err := pl.ForMappedExpectedWrite(child, parent, Float(68))
	if err != nil {
		t.Fatalf("ForMappedExpectedWrite() error = %v", err)
	}
	if got, _ := stored.Float64(); got != 20 {
		t.Errorf("stored = %v, want 20", got)
	}

	// Round trip: writing through the child and reading it back is identity.
	back, err := pl.MappedReadView(child, parent, stored)
	if err != nil {
		t.Fatalf("MappedReadView() error = %v", err)
	}
	if got, _ := back.Float64(); got != 68 {
		t.Errorf("round trip = %v, want 68", got)
	}
}

func TestForMappedExpectedWrite_NoInverse(t *testing.T) {
	pl := newPipeline(t)
	parent := floatProperty("0:100", 0)
	child := mappedProperty(parent.ID, "x * 2.0", "")

	if _, err := pl.ForMappedExpectedWrite(child, parent, Float(10)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("ForMappedExpectedWrite(no inverse) error = %v, want ErrInvalidValue", err)
	}
}

func TestForMappedExpectedWrite_ParentRangeEnforced(t *testing.T) {
	pl := newPipeline(t)
	parent := floatProperty("0:100", 0)
	child := mappedProperty(parent.ID, "x * 2.0", "x / 2.0")

	// 500 / 2 = 250, outside the parent's range.
	if _, err := pl.ForMappedExpectedWrite(child, parent, Float(500)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("ForMappedExpectedWrite(out of parent range) error = %v, want ErrInvalidValue", err)
	}
}

func TestForExpectedWrite_Dynamic(t *testing.T) {
	pl := newPipeline(t)
	p := floatProperty("0:100", 2)

	// Callers speak the system canonical form; scale is a device concern.
	stored, err := pl.ForExpectedWrite(p, String("21.5"))
	if err != nil {
		t.Fatalf("ForExpectedWrite() error = %v", err)
	}
	if got, _ := stored.Float64(); got != 21.5 {
		t.Errorf("stored = %v, want 21.5", got)
	}

	if _, err := pl.ForExpectedWrite(p, Float(101)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("ForExpectedWrite(out of range) error = %v, want ErrInvalidValue", err)
	}
}

func TestPipeline_NullPassesThrough(t *testing.T) {
	pl := newPipeline(t)
	p := floatProperty("0:100", 2)

	for name, fn := range map[string]func() (Value, error){
		"ForActualWrite":   func() (Value, error) { return pl.ForActualWrite(p, Null()) },
		"ForExpectedWrite": func() (Value, error) { return pl.ForExpectedWrite(p, Null()) },
		"ReadView":         func() (Value, error) { return pl.ReadView(p, Null()) },
		"GetView":          func() (Value, error) { return pl.GetView(p, Null()) },
	} {
		out, err := fn()
		if err != nil {
			t.Errorf("%s(null) error = %v", name, err)
		}
		if !out.IsNull() {
			t.Errorf("%s(null) = %q, want null", name, out.FlattenString())
		}
	}
}
