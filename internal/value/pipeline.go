package value

import (
	"fmt"

	"github.com/emberhome/devices-core/internal/catalog"
)

// Pipeline composes the conversion stages into the directional pipelines the
// state manager runs on every read and write.
//
// Orientation: the state store always holds a property's value in system
// canonical form (device tokens mapped, scale divided out). Converting a
// stored value "for reading" yields the display form (equation applied);
// converting "for use" yields the device wire form (scale multiplied back
// in, device write tokens).
//
// Mapped properties never store values themselves. Their views are derived
// from the parent's stored value with exactly one extra equation-transform
// step, and writes through them run the inverse equation before converting
// into the parent's value space.
type Pipeline struct {
	equations *EquationEngine
}

// NewPipeline creates a pipeline with its own equation engine and an empty
// program cache.
func NewPipeline() (*Pipeline, error) {
	eng, err := NewEquationEngine()
	if err != nil {
		return nil, err
	}
	return &Pipeline{equations: eng}, nil
}

// ForActualWrite converts a device-reported raw value into stored form:
// coercion, device token mapping, scale division, then format validation.
func (pl *Pipeline) ForActualWrite(p *catalog.Property, raw Value) (Value, error) {
	v, err := Coerce(raw, p.DataType)
	if err != nil {
		return Null(), err
	}
	v, err = FromDevice(v, p)
	if err != nil {
		return Null(), err
	}
	v = FromScale(v, p)
	return Normalize(v, p)
}

// ForExpectedWrite converts a caller-requested value into stored form for a
// dynamic property: coercion and validation in the property's own space,
// then the inverse equation when one is declared.
func (pl *Pipeline) ForExpectedWrite(p *catalog.Property, raw Value) (Value, error) {
	v, err := Coerce(raw, storedType(p))
	if err != nil {
		return Null(), err
	}
	v, err = Normalize(v, p)
	if err != nil {
		return Null(), err
	}
	return pl.applyInverse(p, v)
}

// ForMappedExpectedWrite converts a caller-requested value in the mapped
// property's space into the parent's stored form: the mapped property's own
// coercion and validation, its inverse equation into the parent's space,
// then the parent's coercion and validation.
func (pl *Pipeline) ForMappedExpectedWrite(child, parent *catalog.Property, raw Value) (Value, error) {
	v, err := Coerce(raw, storedType(child))
	if err != nil {
		return Null(), err
	}
	v, err = Normalize(v, child)
	if err != nil {
		return Null(), err
	}
	v, err = pl.applyInverse(child, v)
	if err != nil {
		return Null(), err
	}

	v, err = Coerce(v, storedType(parent))
	if err != nil {
		return Null(), err
	}
	return Normalize(v, parent)
}

// ReadView converts a stored value into the property's display form.
func (pl *Pipeline) ReadView(p *catalog.Property, stored Value) (Value, error) {
	v, err := Coerce(stored, storedType(p))
	if err != nil {
		return Null(), err
	}
	v, err = Normalize(v, p)
	if err != nil {
		return Null(), err
	}
	return pl.applyForward(p, v)
}

// GetView converts a stored value into the property's device wire form.
func (pl *Pipeline) GetView(p *catalog.Property, stored Value) (Value, error) {
	v, err := Coerce(stored, storedType(p))
	if err != nil {
		return Null(), err
	}
	v, err = Normalize(v, p)
	if err != nil {
		return Null(), err
	}
	v = ToScale(v, p)
	return ToDevice(v, p)
}

// MappedReadView converts the parent's stored value into the mapped
// property's display form: the parent's read view plus the mapped
// property's equation and coercion.
func (pl *Pipeline) MappedReadView(child, parent *catalog.Property, stored Value) (Value, error) {
	v, err := pl.ReadView(parent, stored)
	if err != nil {
		return Null(), err
	}
	v, err = pl.applyForward(child, v)
	if err != nil {
		return Null(), err
	}
	return Coerce(v, storedType(child))
}

// MappedGetView converts the parent's stored value into the mapped
// property's device wire form.
func (pl *Pipeline) MappedGetView(child, parent *catalog.Property, stored Value) (Value, error) {
	v, err := pl.MappedReadView(child, parent, stored)
	if err != nil {
		return Null(), err
	}
	v = ToScale(v, child)
	return ToDevice(v, child)
}

// applyForward applies the property's forward (reading) equation, if any.
func (pl *Pipeline) applyForward(p *catalog.Property, v Value) (Value, error) {
	if p.EquationTo == nil || v.IsNull() {
		return v, nil
	}
	return pl.equations.Apply(*p.EquationTo, v)
}

// applyInverse applies the property's inverse (writing) equation. A property
// that declares a forward equation without an inverse cannot accept writes
// in its display space.
func (pl *Pipeline) applyInverse(p *catalog.Property, v Value) (Value, error) {
	if v.IsNull() {
		return v, nil
	}
	if p.EquationFrom != nil {
		return pl.equations.Apply(*p.EquationFrom, v)
	}
	if p.EquationTo != nil {
		return Null(), fmt.Errorf("%w: property %s declares no inverse equation", ErrInvalidValue, p.ID)
	}
	return v, nil
}

// storedType is the data type used when coercing stored and display values.
// Integer properties with a scale store fractional canonical values, which
// are carried as floats.
func storedType(p *catalog.Property) catalog.DataType {
	if p.DataType.IsInteger() && p.Scale != nil && *p.Scale != 0 {
		return catalog.DataTypeFloat
	}
	return p.DataType
}
