package catalog

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind identifies which catalog entity owns a property.
type EntityKind string

// EntityKind constants.
const (
	EntityConnector EntityKind = "connector"
	EntityDevice    EntityKind = "device"
	EntityChannel   EntityKind = "channel"
)

// AllEntityKinds returns all valid entity kind values.
func AllEntityKinds() []EntityKind {
	return []EntityKind{EntityConnector, EntityDevice, EntityChannel}
}

// PropertyKind distinguishes dynamic properties, which own a state record,
// from mapped properties, which are transformed views onto a parent dynamic
// property's record.
type PropertyKind string

// PropertyKind constants.
const (
	KindDynamic PropertyKind = "dynamic"
	KindMapped  PropertyKind = "mapped"
)

// DataType is the declared type of a property's value.
type DataType string

// DataType constants.
const (
	DataTypeBool     DataType = "bool"
	DataTypeChar     DataType = "char"
	DataTypeUChar    DataType = "uchar"
	DataTypeShort    DataType = "short"
	DataTypeUShort   DataType = "ushort"
	DataTypeInt      DataType = "int"
	DataTypeUInt     DataType = "uint"
	DataTypeFloat    DataType = "float"
	DataTypeString   DataType = "string"
	DataTypeEnum     DataType = "enum"
	DataTypeDate     DataType = "date"
	DataTypeTime     DataType = "time"
	DataTypeDateTime DataType = "datetime"
	DataTypeButton   DataType = "button"
	DataTypeSwitch   DataType = "switch"
	DataTypeCover    DataType = "cover"
)

// AllDataTypes returns all valid data type values.
func AllDataTypes() []DataType {
	return []DataType{
		DataTypeBool, DataTypeChar, DataTypeUChar, DataTypeShort, DataTypeUShort,
		DataTypeInt, DataTypeUInt, DataTypeFloat, DataTypeString, DataTypeEnum,
		DataTypeDate, DataTypeTime, DataTypeDateTime,
		DataTypeButton, DataTypeSwitch, DataTypeCover,
	}
}

// IsNumeric reports whether values of this type carry a numeric payload.
func (t DataType) IsNumeric() bool {
	switch t {
	case DataTypeChar, DataTypeUChar, DataTypeShort, DataTypeUShort,
		DataTypeInt, DataTypeUInt, DataTypeFloat:
		return true
	default:
		return false
	}
}

// IsInteger reports whether values of this type are whole numbers.
func (t DataType) IsInteger() bool {
	switch t {
	case DataTypeChar, DataTypeUChar, DataTypeShort, DataTypeUShort,
		DataTypeInt, DataTypeUInt:
		return true
	default:
		return false
	}
}

// IsEnumLike reports whether values of this type are validated against a
// declared token set. Button, switch and cover payloads are token sets with
// distinct device read/write forms, so they follow the enum rules.
func (t DataType) IsEnumLike() bool {
	switch t {
	case DataTypeEnum, DataTypeButton, DataTypeSwitch, DataTypeCover:
		return true
	default:
		return false
	}
}

// Property is a catalog property of a connector, device or channel.
// This matches the database schema in migrations/20260301_100000_catalog_schema.up.sql.
//
// Dynamic properties track a live value in a state record. Mapped properties
// re-expose a parent dynamic property's value under their own scale and
// transform; they never have a state record of their own, and their parent
// must itself be dynamic (one level of indirection only).
type Property struct {
	ID         string       `json:"id"`
	EntityKind EntityKind   `json:"entity_kind"`
	OwnerID    string       `json:"owner_id"`
	Kind       PropertyKind `json:"kind"`
	Identifier string       `json:"identifier"`
	Name       *string      `json:"name,omitempty"`

	// Value space
	DataType DataType `json:"data_type"`
	Unit     *string  `json:"unit,omitempty"`
	Format   *string  `json:"format,omitempty"`
	Invalid  *string  `json:"invalid,omitempty"`
	Scale    *int     `json:"scale,omitempty"`

	// Behaviour flags
	Settable  bool `json:"settable"`
	Queryable bool `json:"queryable"`

	// Equation transformer expressions (optional, numeric types only).
	EquationTo   *string `json:"equation_to,omitempty"`
	EquationFrom *string `json:"equation_from,omitempty"`

	// ParentID is set only for mapped properties.
	ParentID *string `json:"parent_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsMapped reports whether the property is a mapped view onto a parent.
func (p *Property) IsMapped() bool {
	return p.Kind == KindMapped
}

// Copy creates an independent copy of the Property.
// Pointer fields are cloned so modifications to the copy do not affect
// the original. This is essential for cache isolation.
func (p *Property) Copy() *Property {
	if p == nil {
		return nil
	}

	cpy := *p
	cpy.Name = copyString(p.Name)
	cpy.Unit = copyString(p.Unit)
	cpy.Format = copyString(p.Format)
	cpy.Invalid = copyString(p.Invalid)
	cpy.EquationTo = copyString(p.EquationTo)
	cpy.EquationFrom = copyString(p.EquationFrom)
	cpy.ParentID = copyString(p.ParentID)

	if p.Scale != nil {
		s := *p.Scale
		cpy.Scale = &s
	}

	return &cpy
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// GenerateID creates a new UUID for a property.
func GenerateID() string {
	return uuid.New().String()
}
