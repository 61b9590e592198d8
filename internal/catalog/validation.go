package catalog

import (
	"fmt"
	"strings"
)

const maxIdentifierLength = 100

// ValidateProperty checks a property for structural correctness before it is
// persisted. Parent existence is checked by the Registry, which can see the
// rest of the catalog; this function only checks the property itself.
func ValidateProperty(p *Property) error {
	if p == nil {
		return fmt.Errorf("%w: nil property", ErrInvalidProperty)
	}

	if strings.TrimSpace(p.Identifier) == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidProperty)
	}
	if len(p.Identifier) > maxIdentifierLength {
		return fmt.Errorf("%w: identifier exceeds %d characters", ErrInvalidProperty, maxIdentifierLength)
	}

	if strings.TrimSpace(p.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrInvalidProperty)
	}

	if !validEntityKind(p.EntityKind) {
		return fmt.Errorf("%w: unknown entity kind %q", ErrInvalidProperty, p.EntityKind)
	}

	switch p.Kind {
	case KindDynamic:
		if p.ParentID != nil {
			return fmt.Errorf("%w: dynamic property must not reference a parent", ErrInvalidProperty)
		}
	case KindMapped:
		if p.ParentID == nil || strings.TrimSpace(*p.ParentID) == "" {
			return fmt.Errorf("%w: mapped property requires a parent id", ErrInvalidProperty)
		}
	default:
		return fmt.Errorf("%w: unknown property kind %q", ErrInvalidProperty, p.Kind)
	}

	if !validDataType(p.DataType) {
		return fmt.Errorf("%w: unknown data type %q", ErrInvalidProperty, p.DataType)
	}

	// A declared format must at least parse for the declared type.
	if p.Format != nil {
		switch {
		case p.DataType.IsNumeric():
			if _, err := ParseNumberRange(*p.Format); err != nil {
				return err
			}
		case p.DataType.IsEnumLike():
			if _, err := ParseEnum(*p.Format); err != nil {
				return err
			}
		}
	}

	if p.Scale != nil && !p.DataType.IsNumeric() {
		return fmt.Errorf("%w: scale declared on non-numeric type %q", ErrInvalidProperty, p.DataType)
	}

	return nil
}

func validEntityKind(k EntityKind) bool {
	for _, valid := range AllEntityKinds() {
		if k == valid {
			return true
		}
	}
	return false
}

func validDataType(t DataType) bool {
	for _, valid := range AllDataTypes() {
		if t == valid {
			return true
		}
	}
	return false
}
