package catalog

import "errors"

// Domain errors for the catalog package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, catalog.ErrPropertyNotFound) {
//	    // handle not found case
//	}
var (
	// ErrPropertyNotFound is returned when a property ID does not exist.
	ErrPropertyNotFound = errors.New("catalog: property not found")

	// ErrPropertyExists is returned when creating a property with an ID or
	// (entity kind, owner, identifier) combination that already exists.
	ErrPropertyExists = errors.New("catalog: property already exists")

	// ErrInvalidProperty is returned when property validation fails.
	ErrInvalidProperty = errors.New("catalog: invalid property")

	// ErrInvalidFormat is returned when a format string cannot be parsed.
	ErrInvalidFormat = errors.New("catalog: invalid format")

	// ErrInvalidParent is returned when a mapped property references a parent
	// that is missing or is not itself a dynamic property.
	ErrInvalidParent = errors.New("catalog: invalid parent")
)
