package value

import "errors"

// ErrInvalidValue is returned when a value cannot be represented in, or fails
// validation against, a property's declared value space. Callers degrade the
// offending field to null/invalid rather than aborting the whole operation.
var ErrInvalidValue = errors.New("value: invalid value")
