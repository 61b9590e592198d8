// Package value implements the property value conversion pipeline for
// devices-core.
//
// A property's value exists in three representations:
//
//   - device form: the raw value on the wire (unscaled numbers, device
//     token sets)
//   - stored form: the system canonical value persisted in a state record
//   - display form: the stored form with the property's equation applied
//
// The package provides the individual stateless stages (Coerce, Normalize,
// ToScale/FromScale, ToDevice/FromDevice, equation transformers) and a
// Pipeline that composes them into the directional conversions the state
// manager needs: actual writes arriving from hardware, expected writes
// requested by callers (including through mapped properties), and the read
// and get views of a stored value.
//
// Every stage passes null through untouched and reports failures as
// ErrInvalidValue; callers degrade the offending field to null/invalid
// rather than aborting the whole operation.
//
// Equation transformer expressions are CEL programs over a single double
// variable x, compiled once and cached per Pipeline.
package value
