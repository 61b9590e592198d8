package states

import "errors"

// Domain errors for the states package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, states.ErrNotConfigured) {
//	    // state storage unavailable, degrade gracefully
//	}
var (
	// ErrNotConfigured is returned by a Store constructed without backing
	// storage (headless deployments). Callers treat it as "feature
	// unavailable", never as a failure to surface to users.
	ErrNotConfigured = errors.New("states: not configured")

	// ErrStateNotFound is returned when no state record exists for a
	// property id.
	ErrStateNotFound = errors.New("states: state not found")

	// ErrInvalidState is returned on structural inconsistency: a mapped
	// property with a missing or non-dynamic parent, incompatible data
	// types between a mapped property and its parent, or an action bus
	// publish failure.
	ErrInvalidState = errors.New("states: invalid state")

	// ErrInvalidArgument is returned when a caller violates the write
	// contract: setting actual through Set or a mapped handle, or writing
	// expected on a non-settable property.
	ErrInvalidArgument = errors.New("states: invalid argument")
)
