package config

import "errors"

var (
	// ErrNilPointer is returned when a nil pointer is passed to Load.
	ErrNilPointer = errors.New("config: nil pointer provided")
	// ErrParsingConfig is returned when environment parsing fails,
	// e.g. a required variable is unset or a value has the wrong type.
	ErrParsingConfig = errors.New("config: failed to parse environment")
)
