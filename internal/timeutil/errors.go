package timeutil

import "errors"

// Sentinel errors returned by the parsers in this package.
var (
	ErrInvalidPace      = errors.New("invalid pace")
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
)
