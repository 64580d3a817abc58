package estimate

import "errors"

// Sentinel errors for invalid engine input.
var (
	ErrEmptyRoster = errors.New("team has no runners")
	ErrNoLoops     = errors.New("team has no loops")
)
