package model

import "errors"

// Error taxonomy. Fatal errors wrap one of these sentinels so callers can
// classify them with errors.Is.
var (
	// ErrStructural covers bad node indices, self-loops, missing links and malformed edge lists.
	ErrStructural = errors.New("structural error")

	// ErrConfiguration covers invalid parameters and unknown mode codes.
	ErrConfiguration = errors.New("configuration error")

	// ErrTrafficValidation covers traffic that cannot be turned into a flow program.
	ErrTrafficValidation = errors.New("traffic validation error")

	// ErrIO covers failures reading or writing files.
	ErrIO = errors.New("io error")
)
