package classifier

import "errors"

// Sentinel errors for reference-profile handling.
var (
	ErrReferenceSet          = errors.New("reference profile already set")
	ErrInsufficientLandmarks = errors.New("insufficient identity landmarks")
)
