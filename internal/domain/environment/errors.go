package environment

import "errors"

// Sentinel errors for this package.
var (
	ErrNotEnvironmental = errors.New("kind is not an environmental kind")
)
