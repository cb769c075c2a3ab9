package facestream

import "errors"

// Sentinel errors for this package.
var (
	ErrTrackerFailed = errors.New("browser face tracker failed to load")
	ErrCameraFailed  = errors.New("browser camera failed")
	ErrNoSnapshot    = errors.New("no snapshot available")
	ErrForeignFrame  = errors.New("frame was not produced by this stream")
	ErrInvalidSample = errors.New("invalid sample")
)
