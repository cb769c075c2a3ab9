package app

import "errors"

// Sentinel errors for the session layer.
var (
	// ErrPermissionDenied is wrapped by Camera implementations when the
	// candidate refused camera access.
	ErrPermissionDenied   = errors.New("camera permission denied")
	ErrCameraUnavailable  = errors.New("camera unavailable")
	ErrTrackerUnavailable = errors.New("face tracker unavailable")

	ErrMissingIdentity = errors.New("subject and assessment ids are required")
	ErrSessionExists   = errors.New("session already open for this subject and assessment")
	ErrSessionNotFound = errors.New("session not found")
	ErrServiceStopped  = errors.New("service not started")

	ErrNoFrame = errors.New("no frame available")
	ErrNoFace  = errors.New("no face detected")
)
