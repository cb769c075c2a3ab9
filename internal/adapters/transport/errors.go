package transport

import "errors"

// Sentinel errors for this package.
var (
	ErrMissingEndpoint  = errors.New("transport endpoint not configured")
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrNotConnected     = errors.New("mqtt not connected")
	ErrPublishTimeout   = errors.New("mqtt publish timeout")
	ErrConnectTimeout   = errors.New("mqtt connection timeout")
)
