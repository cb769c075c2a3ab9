package api

import "errors"

// Sentinel errors for the API layer.
var (
	ErrBadRequest     = errors.New("bad request")
	ErrUnknownMessage = errors.New("unknown message type")
	ErrRateLimited    = errors.New("message rate exceeded")
)
