package config

import "errors"

var (
	// ErrInvalidConfig wraps every value vigild refuses to start with.
	ErrInvalidConfig = errors.New("invalid vigil config")
	// ErrLoadConfig is returned when the YAML file or VIGIL_* env cannot be read.
	ErrLoadConfig = errors.New("load vigil config")
	// ErrInvalidSink marks an unusable violation sink setting. It is always
	// reported together with ErrInvalidConfig.
	ErrInvalidSink = errors.New("invalid violation sink")
)
