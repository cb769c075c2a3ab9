package app

import (
	"time"

	"github.com/okian/vigil/internal/domain/classifier"
)

// Settings are the per-session tunables, usually built from config.
type Settings struct {
	TickInterval        time.Duration
	CameraThrottle      time.Duration
	EnvironmentThrottle time.Duration
	Classifier          classifier.Config
	HeadMovementWindow  int
	TabDebounce         time.Duration
	DevtoolsDetection   bool
	DevtoolsInterval    time.Duration
	DevtoolsThreshold   float64
	Snapshots           bool
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		TickInterval:        defaultTickInterval,
		CameraThrottle:      defaultCameraThrottle,
		EnvironmentThrottle: defaultEnvironmentThrottle,
		Classifier:          classifier.DefaultConfig(),
		HeadMovementWindow:  10,
		TabDebounce:         50 * time.Millisecond,
		DevtoolsInterval:    2 * time.Second,
		DevtoolsThreshold:   160,
		Snapshots:           true,
	}
}
