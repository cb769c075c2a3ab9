package classifier

import (
	"time"

	"github.com/okian/vigil/internal/domain/landmarks"
)

// Default classifier thresholds.
const (
	defaultTickInterval          = 700 * time.Millisecond
	defaultGazeThreshold         = 3
	defaultMultiFaceFloor        = 0.5
	defaultBlinkEARThreshold     = 0.2
	defaultNoBlinkTimeout        = 6 * time.Second
	defaultHeadMovementThreshold = 2.5
	defaultMismatchThreshold     = 0.35
	defaultMismatchCount         = 3
)

// Config holds the thresholds of every face rule.
type Config struct {
	// TickInterval is the scheduler cadence, used to report gaze duration.
	TickInterval time.Duration
	// GazeThreshold is the number of consecutive off-centre ticks before
	// GAZE_AWAY is declared.
	GazeThreshold int
	// MultiFaceFloor is the minimum confidence for a face to be counted.
	MultiFaceFloor float64
	// BlinkEARThreshold is the eye-aspect-ratio below which an eye is closed.
	BlinkEARThreshold float64
	// NoBlinkTimeout is the longest allowed gap between completed blinks.
	NoBlinkTimeout time.Duration
	// HeadMovementThreshold is the window average below which the head is
	// considered frozen.
	HeadMovementThreshold float64
	// MismatchThreshold is the similarity below which a sample mismatches.
	MismatchThreshold float64
	// MismatchCount is the number of consecutive mismatches before
	// FACE_MISMATCH is declared.
	MismatchCount int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval:          defaultTickInterval,
		GazeThreshold:         defaultGazeThreshold,
		MultiFaceFloor:        defaultMultiFaceFloor,
		BlinkEARThreshold:     defaultBlinkEARThreshold,
		NoBlinkTimeout:        defaultNoBlinkTimeout,
		HeadMovementThreshold: defaultHeadMovementThreshold,
		MismatchThreshold:     defaultMismatchThreshold,
		MismatchCount:         defaultMismatchCount,
	}
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithConfig replaces the thresholds. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(c *Classifier) {
		d := DefaultConfig()
		if cfg.TickInterval <= 0 {
			cfg.TickInterval = d.TickInterval
		}
		if cfg.GazeThreshold <= 0 {
			cfg.GazeThreshold = d.GazeThreshold
		}
		if cfg.MultiFaceFloor <= 0 {
			cfg.MultiFaceFloor = d.MultiFaceFloor
		}
		if cfg.BlinkEARThreshold <= 0 {
			cfg.BlinkEARThreshold = d.BlinkEARThreshold
		}
		if cfg.NoBlinkTimeout <= 0 {
			cfg.NoBlinkTimeout = d.NoBlinkTimeout
		}
		if cfg.HeadMovementThreshold <= 0 {
			cfg.HeadMovementThreshold = d.HeadMovementThreshold
		}
		if cfg.MismatchThreshold <= 0 {
			cfg.MismatchThreshold = d.MismatchThreshold
		}
		if cfg.MismatchCount <= 0 {
			cfg.MismatchCount = d.MismatchCount
		}
		c.cfg = cfg
	}
}

// WithScheme sets the landmark index scheme of the face tracker.
func WithScheme(s landmarks.Scheme) Option {
	return func(c *Classifier) {
		c.scheme = s
	}
}
