package simulate

import "time"

// Defaults applied to zero Config fields.
const (
	DefaultCandidates     = 10
	DefaultAssessmentID   = "sim-assessment"
	DefaultDuration       = 5 * time.Second
	DefaultSampleInterval = 100 * time.Millisecond
	DefaultTimeout        = 10 * time.Second
)

// Candidate pacing.
const (
	hiddenFor  = 200 * time.Millisecond
	drainDelay = 300 * time.Millisecond
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)
