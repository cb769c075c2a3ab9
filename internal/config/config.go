// Package config defines the proctoring daemon configuration and how it is
// loaded.
//
// Keys are flat and snake_case so the same name works in YAML and, upper
// cased behind the VIGIL_ prefix, in the environment.
package config

import (
	"time"

	"github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/domain/classifier"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory delivery queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of delivery workers.
	WorkerCount int `koanf:"worker_count"`

	TickIntervalMS        int `koanf:"tick_interval_ms"`
	CameraThrottleMS      int `koanf:"camera_throttle_ms"`
	EnvironmentThrottleMS int `koanf:"environment_throttle_ms"`

	GazeConsecutiveThreshold int     `koanf:"gaze_consecutive_threshold"`
	MultiFaceConfidenceFloor float64 `koanf:"multi_face_confidence_floor"`
	NoBlinkTimeoutMS         int     `koanf:"no_blink_timeout_ms"`
	BlinkEARThreshold        float64 `koanf:"blink_ear_threshold"`
	HeadMovementThreshold    float64 `koanf:"head_movement_threshold"`
	HeadMovementWindow       int     `koanf:"head_movement_window"`
	FaceMismatchThreshold    float64 `koanf:"face_mismatch_threshold"`
	FaceMismatchConsecutive  int     `koanf:"face_mismatch_consecutive"`

	TabSwitchDebounceMS int     `koanf:"tab_switch_debounce_ms"`
	DevtoolsDetection   bool    `koanf:"devtools_detection"`
	DevtoolsIntervalMS  int     `koanf:"devtools_interval_ms"`
	DevtoolsThreshold   float64 `koanf:"devtools_threshold"`

	// SnapshotsEnabled attaches the last camera frame to camera violations.
	SnapshotsEnabled bool `koanf:"snapshots_enabled"`

	// TransportHTTPURL enables the HTTP sink when set.
	TransportHTTPURL       string `koanf:"transport_http_url"`
	TransportHTTPTimeoutMS int    `koanf:"transport_http_timeout_ms"`

	// MQTTBroker enables the MQTT sink when set, e.g. "tcp://broker:1883".
	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTTopic    string `koanf:"mqtt_topic"`
	MQTTClientID string `koanf:"mqtt_client_id"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Addr:        ":9080",
		QueueSize:   10_000,
		WorkerCount: 4,

		TickIntervalMS:        700,
		CameraThrottleMS:      5000,
		EnvironmentThrottleMS: 1000,

		GazeConsecutiveThreshold: 3,
		MultiFaceConfidenceFloor: 0.5,
		NoBlinkTimeoutMS:         6000,
		BlinkEARThreshold:        0.2,
		HeadMovementThreshold:    2.5,
		HeadMovementWindow:       10,
		FaceMismatchThreshold:    0.35,
		FaceMismatchConsecutive:  3,

		TabSwitchDebounceMS: 50,
		DevtoolsDetection:   false,
		DevtoolsIntervalMS:  2000,
		DevtoolsThreshold:   160,

		SnapshotsEnabled: true,

		TransportHTTPTimeoutMS: 5000,

		MQTTTopic:    "vigil/violations",
		MQTTClientID: "vigil",
	}
}

// Settings maps the detection keys onto per-session settings.
func (c *Config) Settings() app.Settings {
	tick := ms(c.TickIntervalMS)
	return app.Settings{
		TickInterval:        tick,
		CameraThrottle:      ms(c.CameraThrottleMS),
		EnvironmentThrottle: ms(c.EnvironmentThrottleMS),
		Classifier: classifier.Config{
			TickInterval:          tick,
			GazeThreshold:         c.GazeConsecutiveThreshold,
			MultiFaceFloor:        c.MultiFaceConfidenceFloor,
			BlinkEARThreshold:     c.BlinkEARThreshold,
			NoBlinkTimeout:        ms(c.NoBlinkTimeoutMS),
			HeadMovementThreshold: c.HeadMovementThreshold,
			MismatchThreshold:     c.FaceMismatchThreshold,
			MismatchCount:         c.FaceMismatchConsecutive,
		},
		HeadMovementWindow: c.HeadMovementWindow,
		TabDebounce:        ms(c.TabSwitchDebounceMS),
		DevtoolsDetection:  c.DevtoolsDetection,
		DevtoolsInterval:   ms(c.DevtoolsIntervalMS),
		DevtoolsThreshold:  c.DevtoolsThreshold,
		Snapshots:          c.SnapshotsEnabled,
	}
}

// HTTPTimeout is the per-request timeout of the HTTP sink.
func (c *Config) HTTPTimeout() time.Duration { return ms(c.TransportHTTPTimeoutMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
