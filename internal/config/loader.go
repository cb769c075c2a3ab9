package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "VIGIL_"
	envFileKey = "VIGIL_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if VIGIL_CONFIG is set
//  3. env (prefix VIGIL_)
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envFileKey); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// VIGIL_QUEUE_SIZE -> queue_size. Underscores are kept to match the
	// flat koanf tags; VIGIL_CONFIG itself is not a key.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		if s == envFileKey {
			return ""
		}
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the daemon cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.TickIntervalMS <= 0:
		return fmt.Errorf("%w: tick_interval_ms must be positive", ErrInvalidConfig)
	case c.CameraThrottleMS < 0 || c.EnvironmentThrottleMS < 0:
		return fmt.Errorf("%w: throttles must not be negative", ErrInvalidConfig)
	case c.GazeConsecutiveThreshold <= 0 || c.FaceMismatchConsecutive <= 0:
		return fmt.Errorf("%w: consecutive thresholds must be positive", ErrInvalidConfig)
	case c.MultiFaceConfidenceFloor < 0 || c.MultiFaceConfidenceFloor > 1:
		return fmt.Errorf("%w: multi_face_confidence_floor must be within [0,1]", ErrInvalidConfig)
	case c.FaceMismatchThreshold < 0 || c.FaceMismatchThreshold > 1:
		return fmt.Errorf("%w: face_mismatch_threshold must be within [0,1]", ErrInvalidConfig)
	case c.HeadMovementWindow <= 0:
		return fmt.Errorf("%w: head_movement_window must be positive", ErrInvalidConfig)
	case c.DevtoolsDetection && c.DevtoolsIntervalMS <= 0:
		return fmt.Errorf("%w: devtools_interval_ms must be positive", ErrInvalidConfig)
	case c.TransportHTTPURL != "" && c.TransportHTTPTimeoutMS <= 0:
		return fmt.Errorf("%w: transport_http_timeout_ms must be positive", ErrInvalidConfig)
	}
	return c.validateSinks()
}

func (c *Config) validateSinks() error {
	if c.TransportHTTPURL != "" {
		u, err := url.Parse(c.TransportHTTPURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %w: transport_http_url %q must be an http(s) URL", ErrInvalidConfig, ErrInvalidSink, c.TransportHTTPURL)
		}
	}
	if c.MQTTBroker != "" && (c.MQTTTopic == "" || c.MQTTClientID == "") {
		return fmt.Errorf("%w: %w: mqtt_topic and mqtt_client_id are required with mqtt_broker", ErrInvalidConfig, ErrInvalidSink)
	}
	return nil
}
