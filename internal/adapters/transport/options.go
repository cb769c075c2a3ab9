package transport

import (
	"net/http"
	"time"

	"github.com/okian/vigil/pkg/logger"
)

// HTTPOption applies a configuration option to the HTTP sink.
type HTTPOption func(*HTTP)

// WithHTTPTimeout sets the total request timeout.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithHTTPLogger sets a custom logger for the HTTP sink.
func WithHTTPLogger(l logger.Logger) HTTPOption {
	return func(h *HTTP) {
		if l != nil {
			h.logger = l
		}
	}
}

// MQTTOption applies a configuration option to the MQTT sink.
type MQTTOption func(*MQTT)

// WithClientID sets the MQTT client identifier.
func WithClientID(id string) MQTTOption {
	return func(m *MQTT) {
		if id != "" {
			m.clientID = id
		}
	}
}

// WithTopic sets the base topic. Violations are published under
// <topic>/<assessmentId>/<kind>.
func WithTopic(topic string) MQTTOption {
	return func(m *MQTT) {
		if topic != "" {
			m.topic = topic
		}
	}
}

// WithQoS sets the publish quality of service (0, 1 or 2).
func WithQoS(qos byte) MQTTOption {
	return func(m *MQTT) {
		if qos <= 2 {
			m.qos = qos
		}
	}
}

// WithPublishTimeout bounds how long Submit waits for the broker.
func WithPublishTimeout(d time.Duration) MQTTOption {
	return func(m *MQTT) {
		if d > 0 {
			m.publishTimeout = d
		}
	}
}

// WithPublisher injects an already connected client, skipping Connect.
func WithPublisher(p Publisher) MQTTOption {
	return func(m *MQTT) {
		if p != nil {
			m.client = p
		}
	}
}

// WithMQTTLogger sets a custom logger for the MQTT sink.
func WithMQTTLogger(l logger.Logger) MQTTOption {
	return func(m *MQTT) {
		if l != nil {
			m.logger = l
		}
	}
}
