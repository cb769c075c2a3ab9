package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
)

// Default MQTT settings.
const (
	defaultTopic          = "vigil/violations"
	defaultClientID       = "vigil"
	defaultQoS            = byte(1)
	defaultPublishTimeout = 2 * time.Second
	connectTimeout        = 5 * time.Second
	disconnectQuiesceMs   = 250
)

// Publisher is the subset of mqtt.Client the sink needs.
type Publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each violation to a per-assessment, per-kind topic.
type MQTT struct {
	broker         string
	clientID       string
	topic          string
	qos            byte
	publishTimeout time.Duration
	logger         logger.Logger

	mu     sync.RWMutex
	client Publisher
}

// NewMQTT creates an MQTT sink for broker (host:port or a full URL).
// Call Connect before Submit unless a Publisher was injected.
func NewMQTT(broker string, opts ...MQTTOption) (*MQTT, error) {
	m := &MQTT{
		broker:         broker,
		clientID:       defaultClientID,
		topic:          defaultTopic,
		qos:            defaultQoS,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.broker == "" && m.client == nil {
		return nil, ErrMissingEndpoint
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("transport-mqtt")
	}
	m.topic = strings.TrimSuffix(m.topic, "/")
	return m, nil
}

// Connect dials the broker with automatic reconnection enabled.
func (m *MQTT) Connect(ctx context.Context) error {
	m.mu.RLock()
	injected := m.client != nil
	m.mu.RUnlock()
	if injected {
		return nil
	}

	broker := m.broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(m.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		m.logger.Info(ctx, "mqtt connection established", logger.String("broker", broker))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		m.logger.Warn(ctx, "mqtt connection lost, will auto-reconnect", logger.String("broker", broker), logger.Error(err))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
	return nil
}

// Name implements worker.Transport.
func (m *MQTT) Name() string { return "mqtt" }

// Topic returns the topic v is published to.
func (m *MQTT) Topic(v model.Violation) string { //nolint:gocritic // hugeParam: Violation is immutable and passed by value
	return fmt.Sprintf("%s/%s/%s", m.topic, v.AssessmentID, v.Kind)
}

// Submit publishes v's payload and waits for the broker acknowledgement.
func (m *MQTT) Submit(_ context.Context, v model.Violation) error { //nolint:gocritic // hugeParam: Violation is immutable and passed by value
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(v.Payload())
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	token := client.Publish(m.Topic(v), m.qos, false, payload)
	if !token.WaitTimeout(m.publishTimeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker. It is safe to call more than once.
func (m *MQTT) Close() error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()
	if client != nil {
		client.Disconnect(disconnectQuiesceMs)
	}
	return nil
}
