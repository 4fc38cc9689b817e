package targets

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
)

const (
	mqttConnectTimeout    = 10 * time.Second
	mqttDisconnectQuiesce = 250 // milliseconds
)

// MQTTTargetConfig holds configuration for the MQTT target.
type MQTTTargetConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
	// Retain keeps the artifact on the broker so overlays that subscribe
	// later get the current board immediately.
	Retain bool
}

// MQTTTarget publishes the artifact to a topic. The broker connection is
// opened on first publish and kept for later ones.
type MQTTTarget struct {
	config    MQTTTargetConfig
	log       logger.Logger
	newClient func(*mqtt.ClientOptions) mqtt.Client

	mu     sync.Mutex
	client mqtt.Client
}

// NewMQTTTarget validates config and returns an MQTTTarget.
func NewMQTTTarget(config MQTTTargetConfig, log logger.Logger) (*MQTTTarget, error) {
	if config.Broker == "" {
		return nil, configError("mqtt", "broker is required")
	}
	if config.Topic == "" {
		return nil, configError("mqtt", "topic is required")
	}
	if config.QoS > 2 {
		return nil, configError("mqtt", fmt.Sprintf("invalid qos %d", config.QoS))
	}
	if config.ClientID == "" {
		config.ClientID = "reviewboard"
	}
	if log == nil {
		log = logger.Global().Module("export")
	}
	return &MQTTTarget{
		config:    config,
		log:       log.Module("mqtt"),
		newClient: mqtt.NewClient,
	}, nil
}

// Name implements export.Target.
func (t *MQTTTarget) Name() string { return "mqtt" }

func (t *MQTTTarget) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(t.config.Broker)
	opts.SetClientID(t.config.ClientID)
	opts.SetUsername(t.config.Username)
	opts.SetPassword(t.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		t.log.Info("connected to MQTT broker", logger.String("broker", t.config.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		t.log.Warn("connection to MQTT broker lost",
			logger.String("broker", t.config.Broker),
			logger.Error(err))
	})
	return opts
}

// connected returns a live client, connecting first if needed. Callers hold t.mu.
func (t *MQTTTarget) connected(ctx context.Context) (mqtt.Client, error) {
	if t.client != nil && t.client.IsConnectionOpen() {
		return t.client, nil
	}
	if t.client == nil {
		t.client = t.newClient(t.clientOptions())
	}

	token := t.client.Connect()
	if err := waitToken(ctx, token); err != nil {
		return nil, fmt.Errorf("mqtt: connection error: %w", err)
	}
	return t.client, nil
}

// Publish implements export.Target.
func (t *MQTTTarget) Publish(ctx context.Context, artifact []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	client, err := t.connected(ctx)
	if err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryMQTTPublish).
			Context("broker", t.config.Broker).
			Build()
	}

	token := client.Publish(t.config.Topic, t.config.QoS, t.config.Retain, artifact)
	if err := waitToken(ctx, token); err != nil {
		return errors.New(fmt.Errorf("mqtt: publish failed: %w", err)).
			Component("export").
			Category(errors.CategoryMQTTPublish).
			Context("topic", t.config.Topic).
			Build()
	}

	t.log.Debug("artifact published",
		logger.String("topic", t.config.Topic),
		logger.Int("bytes", len(artifact)))
	return nil
}

// waitToken blocks until token completes or ctx ends.
func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements export.Target.
func (t *MQTTTarget) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil && t.client.IsConnected() {
		t.client.Disconnect(mqttDisconnectQuiesce)
	}
	t.client = nil
	return nil
}
