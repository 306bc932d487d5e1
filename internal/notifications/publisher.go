package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// Publisher pushes newly raised notifications to their user.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
	Close()
}

// NopPublisher drops every notification.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.Notification) error { return nil }
func (NopPublisher) Close()                                            {}

// MQTTConfig holds broker settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// MQTTPublisher publishes notifications as JSON on <topic>/<user id>.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	qos    byte
	log    *logrus.Entry
}

const connectTimeout = 10 * time.Second

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig, logger *logrus.Logger) (*MQTTPublisher, error) {
	log := logger.WithField("component", "mqtt")
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	log.WithField("broker", cfg.Broker).Info("Connected to MQTT broker")
	return newMQTTPublisher(client, cfg.Topic, cfg.QoS, log), nil
}

func newMQTTPublisher(client mqtt.Client, topic string, qos byte, log *logrus.Entry) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, qos: qos, log: log}
}

// Publish sends n and waits for the broker acknowledgement or ctx.
func (p *MQTTPublisher) Publish(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	token := p.client.Publish(p.topic+"/"+n.UserID, p.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects, giving in-flight messages a moment to drain.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

var errNoBroker = errors.New("no MQTT broker configured")

// NewPublisher returns an MQTT publisher when a broker is configured and a
// NopPublisher otherwise, or when the broker is unreachable.
func NewPublisher(cfg MQTTConfig, logger *logrus.Logger) Publisher {
	if cfg.Broker == "" {
		logger.WithError(errNoBroker).Info("Notification publishing disabled")
		return NopPublisher{}
	}
	p, err := NewMQTTPublisher(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("Notification publishing disabled")
		return NopPublisher{}
	}
	return p
}
