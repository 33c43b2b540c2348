// Package mqtt mirrors screen state changes onto retained MQTT topics so
// dashboards see the latest total and list without polling.
package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"card/internal/core"
	"card/internal/log"
)

const (
	clientID       = "card"
	qos            = 1
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	disconnectMS   = 250
)

type Config struct {
	Broker      string // host:port
	TopicPrefix string
	Username    string
	Password    string
}

// Publisher writes each change to <prefix>/<screen>.
type Publisher struct {
	client      pahomqtt.Client
	topicPrefix string
	logger      *log.Logger
}

// New connects to the broker.
func New(cfg Config, logger *log.Logger) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required")
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(connectTimeout) && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	return NewWithClient(client, cfg.TopicPrefix, logger), nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client pahomqtt.Client, topicPrefix string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Discard()
	}
	if topicPrefix == "" {
		topicPrefix = clientID
	}
	return &Publisher{
		client:      client,
		topicPrefix: strings.TrimSuffix(topicPrefix, "/"),
		logger:      logger.WithComponent(log.ComponentMQTT),
	}
}

func (p *Publisher) Name() string { return "mqtt" }

// Topic returns the topic a screen's changes are retained on.
func (p *Publisher) Topic(screen string) string {
	return p.topicPrefix + "/" + screen
}

// Publish sends the change as a retained JSON payload.
func (p *Publisher) Publish(ctx context.Context, msg *core.StateChanged) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	topic := p.Topic(msg.Screen)
	token := p.client.Publish(topic, qos, true, body)

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("publishing to %s: timed out", topic)
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "Published state change", "topic", topic, "id", msg.ID)
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(disconnectMS)
	}
	return nil
}
