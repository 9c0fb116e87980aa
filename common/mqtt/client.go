package mqtt

import (
	"fmt"
	"time"

	"jetstream-go/common/config"
	commonlogger "jetstream-go/common/logger"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Client thin wrapper over the paho client used for publishing
type Client struct {
	client mqtt.Client
	config *config.MQTTConfig
	logger *zap.Logger
}

// NewClient connects to the broker, retrying with exponential backoff for up
// to maxWait before giving up.
func NewClient(cfg *config.MQTTConfig, maxWait time.Duration, logger *zap.Logger) (*Client, error) {
	logger = commonlogger.OrNop(logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("MQTT connected", zap.String("broker", cfg.Broker))
	})

	client := mqtt.NewClient(opts)

	connect := func() error {
		token := client.Connect()
		token.Wait()
		return token.Error()
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxWait
	notify := func(err error, next time.Duration) {
		logger.Warn("MQTT connect failed, retrying",
			zap.String("broker", cfg.Broker),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return &Client{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

// Publish sends payload and waits for the broker acknowledgement
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	return nil
}

// Disconnect waits up to 250ms for in-flight work
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}
