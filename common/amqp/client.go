package amqp

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"jetstream-go/common/config"
	commonlogger "jetstream-go/common/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Client holds one connection and channel to the broker and reconnects when
// the server closes it.
type Client struct {
	url     string
	maxWait time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	declared map[string]bool
	closed   bool
}

// NewClient dials the broker with exponential backoff (bounded by maxWait).
func NewClient(cfg *config.AMQPConfig, maxWait time.Duration, logger *zap.Logger) (*Client, error) {
	logger = commonlogger.OrNop(logger)
	c := &Client{
		url:      cfg.URL,
		maxWait:  maxWait,
		logger:   logger,
		declared: make(map[string]bool),
	}
	if err := c.dial(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) dial() error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = c.maxWait
	var closeCh <-chan *amqp.Error
	connect := func() error {
		ch, err := c.connect()
		if err != nil {
			return err
		}
		closeCh = ch
		return nil
	}
	if err := backoff.Retry(connect, policy); err != nil {
		return fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	go c.watch(closeCh)
	return nil
}

// connect registers the close listener before the connection is published so
// a close racing the handshake is still observed.
func (c *Client) connect() (<-chan *amqp.Error, error) {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		c.logger.Warn("AMQP dial failed", zap.Error(err))
		return nil, err
	}
	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.declared = make(map[string]bool)
	c.mu.Unlock()

	c.logger.Debug("AMQP connected")
	return closeCh, nil
}

// watch reconnects when closeCh fires. A nil reason is only a graceful close
// when Close was called; otherwise the connection died before the listener
// was registered.
func (c *Client) watch(closeCh <-chan *amqp.Error) {
	reason := <-closeCh

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	msg := "connection closed"
	if reason != nil {
		msg = reason.Error()
	}
	c.logger.Warn("AMQP connection closed, reconnecting", zap.String("reason", msg))
	if err := c.dial(); err != nil {
		c.logger.Error("AMQP reconnect failed", zap.Error(err))
	}
}

// PublishPersistentMessage JSON-encodes data and publishes it as a persistent
// message. The exchange is declared (durable) on first use.
func (c *Client) PublishPersistentMessage(exchange, exchangeType, key string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode JSON message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil {
		return fmt.Errorf("AMQP channel not available")
	}

	if !c.declared[exchange] {
		err := c.channel.ExchangeDeclare(
			exchange,
			exchangeType,
			true,  // durable
			false, // autoDelete
			false, // internal
			false, // noWait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
		c.declared[exchange] = true
	}

	err = c.channel.Publish(
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", exchange, err)
	}
	return nil
}

// Close shuts the channel and connection down without reconnecting
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil && !c.conn.IsClosed() {
		c.conn.Close()
	}
}
