package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	commonlogger "jetstream-go/common/logger"
	rediscommon "jetstream-go/common/redis"
	"jetstream-go/internal/domain"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ============================================
// Redis Streams
// ============================================

// RedisStreamSink appends each envelope to a Redis Stream as a JSON "data"
// field.
type RedisStreamSink struct {
	client *redis.Client
	stream string
	opts   rediscommon.StreamOptions
	logger *zap.Logger
}

func NewRedisStreamSink(client *redis.Client, stream string, maxLen int64, logger *zap.Logger) *RedisStreamSink {
	logger = commonlogger.OrNop(logger)
	return &RedisStreamSink{
		client: client,
		stream: stream,
		opts:   rediscommon.StreamOptions{MaxLen: maxLen},
		logger: logger,
	}
}

func (s *RedisStreamSink) Name() string { return "redis:" + s.stream }

func (s *RedisStreamSink) Publish(ctx context.Context, env *domain.Envelope) error {
	id, err := rediscommon.PublishJSONToStream(ctx, s.client, s.stream, env, s.opts)
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", s.stream, err)
	}
	s.logger.Debug("Published event to Redis Streams",
		zap.String("stream", s.stream),
		zap.String("stream_id", id),
		zap.String("event_id", env.EventID),
	)
	return nil
}

// ============================================
// MQTT
// ============================================

// MQTTPublisher is satisfied by *common/mqtt.Client.
type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTSink publishes each envelope to <prefix>/<device>/<eventType>.
type MQTTSink struct {
	client MQTTPublisher
	prefix string
	qos    byte
}

func NewMQTTSink(client MQTTPublisher, prefix string, qos byte) *MQTTSink {
	return &MQTTSink{client: client, prefix: strings.TrimRight(prefix, "/"), qos: qos}
}

func (s *MQTTSink) Name() string { return "mqtt:" + s.prefix }

// Topic returns the topic env is published to. MQTT wildcard and separator
// characters in the device name are replaced with '_'.
func (s *MQTTSink) Topic(env *domain.Envelope) string {
	device := env.DeviceName
	if device == "" {
		device = "unknown"
	}
	device = strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(device)
	return s.prefix + "/" + device + "/" + env.EventType
}

func (s *MQTTSink) Publish(_ context.Context, env *domain.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", env.EventID, err)
	}
	return s.client.Publish(s.Topic(env), s.qos, false, payload)
}

// ============================================
// AMQP
// ============================================

// AMQPPublisher is satisfied by *common/amqp.Client.
type AMQPPublisher interface {
	PublishPersistentMessage(exchange, exchangeType, key string, data interface{}) error
}

// AMQPSink publishes persistent JSON messages with routing key
// jetstream.<eventType>.
type AMQPSink struct {
	client       AMQPPublisher
	exchange     string
	exchangeType string
}

func NewAMQPSink(client AMQPPublisher, exchange, exchangeType string) *AMQPSink {
	if exchangeType == "" {
		exchangeType = "topic"
	}
	return &AMQPSink{client: client, exchange: exchange, exchangeType: exchangeType}
}

func (s *AMQPSink) Name() string { return "amqp:" + s.exchange }

// RoutingKey returns the routing key used for env.
func RoutingKey(env *domain.Envelope) string {
	return "jetstream." + env.EventType
}

func (s *AMQPSink) Publish(_ context.Context, env *domain.Envelope) error {
	return s.client.PublishPersistentMessage(s.exchange, s.exchangeType, RoutingKey(env), env)
}

// ============================================
// Postgres archive
// ============================================

// EventStore is satisfied by *repository.EventRepository.
type EventStore interface {
	SaveEvent(ctx context.Context, env *domain.Envelope) (bool, error)
}

// ArchiveSink stores every envelope. Redelivered events are ignored by the
// store, so a replayed batch does not fail.
type ArchiveSink struct {
	store  EventStore
	logger *zap.Logger
}

func NewArchiveSink(store EventStore, logger *zap.Logger) *ArchiveSink {
	logger = commonlogger.OrNop(logger)
	return &ArchiveSink{store: store, logger: logger}
}

func (s *ArchiveSink) Name() string { return "archive" }

func (s *ArchiveSink) Publish(ctx context.Context, env *domain.Envelope) error {
	inserted, err := s.store.SaveEvent(ctx, env)
	if err != nil {
		return err
	}
	if !inserted {
		s.logger.Debug("Event already archived", zap.String("event_id", env.EventID))
	}
	return nil
}
