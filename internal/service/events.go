package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jetstream-go/common/amqp"
	"jetstream-go/common/database"
	"jetstream-go/common/mqtt"
	commonredis "jetstream-go/common/redis"
	"jetstream-go/internal/config"
	"jetstream-go/internal/dispatch"
	"jetstream-go/internal/poller"
	"jetstream-go/internal/repository"
	"jetstream-go/internal/status"
	"jetstream-go/jetstream"
	"jetstream-go/jetstream/application"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const brokerConnectWait = 30 * time.Second

// EventService polls Jetstream and fans events out to the configured sinks.
type EventService struct {
	config *config.Config
	logger *zap.Logger

	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client
	amqpClient  *amqp.Client

	dispatcher *dispatch.Dispatcher
	poller     *poller.Poller
	status     *status.Server
}

// NewEventService connects every enabled backend. Backends connected before a
// failure are closed again.
func NewEventService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*EventService, error) {
	s := &EventService{config: cfg, logger: logger}
	if err := s.init(ctx); err != nil {
		s.Stop()
		return nil, err
	}
	return s, nil
}

func (s *EventService) init(ctx context.Context) error {
	cfg := s.config

	source, err := NewEventSource(cfg, s.logger)
	if err != nil {
		return err
	}

	s.dispatcher = dispatch.NewDispatcher(s.logger)
	RegisterHandlers(s.dispatcher, s.logger)

	needRedis := cfg.Sinks.RedisStream != "" || cfg.Poll.LockKey != ""
	if needRedis {
		s.redisClient, err = commonredis.Connect(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
	}
	if cfg.Sinks.RedisStream != "" {
		s.dispatcher.AddSink(dispatch.NewRedisStreamSink(s.redisClient, cfg.Sinks.RedisStream, cfg.Sinks.RedisStreamMaxLen, s.logger))
	}

	if cfg.MQTTEnabled() {
		s.mqttClient, err = mqtt.NewClient(&cfg.MQTT, brokerConnectWait, s.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to mqtt: %w", err)
		}
		s.dispatcher.AddSink(dispatch.NewMQTTSink(s.mqttClient, cfg.Sinks.MQTTTopicPrefix, cfg.MQTT.QoS))
	}

	if cfg.Sinks.AMQPEnabled {
		s.amqpClient, err = amqp.NewClient(&cfg.AMQP, brokerConnectWait, s.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to amqp: %w", err)
		}
		s.dispatcher.AddSink(dispatch.NewAMQPSink(s.amqpClient, cfg.AMQP.Exchange, cfg.AMQP.ExchangeType))
	}

	// stays a nil interface unless the archive is enabled
	var archive status.EventQuerier
	if cfg.Sinks.ArchiveEnabled {
		s.db, err = database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := repository.NewEventRepository(s.db, s.logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		s.dispatcher.AddSink(dispatch.NewArchiveSink(repo, s.logger))
		archive = repo
	}

	var opts []poller.Option
	if cfg.Poll.LockKey != "" {
		opts = append(opts, poller.WithLocker(poller.NewRedisLocker(s.redisClient, cfg.Poll.LockKey, cfg.Poll.LockTTL)))
	}
	s.poller = poller.New(source, s.dispatcher, poller.Config{
		Interval: cfg.Poll.Interval,
		Window:   cfg.Poll.Window,
		Limit:    cfg.Poll.Limit,
	}, s.logger, opts...)

	if cfg.Status.Addr != "" {
		s.status = status.NewServer(cfg.Status.Addr, s.poller, archive, s.dispatcher.Sinks(), s.logger)
	}

	s.logger.Info("Event service initialized",
		zap.String("api_version", cfg.Jetstream.APIVersion),
		zap.Strings("sinks", s.dispatcher.Sinks()),
		zap.Bool("distributed_lock", cfg.Poll.LockKey != ""),
	)
	return nil
}

// NewEventSource builds the client for the configured API version.
func NewEventSource(cfg *config.Config, logger *zap.Logger) (poller.EventSource, error) {
	clientCfg := jetstream.Config{
		BaseURL:   cfg.Jetstream.BaseURL,
		AccessKey: cfg.Jetstream.AccessKey,
		Timeout:   cfg.Jetstream.Timeout,
	}

	switch cfg.Jetstream.APIVersion {
	case config.APIVersionV15:
		client, err := application.NewServiceClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create v1.5 client: %w", err)
		}
		return poller.NewV15Source(client), nil
	case config.APIVersionV3, "":
		client, err := jetstream.NewClient(clientCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create v3 client: %w", err)
		}
		return poller.NewV3Source(client), nil
	default:
		return nil, fmt.Errorf("unsupported api version %q", cfg.Jetstream.APIVersion)
	}
}

// Start runs the status server and the poller until ctx is cancelled.
func (s *EventService) Start(ctx context.Context) error {
	s.logger.Info("Starting event service")

	if s.status != nil {
		go func() {
			if err := s.status.Start(); err != nil {
				s.logger.Error("Status server failed", zap.Error(err))
			}
		}()
	}

	return s.poller.Run(ctx)
}

// Stop releases every backend. It is safe on a partially initialized service.
func (s *EventService) Stop() {
	s.logger.Info("Stopping event service")

	if s.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.status.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down status server", zap.Error(err))
		}
		cancel()
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.amqpClient != nil {
		s.amqpClient.Close()
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Failed to close database", zap.Error(err))
		}
	}
}
