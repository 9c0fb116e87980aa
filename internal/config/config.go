package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"jetstream-go/common/config"
)

const (
	APIVersionV3  = "v3"
	APIVersionV15 = "v1.5"
)

// Config event service settings
type Config struct {
	Jetstream config.JetstreamConfig
	Database  config.DatabaseConfig
	Redis     config.RedisConfig
	MQTT      config.MQTTConfig
	AMQP      config.AMQPConfig

	Poll struct {
		Interval time.Duration // POLL_INTERVAL, default 30s
		Window   time.Duration // POLL_WINDOW, default 25s
		Limit    int           // POLL_LIMIT, default 100
		LockKey  string        // empty disables the distributed lock
		LockTTL  time.Duration // must exceed Window
	}

	// Sinks are enabled individually; with none enabled events are only logged.
	Sinks struct {
		RedisStream       string // REDIS_STREAM, empty disables
		RedisStreamMaxLen int64
		MQTTTopicPrefix   string // needs MQTT_BROKER
		AMQPEnabled       bool   // needs AMQP_URL
		ArchiveEnabled    bool   // ARCHIVE_ENABLED, Postgres jetstream_events
	}

	Status struct {
		Addr string // STATUS_ADDR, empty disables the HTTP server
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Jetstream.APIVersion = APIVersionV3
	cfg.Jetstream.Timeout = 30 * time.Second
	cfg.Jetstream.LoadFromEnv("JETSTREAM")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "jetstream")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = 10
	cfg.Database.MaxIdle = 5
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.ClientID = "jetstream-events"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.AMQP.Exchange = "jetstream.events"
	cfg.AMQP.ExchangeType = "topic"
	cfg.AMQP.LoadFromEnv("AMQP")

	cfg.Poll.Interval = parseDuration(getEnv("POLL_INTERVAL", "30s"), 30*time.Second)
	cfg.Poll.Window = parseDuration(getEnv("POLL_WINDOW", "25s"), 25*time.Second)
	cfg.Poll.Limit = parseInt(getEnv("POLL_LIMIT", "100"), 100)
	cfg.Poll.LockKey = getEnv("POLL_LOCK_KEY", "")
	cfg.Poll.LockTTL = parseDuration(getEnv("POLL_LOCK_TTL", ""), cfg.Poll.Window+5*time.Second)

	cfg.Sinks.RedisStream = getEnv("REDIS_STREAM", "")
	cfg.Sinks.RedisStreamMaxLen = int64(parseInt(getEnv("REDIS_STREAM_MAXLEN", "10000"), 10000))
	cfg.Sinks.MQTTTopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "jetstream")
	cfg.Sinks.AMQPEnabled = cfg.AMQP.URL != ""
	cfg.Sinks.ArchiveEnabled = parseBool(getEnv("ARCHIVE_ENABLED", "false"))

	cfg.Status.Addr = lookupEnv("STATUS_ADDR", ":8090")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Jetstream.BaseURL == "" {
		return fmt.Errorf("JETSTREAM_URL is required")
	}
	if c.Jetstream.AccessKey == "" {
		return fmt.Errorf("JETSTREAM_ACCESS_KEY is required")
	}
	switch c.Jetstream.APIVersion {
	case APIVersionV3, APIVersionV15:
	default:
		return fmt.Errorf("unsupported JETSTREAM_API_VERSION %q", c.Jetstream.APIVersion)
	}
	if c.Poll.Window > c.Poll.Interval {
		return fmt.Errorf("POLL_WINDOW (%s) must not exceed POLL_INTERVAL (%s)", c.Poll.Window, c.Poll.Interval)
	}
	if c.Poll.LockKey != "" && c.Poll.LockTTL <= c.Poll.Window {
		return fmt.Errorf("POLL_LOCK_TTL (%s) must exceed POLL_WINDOW (%s)", c.Poll.LockTTL, c.Poll.Window)
	}
	return nil
}

// MQTTEnabled reports whether the MQTT sink has a broker to publish to.
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.Broker != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv is getEnv for settings where an explicitly empty value means off.
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return v
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
