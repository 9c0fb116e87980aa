package config

import (
	"fmt"
	"os"
	"time"
)

// DatabaseConfig Postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// RedisConfig Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT broker settings
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// AMQPConfig RabbitMQ settings
type AMQPConfig struct {
	URL          string
	Exchange     string
	ExchangeType string
}

// JetstreamConfig credentials and endpoint of the Jetstream account
type JetstreamConfig struct {
	BaseURL    string
	AccessKey  string
	APIVersion string // "v3" or "v1.5"
	Timeout    time.Duration
}

// GetDSN returns the lib/pq connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoadFromEnv overrides fields from <prefix>_HOST, <prefix>_PORT, ...
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv(prefix + "_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Port)
	}
	if user := os.Getenv(prefix + "_USER"); user != "" {
		c.User = user
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if database := os.Getenv(prefix + "_NAME"); database != "" {
		c.Database = database
	}
	if sslMode := os.Getenv(prefix + "_SSLMODE"); sslMode != "" {
		c.SSLMode = sslMode
	}
	if maxConns := os.Getenv(prefix + "_MAX_CONNS"); maxConns != "" {
		fmt.Sscanf(maxConns, "%d", &c.MaxConns)
	}
}

// LoadFromEnv overrides fields from <prefix>_ADDR, <prefix>_PASSWORD, <prefix>_DB
func (c *RedisConfig) LoadFromEnv(prefix string) {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if db := os.Getenv(prefix + "_DB"); db != "" {
		fmt.Sscanf(db, "%d", &c.DB)
	}
}

// LoadFromEnv overrides fields from <prefix>_BROKER, <prefix>_CLIENT_ID, ...
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	if broker := os.Getenv(prefix + "_BROKER"); broker != "" {
		c.Broker = broker
	}
	if clientID := os.Getenv(prefix + "_CLIENT_ID"); clientID != "" {
		c.ClientID = clientID
	}
	if username := os.Getenv(prefix + "_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if qos := os.Getenv(prefix + "_QOS"); qos != "" {
		var v int
		if _, err := fmt.Sscanf(qos, "%d", &v); err == nil && v >= 0 && v <= 2 {
			c.QoS = byte(v)
		}
	}
}

// LoadFromEnv overrides fields from <prefix>_URL, <prefix>_EXCHANGE, <prefix>_EXCHANGE_TYPE
func (c *AMQPConfig) LoadFromEnv(prefix string) {
	if url := os.Getenv(prefix + "_URL"); url != "" {
		c.URL = url
	}
	if exchange := os.Getenv(prefix + "_EXCHANGE"); exchange != "" {
		c.Exchange = exchange
	}
	if exchangeType := os.Getenv(prefix + "_EXCHANGE_TYPE"); exchangeType != "" {
		c.ExchangeType = exchangeType
	}
}

// LoadFromEnv overrides fields from <prefix>_URL, <prefix>_ACCESS_KEY,
// <prefix>_API_VERSION and <prefix>_TIMEOUT (a Go duration, e.g. "30s")
func (c *JetstreamConfig) LoadFromEnv(prefix string) {
	if url := os.Getenv(prefix + "_URL"); url != "" {
		c.BaseURL = url
	}
	if key := os.Getenv(prefix + "_ACCESS_KEY"); key != "" {
		c.AccessKey = key
	}
	if version := os.Getenv(prefix + "_API_VERSION"); version != "" {
		c.APIVersion = version
	}
	if timeout := os.Getenv(prefix + "_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.Timeout = d
		}
	}
}
