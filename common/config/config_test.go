package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "jetstream", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=jetstream sslmode=disable", c.GetDSN())
}

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("ARCHIVE_DB_HOST", "archive")
	t.Setenv("ARCHIVE_DB_PORT", "6543")
	t.Setenv("ARCHIVE_DB_MAX_CONNS", "20")

	c := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres"}
	c.LoadFromEnv("ARCHIVE_DB")
	assert.Equal(t, "archive", c.Host)
	assert.Equal(t, 6543, c.Port)
	assert.Equal(t, 20, c.MaxConns)
	assert.Equal(t, "postgres", c.User)
}

func TestMQTTConfig_LoadFromEnv_QoS(t *testing.T) {
	t.Setenv("MQTT_QOS", "2")
	c := MQTTConfig{QoS: 1}
	c.LoadFromEnv("MQTT")
	assert.Equal(t, byte(2), c.QoS)

	t.Setenv("MQTT_QOS", "7")
	c.LoadFromEnv("MQTT")
	assert.Equal(t, byte(2), c.QoS, "out of range values are ignored")
}

func TestJetstreamConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("JS_URL", "https://api.example.com")
	t.Setenv("JS_ACCESS_KEY", "k")
	t.Setenv("JS_API_VERSION", "v1.5")
	t.Setenv("JS_TIMEOUT", "not-a-duration")

	c := JetstreamConfig{Timeout: 10 * time.Second}
	c.LoadFromEnv("JS")
	assert.Equal(t, "https://api.example.com", c.BaseURL)
	assert.Equal(t, "k", c.AccessKey)
	assert.Equal(t, "v1.5", c.APIVersion)
	assert.Equal(t, 10*time.Second, c.Timeout)
}

func TestAMQPConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("AMQP_URL", "amqp://rabbit")
	t.Setenv("AMQP_EXCHANGE_TYPE", "fanout")
	c := AMQPConfig{Exchange: "jetstream.events", ExchangeType: "topic"}
	c.LoadFromEnv("AMQP")
	assert.Equal(t, "amqp://rabbit", c.URL)
	assert.Equal(t, "jetstream.events", c.Exchange)
	assert.Equal(t, "fanout", c.ExchangeType)
}
