package mqtt

import (
	"testing"
	"time"

	"jetstream-go/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &config.MQTTConfig{Broker: "tcp://127.0.0.1:1", ClientID: "jetstream-events-test"}

	start := time.Now()
	_, err := NewClient(cfg, 200*time.Millisecond, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to MQTT broker")
	assert.Less(t, time.Since(start), 10*time.Second)
}
