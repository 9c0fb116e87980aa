package domain

import (
	"encoding/json"
	"testing"
	"time"

	"jetstream-go/jetstream/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	ev := &models.LogEntryEvent{
		EventHeader: models.EventHeader{
			Id:         "e6",
			Type:       models.EventTypeLogEntry,
			DeviceName: "fridge-2",
			EventTime:  time.Date(2024, 8, 20, 12, 4, 0, 0, time.FixedZone("CEST", 2*3600)),
		},
		Level:   "Warning",
		Message: "door ajar",
	}

	env, err := NewEnvelope(ev)
	require.NoError(t, err)
	assert.Equal(t, "e6", env.EventID)
	assert.Equal(t, "LogEntryEvent", env.EventType)
	assert.Equal(t, "fridge-2", env.DeviceName)
	assert.Equal(t, time.UTC, env.EventTime.Location())
	assert.Equal(t, 10, env.EventTime.Hour())
	assert.Nil(t, env.ReceivedTime)

	back, err := env.Decode()
	require.NoError(t, err)
	entry, ok := back.(*models.LogEntryEvent)
	require.True(t, ok)
	assert.Equal(t, "door ajar", entry.Message)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"event_type":"LogEntryEvent"`)
	assert.NotContains(t, string(raw), "received_time")
}

func TestNewEnvelope_Nil(t *testing.T) {
	_, err := NewEnvelope(nil)
	assert.Error(t, err)
}
