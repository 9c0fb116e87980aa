package service

import (
	"context"
	"testing"
	"time"

	"jetstream-go/internal/config"
	"jetstream-go/internal/dispatch"
	"jetstream-go/jetstream/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig(version string) *config.Config {
	cfg := &config.Config{}
	cfg.Jetstream.BaseURL = "https://api.jetstream.example.com"
	cfg.Jetstream.AccessKey = "secret"
	cfg.Jetstream.APIVersion = version
	return cfg
}

func TestNewEventSource(t *testing.T) {
	src, err := NewEventSource(testConfig(config.APIVersionV3), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "v3", src.Name())

	src, err = NewEventSource(testConfig(config.APIVersionV15), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "v1.5", src.Name())

	_, err = NewEventSource(testConfig("v2"), zap.NewNop())
	assert.Error(t, err)

	cfg := testConfig(config.APIVersionV3)
	cfg.Jetstream.AccessKey = ""
	_, err = NewEventSource(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestNewEventService_NoBackends(t *testing.T) {
	cfg := testConfig(config.APIVersionV3)
	svc, err := NewEventService(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop()

	assert.Empty(t, svc.dispatcher.Sinks())
	assert.Nil(t, svc.status)
	assert.NotNil(t, svc.poller)
}

func TestRegisterHandlers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	d := dispatch.NewDispatcher(logger)
	RegisterHandlers(d, logger)

	header := func(id string, typ models.EventType) models.EventHeader {
		return models.EventHeader{Id: id, Type: typ, DeviceName: "cabinet-1", EventTime: time.Now()}
	}
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, &models.DeviceFailureEvent{EventHeader: header("e1", models.EventTypeDeviceFailure)}))
	require.NoError(t, d.Dispatch(ctx, &models.CommandCompletionEvent{
		EventHeader: header("e2", models.EventTypeCommandCompletion),
		CommandId:   "c1",
		Status:      models.CommandStatusFailure,
		Exceptions:  []string{"door jammed"},
	}))
	require.NoError(t, d.Dispatch(ctx, &models.CommandCompletionEvent{
		EventHeader: header("e3", models.EventTypeCommandCompletion),
		Status:      models.CommandStatusSuccess,
	}))
	require.NoError(t, d.Dispatch(ctx, &models.LogEntryEvent{
		EventHeader: header("e4", models.EventTypeLogEntry),
		Level:       "Error",
		Message:     "reader offline",
	}))

	assert.Equal(t, 1, logs.FilterMessage("Device stopped sending heartbeats").Len())
	failed := logs.FilterMessage("Device command did not succeed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "c1", failed[0].ContextMap()["command_id"])
	errs := logs.FilterMessage("Device log entry").All()
	require.Len(t, errs, 1)
	assert.Equal(t, zapcore.ErrorLevel, errs[0].Level)
}
