package service

import (
	"context"

	"jetstream-go/internal/dispatch"
	"jetstream-go/jetstream/models"

	"go.uber.org/zap"
)

// RegisterHandlers attaches the service's logging handlers. Handlers never
// fail an event; delivery errors come from the sinks.
func RegisterHandlers(d *dispatch.Dispatcher, logger *zap.Logger) {
	d.On(models.EventTypeDeviceFailure, func(_ context.Context, ev models.Event) error {
		logger.Warn("Device stopped sending heartbeats",
			zap.String("device_name", ev.Device()),
			zap.Time("event_time", ev.Time()),
		)
		return nil
	})

	d.On(models.EventTypeDeviceRestore, func(_ context.Context, ev models.Event) error {
		logger.Info("Device heartbeats restored",
			zap.String("device_name", ev.Device()),
			zap.Time("event_time", ev.Time()),
		)
		return nil
	})

	d.On(models.EventTypeCommandCompletion, func(_ context.Context, ev models.Event) error {
		cc, ok := ev.(*models.CommandCompletionEvent)
		if !ok || cc.Succeeded() {
			return nil
		}
		logger.Warn("Device command did not succeed",
			zap.String("device_name", cc.Device()),
			zap.String("command_id", cc.CommandId),
			zap.String("command_name", cc.CommandName),
			zap.String("status", cc.Status),
			zap.String("message", cc.Message),
			zap.Strings("exceptions", cc.Exceptions),
		)
		return nil
	})

	d.On(models.EventTypeObject, func(_ context.Context, ev models.Event) error {
		oe, ok := ev.(*models.ObjectEvent)
		if !ok {
			return nil
		}
		logger.Debug("Inventory changed",
			zap.String("device_name", oe.Device()),
			zap.String("user", oe.User),
			zap.Int("added", len(oe.Adds)),
			zap.Int("removed", len(oe.Removes)),
		)
		return nil
	})

	d.On(models.EventTypeLogEntry, func(_ context.Context, ev models.Event) error {
		le, ok := ev.(*models.LogEntryEvent)
		if !ok {
			return nil
		}
		fields := []zap.Field{
			zap.String("device_name", le.Device()),
			zap.String("source", le.Source),
			zap.String("message", le.Message),
		}
		switch le.Level {
		case "Error", "Fatal":
			logger.Error("Device log entry", fields...)
		case "Warning", "Warn":
			logger.Warn("Device log entry", fields...)
		default:
			logger.Debug("Device log entry", fields...)
		}
		return nil
	})
}
