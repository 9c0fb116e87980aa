// Package dispatch routes Jetstream events to handlers by event type and fans
// the normalized envelope out to the configured sinks.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	commonlogger "jetstream-go/common/logger"
	"jetstream-go/internal/domain"
	"jetstream-go/jetstream/models"

	"go.uber.org/zap"
)

// HandlerFunc handles one event. A returned error fails the event.
type HandlerFunc func(ctx context.Context, ev models.Event) error

// Sink receives every dispatched event in normalized form.
type Sink interface {
	Name() string
	Publish(ctx context.Context, env *domain.Envelope) error
}

// Dispatcher handlers and sinks must be registered before the first Dispatch.
type Dispatcher struct {
	handlers map[models.EventType][]HandlerFunc
	fallback HandlerFunc
	sinks    []Sink
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher publishing to sinks. Unregistered event
// types are logged at debug level until SetDefault replaces the fallback.
func NewDispatcher(logger *zap.Logger, sinks ...Sink) *Dispatcher {
	logger = commonlogger.OrNop(logger)
	d := &Dispatcher{
		handlers: make(map[models.EventType][]HandlerFunc),
		sinks:    sinks,
		logger:   logger,
	}
	d.fallback = d.logUnhandled
	return d
}

// On registers h for events of type t. Several handlers run in order.
func (d *Dispatcher) On(t models.EventType, h HandlerFunc) {
	d.handlers[t] = append(d.handlers[t], h)
}

// SetDefault replaces the handler for event types without a registration.
func (d *Dispatcher) SetDefault(h HandlerFunc) {
	if h == nil {
		h = d.logUnhandled
	}
	d.fallback = h
}

// AddSink appends a sink.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Sinks returns the registered sink names.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch handles ev. Aggregate events are expanded and each inner event is
// dispatched on its own; the aggregate itself never reaches handlers or sinks.
// Every inner event is attempted even when an earlier one fails.
func (d *Dispatcher) Dispatch(ctx context.Context, ev models.Event) error {
	agg, ok := ev.(*models.AggregateEvent)
	if !ok {
		return d.dispatchOne(ctx, ev)
	}

	var errs []error
	for _, inner := range agg.Flatten() {
		if err := d.dispatchOne(ctx, inner); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) dispatchOne(ctx context.Context, ev models.Event) error {
	handlers := d.handlers[ev.EventType()]
	if len(handlers) == 0 {
		handlers = []HandlerFunc{d.fallback}
	}
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			return fmt.Errorf("handler for %s %s: %w", ev.EventType(), ev.EventID(), err)
		}
	}

	if len(d.sinks) == 0 {
		return nil
	}

	env, err := domain.NewEnvelope(ev)
	if err != nil {
		return err
	}

	var errs []error
	for _, s := range d.sinks {
		if err := s.Publish(ctx, env); err != nil {
			d.logger.Error("Failed to publish event",
				zap.String("sink", s.Name()),
				zap.String("event_id", env.EventID),
				zap.String("event_type", env.EventType),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) logUnhandled(_ context.Context, ev models.Event) error {
	d.logger.Debug("Unhandled event type",
		zap.String("event_type", string(ev.EventType())),
		zap.String("event_id", ev.EventID()),
		zap.String("device_name", ev.Device()),
	)
	return nil
}
