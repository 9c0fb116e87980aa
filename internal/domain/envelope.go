// Package domain holds the normalized event record handed to every sink.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"jetstream-go/jetstream/models"
)

// Envelope normalized form of one Jetstream event. Payload is the full event
// JSON including its Type tag.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	DeviceName   string          `json:"device_name"`
	EventTime    time.Time       `json:"event_time"`
	ReceivedTime *time.Time      `json:"received_time,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

// NewEnvelope builds the envelope for ev.
func NewEnvelope(ev models.Event) (*Envelope, error) {
	if ev == nil {
		return nil, fmt.Errorf("event is nil")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %s: %w", ev.EventType(), ev.EventID(), err)
	}

	env := &Envelope{
		EventID:    ev.EventID(),
		EventType:  string(ev.EventType()),
		DeviceName: ev.Device(),
		EventTime:  ev.Time().UTC(),
		Payload:    payload,
	}
	if received := ev.Received(); !received.IsZero() {
		r := received.UTC()
		env.ReceivedTime = &r
	}
	return env, nil
}

// Decode turns the payload back into a typed event.
func (e *Envelope) Decode() (models.Event, error) {
	return models.DecodeEvent(e.Payload)
}
