package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType value of the Type tag on every event
type EventType string

const (
	EventTypeHeartbeat            EventType = "HeartbeatEvent"
	EventTypeCommandQueued        EventType = "CommandQueuedEvent"
	EventTypeCommandCompletion    EventType = "CommandCompletionEvent"
	EventTypeObject               EventType = "ObjectEvent"
	EventTypeSensorReading        EventType = "SensorReadingEvent"
	EventTypeLogEntry             EventType = "LogEntryEvent"
	EventTypeDeviceFailure        EventType = "DeviceFailureEvent"
	EventTypeDeviceRestore        EventType = "DeviceRestoreEvent"
	EventTypeLogicalDeviceAdded   EventType = "LogicalDeviceAddedEvent"
	EventTypeLogicalDeviceRemoved EventType = "LogicalDeviceRemovedEvent"
	EventTypeAggregate            EventType = "AggregateEvent"
)

// Event is implemented by every concrete event type. Values returned by
// DecodeEvent are pointers (*HeartbeatEvent, *ObjectEvent, ...).
type Event interface {
	EventType() EventType
	EventID() string
	Device() string
	Time() time.Time
	Received() time.Time
}

// EventHeader fields common to all events
type EventHeader struct {
	Id           string    `json:"Id"`
	Type         EventType `json:"Type"`
	DeviceName   string    `json:"DeviceName"`
	EventTime    time.Time `json:"EventTime"`
	ReceivedTime time.Time `json:"ReceivedTime"`
}

func (h EventHeader) EventID() string     { return h.Id }
func (h EventHeader) Device() string      { return h.DeviceName }
func (h EventHeader) Time() time.Time     { return h.EventTime }
func (h EventHeader) Received() time.Time { return h.ReceivedTime }

// HeartbeatEvent periodic liveness signal
type HeartbeatEvent struct {
	EventHeader
}

// CommandQueuedEvent a command was accepted for the device
type CommandQueuedEvent struct {
	EventHeader
	CommandId   string `json:"CommandId"`
	CommandName string `json:"CommandName"`
}

// CommandCompletionEvent a queued command finished
type CommandCompletionEvent struct {
	EventHeader
	CommandId   string          `json:"CommandId"`
	CommandName string          `json:"CommandName"`
	Status      string          `json:"Status"`
	Message     string          `json:"Message,omitempty"`
	Exceptions  []string        `json:"Exceptions,omitempty"`
	Result      json.RawMessage `json:"Result,omitempty"`
}

// Succeeded reports Status == Success
func (e *CommandCompletionEvent) Succeeded() bool {
	return e.Status == CommandStatusSuccess
}

// ObjectEvent inventory change: tags added and removed since the last scan
type ObjectEvent struct {
	EventHeader
	User    string      `json:"User,omitempty"`
	Adds    []ObjectTag `json:"Adds,omitempty"`
	Removes []ObjectTag `json:"Removes,omitempty"`
	Current []ObjectTag `json:"Current,omitempty"`
}

// SensorReadingEvent batch of sensor values
type SensorReadingEvent struct {
	EventHeader
	Readings []SensorReading `json:"Readings"`
}

// SensorReading one measured value
type SensorReading struct {
	Sensor      string    `json:"Sensor"`
	Value       float64   `json:"Value"`
	Unit        string    `json:"Unit,omitempty"`
	ReadingTime time.Time `json:"ReadingTime"`
}

// LogEntryEvent device log line
type LogEntryEvent struct {
	EventHeader
	Level   string `json:"Level"`
	Message string `json:"Message"`
	Source  string `json:"Source,omitempty"`
}

// DeviceFailureEvent heartbeats stopped
type DeviceFailureEvent struct {
	EventHeader
	LastHeartbeat *time.Time `json:"LastHeartbeat,omitempty"`
}

// DeviceRestoreEvent heartbeats resumed after a failure
type DeviceRestoreEvent struct {
	EventHeader
	LastHeartbeat *time.Time `json:"LastHeartbeat,omitempty"`
}

// LogicalDeviceAddedEvent a device was registered
type LogicalDeviceAddedEvent struct {
	EventHeader
	SerialNumber     string `json:"SerialNumber"`
	DeviceDefinition string `json:"DeviceDefinition,omitempty"`
	PolicyName       string `json:"PolicyName,omitempty"`
}

// LogicalDeviceRemovedEvent a device was unregistered
type LogicalDeviceRemovedEvent struct {
	EventHeader
	SerialNumber string `json:"SerialNumber"`
}

// AggregateEvent wraps several events delivered together
type AggregateEvent struct {
	EventHeader
	Events []Event `json:"Events"`
}

// UnknownEvent keeps the raw payload of a Type this package does not know.
// Raw holds JSON from the v3 API, RawXML the element content from v1.5.
type UnknownEvent struct {
	EventHeader
	Raw    json.RawMessage `json:"-"`
	RawXML []byte          `json:"-"`
}

func (*HeartbeatEvent) EventType() EventType            { return EventTypeHeartbeat }
func (*CommandQueuedEvent) EventType() EventType        { return EventTypeCommandQueued }
func (*CommandCompletionEvent) EventType() EventType    { return EventTypeCommandCompletion }
func (*ObjectEvent) EventType() EventType               { return EventTypeObject }
func (*SensorReadingEvent) EventType() EventType        { return EventTypeSensorReading }
func (*LogEntryEvent) EventType() EventType             { return EventTypeLogEntry }
func (*DeviceFailureEvent) EventType() EventType        { return EventTypeDeviceFailure }
func (*DeviceRestoreEvent) EventType() EventType        { return EventTypeDeviceRestore }
func (*LogicalDeviceAddedEvent) EventType() EventType   { return EventTypeLogicalDeviceAdded }
func (*LogicalDeviceRemovedEvent) EventType() EventType { return EventTypeLogicalDeviceRemoved }
func (*AggregateEvent) EventType() EventType            { return EventTypeAggregate }
func (e *UnknownEvent) EventType() EventType            { return e.Type }

// MarshalJSON writes the raw payload back unchanged.
func (e *UnknownEvent) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	return json.Marshal(struct {
		EventHeader
		RawXML string `json:"RawXML,omitempty"`
	}{e.EventHeader, string(e.RawXML)})
}

var eventFactories = map[EventType]func() Event{
	EventTypeHeartbeat:            func() Event { return &HeartbeatEvent{} },
	EventTypeCommandQueued:        func() Event { return &CommandQueuedEvent{} },
	EventTypeCommandCompletion:    func() Event { return &CommandCompletionEvent{} },
	EventTypeObject:               func() Event { return &ObjectEvent{} },
	EventTypeSensorReading:        func() Event { return &SensorReadingEvent{} },
	EventTypeLogEntry:             func() Event { return &LogEntryEvent{} },
	EventTypeDeviceFailure:        func() Event { return &DeviceFailureEvent{} },
	EventTypeDeviceRestore:        func() Event { return &DeviceRestoreEvent{} },
	EventTypeLogicalDeviceAdded:   func() Event { return &LogicalDeviceAddedEvent{} },
	EventTypeLogicalDeviceRemoved: func() Event { return &LogicalDeviceRemovedEvent{} },
	EventTypeAggregate:            func() Event { return &AggregateEvent{} },
}

// DecodeEvent decodes one JSON event by its Type tag. Unknown tags yield an
// *UnknownEvent rather than an error.
func DecodeEvent(raw []byte) (Event, error) {
	var tag struct {
		Type EventType `json:"Type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("failed to read event type: %w", err)
	}

	factory, ok := eventFactories[tag.Type]
	if !ok {
		unknown := &UnknownEvent{Raw: append(json.RawMessage(nil), raw...)}
		if err := json.Unmarshal(raw, &unknown.EventHeader); err != nil {
			return nil, fmt.Errorf("failed to decode %q event header: %w", tag.Type, err)
		}
		return unknown, nil
	}

	ev := factory()
	if err := json.Unmarshal(raw, ev); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", tag.Type, err)
	}
	return ev, nil
}

// UnmarshalJSON decodes the nested events by their own Type tags.
func (e *AggregateEvent) UnmarshalJSON(data []byte) error {
	var wire struct {
		EventHeader
		Events []json.RawMessage `json:"Events"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	events, err := decodeEvents(wire.Events)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", wire.Id, err)
	}
	e.EventHeader = wire.EventHeader
	e.Events = events
	return nil
}

// Flatten returns the leaf events, expanding nested aggregates depth first.
func (e *AggregateEvent) Flatten() []Event {
	var out []Event
	for _, ev := range e.Events {
		if agg, ok := ev.(*AggregateEvent); ok {
			out = append(out, agg.Flatten()...)
			continue
		}
		out = append(out, ev)
	}
	return out
}

// EventBatch response of GET v3/events. The batch is acknowledged with
// DELETE v3/events/{BatchId}.
type EventBatch struct {
	BatchId string  `json:"BatchId"`
	Events  []Event `json:"Events"`
}

// UnmarshalJSON decodes a heterogeneous event list.
func (b *EventBatch) UnmarshalJSON(data []byte) error {
	var wire struct {
		BatchId string            `json:"BatchId"`
		Events  []json.RawMessage `json:"Events"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	events, err := decodeEvents(wire.Events)
	if err != nil {
		return err
	}
	b.BatchId = wire.BatchId
	b.Events = events
	return nil
}

// Len number of top-level events
func (b *EventBatch) Len() int { return len(b.Events) }

func decodeEvents(raws []json.RawMessage) ([]Event, error) {
	events := make([]Event, 0, len(raws))
	for i, raw := range raws {
		ev, err := DecodeEvent(raw)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
