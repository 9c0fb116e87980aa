package application

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"jetstream-go/jetstream/models"
)

// EventNamespacePrefix is followed by the event kind, e.g.
// http://Jetstream.TersoSolutions.com/v1.0/ObjectEvent. Every event element
// in an EventList carries such a namespace; the local name is usually the
// generic "Jetstream".
const EventNamespacePrefix = "http://Jetstream.TersoSolutions.com/v1.0/"

// Event is one decoded v1.5 event element.
type Event interface {
	Kind() models.EventType
	ToModel() models.Event
}

// Header attributes common to every event element
type Header struct {
	EventId         string    `xml:"EventId,attr"`
	LogicalDeviceId string    `xml:"LogicalDeviceId,attr"`
	EventTime       time.Time `xml:"EventTime,attr"`
	ReceivedTime    time.Time `xml:"ReceivedTime,attr"`
}

func (h Header) toModel(kind models.EventType) models.EventHeader {
	return models.EventHeader{
		Id:           h.EventId,
		Type:         kind,
		DeviceName:   h.LogicalDeviceId,
		EventTime:    h.EventTime,
		ReceivedTime: h.ReceivedTime,
	}
}

type HeartbeatEvent struct {
	XMLName xml.Name
	Header  Header `xml:"Header"`
}

func (e *HeartbeatEvent) Kind() models.EventType { return models.EventTypeHeartbeat }
func (e *HeartbeatEvent) ToModel() models.Event {
	return &models.HeartbeatEvent{EventHeader: e.Header.toModel(e.Kind())}
}

type CommandQueuedEvent struct {
	XMLName xml.Name
	Header  Header `xml:"Header"`
	Command struct {
		CommandId   string `xml:"CommandId,attr"`
		CommandName string `xml:"CommandName,attr"`
	} `xml:"CommandQueuedEvent"`
}

func (e *CommandQueuedEvent) Kind() models.EventType { return models.EventTypeCommandQueued }
func (e *CommandQueuedEvent) ToModel() models.Event {
	return &models.CommandQueuedEvent{
		EventHeader: e.Header.toModel(e.Kind()),
		CommandId:   e.Command.CommandId,
		CommandName: e.Command.CommandName,
	}
}

type CommandCompletionEvent struct {
	XMLName xml.Name
	Header  Header `xml:"Header"`
	Command struct {
		CommandId   string   `xml:"CommandId,attr"`
		CommandName string   `xml:"CommandName,attr"`
		Status      string   `xml:"Status,attr"`
		Message     string   `xml:"Message,omitempty"`
		Exceptions  []string `xml:"ExceptionList>Exception"`
	} `xml:"CommandCompletionEvent"`
}

func (e *CommandCompletionEvent) Kind() models.EventType { return models.EventTypeCommandCompletion }
func (e *CommandCompletionEvent) ToModel() models.Event {
	return &models.CommandCompletionEvent{
		EventHeader: e.Header.toModel(e.Kind()),
		CommandId:   e.Command.CommandId,
		CommandName: e.Command.CommandName,
		Status:      e.Command.Status,
		Message:     e.Command.Message,
		Exceptions:  e.Command.Exceptions,
	}
}

// Object one tag inside an ObjectEvent list
type Object struct {
	EPC      string     `xml:"EPC,attr"`
	Antenna  int        `xml:"Antenna,attr,omitempty"`
	ReadTime *time.Time `xml:"ReadTime,attr,omitempty"`
}

func toTags(objects []Object) []models.ObjectTag {
	if len(objects) == 0 {
		return nil
	}
	tags := make([]models.ObjectTag, 0, len(objects))
	for _, o := range objects {
		tags = append(tags, models.ObjectTag{Epc: o.EPC, Antenna: o.Antenna, ReadTime: o.ReadTime})
	}
	return tags
}

type ObjectEvent struct {
	XMLName xml.Name
	Header  Header `xml:"Header"`
	Objects struct {
		User    string   `xml:"User,attr,omitempty"`
		Adds    []Object `xml:"AddList>Object"`
		Removes []Object `xml:"RemoveList>Object"`
		Current []Object `xml:"CurrentList>Object"`
	} `xml:"ObjectEvent"`
}

func (e *ObjectEvent) Kind() models.EventType { return models.EventTypeObject }
func (e *ObjectEvent) ToModel() models.Event {
	return &models.ObjectEvent{
		EventHeader: e.Header.toModel(e.Kind()),
		User:        e.Objects.User,
		Adds:        toTags(e.Objects.Adds),
		Removes:     toTags(e.Objects.Removes),
		Current:     toTags(e.Objects.Current),
	}
}

type SensorReading struct {
	Name        string    `xml:"Name,attr"`
	Value       float64   `xml:"Value,attr"`
	Unit        string    `xml:"Unit,attr,omitempty"`
	ReadingTime time.Time `xml:"ReadingTime,attr"`
}

type SensorReadingEvent struct {
	XMLName  xml.Name
	Header   Header          `xml:"Header"`
	Readings []SensorReading `xml:"SensorReadingEvent>SensorReadingList>SensorReading"`
}

func (e *SensorReadingEvent) Kind() models.EventType { return models.EventTypeSensorReading }
func (e *SensorReadingEvent) ToModel() models.Event {
	ev := &models.SensorReadingEvent{EventHeader: e.Header.toModel(e.Kind())}
	for _, r := range e.Readings {
		ev.Readings = append(ev.Readings, models.SensorReading{
			Sensor:      r.Name,
			Value:       r.Value,
			Unit:        r.Unit,
			ReadingTime: r.ReadingTime,
		})
	}
	return ev
}

type LogEntryEvent struct {
	XMLName xml.Name
	Header  Header `xml:"Header"`
	Entry   struct {
		Level   string `xml:"Level,attr"`
		Source  string `xml:"Source,attr,omitempty"`
		Message string `xml:",chardata"`
	} `xml:"LogEntryEvent"`
}

func (e *LogEntryEvent) Kind() models.EventType { return models.EventTypeLogEntry }
func (e *LogEntryEvent) ToModel() models.Event {
	return &models.LogEntryEvent{
		EventHeader: e.Header.toModel(e.Kind()),
		Level:       e.Entry.Level,
		Message:     strings.TrimSpace(e.Entry.Message),
		Source:      e.Entry.Source,
	}
}

type heartbeatState struct {
	LastHeartbeat *time.Time `xml:"LastHeartbeat,attr,omitempty"`
}

type DeviceFailureEvent struct {
	XMLName xml.Name
	Header  Header         `xml:"Header"`
	Failure heartbeatState `xml:"DeviceFailureEvent"`
}

func (e *DeviceFailureEvent) Kind() models.EventType { return models.EventTypeDeviceFailure }
func (e *DeviceFailureEvent) ToModel() models.Event {
	return &models.DeviceFailureEvent{
		EventHeader:   e.Header.toModel(e.Kind()),
		LastHeartbeat: e.Failure.LastHeartbeat,
	}
}

type DeviceRestoreEvent struct {
	XMLName xml.Name
	Header  Header         `xml:"Header"`
	Restore heartbeatState `xml:"DeviceRestoreEvent"`
}

func (e *DeviceRestoreEvent) Kind() models.EventType { return models.EventTypeDeviceRestore }
func (e *DeviceRestoreEvent) ToModel() models.Event {
	return &models.DeviceRestoreEvent{
		EventHeader:   e.Header.toModel(e.Kind()),
		LastHeartbeat: e.Restore.LastHeartbeat,
	}
}

type LogicalDeviceAddedEvent struct {
	XMLName xml.Name
	Header  Header `xml:"Header"`
	Device  struct {
		DeviceSerialNumber string `xml:"DeviceSerialNumber,attr"`
		DeviceDefinitionId string `xml:"DeviceDefinitionId,attr,omitempty"`
		PolicyName         string `xml:"PolicyName,attr,omitempty"`
	} `xml:"LogicalDeviceAddedEvent"`
}

func (e *LogicalDeviceAddedEvent) Kind() models.EventType { return models.EventTypeLogicalDeviceAdded }
func (e *LogicalDeviceAddedEvent) ToModel() models.Event {
	return &models.LogicalDeviceAddedEvent{
		EventHeader:      e.Header.toModel(e.Kind()),
		SerialNumber:     e.Device.DeviceSerialNumber,
		DeviceDefinition: e.Device.DeviceDefinitionId,
		PolicyName:       e.Device.PolicyName,
	}
}

type LogicalDeviceRemovedEvent struct {
	XMLName xml.Name
	Header  Header `xml:"Header"`
	Device  struct {
		DeviceSerialNumber string `xml:"DeviceSerialNumber,attr"`
	} `xml:"LogicalDeviceRemovedEvent"`
}

func (e *LogicalDeviceRemovedEvent) Kind() models.EventType {
	return models.EventTypeLogicalDeviceRemoved
}
func (e *LogicalDeviceRemovedEvent) ToModel() models.Event {
	return &models.LogicalDeviceRemovedEvent{
		EventHeader:  e.Header.toModel(e.Kind()),
		SerialNumber: e.Device.DeviceSerialNumber,
	}
}

// AggregateEvent nests a complete EventList.
type AggregateEvent struct {
	XMLName xml.Name
	Header  Header    `xml:"Header"`
	Events  EventList `xml:"AggregateEvent>EventList"`
}

func (e *AggregateEvent) Kind() models.EventType { return models.EventTypeAggregate }
func (e *AggregateEvent) ToModel() models.Event {
	return &models.AggregateEvent{
		EventHeader: e.Header.toModel(e.Kind()),
		Events:      e.Events.Models(),
	}
}

// UnknownEvent keeps the inner XML of an element whose kind is not known.
type UnknownEvent struct {
	XMLName   xml.Name
	EventKind models.EventType `xml:"-"`
	Header    Header           `xml:"-"`
	Inner     []byte           `xml:",innerxml"`
}

func (e *UnknownEvent) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var wire struct {
		Header Header `xml:"Header"`
		Inner  []byte `xml:",innerxml"`
	}
	if err := d.DecodeElement(&wire, &start); err != nil {
		return err
	}
	e.XMLName = start.Name
	e.Header = wire.Header
	e.Inner = wire.Inner
	return nil
}

func (e *UnknownEvent) Kind() models.EventType { return e.EventKind }
func (e *UnknownEvent) ToModel() models.Event {
	return &models.UnknownEvent{
		EventHeader: e.Header.toModel(e.EventKind),
		RawXML:      append([]byte(nil), e.Inner...),
	}
}

var xmlEventFactories = map[models.EventType]func() Event{
	models.EventTypeHeartbeat:            func() Event { return &HeartbeatEvent{} },
	models.EventTypeCommandQueued:        func() Event { return &CommandQueuedEvent{} },
	models.EventTypeCommandCompletion:    func() Event { return &CommandCompletionEvent{} },
	models.EventTypeObject:               func() Event { return &ObjectEvent{} },
	models.EventTypeSensorReading:        func() Event { return &SensorReadingEvent{} },
	models.EventTypeLogEntry:             func() Event { return &LogEntryEvent{} },
	models.EventTypeDeviceFailure:        func() Event { return &DeviceFailureEvent{} },
	models.EventTypeDeviceRestore:        func() Event { return &DeviceRestoreEvent{} },
	models.EventTypeLogicalDeviceAdded:   func() Event { return &LogicalDeviceAddedEvent{} },
	models.EventTypeLogicalDeviceRemoved: func() Event { return &LogicalDeviceRemovedEvent{} },
	models.EventTypeAggregate:            func() Event { return &AggregateEvent{} },
}

// EventKind resolves the kind of an event element from its namespace,
// falling back to the local name.
func EventKind(name xml.Name) models.EventType {
	if strings.HasPrefix(name.Space, EventNamespacePrefix) {
		if kind := strings.Trim(strings.TrimPrefix(name.Space, EventNamespacePrefix), "/"); kind != "" {
			return models.EventType(kind)
		}
	}
	return models.EventType(name.Local)
}

// EventList is a heterogeneous list of event elements.
type EventList struct {
	Events []Event
}

// UnmarshalXML decodes each child element into the type selected by EventKind.
func (l *EventList) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			kind := EventKind(t.Name)
			var ev Event
			if factory, ok := xmlEventFactories[kind]; ok {
				ev = factory()
			} else {
				ev = &UnknownEvent{EventKind: kind}
			}
			if err := d.DecodeElement(ev, &t); err != nil {
				return fmt.Errorf("failed to decode %s event: %w", kind, err)
			}
			l.Events = append(l.Events, ev)
		case xml.EndElement:
			return nil
		}
	}
}

// MarshalXML writes the events back as children of start.
func (l EventList) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, ev := range l.Events {
		if err := e.Encode(ev); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// Models converts every event to the models.Event union. Aggregates stay
// aggregates; their inner events are converted recursively.
func (l EventList) Models() []models.Event {
	out := make([]models.Event, 0, len(l.Events))
	for _, ev := range l.Events {
		out = append(out, ev.ToModel())
	}
	return out
}

// ParseEventList decodes a GetEventsResponse document into models events.
func ParseEventList(data []byte) ([]models.Event, error) {
	var resp GetEventsResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse event list: %w", err)
	}
	return resp.Events.Models(), nil
}
