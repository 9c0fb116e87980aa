package application

import (
	"encoding/json"
	"encoding/xml"
	"testing"
	"time"

	"jetstream-go/jetstream/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsXML = `<?xml version="1.0" encoding="utf-8"?>
<GetEventsResponse xmlns="http://Jetstream.TersoSolutions.com/v1.5/GetEventsResponse">
  <EventList>
    <Jetstream xmlns="http://Jetstream.TersoSolutions.com/v1.0/HeartbeatEvent">
      <Header EventId="e1" LogicalDeviceId="cabinet-1" EventTime="2024-08-20T10:00:00Z" ReceivedTime="2024-08-20T10:00:01Z"/>
      <HeartbeatEvent/>
    </Jetstream>
    <Jetstream xmlns="http://Jetstream.TersoSolutions.com/v1.0/ObjectEvent">
      <Header EventId="e2" LogicalDeviceId="cabinet-1" EventTime="2024-08-20T10:02:00Z"/>
      <ObjectEvent User="nurse-7">
        <AddList>
          <Object EPC="3034257BF7194E4000000001" Antenna="2"/>
          <Object EPC="3034257BF7194E4000000003"/>
        </AddList>
        <RemoveList>
          <Object EPC="3034257BF7194E4000000002"/>
        </RemoveList>
      </ObjectEvent>
    </Jetstream>
    <Jetstream xmlns="http://Jetstream.TersoSolutions.com/v1.0/SensorReadingEvent">
      <Header EventId="e3" LogicalDeviceId="fridge-2" EventTime="2024-08-20T10:03:00Z"/>
      <SensorReadingEvent>
        <SensorReadingList>
          <SensorReading Name="temperature" Value="4.5" Unit="C" ReadingTime="2024-08-20T10:02:59Z"/>
        </SensorReadingList>
      </SensorReadingEvent>
    </Jetstream>
    <Jetstream xmlns="http://Jetstream.TersoSolutions.com/v1.0/LogEntryEvent">
      <Header EventId="e4" LogicalDeviceId="fridge-2" EventTime="2024-08-20T10:04:00Z"/>
      <LogEntryEvent Level="Warning" Source="door">
        door ajar
      </LogEntryEvent>
    </Jetstream>
    <Jetstream xmlns="http://Jetstream.TersoSolutions.com/v1.0/CommandCompletionEvent">
      <Header EventId="e5" LogicalDeviceId="cabinet-1" EventTime="2024-08-20T10:05:00Z"/>
      <CommandCompletionEvent CommandId="c1" CommandName="LockDoorCommand" Status="Failure">
        <Message>door open</Message>
        <ExceptionList><Exception>DoorOpenException</Exception></ExceptionList>
      </CommandCompletionEvent>
    </Jetstream>
    <Jetstream xmlns="http://Jetstream.TersoSolutions.com/v1.0/DeviceFailureEvent">
      <Header EventId="e6" LogicalDeviceId="fridge-2" EventTime="2024-08-20T10:06:00Z"/>
      <DeviceFailureEvent LastHeartbeat="2024-08-20T09:55:00Z"/>
    </Jetstream>
    <LogicalDeviceAddedEvent>
      <Header EventId="e7" LogicalDeviceId="cabinet-3" EventTime="2024-08-20T10:07:00Z"/>
      <LogicalDeviceAddedEvent DeviceSerialNumber="SN-3" DeviceDefinitionId="MicroCabinet"/>
    </LogicalDeviceAddedEvent>
    <Jetstream xmlns="http://Jetstream.TersoSolutions.com/v1.0/FutureEvent">
      <Header EventId="e8" LogicalDeviceId="cabinet-1" EventTime="2024-08-20T10:08:00Z"/>
      <FutureEvent Something="1"/>
    </Jetstream>
  </EventList>
</GetEventsResponse>`

func TestParseEventList(t *testing.T) {
	events, err := ParseEventList([]byte(eventsXML))
	require.NoError(t, err)
	require.Len(t, events, 8)

	hb, ok := events[0].(*models.HeartbeatEvent)
	require.True(t, ok)
	assert.Equal(t, "e1", hb.EventID())
	assert.Equal(t, "cabinet-1", hb.Device())
	assert.Equal(t, time.Date(2024, 8, 20, 10, 0, 1, 0, time.UTC), hb.Received())

	obj := events[1].(*models.ObjectEvent)
	assert.Equal(t, "nurse-7", obj.User)
	require.Len(t, obj.Adds, 2)
	assert.Equal(t, 2, obj.Adds[0].Antenna)
	require.Len(t, obj.Removes, 1)
	assert.Nil(t, obj.Current)

	sensor := events[2].(*models.SensorReadingEvent)
	require.Len(t, sensor.Readings, 1)
	assert.Equal(t, "temperature", sensor.Readings[0].Sensor)
	assert.InDelta(t, 4.5, sensor.Readings[0].Value, 0.0001)

	logEntry := events[3].(*models.LogEntryEvent)
	assert.Equal(t, "door ajar", logEntry.Message)
	assert.Equal(t, "Warning", logEntry.Level)

	done := events[4].(*models.CommandCompletionEvent)
	assert.False(t, done.Succeeded())
	assert.Equal(t, "door open", done.Message)
	assert.Equal(t, []string{"DoorOpenException"}, done.Exceptions)

	failure := events[5].(*models.DeviceFailureEvent)
	require.NotNil(t, failure.LastHeartbeat)

	// no namespace: the local name selects the kind
	added := events[6].(*models.LogicalDeviceAddedEvent)
	assert.Equal(t, "SN-3", added.SerialNumber)
	assert.Equal(t, models.EventTypeLogicalDeviceAdded, added.EventType())

	unknown := events[7].(*models.UnknownEvent)
	assert.Equal(t, models.EventType("FutureEvent"), unknown.EventType())
	assert.Equal(t, "e8", unknown.EventID())
	assert.Contains(t, string(unknown.RawXML), `<FutureEvent Something="1"/>`)

	data, err := json.Marshal(unknown)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "e8", out["Id"])
	assert.Contains(t, out["RawXML"], "FutureEvent")
}

func TestParseEventList_Aggregate(t *testing.T) {
	doc := `<GetEventsResponse xmlns="http://Jetstream.TersoSolutions.com/v1.5/GetEventsResponse">
  <EventList>
    <Jetstream xmlns="http://Jetstream.TersoSolutions.com/v1.0/AggregateEvent">
      <Header EventId="agg-1" LogicalDeviceId="cabinet-1" EventTime="2024-08-20T10:00:00Z"/>
      <AggregateEvent>
        <EventList>
          <Jetstream xmlns="http://Jetstream.TersoSolutions.com/v1.0/HeartbeatEvent">
            <Header EventId="h1" LogicalDeviceId="cabinet-1" EventTime="2024-08-20T10:00:00Z"/>
          </Jetstream>
          <Jetstream xmlns="http://Jetstream.TersoSolutions.com/v1.0/DeviceRestoreEvent">
            <Header EventId="r1" LogicalDeviceId="cabinet-1" EventTime="2024-08-20T10:00:00Z"/>
            <DeviceRestoreEvent/>
          </Jetstream>
        </EventList>
      </AggregateEvent>
    </Jetstream>
  </EventList>
</GetEventsResponse>`

	events, err := ParseEventList([]byte(doc))
	require.NoError(t, err)
	require.Len(t, events, 1)

	agg, ok := events[0].(*models.AggregateEvent)
	require.True(t, ok)
	assert.Equal(t, "agg-1", agg.EventID())
	leaves := agg.Flatten()
	require.Len(t, leaves, 2)
	assert.Equal(t, "h1", leaves[0].EventID())
	assert.IsType(t, &models.DeviceRestoreEvent{}, leaves[1])
}

func TestParseEventList_WrongNamespace(t *testing.T) {
	_, err := ParseEventList([]byte(`<GetEventsResponse xmlns="urn:other"><EventList/></GetEventsResponse>`))
	assert.Error(t, err)
}

func TestEventList_EncodeDecode(t *testing.T) {
	var resp GetEventsResponse
	require.NoError(t, xml.Unmarshal([]byte(eventsXML), &resp))

	out, err := xml.Marshal(&resp)
	require.NoError(t, err)

	var again GetEventsResponse
	require.NoError(t, xml.Unmarshal(out, &again))
	require.Equal(t, len(resp.Events.Events), len(again.Events.Events))
	for i := range resp.Events.Events {
		assert.Equal(t, resp.Events.Events[i].Kind(), again.Events.Events[i].Kind(), "event %d", i)
		assert.Equal(t, resp.Events.Events[i].ToModel().EventID(), again.Events.Events[i].ToModel().EventID())
	}

	obj := again.Events.Events[1].ToModel().(*models.ObjectEvent)
	assert.Len(t, obj.Adds, 2)
}

func TestEventKind(t *testing.T) {
	assert.Equal(t, models.EventTypeObject,
		EventKind(xml.Name{Space: EventNamespacePrefix + "ObjectEvent", Local: "Jetstream"}))
	assert.Equal(t, models.EventTypeHeartbeat, EventKind(xml.Name{Local: "HeartbeatEvent"}))
	assert.Equal(t, models.EventType("Jetstream"), EventKind(xml.Name{Space: "urn:x", Local: "Jetstream"}))
}
