package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jetstream-go/internal/domain"
	"jetstream-go/internal/poller"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStats struct{ stats poller.WindowStats }

func (f fakeStats) Stats() poller.WindowStats { return f.stats }

type fakeEvents struct {
	device string
	types  []string
	limit  int
	since  time.Time
	err    error
}

func (f *fakeEvents) ListEvents(ctx context.Context, deviceName string, eventTypes []string, limit int) ([]domain.Envelope, error) {
	f.device, f.types, f.limit = deviceName, eventTypes, limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Envelope{{
		EventID:    "e1",
		EventType:  "HeartbeatEvent",
		DeviceName: deviceName,
		EventTime:  time.Date(2024, 8, 20, 10, 0, 0, 0, time.UTC),
		Payload:    json.RawMessage(`{"Id":"e1"}`),
	}}, nil
}

func (f *fakeEvents) CountByType(ctx context.Context, since time.Time) (map[string]int64, error) {
	f.since = since
	if f.err != nil {
		return nil, f.err
	}
	return map[string]int64{"HeartbeatEvent": 3}, nil
}

func do(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var body map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealthz(t *testing.T) {
	s := NewServer(":0", fakeStats{}, nil, nil, zap.NewNop())
	w, body := do(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestStatus(t *testing.T) {
	stats := poller.WindowStats{Source: "v3", Windows: 4, Processed: 12, Dropped: 1, LastError: "boom"}
	s := NewServer(":0", fakeStats{stats: stats}, nil, []string{"redis:jetstream:events"}, zap.NewNop())

	w, body := do(t, s, "/status")
	require.Equal(t, http.StatusOK, w.Code)

	p := body["poller"].(map[string]interface{})
	assert.Equal(t, "v3", p["source"])
	assert.Equal(t, float64(4), p["windows"])
	assert.Equal(t, float64(12), p["processed"])
	assert.Equal(t, float64(1), p["dropped"])
	assert.Equal(t, "boom", p["last_error"])
	assert.Equal(t, []interface{}{"redis:jetstream:events"}, body["sinks"])
}

func TestArchiveRoutesDisabledWithoutQuerier(t *testing.T) {
	s := NewServer(":0", fakeStats{}, nil, nil, zap.NewNop())
	w, body := do(t, s, "/events/counts")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", body["error"])

	w, body = do(t, s, "/devices/cabinet-1/events")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", body["error"])
}

func TestEventCounts(t *testing.T) {
	events := &fakeEvents{}
	s := NewServer(":0", fakeStats{}, events, nil, zap.NewNop())

	w, body := do(t, s, "/events/counts?since=2024-08-20T00:00:00Z")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC), events.since)
	assert.Equal(t, map[string]interface{}{"HeartbeatEvent": float64(3)}, body["counts"])

	w, _ = do(t, s, "/events/counts?since=yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	events.err = errors.New("db down")
	w, body = do(t, s, "/events/counts")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, body["error"], "db down")
}

func TestDeviceEvents(t *testing.T) {
	events := &fakeEvents{}
	s := NewServer(":0", fakeStats{}, events, nil, zap.NewNop())

	w, body := do(t, s, "/devices/cabinet-1/events?type=HeartbeatEvent,%20ObjectEvent&limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cabinet-1", events.device)
	assert.Equal(t, []string{"HeartbeatEvent", "ObjectEvent"}, events.types)
	assert.Equal(t, 5, events.limit)

	list := body["events"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "e1", list[0].(map[string]interface{})["event_id"])

	w, _ = do(t, s, "/devices/cabinet-1/events?limit=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
