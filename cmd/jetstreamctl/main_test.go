package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type recorded struct {
	method string
	path   string
	query  string
	key    string
	body   string
}

func newFakeAPI(t *testing.T, routes map[string]string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			key:    r.Header.Get("AccessKey"),
			body:   string(body),
		})
		resp, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if resp == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	t.Setenv("JETSTREAM_URL", "")
	t.Setenv("JETSTREAM_ACCESS_KEY", "")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--url", srv.URL, "--access-key", "cli-key"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestDevicesList(t *testing.T) {
	srv, calls := newFakeAPI(t, map[string]string{
		"GET /v3/devices": `[{"Name":"cabinet-1","SerialNumber":"SN-1","DeviceDefinition":"Cabinet"}]`,
	})

	out, err := run(t, srv, "devices", "list")
	require.NoError(t, err)

	var devices []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "cabinet-1", devices[0]["Name"])
	assert.Equal(t, "cli-key", (*calls)[0].key)
}

func TestDevicesAdd(t *testing.T) {
	srv, calls := newFakeAPI(t, map[string]string{
		"POST /v3/devices": `{"Name":"cabinet-9","SerialNumber":"SN-9","DeviceDefinition":"Cabinet"}`,
	})

	_, err := run(t, srv, "devices", "add", "--name", "cabinet-9", "--serial", "SN-9", "--definition", "Cabinet")
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.JSONEq(t, `{"DeviceName":"cabinet-9","SerialNumber":"SN-9","DeviceDefinition":"Cabinet"}`, (*calls)[0].body)
}

func TestDevicesGet_NotFound(t *testing.T) {
	srv, _ := newFakeAPI(t, nil)
	_, err := run(t, srv, "devices", "get", "missing")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "cli-key")
}

func TestDevicesExport(t *testing.T) {
	srv, _ := newFakeAPI(t, map[string]string{
		"GET /v3/devices": `[{"Name":"b"},{"Name":"a"}]`,
	})
	path := filepath.Join(t.TempDir(), "devices.xlsx")

	out, err := run(t, srv, "devices", "export", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 2 devices")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Devices")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[1][0])
}

func TestEventsGetAndAck(t *testing.T) {
	srv, calls := newFakeAPI(t, map[string]string{
		"GET /v3/events":            `{"BatchId":"batch-7","Events":[{"Type":"HeartbeatEvent","Id":"e1","DeviceName":"cabinet-1","EventTime":"2024-08-20T10:00:00Z"}]}`,
		"DELETE /v3/events/batch-7": "",
	})

	out, err := run(t, srv, "events", "get", "--limit", "10")
	require.NoError(t, err)
	assert.Contains(t, out, `"BatchId": "batch-7"`)
	assert.Equal(t, "limit=10", (*calls)[0].query)

	out, err = run(t, srv, "events", "ack", "batch-7")
	require.NoError(t, err)
	assert.Contains(t, out, "acknowledged batch-7")
}

func TestCommandUnlock(t *testing.T) {
	srv, calls := newFakeAPI(t, map[string]string{
		"POST /v3/devices/cabinet-1/commands/unlockdoor": `{"Id":"c1","DeviceName":"cabinet-1","CommandName":"unlockdoor","Status":"Queued"}`,
	})

	out, err := run(t, srv, "command", "unlock", "cabinet-1", "--duration", "15")
	require.NoError(t, err)
	assert.Contains(t, out, `"Status": "Queued"`)
	assert.JSONEq(t, `{"Duration":15}`, (*calls)[0].body)
}

func TestCommandConfigSet(t *testing.T) {
	srv, calls := newFakeAPI(t, map[string]string{
		"POST /v3/devices/cabinet-1/commands/setconfigurationvalues": `{"Id":"c2","Status":"Queued"}`,
	})

	_, err := run(t, srv, "command", "config", "cabinet-1", "--set", "ScanInterval=30", "--set", "Mode=Auto")
	require.NoError(t, err)
	assert.JSONEq(t, `{"Values":[{"Name":"ScanInterval","Value":"30"},{"Name":"Mode","Value":"Auto"}]}`, (*calls)[0].body)

	_, err = run(t, srv, "command", "config", "cabinet-1", "--set", "broken")
	require.Error(t, err)
}

func TestCommandConfigGet(t *testing.T) {
	srv, calls := newFakeAPI(t, map[string]string{
		"POST /v3/devices/cabinet-1/commands/getconfigurationvalues": `{"Id":"c3","DeviceName":"cabinet-1","Status":"Success",
			"Result":{"DeviceName":"cabinet-1","Values":[{"Name":"ScanInterval","Value":"30"},{"Name":"Mode","Value":"Auto"}]}}`,
	})

	out, err := run(t, srv, "command", "config", "cabinet-1", "ScanInterval", "Mode")
	require.NoError(t, err)
	assert.JSONEq(t, `{"Parameters":["ScanInterval","Mode"]}`, (*calls)[0].body)
	assert.JSONEq(t, `{"ScanInterval":"30","Mode":"Auto"}`, out)
}

func TestMissingAccessKey(t *testing.T) {
	t.Setenv("JETSTREAM_URL", "http://localhost")
	t.Setenv("JETSTREAM_ACCESS_KEY", "")

	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"policies", "list"})
	require.Error(t, root.Execute())
}

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"a=1", " b =x=y"})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "b", values[1].Name)
	assert.Equal(t, "x=y", values[1].Value)

	_, err = parseAssignments([]string{"=1"})
	assert.Error(t, err)
}
