package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dyluth/cuebridge/internal/cue"
	"github.com/dyluth/cuebridge/internal/metrics"
	"github.com/dyluth/cuebridge/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(st *state.State) *Server {
	return NewServer("127.0.0.1:0", "", st, metrics.NewCollector().Handler(), log.New(io.Discard))
}

func newTestState() *state.State {
	return state.New(cue.NewSet([]string{"0.0.9", "9.80.93"}, []string{"0.0.1", "9.80.93"}))
}

// TestSnapshotEndpoint verifies the snapshot JSON shape.
func TestSnapshotEndpoint(t *testing.T) {
	st := newTestState()
	st.AdvanceCue("9.80.93", cue.ActionRestart)
	st.SetConnected(true)
	st.CompleteHeartbeat(true)

	server := newTestServer(st)
	req := httptest.NewRequest(http.MethodGet, DefaultPath, nil)
	w := httptest.NewRecorder()

	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))

	assert.Equal(t, true, body["service_active"])
	assert.Equal(t, true, body["obs_active"])
	assert.Equal(t, true, body["recording_active"])
	assert.Equal(t, []any{"0.0.9", "9.80.93"}, body["start_trigger"])
	assert.Equal(t, []any{"0.0.1", "9.80.93"}, body["end_trigger"])
	assert.Equal(t, "9.80.93", body["current_cue"])
	assert.Equal(t, float64(0), body["time_since_heartbeat"])
}

// TestEndpoints_MethodNotAllowed verifies non-GET requests are rejected.
func TestEndpoints_MethodNotAllowed(t *testing.T) {
	server := newTestServer(newTestState())

	for _, path := range []string{DefaultPath, "/healthz", "/metrics"} {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			t.Run(method+" "+path, func(t *testing.T) {
				req := httptest.NewRequest(method, path, nil)
				w := httptest.NewRecorder()

				server.Handler().ServeHTTP(w, req)

				assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			})
		}
	}
}

// TestHealthCheckResponse verifies status codes follow device connectivity.
func TestHealthCheckResponse(t *testing.T) {
	t.Run("degraded when device unreachable", func(t *testing.T) {
		st := newTestState()
		server := newTestServer(st)

		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "degraded", response.Status)
		assert.Equal(t, "disconnected", response.OBS)
	})

	t.Run("healthy when device reachable", func(t *testing.T) {
		st := newTestState()
		st.SetConnected(true)
		st.CompleteHeartbeat(true)
		server := newTestServer(st)

		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "connected", response.OBS)
		assert.True(t, response.Recording)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.NewCollector()
	m.RecordRequest("StartRecord", true)
	server := NewServer("127.0.0.1:0", "", newTestState(), m.Handler(), log.New(io.Discard))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cuebridge_obs_requests_total")
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	server := NewServer("127.0.0.1:0", "", newTestState(), nil, log.New(io.Discard))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomPath(t *testing.T) {
	server := NewServer("127.0.0.1:0", "/status.json", newTestState(), nil, log.New(io.Discard))

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, DefaultPath, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := newTestServer(newTestState())
	require.NoError(t, server.Start())

	url := fmt.Sprintf("http://%s%s", server.Addr(), DefaultPath)
	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	_, err = http.Get(url)
	assert.Error(t, err)
}

func TestServer_StartFailsWhenPortTaken(t *testing.T) {
	first := newTestServer(newTestState())
	require.NoError(t, first.Start())
	defer first.Shutdown(context.Background())

	second := NewServer(first.Addr().String(), "", newTestState(), nil, log.New(io.Discard))
	err := second.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start status server")
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	server := newTestServer(newTestState())
	assert.NoError(t, server.Shutdown(context.Background()))
	assert.Nil(t, server.Addr())
}
