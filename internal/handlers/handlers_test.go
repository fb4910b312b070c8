package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherstation/internal/history"
	"weatherstation/internal/metrics"
	"weatherstation/internal/models"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type staticRolling map[string]models.FieldRolling

func (s staticRolling) Stats() map[string]models.FieldRolling { return s }

// busyStore reports the history lock as held for every non-blocking read
type busyStore struct {
	*history.Store
}

func (busyStore) TrySnapshot() (models.Snapshot, bool) { return models.Snapshot{}, false }

type fakeCounters struct {
	pingErr error
	values  map[string]int64
}

func (f fakeCounters) Ping(context.Context) error { return f.pingErr }

func (f fakeCounters) GetCounter(_ context.Context, key string) (int64, error) {
	return f.values[key], nil
}

func newStore(temps ...float64) *history.Store {
	s := history.NewStore(10, history.WithClock(func() time.Time { return now }))
	for i, v := range temps {
		sample := models.NewSample(v, 55, 1010, 4, 270, 0.5, 6, 700)
		sample.Timestamp = now.Add(time.Duration(i-len(temps)) * time.Minute)
		s.Record(sample)
	}
	return s
}

func newRouter(store Store, opts ...Option) *mux.Router {
	r := mux.NewRouter()
	NewHandler(store, staticRolling{"temperature": {Mean: 20, StdDev: 1, Count: 3}}, opts...).Routes(r)
	return r
}

func get(t *testing.T, r http.Handler, url string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestLatestHandler(t *testing.T) {
	rec, body := get(t, newRouter(newStore()), "/weather/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no data yet", body["error"])

	rec, body = get(t, newRouter(newStore(18, 27)), "/weather/latest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Warm", body["condition"])
	assert.Equal(t, "1 minute ago", body["updated"])
	sample := body["sample"].(map[string]interface{})
	assert.Equal(t, 27.0, sample["temperature"])
}

func TestLatestHandler_LoadingWhenBusy(t *testing.T) {
	rec, body := get(t, newRouter(busyStore{newStore(18, 27)}), "/weather/latest")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "loading", body["status"])
	assert.Nil(t, body["sample"])
}

func TestHistoryHandler(t *testing.T) {
	r := newRouter(newStore(10, 11, 12, 13))

	rec, body := get(t, r, "/weather/history?range=150s")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["count"])

	rec, body = get(t, r, "/weather/history")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Last 6 Hours", body["range"])
	assert.Equal(t, 4.0, body["count"])

	rec, _ = get(t, r, "/weather/history?range=never")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryHandler(t *testing.T) {
	r := newRouter(newStore(10, 20, 30))

	rec, body := get(t, r, "/weather/summary?field=temperature&range=1h")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := body["summary"].([]interface{})
	require.Len(t, summary, 1)
	stats := summary[0].(map[string]interface{})
	assert.Equal(t, 10.0, stats["min"])
	assert.Equal(t, 20.0, stats["avg"])
	assert.Equal(t, 30.0, stats["max"])
	assert.Equal(t, 30.0, stats["now"])

	_, body = get(t, r, "/weather/summary")
	assert.Len(t, body["summary"], len(models.ChartFields))

	rec, _ = get(t, r, "/weather/summary?field=visibility")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = get(t, newRouter(newStore()), "/weather/summary?field=temperature&range=24h")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no data yet", body["error"])
}

func TestDashboardHandler(t *testing.T) {
	rec, body := get(t, newRouter(newStore(21, 22)), "/weather/dashboard?range=1h")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["online"])
	assert.Equal(t, "Pleasant", body["condition"])
	assert.Equal(t, "1 minute ago", body["updated"])
	assert.Equal(t, "2 samples", body["samples"])
	assert.Len(t, body["charts"], len(models.ChartFields))

	cards := body["cards"].([]interface{})
	require.NotEmpty(t, cards)
	first := cards[0].(map[string]interface{})
	assert.Equal(t, "Temperature", first["label"])
	assert.Equal(t, "22.0°C", first["value"])
	chart := body["charts"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Temperature", chart["label"])

	rec, body = get(t, newRouter(newStore()), "/weather/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["online"])
	assert.Nil(t, body["latest"])
}

func TestDashboardHandler_LoadingWhenBusy(t *testing.T) {
	rec, body := get(t, newRouter(busyStore{newStore(21)}), "/weather/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "loading", body["status"])
}

func TestHealthHandler(t *testing.T) {
	_, body := get(t, newRouter(newStore()), "/health")
	assert.Equal(t, "disabled", body["redis"])

	_, body = get(t, newRouter(newStore(), WithCounters(fakeCounters{})), "/health")
	assert.Equal(t, "connected", body["redis"])

	_, body = get(t, newRouter(newStore(), WithCounters(fakeCounters{pingErr: errors.New("down")})), "/health")
	assert.Equal(t, "disconnected", body["redis"])
}

func TestStatsHandler(t *testing.T) {
	counters := fakeCounters{values: map[string]int64{
		"weather:samples:total": 42,
		"weather:spikes:total":  3,
	}}
	r := newRouter(newStore(1, 2), WithCounters(counters), WithQueueDepth(func() int { return 7 }))

	rec, body := get(t, r, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["history_size"])
	assert.Equal(t, 10.0, body["history_capacity"])
	assert.Equal(t, 7.0, body["queue_depth"])
	assert.Equal(t, 42.0, body["mirrored_samples"])
	assert.Equal(t, 3.0, body["spikes_count"])
}

func TestAnalyzeHandler(t *testing.T) {
	_, body := get(t, newRouter(newStore()), "/analyze")
	rolling := body["rolling"].(map[string]interface{})
	assert.Contains(t, rolling, "temperature")
}

func dialStream(t *testing.T, store Store, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(newRouter(store, WithFrameInterval(10*time.Millisecond)))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/weather/stream" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStreamHandler_Frames(t *testing.T) {
	conn := dialStream(t, newStore(15, 16, 17), "?range=2m30s")

	var frame DashboardView
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "ok", frame.Status)
	require.NotNil(t, frame.Latest)
	assert.Equal(t, 17.0, frame.Latest.Temperature)
	assert.Len(t, frame.History, 2)

	require.NoError(t, conn.WriteJSON(streamRequest{Range: "1h"}))
	assert.Eventually(t, func() bool {
		var f DashboardView
		if err := conn.ReadJSON(&f); err != nil {
			return false
		}
		return len(f.History) == 3 && f.Range == "Last Hour"
	}, 2*time.Second, time.Millisecond)
}

func TestStreamHandler_CountsSessions(t *testing.T) {
	sessions := metrics.RequestsTotal.WithLabelValues("/weather/stream", http.MethodGet, "101")
	before := testutil.ToFloat64(sessions)

	conn := dialStream(t, newStore(15), "")
	var frame DashboardView
	require.NoError(t, conn.ReadJSON(&frame))

	assert.Equal(t, before+1, testutil.ToFloat64(sessions))
}

func TestStreamHandler_LoadingFrames(t *testing.T) {
	conn := dialStream(t, busyStore{newStore(15)}, "?fps=30")

	for i := 0; i < 3; i++ {
		var frame DashboardView
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, "loading", frame.Status)
		assert.Nil(t, frame.Latest)
	}
}

func TestStreamHandler_RejectsBadFPS(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(newStore()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/weather/stream?fps=120", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
