package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goclaw/typedbus/config"
	"github.com/goclaw/typedbus/pkg/api/handlers"
	"github.com/goclaw/typedbus/pkg/api/middleware"
	"github.com/goclaw/typedbus/pkg/eventbus"
	"github.com/goclaw/typedbus/pkg/lane"
	"github.com/goclaw/typedbus/pkg/logger"
	"github.com/goclaw/typedbus/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type CountEvent struct{ Count int }

type fixture struct {
	bus     *eventbus.Bus
	lanes   *lane.Manager
	metrics *metrics.Manager
	router  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := metrics.NewManager(metrics.DefaultConfig())
	bus := eventbus.New(eventbus.WithLogger(logger.Nop()), eventbus.WithMetrics(m))
	lanes := lane.NewManager(lane.WithLogger(logger.Nop()), lane.WithMetrics(m))
	_, err := lanes.Register(&lane.Config{Name: "ui", Capacity: 4, MaxConcurrency: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		bus.Close()
		_ = lanes.Close(context.Background())
	})

	h := &Handlers{
		Health:   handlers.NewHealthHandler(bus, lanes),
		Debug:    handlers.NewDebugHandler(bus, lanes),
		Metrics:  m.Handler(),
		Recorder: m,
	}
	return &fixture{bus: bus, lanes: lanes, metrics: m, router: NewRouter(logger.Nop(), h)}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	f.bus.Close()
	rec = f.get(t, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	owner := &struct{ eventbus.Lifetime }{}
	eventbus.Register(f.bus, owner, func(CountEvent, any) {})

	rec := f.get(t, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Healthy)
	assert.Equal(t, 1, body.Subscriptions)
	assert.Equal(t, 1, body.Kinds)
	assert.Equal(t, 1, body.Lanes)
	assert.NotEmpty(t, body.Version)
}

func TestDebugBus(t *testing.T) {
	f := newFixture(t)
	bag := eventbus.NewDisposeBag()
	ui, err := f.lanes.Get("ui")
	require.NoError(t, err)
	eventbus.Subscribe[CountEvent](f.bus).OnQueue(ui).OnNext(func(CountEvent) {}).DisposedBy(bag)
	eventbus.Subscribe[CountEvent](f.bus).ForObject("x").OnNext(func(CountEvent) {}).DisposedBy(bag)

	rec := f.get(t, "/debug/bus")
	require.Equal(t, http.StatusOK, rec.Code)
	var st eventbus.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 2, st.Subscriptions)
	require.Len(t, st.Kinds, 1)
	assert.Equal(t, 1, st.Kinds[0].Async)
	assert.Equal(t, 1, st.Kinds[0].Filtered)

	rec = f.get(t, "/debug/bus/api.CountEvent")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.get(t, "/debug/bus/api.Missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestDebugLanes(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/debug/lanes")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats []lane.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "ui", stats[0].Name)
	assert.Equal(t, 4, stats[0].Capacity)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	eventbus.Post(f.bus, CountEvent{Count: 1})
	f.get(t, "/health")

	rec := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `eventbus_posted_total{kind="api.CountEvent"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecovery(t *testing.T) {
	r := NewRouter(logger.Nop(), &Handlers{})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get(middleware.RequestIDHeader))
	assert.Contains(t, rec.Body.String(), `"request_id":"req-1"`)
}

func TestHTTPServerLifecycle(t *testing.T) {
	bus := eventbus.New(eventbus.WithLogger(logger.Nop()))
	defer bus.Close()

	srv := NewHTTPServer(config.ServerConfig{
		Host:         "127.0.0.1",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}, logger.Nop(), &Handlers{Health: handlers.NewHealthHandler(bus, nil)})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}
