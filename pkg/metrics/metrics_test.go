package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goclaw/typedbus/pkg/eventbus"
	"github.com/goclaw/typedbus/pkg/lane"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ eventbus.MetricsRecorder = (*Manager)(nil)
	_ lane.MetricsRecorder     = (*Manager)(nil)
)

func TestNewManager(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		m := NewManager(DefaultConfig())
		assert.True(t, m.Enabled())
		assert.NotNil(t, m.Registry())
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Enabled = false
		m := NewManager(cfg)
		assert.False(t, m.Enabled())
		assert.Nil(t, m.Registry())
	})
}

func TestBusMetrics(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.RecordPosted("main.CountEvent")
	m.RecordPosted("main.CountEvent")
	m.RecordDelivered("main.CountEvent", "sync")
	m.RecordSkipped("main.CountEvent", eventbus.SkipObjectMismatch)
	m.RecordHandlerPanic("main.CountEvent")
	m.SetSubscriptions("main.CountEvent", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.busPosted.WithLabelValues("main.CountEvent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busDelivered.WithLabelValues("main.CountEvent", "sync")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busSkipped.WithLabelValues("main.CountEvent", eventbus.SkipObjectMismatch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busPanics.WithLabelValues("main.CountEvent")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.busSubscriptions.WithLabelValues("main.CountEvent")))

	m.SetSubscriptions("main.CountEvent", 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.busSubscriptions.WithLabelValues("main.CountEvent")))
}

func TestLaneMetrics(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.IncQueueDepth("ui")
	m.IncQueueDepth("ui")
	m.DecQueueDepth("ui")
	m.RecordThroughput("ui")
	m.RecordDropped("ui")
	m.RecordWaitDuration("ui", 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.laneQueueDepth.WithLabelValues("ui")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.laneThroughput.WithLabelValues("ui")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.laneDropped.WithLabelValues("ui")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.laneWaitDuration, "lane_wait_duration_seconds"))
}

func TestHTTPMetrics(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.RecordHTTPRequest("GET", "/healthz", "200", 2*time.Millisecond)
	m.RecordHTTPRequest("GET", "/healthz", "200", 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/healthz", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration, "http_request_duration_seconds"))
}

func TestDisabledManagerRecordsNothing(t *testing.T) {
	m := NoOpManager()

	assert.NotPanics(t, func() {
		m.RecordPosted("k")
		m.RecordDelivered("k", "sync")
		m.RecordSkipped("k", eventbus.SkipRemoved)
		m.RecordHandlerPanic("k")
		m.SetSubscriptions("k", 1)
		m.IncQueueDepth("l")
		m.DecQueueDepth("l")
		m.RecordThroughput("l")
		m.RecordDropped("l")
		m.RecordWaitDuration("l", time.Second)
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
	})
	assert.NoError(t, m.StartServer(context.Background(), 0, "/metrics"))
}

func TestMetricsHandler(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		m := NewManager(DefaultConfig())
		m.RecordPosted("main.CountEvent")
		m.RecordDropped("ui")

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `eventbus_posted_total{kind="main.CountEvent"} 1`)
		assert.Contains(t, body, `lane_dropped_total{lane_name="ui"} 1`)
		assert.Contains(t, body, "go_goroutines")
	})

	t.Run("disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NoOpManager().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStartServer(t *testing.T) {
	port := freePort(t)
	m := NewManager(DefaultConfig())
	m.RecordPosted("main.CountEvent")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.StartServer(ctx, port, "/metrics") }()

	url := fmt.Sprintf("http://127.0.0.1:%d/metrics", port)
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, "eventbus_posted_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func BenchmarkRecordDelivered(b *testing.B) {
	m := NewManager(DefaultConfig())
	for b.Loop() {
		m.RecordDelivered("main.CountEvent", "sync")
	}
}
