package metrics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"eventhub/internal/hub/metrics"
)

type fixedHub struct {
	snapshot metrics.HubSnapshot
}

func (f fixedHub) Metrics() metrics.HubSnapshot {
	return f.snapshot
}

type fixedQueue int

func (q fixedQueue) Len() int {
	return int(q)
}

func TestRegistry_RegisterHub(t *testing.T) {
	r := metrics.NewRegistry()
	r.RegisterHub("chat", fixedHub{snapshot: metrics.HubSnapshot{
		Subscriptions: 3,
		Published:     10,
		Delivered:     7,
		Posted:        2,
		Reclaimed:     1,
		Panics:        1,
	}})
	r.RegisterQueue("ui", fixedQueue(4))

	expected := `
# HELP eventhub_subscriptions Number of subscriptions in the registry, stale ones included
# TYPE eventhub_subscriptions gauge
eventhub_subscriptions{hub="chat"} 3
# HELP eventhub_events_published_total Total number of events published
# TYPE eventhub_events_published_total counter
eventhub_events_published_total{hub="chat"} 10
# HELP eventhub_deliveries_total Total number of synchronous handler invocations that completed
# TYPE eventhub_deliveries_total counter
eventhub_deliveries_total{hub="chat"} 7
# HELP eventhub_posted_total Total number of deliveries posted to a dispatch context
# TYPE eventhub_posted_total counter
eventhub_posted_total{hub="chat"} 2
# HELP eventhub_reclaimed_total Total number of stale subscriptions reclaimed
# TYPE eventhub_reclaimed_total counter
eventhub_reclaimed_total{hub="chat"} 1
# HELP eventhub_handler_panics_total Total number of handler panics during synchronous delivery
# TYPE eventhub_handler_panics_total counter
eventhub_handler_panics_total{hub="chat"} 1
# HELP eventhub_dispatch_queue_length Number of callbacks waiting in a dispatch context
# TYPE eventhub_dispatch_queue_length gauge
eventhub_dispatch_queue_length{context="ui"} 4
`
	err := testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected),
		"eventhub_subscriptions",
		"eventhub_events_published_total",
		"eventhub_deliveries_total",
		"eventhub_posted_total",
		"eventhub_reclaimed_total",
		"eventhub_handler_panics_total",
		"eventhub_dispatch_queue_length",
	)
	require.NoError(t, err)
}

func TestRegistry_RegisterHubTwice(t *testing.T) {
	r := metrics.NewRegistry()
	r.RegisterHub("chat", fixedHub{})

	assert.Panics(t, func() { r.RegisterHub("chat", fixedHub{}) })
	assert.NotPanics(t, func() { r.RegisterHub("audit", fixedHub{}) })
}

func TestRegistry_SystemInfo(t *testing.T) {
	r := metrics.NewRegistry()
	r.SetSystemInfo("1.2.3", "today")
	r.RecordPublish("chat.MessageAdded", time.Millisecond, nil)

	expected := `
# HELP eventhub_system_info System information (value is always 1, labels contain info)
# TYPE eventhub_system_info gauge
eventhub_system_info{build_time="today",version="1.2.3"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected), "eventhub_system_info"))

	count, err := testutil.GatherAndCount(r.Gatherer(), "eventhub_start_time_seconds", "eventhub_publish_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestServer_Handler(t *testing.T) {
	r := metrics.NewRegistry()
	r.RecordExists(true)
	s := metrics.NewServer(metrics.ServerConfig{Port: 0, Timeout: time.Second, Service: "eventhub"}, r, zaptest.NewLogger(t))

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, map[string]string{"status": "healthy", "service": "eventhub-metrics"}, body)
	})

	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"starting"`)

		s.SetReady(true)
		rec = httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ready"`)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `eventhub_exists_total{result="found"} 1`)
	})
}

func TestServer_StartStop(t *testing.T) {
	s := metrics.NewServer(metrics.ServerConfig{Port: 0, Timeout: time.Second, Service: "eventhub"}, metrics.NewRegistry(), zaptest.NewLogger(t))
	assert.Equal(t, ":0", s.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
