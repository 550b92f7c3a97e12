package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HubSnapshot is a point-in-time copy of an event hub's internal counters.
type HubSnapshot struct {
	Subscriptions int64
	Published     int64
	Delivered     int64
	Posted        int64
	Reclaimed     int64
	Panics        int64
}

// HubSource exposes the counters of a running hub.
type HubSource interface {
	Metrics() HubSnapshot
}

// QueueSource exposes the backlog of a dispatch context.
type QueueSource interface {
	Len() int
}

// Registry encapsulates all metrics and provides a clean interface
// for recording metrics without global state
type Registry struct {
	registry *prometheus.Registry

	// Hub operation metrics
	publishTotal     *prometheus.CounterVec
	publishDuration  *prometheus.HistogramVec
	subscribeTotal   *prometheus.CounterVec
	unsubscribeTotal *prometheus.CounterVec
	removedTotal     prometheus.Counter
	existsTotal      *prometheus.CounterVec

	// System health metrics
	systemInfo *prometheus.GaugeVec
	startTime  prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		publishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventhub_publish_total",
				Help: "Total number of publish operations",
			},
			[]string{"event_type", "status"}, // status: success, error
		),

		publishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eventhub_publish_duration_seconds",
				Help:    "Time spent matching and synchronously delivering an event",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"event_type"},
		),

		subscribeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventhub_subscribe_total",
				Help: "Total number of subscribe operations",
			},
			[]string{"event_type", "mode", "status"}, // mode: sync, scheduled
		),

		unsubscribeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventhub_unsubscribe_total",
				Help: "Total number of unsubscribe operations",
			},
			[]string{"result"}, // result: removed, noop
		),

		removedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eventhub_unsubscribe_removed_total",
				Help: "Total number of subscriptions removed by unsubscribe operations",
			},
		),

		existsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventhub_exists_total",
				Help: "Total number of existence checks",
			},
			[]string{"result"}, // result: found, missing
		),

		systemInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eventhub_system_info",
				Help: "System information (value is always 1, labels contain info)",
			},
			[]string{"version", "build_time"},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "eventhub_start_time_seconds",
				Help: "Unix timestamp when the application started",
			},
		),
	}

	// add default Go metrics (memory, GC, goroutines, etc.)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(
		r.publishTotal,
		r.publishDuration,
		r.subscribeTotal,
		r.unsubscribeTotal,
		r.removedTotal,
		r.existsTotal,
		r.systemInfo,
		r.startTime,
	)

	r.startTime.SetToCurrentTime()

	return r
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

// Gatherer exposes the underlying registry for scraping in-process.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RegisterHub exposes the internal counters of a hub, labelled by name.
// The values are read from source on every scrape.
func (r *Registry) RegisterHub(name string, source HubSource) {
	labels := prometheus.Labels{"hub": name}
	counter := func(metric, help string, read func(HubSnapshot) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: metric, Help: help, ConstLabels: labels},
			func() float64 { return float64(read(source.Metrics())) },
		)
	}

	r.registry.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        "eventhub_subscriptions",
				Help:        "Number of subscriptions in the registry, stale ones included",
				ConstLabels: labels,
			},
			func() float64 { return float64(source.Metrics().Subscriptions) },
		),
		counter("eventhub_events_published_total", "Total number of events published",
			func(s HubSnapshot) int64 { return s.Published }),
		counter("eventhub_deliveries_total", "Total number of synchronous handler invocations that completed",
			func(s HubSnapshot) int64 { return s.Delivered }),
		counter("eventhub_posted_total", "Total number of deliveries posted to a dispatch context",
			func(s HubSnapshot) int64 { return s.Posted }),
		counter("eventhub_reclaimed_total", "Total number of stale subscriptions reclaimed",
			func(s HubSnapshot) int64 { return s.Reclaimed }),
		counter("eventhub_handler_panics_total", "Total number of handler panics during synchronous delivery",
			func(s HubSnapshot) int64 { return s.Panics }),
	)
}

// RegisterQueue exposes the backlog of a dispatch context, labelled by name.
func (r *Registry) RegisterQueue(name string, source QueueSource) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "eventhub_dispatch_queue_length",
			Help:        "Number of callbacks waiting in a dispatch context",
			ConstLabels: prometheus.Labels{"context": name},
		},
		func() float64 { return float64(source.Len()) },
	))
}

// RecordPublish records a publish operation
func (r *Registry) RecordPublish(eventType string, duration time.Duration, err error) {
	r.publishTotal.WithLabelValues(eventType, status(err)).Inc()
	r.publishDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordSubscribe records a subscribe operation
func (r *Registry) RecordSubscribe(eventType string, scheduled bool, err error) {
	mode := "sync"
	if scheduled {
		mode = "scheduled"
	}

	r.subscribeTotal.WithLabelValues(eventType, mode, status(err)).Inc()
}

// RecordUnsubscribe records an unsubscribe operation
func (r *Registry) RecordUnsubscribe(removed int) {
	if removed == 0 {
		r.unsubscribeTotal.WithLabelValues("noop").Inc()
		return
	}

	r.unsubscribeTotal.WithLabelValues("removed").Inc()
	r.removedTotal.Add(float64(removed))
}

// RecordExists records an existence check
func (r *Registry) RecordExists(found bool) {
	result := "missing"
	if found {
		result = "found"
	}

	r.existsTotal.WithLabelValues(result).Inc()
}

// SetSystemInfo sets system information metrics
func (r *Registry) SetSystemInfo(version, buildTime string) {
	r.systemInfo.WithLabelValues(version, buildTime).Set(1)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
