package registry

import (
	"context"
	"reflect"
	"time"

	"eventhub/internal/hub"
	"eventhub/internal/hub/metrics"
	"eventhub/internal/hub/tracing"
)

// MetricsHub wraps a hub.Hub with metrics collection
type MetricsHub struct {
	hub      hub.Hub
	registry *metrics.Registry
}

// NewMetricsHub creates a new instrumented hub
func NewMetricsHub(h hub.Hub, registry *metrics.Registry) hub.Hub {
	return &MetricsHub{
		hub:      h,
		registry: registry,
	}
}

// Subscribe implements hub.Hub.Subscribe with metrics collection
func (m *MetricsHub) Subscribe(ctx context.Context, sub *hub.Subscription) error {
	err := m.hub.Subscribe(ctx, sub)

	eventType, scheduled := "<nil>", false
	if sub != nil {
		eventType = tracing.TypeName(sub.EventType())
		scheduled = sub.Scheduler() != nil
	}
	m.registry.RecordSubscribe(eventType, scheduled, err)

	return err
}

// Unsubscribe implements hub.Hub.Unsubscribe with metrics collection
func (m *MetricsHub) Unsubscribe(ctx context.Context, filter hub.Filter) int {
	removed := m.hub.Unsubscribe(ctx, filter)

	m.registry.RecordUnsubscribe(removed)

	return removed
}

// Publish implements hub.Hub.Publish with metrics collection
func (m *MetricsHub) Publish(ctx context.Context, event any) error {
	start := time.Now()

	err := m.hub.Publish(ctx, event)
	duration := time.Since(start)

	m.registry.RecordPublish(tracing.TypeName(reflect.TypeOf(event)), duration, err)

	return err
}

// Exists implements hub.Hub.Exists with metrics collection
func (m *MetricsHub) Exists(ctx context.Context, filter hub.Filter) bool {
	found := m.hub.Exists(ctx, filter)

	m.registry.RecordExists(found)

	return found
}
