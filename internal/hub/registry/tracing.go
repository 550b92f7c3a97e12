package registry

import (
	"context"
	"reflect"

	"go.opentelemetry.io/otel/attribute"

	"eventhub/internal/hub"
	"eventhub/internal/hub/tracing"
)

// TracedHub wraps a hub.Hub with distributed tracing
// Layer order: TracedHub -> MetricsHub -> EventHub (real thing)
type TracedHub struct {
	hub    hub.Hub
	name   string
	tracer *tracing.Tracer
}

// NewTracedHub creates a new traced hub; name labels every span
func NewTracedHub(h hub.Hub, name string, tracer *tracing.Tracer) hub.Hub {
	return &TracedHub{
		hub:    h,
		name:   name,
		tracer: tracer,
	}
}

// Subscribe implements hub.Hub.Subscribe with distributed tracing
func (t *TracedHub) Subscribe(ctx context.Context, sub *hub.Subscription) error {
	ctx, span := t.tracer.StartSpan(ctx, "hub.subscribe")
	defer span.End()

	if sub != nil {
		span.SetAttributes(t.tracer.EventAttributes(t.name, sub.EventType())...)
		span.SetAttributes(
			tracing.AttrSubscriptionID.String(sub.ID()),
			tracing.AttrScheduled.Bool(sub.Scheduler() != nil),
		)
	} else {
		span.SetAttributes(t.tracer.HubAttributes(t.name)...)
	}

	err := t.hub.Subscribe(ctx, sub)
	t.tracer.Finish(span, err)

	return err
}

// Unsubscribe implements hub.Hub.Unsubscribe with distributed tracing
func (t *TracedHub) Unsubscribe(ctx context.Context, filter hub.Filter) int {
	ctx, span := t.tracer.StartSpan(ctx, "hub.unsubscribe")
	defer span.End()

	span.SetAttributes(t.filterAttributes(filter)...)

	removed := t.hub.Unsubscribe(ctx, filter)
	span.SetAttributes(tracing.AttrRemoved.Int(removed))
	t.tracer.Finish(span, nil)

	return removed
}

// Publish implements hub.Hub.Publish with distributed tracing
func (t *TracedHub) Publish(ctx context.Context, event any) error {
	ctx, span := t.tracer.StartSpan(ctx, "hub.publish")
	defer span.End()

	span.SetAttributes(t.tracer.EventAttributes(t.name, reflect.TypeOf(event))...)
	if e, ok := event.(hub.Event); ok && e.Sender() != nil {
		span.SetAttributes(tracing.AttrSenderType.String(tracing.TypeName(reflect.TypeOf(e.Sender()))))
	}

	err := t.hub.Publish(ctx, event)
	t.tracer.Finish(span, err)

	return err
}

// Exists implements hub.Hub.Exists with distributed tracing
func (t *TracedHub) Exists(ctx context.Context, filter hub.Filter) bool {
	ctx, span := t.tracer.StartSpan(ctx, "hub.exists")
	defer span.End()

	span.SetAttributes(t.filterAttributes(filter)...)

	found := t.hub.Exists(ctx, filter)
	span.SetAttributes(tracing.AttrFound.Bool(found))
	t.tracer.Finish(span, nil)

	return found
}

func (t *TracedHub) filterAttributes(filter hub.Filter) []attribute.KeyValue {
	if et := filter.EventType(); et != nil {
		return t.tracer.EventAttributes(t.name, et)
	}
	return t.tracer.HubAttributes(t.name)
}
