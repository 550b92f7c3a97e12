// Package tracing wraps OpenTelemetry for the event hub: provider setup, span
// helpers, and the hub.* attribute vocabulary shared by every hub span.
package tracing

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	AttrHubName        = attribute.Key("hub.name")
	AttrEventType      = attribute.Key("hub.event_type")
	AttrSenderType     = attribute.Key("hub.sender_type")
	AttrSubscriptionID = attribute.Key("hub.subscription_id")
	AttrScheduled      = attribute.Key("hub.scheduled")
	AttrRemoved        = attribute.Key("hub.removed")
	AttrFound          = attribute.Key("hub.found")
)

// Tracer starts and finishes hub spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracerFromProvider builds a Tracer on an existing provider.
func NewTracerFromProvider(tp trace.TracerProvider, name string) *Tracer {
	return &Tracer{tracer: tp.Tracer(name)}
}

// StartSpan starts an internal span. opts may override the kind.
func (t *Tracer) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append([]trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindInternal)}, opts...)
	return t.tracer.Start(ctx, spanName, opts...)
}

// RecordError records err on the span active in ctx and marks it failed.
func (t *Tracer) RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Finish sets the outcome of span from err. It does not end the span.
func (t *Tracer) Finish(span trace.Span, err error) {
	span.SetAttributes(t.ErrorAttributes(err)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// HubAttributes creates the attributes shared by every hub span.
func (t *Tracer) HubAttributes(hubName string) []attribute.KeyValue {
	return []attribute.KeyValue{AttrHubName.String(hubName)}
}

// EventAttributes creates attributes describing an event type.
func (t *Tracer) EventAttributes(hubName string, eventType reflect.Type) []attribute.KeyValue {
	return append(t.HubAttributes(hubName), AttrEventType.String(TypeName(eventType)))
}

func (t *Tracer) ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return []attribute.KeyValue{attribute.Bool("error", false)}
	}
	return []attribute.KeyValue{
		attribute.Bool("error", true),
		attribute.String("error.type", fmt.Sprintf("%T", err)),
		attribute.String("error.message", err.Error()),
	}
}

// TypeName renders t for span attributes and metric labels.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
