package registry

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"eventhub/internal/hub"
	"eventhub/internal/hub/metrics"
	"eventhub/internal/validator"
)

// Config holds the settings of an EventHub.
type Config struct {
	// Name identifies the hub in logs, metrics and spans.
	Name string `env:"HUB_NAME" envDefault:"default"`
	// FailFast lets a panicking handler propagate out of Publish, skipping
	// the handlers registered after it. By default each handler is isolated
	// and the panics are returned as an aggregated error.
	FailFast bool `env:"HUB_FAIL_FAST" envDefault:"false"`
}

// EventHub is the concrete implementation of hub.Hub.
// It keeps an ordered registry of subscriptions behind a single mutex. The
// mutex guards scans and mutations only; handlers are always invoked or
// posted after it is released, so a handler may call back into the hub.
type EventHub struct {
	name     string
	failFast bool
	logger   *zap.Logger
	metrics  *Metrics

	mu   sync.Mutex
	subs []*hub.Subscription
}

var _ hub.Hub = (*EventHub)(nil)

// NewEventHub creates an empty hub. Pass the returned instance explicitly to
// every producer and consumer that should share it.
func NewEventHub(config Config, logger *zap.Logger) (*EventHub, error) {
	if err := validator.Validate("event hub", logger); err != nil {
		return nil, fmt.Errorf("failed to validate event hub deps: %w", err)
	}

	name := config.Name
	if name == "" {
		name = "default"
	}

	return &EventHub{
		name:     name,
		failFast: config.FailFast,
		logger:   logger.Named("hub").With(zap.String("hub", name)),
		metrics:  NewMetrics(),
	}, nil
}

// Name returns the configured hub name.
func (h *EventHub) Name() string {
	return h.name
}

// Len returns the number of registered subscriptions, stale ones included.
func (h *EventHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Metrics returns a snapshot of the hub counters.
func (h *EventHub) Metrics() metrics.HubSnapshot {
	return h.metrics.Snapshot()
}

// Subscribe implements hub.Hub.Subscribe.
func (h *EventHub) Subscribe(_ context.Context, sub *hub.Subscription) error {
	if sub == nil {
		return hub.ErrNilSubscription
	}

	h.mu.Lock()
	h.subs = append(h.subs, sub)
	h.metrics.SetSubscriptions(len(h.subs))
	h.mu.Unlock()

	h.logger.Debug("subscription added",
		zap.String("subscription", sub.ID()),
		zap.Stringer("eventType", sub.EventType()),
		zap.Bool("scheduled", sub.Scheduler() != nil),
	)

	return nil
}

// Unsubscribe implements hub.Hub.Unsubscribe. The returned count includes
// stale subscriptions reclaimed by the same scan.
func (h *EventHub) Unsubscribe(_ context.Context, filter hub.Filter) int {
	h.mu.Lock()
	_, removed, reclaimed := h.sweep(filter.Matches, nil)
	h.mu.Unlock()

	h.afterSweep(reclaimed)
	if removed > 0 {
		h.logger.Debug("subscriptions removed", zap.Int("count", removed))
	}

	return removed + reclaimed
}

// Publish implements hub.Hub.Publish.
func (h *EventHub) Publish(ctx context.Context, event any) error {
	if event == nil {
		return hub.ErrNilEvent
	}

	eventType := reflect.TypeOf(event)
	accepts := func(sub *hub.Subscription) bool {
		return sub.Accepts(eventType)
	}

	h.mu.Lock()
	selected, _, reclaimed := h.sweep(nil, accepts)
	h.mu.Unlock()

	h.afterSweep(reclaimed)
	h.metrics.RecordPublished()

	if len(selected) == 0 {
		h.logger.Debug("no subscribers for event", zap.Stringer("eventType", eventType))
		return nil
	}

	return h.dispatch(ctx, eventType, event, selected)
}

// Exists implements hub.Hub.Exists. Stale subscriptions met during the scan
// are removed, so Exists has the same reclamation side effect as Publish and
// Unsubscribe.
func (h *EventHub) Exists(_ context.Context, filter hub.Filter) bool {
	if filter.IsZero() {
		return false
	}

	h.mu.Lock()
	found, _, reclaimed := h.sweep(nil, filter.Matches)
	h.mu.Unlock()

	h.afterSweep(reclaimed)

	return len(found) > 0
}

// sweep makes one pass over the registry in insertion order. Stale
// subscriptions are dropped, live ones matched by remove are dropped, and
// live ones matched by pick are returned in order. The subscriptions gauge is
// updated before returning. Callers must hold h.mu.
func (h *EventHub) sweep(remove, pick func(*hub.Subscription) bool) (picked []*hub.Subscription, removed, reclaimed int) {
	kept := h.subs[:0]
	for _, sub := range h.subs {
		switch {
		case !sub.Alive():
			reclaimed++
		case remove != nil && remove(sub):
			removed++
		default:
			if pick != nil && pick(sub) {
				picked = append(picked, sub)
			}
			kept = append(kept, sub)
		}
	}

	clear(h.subs[len(kept):])
	h.subs = kept
	h.metrics.SetSubscriptions(len(h.subs))

	return picked, removed, reclaimed
}

func (h *EventHub) afterSweep(reclaimed int) {
	if reclaimed == 0 {
		return
	}

	h.metrics.RecordReclaimed(reclaimed)
	h.logger.Debug("reclaimed stale subscriptions", zap.Int("count", reclaimed))
}
