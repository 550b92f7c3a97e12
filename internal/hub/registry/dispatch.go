package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"

	"go.uber.org/zap"

	"eventhub/internal/hub"
)

// dispatch delivers event to the selected subscriptions in order. Scheduled
// subscriptions are posted to their dispatch context; the others run inline.
func (h *EventHub) dispatch(_ context.Context, eventType reflect.Type, event any, selected []*hub.Subscription) error {
	var errs []error

	for _, sub := range selected {
		if scheduler := sub.Scheduler(); scheduler != nil {
			if err := scheduler.Post(func() { sub.Invoke(event) }); err != nil {
				h.logger.Warn("failed to post event",
					zap.String("subscription", sub.ID()),
					zap.Stringer("eventType", eventType),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("failed to post event to subscription %s: %w", sub.ID(), err))
				continue
			}

			h.metrics.RecordPosted()
			continue
		}

		if err := h.deliver(eventType, event, sub); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (h *EventHub) deliver(eventType reflect.Type, event any, sub *hub.Subscription) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		h.metrics.RecordPanic()
		if h.failFast {
			panic(r)
		}

		h.logger.Error("event handler panicked",
			zap.String("subscription", sub.ID()),
			zap.Stringer("eventType", eventType),
			zap.Any("panic", r),
		)
		err = &hub.PanicError{
			SubscriptionID: sub.ID(),
			EventType:      eventType.String(),
			Value:          r,
			Stack:          debug.Stack(),
		}
	}()

	sub.Invoke(event)
	h.metrics.RecordDelivered()

	return nil
}
