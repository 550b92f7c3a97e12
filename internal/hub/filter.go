package hub

import (
	"reflect"
	"weak"
)

// Filter selects subscriptions for Unsubscribe and Exists, with increasing
// specificity: subscriber, subscriber and exact event type, subscriber and
// exact event type and handler. Event types are compared exactly; unlike
// Publish, an interface type does not match its implementations.
type Filter struct {
	key       any
	eventType reflect.Type
	handler   uintptr
}

// BySubscriber matches every subscription of subscriber.
func BySubscriber[S any](subscriber *S) Filter {
	if subscriber == nil {
		return Filter{}
	}
	return Filter{key: weak.Make(subscriber)}
}

// ByType matches the subscriptions of subscriber to exactly T.
func ByType[T any, S any](subscriber *S) Filter {
	f := BySubscriber(subscriber)
	f.eventType = reflect.TypeFor[T]()
	return f
}

// ByHandler matches the subscriptions of subscriber to exactly T with the
// given handler. Handlers are compared by func value: the same value matches,
// while two closures created by the same function literal do not. A nil
// handler matches like ByType.
func ByHandler[T any, S any](subscriber *S, handler func(T)) Filter {
	f := ByType[T](subscriber)
	if handler != nil {
		f.handler = funcIdentity(handler)
	}
	return f
}

// ByMethod matches the subscriptions of subscriber to exactly T made with
// the given method expression.
func ByMethod[T any, S any](subscriber *S, method func(*S, T)) Filter {
	f := ByType[T](subscriber)
	if method != nil {
		f.handler = funcIdentity(method)
	}
	return f
}

// IsZero reports whether the filter was built from a nil subscriber.
// A zero filter matches nothing.
func (f Filter) IsZero() bool {
	return f.key == nil
}

// EventType returns the exact type the filter requires, or nil.
func (f Filter) EventType() reflect.Type {
	return f.eventType
}

// Matches reports whether sub satisfies the filter. Liveness is not
// considered.
func (f Filter) Matches(sub *Subscription) bool {
	if f.key == nil || sub == nil || sub.key != f.key {
		return false
	}
	if f.eventType != nil && sub.eventType != f.eventType {
		return false
	}
	if f.handler != 0 && sub.handler != f.handler {
		return false
	}
	return true
}
