// Package hub defines the in-process event hub: producers publish typed event
// values and consumers subscribe to a type, or to an interface the type
// implements, without knowing who publishes it.
//
// Subscribers are held through weak pointers. A subscriber that becomes
// unreachable is dropped from the registry the next time the registry is
// scanned, so forgetting to unsubscribe does not leak the subscriber. A
// handler that closes over its subscriber keeps it reachable; use
// SubscribeMethod to bind a method without pinning the receiver.
package hub

import "context"

// Hub defines the registry and dispatcher shared by producers and consumers.
// Implementations must be safe for concurrent use.
type Hub interface {
	// Subscribe appends a subscription to the registry. Registering the same
	// subscriber and handler twice yields two independent deliveries.
	// Returns an error if the subscription is nil.
	Subscribe(ctx context.Context, sub *Subscription) error

	// Unsubscribe removes every subscription matched by the filter together
	// with any stale subscription found during the same scan.
	// Returns the number of subscriptions removed; zero is not an error.
	Unsubscribe(ctx context.Context, filter Filter) int

	// Publish delivers the event to every live subscription whose event type
	// the event's dynamic type is assignable to, in registration order.
	// Subscriptions bound to a scheduler are posted to it and may run after
	// Publish returns; all others run on the caller's goroutine before it
	// returns.
	Publish(ctx context.Context, event any) error

	// Exists reports whether any live subscription matches the filter.
	// Stale subscriptions found during the scan are removed.
	Exists(ctx context.Context, filter Filter) bool
}
