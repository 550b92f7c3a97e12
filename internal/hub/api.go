package hub

import (
	"context"
	"fmt"
)

// Subscribe registers handler for events assignable to T on behalf of
// subscriber.
func Subscribe[T any, S any](ctx context.Context, h Hub, subscriber *S, handler func(T), opts ...SubscribeOption) error {
	sub, err := NewSubscription(ctx, subscriber, handler, opts...)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return h.Subscribe(ctx, sub)
}

// SubscribeMethod registers a method expression of subscriber for events
// assignable to T. The subscription does not keep subscriber alive.
func SubscribeMethod[T any, S any](ctx context.Context, h Hub, subscriber *S, method func(*S, T), opts ...SubscribeOption) error {
	sub, err := NewMethodSubscription(ctx, subscriber, method, opts...)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return h.Subscribe(ctx, sub)
}

// Unsubscribe removes every subscription of subscriber.
func Unsubscribe[S any](ctx context.Context, h Hub, subscriber *S) int {
	return h.Unsubscribe(ctx, BySubscriber(subscriber))
}

// UnsubscribeType removes the subscriptions of subscriber to exactly T.
func UnsubscribeType[T any, S any](ctx context.Context, h Hub, subscriber *S) int {
	return h.Unsubscribe(ctx, ByType[T](subscriber))
}

// UnsubscribeHandler removes the subscriptions of subscriber to exactly T
// made with handler.
func UnsubscribeHandler[T any, S any](ctx context.Context, h Hub, subscriber *S, handler func(T)) int {
	return h.Unsubscribe(ctx, ByHandler(subscriber, handler))
}

// Exists reports whether subscriber has any subscription.
func Exists[S any](ctx context.Context, h Hub, subscriber *S) bool {
	return h.Exists(ctx, BySubscriber(subscriber))
}

// ExistsType reports whether subscriber is subscribed to exactly T.
func ExistsType[T any, S any](ctx context.Context, h Hub, subscriber *S) bool {
	return h.Exists(ctx, ByType[T](subscriber))
}

// ExistsHandler reports whether subscriber is subscribed to exactly T with
// handler.
func ExistsHandler[T any, S any](ctx context.Context, h Hub, subscriber *S, handler func(T)) bool {
	return h.Exists(ctx, ByHandler(subscriber, handler))
}
