package hub

import (
	"context"
	"reflect"
	"time"
	"unsafe"
	"weak"

	"github.com/google/uuid"
)

// Subscription binds a subscriber, the event type its handler accepts, and
// the handler itself. It is immutable once created, so its fields can be
// read without holding the registry lock.
type Subscription struct {
	id        string
	key       any
	alive     func() bool
	eventType reflect.Type
	handler   uintptr
	invoke    func(event any)
	scheduler Scheduler
	created   time.Time
}

// SubscribeOption configures a subscription at creation time.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	callerContext bool
	scheduler     Scheduler
}

// WithCallerContext captures the dispatch context carried by the subscribe
// call's ctx (see ContextWithScheduler). When ctx carries none, delivery
// stays synchronous on the publisher's goroutine.
func WithCallerContext() SubscribeOption {
	return func(o *subscribeOptions) {
		o.callerContext = true
	}
}

// WithScheduler delivers through s regardless of the subscribe call's ctx.
func WithScheduler(s Scheduler) SubscribeOption {
	return func(o *subscribeOptions) {
		o.scheduler = s
	}
}

// NewSubscription creates a subscription of subscriber to events assignable
// to T. The subscriber is referenced weakly; handler is referenced strongly,
// so a handler closing over the subscriber keeps it alive.
func NewSubscription[T any, S any](ctx context.Context, subscriber *S, handler func(T), opts ...SubscribeOption) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	wp, err := weakRef(subscriber)
	if err != nil {
		return nil, err
	}

	invoke := func(event any) {
		handler(event.(T))
	}

	return newSubscription[T](ctx, wp, funcIdentity(handler), invoke, opts), nil
}

// NewMethodSubscription creates a subscription whose handler is a method
// expression such as (*Feed).OnMessage. The receiver is recovered from the
// weak reference on every delivery, so the subscription never keeps the
// subscriber alive.
func NewMethodSubscription[T any, S any](ctx context.Context, subscriber *S, method func(*S, T), opts ...SubscribeOption) (*Subscription, error) {
	if method == nil {
		return nil, ErrNilHandler
	}

	wp, err := weakRef(subscriber)
	if err != nil {
		return nil, err
	}

	invoke := func(event any) {
		if s := wp.Value(); s != nil {
			method(s, event.(T))
		}
	}

	return newSubscription[T](ctx, wp, funcIdentity(method), invoke, opts), nil
}

func newSubscription[T any, S any](ctx context.Context, wp weak.Pointer[S], handler uintptr, invoke func(any), opts []SubscribeOption) *Subscription {
	var o subscribeOptions
	for _, opt := range opts {
		opt(&o)
	}

	scheduler := o.scheduler
	if scheduler == nil && o.callerContext {
		if s, ok := SchedulerFromContext(ctx); ok {
			scheduler = s
		}
	}

	return &Subscription{
		id:        uuid.NewString(),
		key:       wp,
		alive:     func() bool { return wp.Value() != nil },
		eventType: reflect.TypeFor[T](),
		handler:   handler,
		invoke:    invoke,
		scheduler: scheduler,
		created:   time.Now(),
	}
}

func weakRef[S any](subscriber *S) (weak.Pointer[S], error) {
	if subscriber == nil {
		return weak.Pointer[S]{}, ErrNilSubscriber
	}
	// zero-sized values share one address, so they have no identity
	if reflect.TypeFor[S]().Size() == 0 {
		return weak.Pointer[S]{}, ErrZeroSizeSubscriber
	}

	return weak.Make(subscriber), nil
}

// funcIdentity returns the address of the func value itself rather than its
// code. Every closure allocation gets its own address, so two closures built
// by the same literal differ while a handler passed back unchanged matches.
// The subscription holds the func value, so the address stays taken for as
// long as the subscription exists.
func funcIdentity[F any](fn F) uintptr {
	return uintptr(*(*unsafe.Pointer)(unsafe.Pointer(&fn)))
}

// ID returns the unique identifier of the subscription.
func (s *Subscription) ID() string {
	return s.id
}

// EventType returns the type the handler accepts.
func (s *Subscription) EventType() reflect.Type {
	return s.eventType
}

// Scheduler returns the captured dispatch context, or nil for synchronous
// delivery.
func (s *Subscription) Scheduler() Scheduler {
	return s.scheduler
}

// Created returns when the subscription was created.
func (s *Subscription) Created() time.Time {
	return s.created
}

// Alive reports whether the subscriber is still reachable.
func (s *Subscription) Alive() bool {
	return s.alive()
}

// Accepts reports whether an event of type t should be delivered to the
// subscription: t is the subscription's type or implements it.
func (s *Subscription) Accepts(t reflect.Type) bool {
	return t != nil && t.AssignableTo(s.eventType)
}

// Invoke calls the handler with event on the caller's goroutine. The event
// must be accepted by the subscription.
func (s *Subscription) Invoke(event any) {
	s.invoke(event)
}
