package hub

import "context"

// Scheduler is a dispatch context: an execution target that a subscription
// can require its handler to run on, such as an event loop owned by a
// consumer. Post must not run fn on the caller's goroutine before returning.
type Scheduler interface {
	Post(fn func()) error
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(fn func()) error

// Post calls f(fn).
func (f SchedulerFunc) Post(fn func()) error {
	return f(fn)
}

type schedulerKey struct{}

// ContextWithScheduler returns a context carrying s as the caller's dispatch
// context. Subscriptions created from that context with WithCallerContext
// deliver through s.
func ContextWithScheduler(ctx context.Context, s Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, s)
}

// SchedulerFromContext returns the dispatch context carried by ctx, if any.
func SchedulerFromContext(ctx context.Context) (Scheduler, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(schedulerKey{}).(Scheduler)
	return s, ok && s != nil
}
