package hub

import (
	"errors"
	"fmt"
)

var (
	ErrNilSubscriber      = errors.New("hub: subscriber must not be nil")
	ErrZeroSizeSubscriber = errors.New("hub: subscriber must not point to a zero-sized value")
	ErrNilHandler         = errors.New("hub: handler must not be nil")
	ErrNilSubscription    = errors.New("hub: subscription must not be nil")
	ErrNilEvent           = errors.New("hub: event must not be nil")
)

// PanicError reports a handler that panicked during synchronous delivery.
type PanicError struct {
	SubscriptionID string
	EventType      string
	Value          any
	Stack          []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler for subscription %s panicked on %s: %v", e.SubscriptionID, e.EventType, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
