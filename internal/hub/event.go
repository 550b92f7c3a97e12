package hub

// Event is implemented by event values that carry their sender.
// The hub itself matches on type only and does not require it.
type Event interface {
	Sender() any
}

// Base can be embedded in event structs to implement Event.
// Publishers set the sender before calling Publish.
type Base struct {
	sender any
}

// Sender returns the publisher recorded on the event.
func (b Base) Sender() any {
	return b.sender
}

// SetSender records the publisher of the event.
func (b *Base) SetSender(sender any) {
	b.sender = sender
}
