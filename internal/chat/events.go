// Package chat holds the sample producers and consumer of the event hub:
// a message client and a message store that announce every message they
// handle, and a feed that collects those announcements.
package chat

import (
	"errors"

	"eventhub/internal/hub"
)

var ErrEmptyMessage = errors.New("chat: message must not be empty")

// MessageAdded is published whenever a message is sent or saved.
// The sender is the Client or Store that handled it.
type MessageAdded struct {
	hub.Base
	Message string
}
