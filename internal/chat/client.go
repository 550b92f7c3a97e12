package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"eventhub/internal/hub"
	"eventhub/internal/validator"
)

// Client sends messages to the chat server. It has no transport of its own;
// sending announces the message on the hub.
type Client struct {
	hub    hub.Hub
	logger *zap.Logger
}

func NewClient(h hub.Hub, logger *zap.Logger) (*Client, error) {
	c := Client{
		hub:    h,
		logger: logger,
	}

	if err := validator.Validate("chat client", c.hub, c.logger); err != nil {
		return nil, fmt.Errorf("failed to validate chat client deps: %w", err)
	}

	c.logger = c.logger.Named("chat-client")
	return &c, nil
}

func (c *Client) SendMessage(ctx context.Context, message string) error {
	if message == "" {
		return ErrEmptyMessage
	}

	event := &MessageAdded{Message: message}
	event.SetSender(c)

	if err := c.hub.Publish(ctx, event); err != nil {
		const errMsg = "failed to publish sent message"
		c.logger.Error(errMsg, zap.Error(err))
		return fmt.Errorf(errMsg+": %w", err)
	}

	c.logger.Debug("message sent", zap.Int("length", len(message)))
	return nil
}
