package chat

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"eventhub/internal/hub"
	"eventhub/internal/validator"
)

// Store keeps messages in memory and announces each saved message.
type Store struct {
	hub    hub.Hub
	logger *zap.Logger

	mu       sync.Mutex
	messages []string
}

func NewStore(h hub.Hub, logger *zap.Logger) (*Store, error) {
	if err := validator.Validate("chat store", h, logger); err != nil {
		return nil, fmt.Errorf("failed to validate chat store deps: %w", err)
	}

	return &Store{
		hub:    h,
		logger: logger.Named("chat-store"),
	}, nil
}

// SaveMessage stores message, then publishes MessageAdded. The message stays
// saved even if a subscriber fails.
func (s *Store) SaveMessage(ctx context.Context, message string) error {
	if message == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	s.messages = append(s.messages, message)
	count := len(s.messages)
	s.mu.Unlock()

	event := &MessageAdded{Message: message}
	event.SetSender(s)

	if err := s.hub.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish saved message: %w", err)
	}

	s.logger.Debug("message saved", zap.Int("stored", count))
	return nil
}

// Messages returns the saved messages in the order they were saved.
func (s *Store) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}
