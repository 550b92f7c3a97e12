package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"eventhub/internal/hub"
	"eventhub/internal/validator"
)

// Feed collects every added message, the way a chat view would. It
// subscribes from the caller's dispatch context, so when created with a
// context carrying a loop, messages are appended on that loop.
type Feed struct {
	hub    hub.Hub
	logger *zap.Logger

	mu    sync.Mutex
	lines []string
}

func NewFeed(ctx context.Context, h hub.Hub, logger *zap.Logger) (*Feed, error) {
	if err := validator.Validate("chat feed", h, logger); err != nil {
		return nil, fmt.Errorf("failed to validate chat feed deps: %w", err)
	}

	f := &Feed{
		hub:    h,
		logger: logger.Named("chat-feed"),
	}

	if err := hub.SubscribeMethod(ctx, h, f, (*Feed).onMessageAdded, hub.WithCallerContext()); err != nil {
		return nil, fmt.Errorf("failed to subscribe feed: %w", err)
	}

	if !hub.ExistsType[*MessageAdded](ctx, h, f) {
		hub.Unsubscribe(ctx, h, f)
		return nil, errors.New("chat: feed subscription was not registered")
	}

	_, scheduled := hub.SchedulerFromContext(ctx)
	f.logger.Debug("feed subscribed", zap.Bool("scheduled", scheduled))

	return f, nil
}

func (f *Feed) onMessageAdded(event *MessageAdded) {
	f.mu.Lock()
	f.lines = append(f.lines, event.Message)
	f.mu.Unlock()
}

// Messages returns the collected messages in delivery order.
func (f *Feed) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.lines)
}

// Text renders the feed one message per line.
func (f *Feed) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var b strings.Builder
	for _, line := range f.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// Close unsubscribes the feed. Messages already posted to its dispatch
// context may still be appended.
func (f *Feed) Close(ctx context.Context) {
	hub.Unsubscribe(ctx, f.hub, f)
}
