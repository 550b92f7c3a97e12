package chat_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"eventhub/internal/chat"
	"eventhub/internal/hub"
	"eventhub/internal/hub/loop"
	"eventhub/internal/hub/registry"
)

func newHub(t *testing.T) *registry.EventHub {
	t.Helper()

	h, err := registry.NewEventHub(registry.Config{Name: "chat"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return h
}

type audit struct {
	name string
}

func TestConstructors(t *testing.T) {
	h := newHub(t)

	_, err := chat.NewClient(nil, zaptest.NewLogger(t))
	assert.Error(t, err)
	_, err = chat.NewStore(h, nil)
	assert.Error(t, err)
	_, err = chat.NewFeed(context.Background(), nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

// blindHub registers subscriptions but never reports them as present.
type blindHub struct {
	hub.Hub
}

func (blindHub) Exists(context.Context, hub.Filter) bool {
	return false
}

func TestFeed_UnregisteredSubscriptionIsRemoved(t *testing.T) {
	ctx := context.Background()
	core := newHub(t)

	feed, err := chat.NewFeed(ctx, blindHub{Hub: core}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Nil(t, feed)
	assert.Zero(t, core.Len())
}

func TestFeed_ReceivesMessages(t *testing.T) {
	ctx := context.Background()
	h := newHub(t)
	logger := zaptest.NewLogger(t)

	client, err := chat.NewClient(h, logger)
	require.NoError(t, err)
	store, err := chat.NewStore(h, logger)
	require.NoError(t, err)
	feed, err := chat.NewFeed(ctx, h, logger)
	require.NoError(t, err)

	require.NoError(t, client.SendMessage(ctx, "hi"))
	require.NoError(t, store.SaveMessage(ctx, "saved"))

	assert.Equal(t, []string{"hi", "saved"}, feed.Messages())
	assert.Equal(t, "hi\nsaved\n", feed.Text())
	assert.Equal(t, []string{"saved"}, store.Messages())

	feed.Close(ctx)
	assert.False(t, hub.Exists(ctx, h, feed))

	require.NoError(t, client.SendMessage(ctx, "unheard"))
	assert.Equal(t, []string{"hi", "saved"}, feed.Messages())
}

func TestFeed_RejectsEmptyMessages(t *testing.T) {
	ctx := context.Background()
	h := newHub(t)

	client, err := chat.NewClient(h, zaptest.NewLogger(t))
	require.NoError(t, err)
	store, err := chat.NewStore(h, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.ErrorIs(t, client.SendMessage(ctx, ""), chat.ErrEmptyMessage)
	assert.ErrorIs(t, store.SaveMessage(ctx, ""), chat.ErrEmptyMessage)
	assert.Empty(t, store.Messages())
}

func TestFeed_SenderIsRecorded(t *testing.T) {
	ctx := context.Background()
	h := newHub(t)

	client, err := chat.NewClient(h, zaptest.NewLogger(t))
	require.NoError(t, err)

	a := &audit{name: "audit"}
	var senders []any
	require.NoError(t, hub.Subscribe(ctx, h, a, func(e hub.Event) { senders = append(senders, e.Sender()) }))

	require.NoError(t, client.SendMessage(ctx, "hi"))
	require.Len(t, senders, 1)
	assert.Same(t, client, senders[0])

	runtime.KeepAlive(a)
}

func TestFeed_OnLoop(t *testing.T) {
	h := newHub(t)
	ui, err := loop.New(loop.Config{Name: "ui"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	uiCtx := ui.Context(context.Background())
	feed, err := chat.NewFeed(uiCtx, h, zaptest.NewLogger(t))
	require.NoError(t, err)

	store, err := chat.NewStore(h, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, store.SaveMessage(context.Background(), "queued"))
	assert.Empty(t, feed.Messages())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ui.Close()
	require.NoError(t, ui.Run(ctx))
	assert.Equal(t, []string{"queued"}, feed.Messages())
}

func TestFeed_Collected(t *testing.T) {
	ctx := context.Background()
	h := newHub(t)

	func() {
		_, err := chat.NewFeed(ctx, h, zaptest.NewLogger(t))
		require.NoError(t, err)
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		_ = h.Publish(ctx, &chat.MessageAdded{Message: "gc"})
		return h.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
