package loop_test

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"eventhub/internal/hub"
	"eventhub/internal/hub/loop"
	"eventhub/internal/hub/registry"
)

func newTestLoop(t *testing.T, buffer int) *loop.Loop {
	t.Helper()

	l, err := loop.New(loop.Config{Name: "test", ErrorBuffer: buffer}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return l
}

func TestNew(t *testing.T) {
	_, err := loop.New(loop.Config{}, nil)
	require.Error(t, err)

	l, err := loop.New(loop.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "main", l.Name())
}

func TestLoop_RunsInOrder(t *testing.T) {
	l := newTestLoop(t, 1)

	var got []int
	for i := range 5 {
		require.NoError(t, l.Post(func() { got = append(got, i) }))
	}
	assert.Equal(t, 5, l.Len())
	assert.Empty(t, got)

	l.Close()
	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Zero(t, l.Len())
	require.NoError(t, l.Wait(context.Background()))
}

func TestLoop_PostAfterClose(t *testing.T) {
	l := newTestLoop(t, 1)
	l.Close()

	assert.ErrorIs(t, l.Post(func() {}), loop.ErrClosed)
	assert.ErrorIs(t, l.Post(nil), loop.ErrNilCallback)
}

func TestLoop_CallbackPostsCallback(t *testing.T) {
	l := newTestLoop(t, 1)

	var got []string
	done := make(chan struct{})
	require.NoError(t, l.Post(func() {
		got = append(got, "outer")
		assert.NoError(t, l.Post(func() {
			got = append(got, "inner")
			close(done)
		}))
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	l.Start(ctx)

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("inner callback did not run")
	}

	l.Close()
	require.NoError(t, l.Wait(ctx))
	assert.Equal(t, []string{"outer", "inner"}, got)
}

func TestLoop_ReportsPanics(t *testing.T) {
	l := newTestLoop(t, 1)

	ran := false
	require.NoError(t, l.Post(func() { panic("boom") }))
	require.NoError(t, l.Post(func() { panic("dropped") }))
	require.NoError(t, l.Post(func() { ran = true }))
	l.Close()

	require.NoError(t, l.Run(context.Background()))
	assert.True(t, ran)

	select {
	case err := <-l.Errors():
		var panicErr *loop.PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Equal(t, "boom", panicErr.Value)
		assert.Equal(t, "test", panicErr.Loop)
		assert.NotEmpty(t, panicErr.Stack)
	default:
		t.Fatal("expected a reported panic")
	}

	select {
	case err := <-l.Errors():
		t.Fatalf("unexpected second error: %v", err)
	default:
	}
}

func TestLoop_RunOnce(t *testing.T) {
	l := newTestLoop(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	require.NoError(t, l.Post(func() { close(started) }))

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = l.Run(ctx)
	}()

	<-started
	assert.ErrorIs(t, l.Run(ctx), loop.ErrRunning)

	cancel()
	wg.Wait()
	assert.ErrorIs(t, runErr, context.Canceled)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer waitCancel()
	assert.ErrorIs(t, l.Wait(waitCtx), context.DeadlineExceeded)
}

type view struct {
	name string
}

// A subscriber that captured the loop's context gets its handler run on the
// loop, never on the publishing goroutine.
func TestLoop_DeliversOnCapturedContext(t *testing.T) {
	h, err := registry.NewEventHub(registry.Config{Name: "loop"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	l := newTestLoop(t, 1)

	v := &view{name: "view"}
	var got []string
	ctx := l.Context(context.Background())
	require.NoError(t, hub.Subscribe(ctx, h, v, func(m string) { got = append(got, m) }, hub.WithCallerContext()))

	published := make(chan error)
	go func() {
		published <- h.Publish(context.Background(), "hi")
	}()
	require.NoError(t, <-published)

	assert.Empty(t, got)
	assert.Equal(t, 1, l.Len())

	l.Close()
	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, []string{"hi"}, got)

	assert.Equal(t, int64(1), h.Metrics().Posted)
	assert.Zero(t, h.Metrics().Delivered)

	// posting to a closed loop surfaces through Publish
	err = h.Publish(context.Background(), "late")
	assert.True(t, errors.Is(err, loop.ErrClosed))

	runtime.KeepAlive(v)
}
