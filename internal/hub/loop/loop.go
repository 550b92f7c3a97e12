// Package loop provides an event loop that serves as a dispatch context for
// hub subscriptions. Callbacks posted to a Loop run one at a time, in the
// order they were posted, on the goroutine that calls Run.
package loop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"eventhub/internal/hub"
	"eventhub/internal/validator"
)

var (
	ErrClosed      = errors.New("loop: closed")
	ErrRunning     = errors.New("loop: already running")
	ErrNilCallback = errors.New("loop: callback must not be nil")
)

// Config holds the settings of a Loop.
type Config struct {
	Name string `env:"LOOP_NAME" envDefault:"main"`
	// ErrorBuffer is the capacity of the Errors channel. Errors are dropped
	// when it is full.
	ErrorBuffer int `env:"LOOP_ERROR_BUFFER" envDefault:"16"`
}

// PanicError reports a posted callback that panicked.
type PanicError struct {
	Loop  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("callback on loop %s panicked: %v", e.Loop, e.Value)
}

// Loop is an unbounded FIFO of callbacks drained by a single goroutine.
type Loop struct {
	name   string
	logger *zap.Logger

	mu      sync.Mutex
	pending []func()
	closed  bool

	wake     chan struct{}
	errs     chan error
	done     chan struct{}
	doneOnce sync.Once
	running  atomic.Bool
}

var _ hub.Scheduler = (*Loop)(nil)

// New creates a loop. It does not process callbacks until Run or Start is
// called.
func New(config Config, logger *zap.Logger) (*Loop, error) {
	if err := validator.Validate("loop", logger); err != nil {
		return nil, fmt.Errorf("failed to validate loop deps: %w", err)
	}

	name := config.Name
	if name == "" {
		name = "main"
	}

	return &Loop{
		name:   name,
		logger: logger.Named("loop").With(zap.String("loop", name)),
		wake:   make(chan struct{}, 1),
		errs:   make(chan error, max(config.ErrorBuffer, 0)),
		done:   make(chan struct{}),
	}, nil
}

// Name returns the configured loop name.
func (l *Loop) Name() string {
	return l.name
}

// Context returns a copy of ctx that carries the loop as the caller's
// dispatch context, for subscriptions made with hub.WithCallerContext.
func (l *Loop) Context(ctx context.Context) context.Context {
	return hub.ContextWithScheduler(ctx, l)
}

// Post implements hub.Scheduler. It never blocks and never runs fn itself.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return ErrNilCallback
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	l.signal()
	return nil
}

// Len returns the number of callbacks waiting to run.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Errors returns the channel on which panics of posted callbacks are
// reported as *PanicError.
func (l *Loop) Errors() <-chan error {
	return l.errs
}

// Run processes callbacks on the calling goroutine until ctx is done, or
// until the loop is closed and every callback posted before Close has run.
// Only one Run may be active at a time.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)

	for {
		batch, closed := l.take()
		for _, fn := range batch {
			l.run(fn)
		}
		if len(batch) > 0 {
			continue
		}

		if closed {
			l.doneOnce.Do(func() { close(l.done) })
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Start runs the loop on a new goroutine.
func (l *Loop) Start(ctx context.Context) {
	go func() {
		if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error("loop stopped", zap.Error(err))
		}
	}()
}

// Close stops accepting callbacks. Callbacks already posted still run.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.signal()
}

// Wait blocks until Run has drained the loop after Close, or ctx is done.
func (l *Loop) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) take() ([]func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.pending
	l.pending = nil
	return batch, l.closed
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		l.logger.Error("posted callback panicked", zap.Any("panic", r))
		err := &PanicError{Loop: l.name, Value: r, Stack: debug.Stack()}
		select {
		case l.errs <- err:
		default:
			l.logger.Warn("dropping callback panic, error channel full")
		}
	}()

	fn()
}
