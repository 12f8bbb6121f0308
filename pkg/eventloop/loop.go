// Package eventloop provides the single goroutine that owns form state and the
// executors that run slow work off it. Everything that touches controls,
// dirty tracking or the undo stack runs through a Dispatcher.
package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped is returned when work is posted to a stopped loop.
var ErrStopped = errors.New("eventloop: loop stopped")

// Dispatcher schedules fn on the UI loop. It reports false when the loop no
// longer accepts work.
type Dispatcher interface {
	Post(fn func()) bool
}

// Executor runs blocking work away from the UI loop.
type Executor interface {
	Go(fn func())
}

// Loop is a serial dispatcher backed by one consumer goroutine.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	quit   chan struct{}
	once   sync.Once
	logger *slog.Logger

	mu      sync.RWMutex
	stopped bool
	started bool
}

// Option customises a Loop.
type Option func(*Loop)

// WithLogger sets the logger used to report panicking tasks.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithBuffer sets the task queue size.
func WithBuffer(size int) Option {
	return func(l *Loop) {
		if size > 0 {
			l.tasks = make(chan func(), size)
		}
	}
}

// New returns a loop that must be started before it runs tasks.
func New(opts ...Option) *Loop {
	l := &Loop{
		tasks:  make(chan func(), 256),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Start runs the consumer goroutine until ctx is cancelled or Stop is called.
// Tasks already queued when the loop stops are drained first.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	go func() {
		defer close(l.done)
		for {
			select {
			case fn, ok := <-l.tasks:
				if !ok {
					return
				}
				l.run(fn)
			case <-ctx.Done():
				l.close()
				for fn := range l.tasks {
					l.run(fn)
				}
				return
			}
		}
	}()
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("eventloop: task panicked", "panic", r)
		}
	}()
	fn()
}

// Post queues fn. It blocks while the queue is full.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		return false
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) close() {
	// release posters blocked on a full queue before taking the write lock
	l.once.Do(func() { close(l.quit) })
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	close(l.tasks)
}

// Stop refuses new work, drains the queue and waits for the consumer.
func (l *Loop) Stop() {
	l.close()
	l.mu.RLock()
	started := l.started
	l.mu.RUnlock()
	if started {
		<-l.done
	}
}

// GoExecutor runs each task on its own goroutine.
type GoExecutor struct {
	wg sync.WaitGroup
}

// Go implements Executor.
func (e *GoExecutor) Go(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// Wait blocks until every started task returned.
func (e *GoExecutor) Wait() {
	e.wg.Wait()
}
