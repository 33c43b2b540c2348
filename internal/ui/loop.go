// Package ui holds display state and the single loop allowed to change it.
//
// Network work happens on arbitrary goroutines; results reach the screens
// only through Loop.Post, so every Store mutation and every subscriber
// callback runs on the loop goroutine in the order it was posted.
package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"card/internal/log"
)

var ErrLoopStopped = errors.New("ui loop stopped")

// Loop is an unbounded FIFO task queue drained by one goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once

	logger *log.Logger
}

// NewLoop creates a loop; call Start or Run to begin draining it.
func NewLoop(logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Discard()
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.WithComponent(log.ComponentUI),
	}
}

// Post enqueues fn. It never blocks and returns false once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Start runs the loop on its own goroutine.
func (l *Loop) Start(ctx context.Context) {
	go l.Run(ctx)
}

// Run drains the queue until ctx is done or Stop is called. Tasks still
// queued at that point are dropped.
func (l *Loop) Run(ctx context.Context) {
	if !l.started.CompareAndSwap(false, true) {
		l.logger.Warn("UI loop already running")
		return
	}
	defer close(l.done)
	defer l.markStopped()

	for {
		l.mu.Lock()
		tasks := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range tasks {
			select {
			case <-l.stop:
				return
			default:
			}
			l.exec(fn)
		}
		if len(tasks) > 0 {
			continue
		}

		select {
		case <-l.wake:
		case <-l.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("UI task panicked", log.FieldError, fmt.Sprint(r))
		}
	}()
	fn()
}

func (l *Loop) markStopped() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
}

// Stop ends Run and waits for the current task to finish.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	if l.started.CompareAndSwap(false, true) {
		l.markStopped()
		close(l.done)
		return
	}
	<-l.done
}

// Done is closed when Run returns, or by Stop if the loop never ran.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Flush waits until every task posted before the call has run.
func (l *Loop) Flush(ctx context.Context) error {
	reached := make(chan struct{})
	if !l.Post(func() { close(reached) }) {
		return ErrLoopStopped
	}
	select {
	case <-reached:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
