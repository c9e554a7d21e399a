// Package eventloop runs a session's handlers one at a time.
//
// Every task posted to a Loop runs on the loop goroutine in FIFO order, so the
// session document and component state need no locks. Timers never run their
// callback directly; they post it onto the loop.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Task is one unit of work run on the loop.
type Task func(ctx context.Context)

// Timer is a scheduled task that can be cancelled.
type Timer interface {
	// Stop cancels the task. It reports false when the task already ran or
	// was already stopped.
	Stop() bool
}

// Scheduler is the loop capability handed to components.
type Scheduler interface {
	Post(task Task)
	AfterFunc(d time.Duration, task Task) Timer
}

// ErrClosed is returned by Do once the loop has stopped.
var ErrClosed = errors.New("event loop closed")

// Loop is a FIFO task queue drained by one goroutine.
type Loop struct {
	logger zerolog.Logger
	after  Task

	mu     sync.Mutex
	queue  []Task
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// AfterEach runs fn on the loop after every task, including tasks that
// panicked.
func AfterEach(fn Task) Option {
	return func(l *Loop) {
		l.after = fn
	}
}

// New returns a loop that is not yet running.
func New(logger zerolog.Logger, opts ...Option) *Loop {
	l := &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Run drains tasks until ctx ends or Close is called.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		task, ok := l.next()
		if !ok {
			select {
			case <-ctx.Done():
				l.Close()
				return
			case <-l.wake:
				continue
			}
		}
		if task == nil {
			return
		}
		l.runTask(ctx, task)
		if l.after != nil {
			l.runTask(ctx, l.after)
		}
	}
}

// next pops the head of the queue. A nil task with ok set means the loop is
// closed and drained.
func (l *Loop) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		if l.closed {
			return nil, true
		}
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

func (l *Loop) runTask(ctx context.Context, task Task) {
	defer func() {
		if recovered := recover(); recovered != nil {
			l.logger.Error().
				Str("panic", fmt.Sprint(recovered)).
				Str("stack", string(debug.Stack())).
				Msg("event loop task panicked")
		}
	}()
	task(ctx)
}

// Post appends a task. Tasks posted after Close are dropped.
func (l *Loop) Post(task Task) {
	if task == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	l.signal()
}

// Do posts task and waits until it has run.
func (l *Loop) Do(ctx context.Context, task Task) error {
	ran := make(chan struct{})
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, func(loopCtx context.Context) {
		defer close(ran)
		task(loopCtx)
	})
	l.mu.Unlock()
	l.signal()

	select {
	case <-ran:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc posts task onto the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, task Task) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func(ctx context.Context) {
			if t.fired.CompareAndSwap(false, true) {
				task(ctx)
			}
		})
	})
	return t
}

// Close stops accepting tasks; queued tasks still run.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.signal()
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// loopTimer guards against a fire that was already queued when Stop ran.
type loopTimer struct {
	timer *time.Timer
	fired atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.timer.Stop()
	return t.fired.CompareAndSwap(false, true)
}
