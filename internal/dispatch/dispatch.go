// Package dispatch provides callback contexts: places where an importer posts
// its progress and completion callbacks so that consumer code runs on a
// single, well-defined goroutine.
package dispatch

import (
	"errors"
	"sync"
)

// ErrClosed is returned when posting to a closed queue.
var ErrClosed = errors.New("dispatch: queue closed")

// Dispatcher runs posted functions in posting order.
type Dispatcher interface {
	// Post schedules fn. It must not block on fn's execution.
	Post(fn func()) error
}

// Inline runs every function immediately on the posting goroutine.
// Ordering follows the poster's ordering.
type Inline struct{}

// Post runs fn synchronously.
func (Inline) Post(fn func()) error {
	fn()
	return nil
}

// Queue runs posted functions one at a time, in order, on a single
// dedicated goroutine.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
	done    chan struct{}
}

// NewQueue starts a serial queue.
func NewQueue() *Queue {
	q := &Queue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Post appends fn to the queue. It never blocks on execution.
func (q *Queue) Post(fn func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.pending = append(q.pending, fn)
	q.cond.Signal()
	return nil
}

// Close stops accepting work and waits until everything already posted has run.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Signal()
	}
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		fn()
	}
}

// Func adapts a posting function, such as one feeding a UI event loop, into a Dispatcher.
type Func func(fn func())

// Post hands fn to the wrapped function.
func (f Func) Post(fn func()) error {
	f(fn)
	return nil
}
