// Package future provides a write-once asynchronous result container.
//
// A Future settles exactly once, either with a value (Resolve) or with an
// error (Reject). Settling an already settled future is a no-op that reports
// false; the first outcome always wins. Callbacks registered with OnComplete
// run exactly once, on the goroutine that settles the future, or immediately
// on the registering goroutine when the future has already settled. Callbacks
// should therefore not block; long-running work belongs in Go.
//
// Map, Then and FlatMap compose futures into chains such as
// "check remote" -> "download" -> "parse". Failures propagate unchanged
// through every stage.
package future

import (
	"context"
	"errors"
	"sync"
)

// ErrNilFuture is reported by FlatMap when the continuation returns nil.
var ErrNilFuture = errors.New("future: continuation returned nil future")

// ErrNilRejection replaces a nil error passed to Reject.
var ErrNilRejection = errors.New("future: rejected without error")

// Future is a single-assignment container for a value of type T that
// becomes available later.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	value     T
	err       error
	callbacks []func(T, error)
}

// New returns an unsettled future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Succeeded returns a future already resolved with v.
func Succeeded[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v)
	return f
}

// Failed returns a future already rejected with err.
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)
	return f
}

// FromResult settles a new future from a (value, error) pair.
func FromResult[T any](v T, err error) *Future[T] {
	if err != nil {
		return Failed[T](err)
	}
	return Succeeded(v)
}

// Go runs fn on a new goroutine and settles the returned future with its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := New[T]()
	go func() {
		v, err := fn()
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()
	return f
}

// Resolve settles the future with v. It returns false if the future was
// already settled, in which case v is discarded.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(v, nil)
}

// Reject settles the future with err. It returns false if the future was
// already settled.
func (f *Future[T]) Reject(err error) bool {
	if err == nil {
		err = ErrNilRejection
	}
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(v T, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value = v
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(v, err)
	}
	return true
}

// OnComplete registers cb to run once the future settles. Any number of
// callbacks may be registered; each runs exactly once.
func (f *Future[T]) OnComplete(cb func(T, error)) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	cb(v, err)
}

// Get blocks until the future settles and returns its outcome.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// GetContext is Get bounded by ctx. If ctx ends first its error is returned
// and the future is left untouched.
func (f *Future[T]) GetContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has an outcome.
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Map returns a future that settles to fn(value) on success and carries the
// original failure otherwise.
func Map[T, U any](f *Future[T], fn func(T) U) *Future[U] {
	out := New[U]()
	f.OnComplete(func(v T, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		out.Resolve(fn(v))
	})
	return out
}

// Then is Map for continuations that can fail.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := New[U]()
	f.OnComplete(func(v T, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		u, err := fn(v)
		if err != nil {
			out.Reject(err)
			return
		}
		out.Resolve(u)
	})
	return out
}

// FlatMap returns a future that, on success, runs fn to obtain another
// future and adopts its outcome. Failures propagate unchanged.
func FlatMap[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	out := New[U]()
	f.OnComplete(func(v T, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		next := fn(v)
		if next == nil {
			out.Reject(ErrNilFuture)
			return
		}
		next.OnComplete(func(u U, err error) {
			if err != nil {
				out.Reject(err)
				return
			}
			out.Resolve(u)
		})
	})
	return out
}

// MapError returns a future whose failure, if any, is replaced by fn(err).
// Successful values pass through.
func MapError[T any](f *Future[T], fn func(error) error) *Future[T] {
	out := New[T]()
	f.OnComplete(func(v T, err error) {
		if err != nil {
			out.Reject(fn(err))
			return
		}
		out.Resolve(v)
	})
	return out
}
