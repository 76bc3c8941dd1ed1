package future

import "sync"

// Latest is a latest-wins switch. Each call to Switch supersedes every
// earlier one: only the future returned by the most recent Switch call
// settles, the outputs of superseded calls never settle.
//
// Because stale outputs never settle, never block on them with Get; use
// OnComplete instead.
type Latest[T any] struct {
	mu  sync.Mutex
	gen uint64
}

// Switch makes f the current future and returns a future mirroring it for
// as long as it remains current.
func (l *Latest[T]) Switch(f *Future[T]) *Future[T] {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	out := New[T]()
	f.OnComplete(func(v T, err error) {
		l.mu.Lock()
		current := l.gen == gen
		l.mu.Unlock()
		if !current {
			return
		}
		if err != nil {
			out.Reject(err)
			return
		}
		out.Resolve(v)
	})
	return out
}
