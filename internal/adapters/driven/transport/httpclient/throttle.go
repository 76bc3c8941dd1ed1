package httpclient

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxRetryAfter caps how long a server can pause us.
const maxRetryAfter = 10 * time.Minute

// Throttle spaces out requests with a token bucket and backs off when a
// server answers 429 or 503 with Retry-After.
type Throttle struct {
	bucket *rate.Limiter

	mu         sync.Mutex
	pauseUntil time.Time
	now        func() time.Time
}

// NewThrottle creates a throttle allowing perSecond requests per second.
// Zero or less disables the token bucket; Retry-After is honoured regardless.
func NewThrottle(perSecond float64) *Throttle {
	t := &Throttle{now: time.Now}
	if perSecond > 0 {
		t.bucket = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return t
}

// Wait blocks until a request may be sent.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.bucket != nil {
		if err := t.bucket.Wait(ctx); err != nil {
			return err
		}
	}

	t.mu.Lock()
	pause := t.pauseUntil.Sub(t.now())
	t.mu.Unlock()
	if pause <= 0 {
		return nil
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Observe records a Retry-After pause from a 429 or 503 response.
func (t *Throttle) Observe(resp *http.Response) {
	if resp == nil {
		return
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return
	}
	delay, ok := t.retryAfter(resp.Header.Get("Retry-After"))
	if !ok {
		return
	}
	delay = min(delay, maxRetryAfter)

	t.mu.Lock()
	defer t.mu.Unlock()
	if until := t.now().Add(delay); until.After(t.pauseUntil) {
		t.pauseUntil = until
	}
}

// PausedUntil returns when the current Retry-After pause ends.
func (t *Throttle) PausedUntil() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pauseUntil
}

// retryAfter parses delay-seconds or an HTTP date.
func (t *Throttle) retryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		return at.Sub(t.now()), true
	}
	return 0, false
}
