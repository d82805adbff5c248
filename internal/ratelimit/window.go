// Package ratelimit implements the per-session sliding window log that gates
// submissions, with process-local and Redis-backed stores.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultLimit  = 3
	DefaultWindow = 60 * time.Second
)

// Decision is the outcome of a Check. RetryAfter is only set when !Allowed.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

func admit(limit, count int) Decision {
	return Decision{Allowed: true, Remaining: limit - count}
}

// reject computes the wait until the oldest retained instant leaves the window,
// rounded up to a whole second and never below one second.
func reject(window time.Duration, now, oldest time.Time) Decision {
	wait := window - now.Sub(oldest)
	secs := (wait + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return Decision{Allowed: false, RetryAfter: secs * time.Second}
}

// Limiter is the gate-facing contract. Check never records; Record is called
// only after a submission has been persisted.
type Limiter interface {
	Check(ctx context.Context, key string, now time.Time) (Decision, error)
	Record(ctx context.Context, key string, now time.Time) error
}

// Reserver is implemented by stores that can check and claim a slot in one
// atomic step. A claimed slot counts as recorded; Release returns it when the
// submission could not be stored.
type Reserver interface {
	Reserve(ctx context.Context, key string, now time.Time) (Decision, string, error)
	Release(ctx context.Context, key, token string) error
}

// Window is a single sliding window log. It is not safe for concurrent use.
type Window struct {
	limit    int
	duration time.Duration
	attempts []time.Time
}

func NewWindow(limit int, duration time.Duration) *Window {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if duration <= 0 {
		duration = DefaultWindow
	}
	return &Window{limit: limit, duration: duration}
}

// evict drops instants that are no longer strictly inside the window.
func (w *Window) evict(now time.Time) {
	keep := w.attempts[:0]
	for _, ts := range w.attempts {
		if now.Sub(ts) < w.duration {
			keep = append(keep, ts)
		}
	}
	w.attempts = keep
}

func (w *Window) Check(now time.Time) Decision {
	w.evict(now)
	if len(w.attempts) < w.limit {
		return admit(w.limit, len(w.attempts))
	}
	return reject(w.duration, now, w.attempts[0])
}

func (w *Window) Record(now time.Time) {
	w.attempts = append(w.attempts, now)
}

// remove drops one recorded instant equal to ts, newest first.
func (w *Window) remove(ts time.Time) bool {
	for i := len(w.attempts) - 1; i >= 0; i-- {
		if w.attempts[i].Equal(ts) {
			w.attempts = append(w.attempts[:i], w.attempts[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of recorded instants, including any not yet evicted.
func (w *Window) Len() int {
	return len(w.attempts)
}

// Attempts returns a copy of the recorded instants, oldest first.
func (w *Window) Attempts() []time.Time {
	out := make([]time.Time, len(w.attempts))
	copy(out, w.attempts)
	return out
}

func (w *Window) lastSeen() time.Time {
	if len(w.attempts) == 0 {
		return time.Time{}
	}
	return w.attempts[len(w.attempts)-1]
}
