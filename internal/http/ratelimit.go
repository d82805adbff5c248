package http

import (
	"context"
	"math"
	nethttp "net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"collector/internal/handler"
)

const (
	defaultIdleTTL      = 15 * time.Minute
	defaultCleanupEvery = 2 * time.Minute
)

// IPLimiter is a per-client token bucket in front of the public API. It caps
// raw request volume; the submission quota is enforced by the gate.
type IPLimiter struct {
	mu           sync.Mutex
	entries      map[string]*limiterEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type IPLimiterOption func(*IPLimiter)

func WithIdleTTL(d time.Duration) IPLimiterOption {
	return func(l *IPLimiter) { l.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) IPLimiterOption {
	return func(l *IPLimiter) { l.cleanupEvery = d }
}

func withLimiterClock(now func() time.Time) IPLimiterOption {
	return func(l *IPLimiter) { l.now = now }
}

// NewIPLimiter returns nil when rps is not positive, which disables limiting.
func NewIPLimiter(rps float64, burst int, opts ...IPLimiterOption) *IPLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	l := &IPLimiter{
		entries:      make(map[string]*limiterEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      defaultIdleTTL,
		cleanupEvery: defaultCleanupEvery,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *IPLimiter) limiter(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.entries[key] = &limiterEntry{lim: lim, lastSeen: now}
	return lim
}

// Allow consumes one token for key. When the bucket is empty it reports how
// long the caller should wait.
func (l *IPLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	lim := l.limiter(key, now)
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	delay := r.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	r.CancelAt(now)
	return false, delay
}

// Cleanup drops buckets idle for longer than the idle TTL.
func (l *IPLimiter) Cleanup() {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// Len is the number of tracked clients.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// StartJanitor cleans idle buckets until ctx is done.
func (l *IPLimiter) StartJanitor(ctx context.Context) {
	if l == nil || l.cleanupEvery <= 0 {
		return
	}
	t := time.NewTicker(l.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Cleanup()
			}
		}
	}()
}

// Middleware keys buckets by the client IP. A nil limiter lets everything through.
func (l *IPLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil {
			return next
		}
		return func(c echo.Context) error {
			ok, wait := l.Allow(c.RealIP())
			if !ok {
				seconds := int(math.Ceil(wait.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return handler.Error(c, nethttp.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}
