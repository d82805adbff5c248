package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

var (
	_ Limiter  = (*MemoryStore)(nil)
	_ Reserver = (*MemoryStore)(nil)
)

// MemoryStore keeps one Window per key in process memory.
type MemoryStore struct {
	mu           sync.Mutex
	windows      map[string]*Window
	limit        int
	duration     time.Duration
	cleanupEvery time.Duration
}

type MemoryOption func(*MemoryStore)

func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

func NewMemoryStore(limit int, window time.Duration, opts ...MemoryOption) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	s := &MemoryStore{
		windows:      make(map[string]*Window),
		limit:        limit,
		duration:     window,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Check(_ context.Context, key string, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		return admit(s.limit, 0), nil
	}
	return w.Check(now), nil
}

func (s *MemoryStore) Record(_ context.Context, key string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		w = NewWindow(s.limit, s.duration)
		s.windows[key] = w
	}
	w.Record(now)
	return nil
}

// Reserve checks key and, when admitted, records now under the same lock.
// The token is the reserved instant in unix nanoseconds.
func (s *MemoryStore) Reserve(_ context.Context, key string, now time.Time) (Decision, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		w = NewWindow(s.limit, s.duration)
		s.windows[key] = w
	}
	d := w.Check(now)
	if !d.Allowed {
		return d, "", nil
	}
	w.Record(now)
	d.Remaining--
	return d, strconv.FormatInt(now.UnixNano(), 10), nil
}

func (s *MemoryStore) Release(_ context.Context, key, token string) error {
	nanos, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return fmt.Errorf("release %v: bad token %q", key, token)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		return nil
	}
	w.remove(time.Unix(0, nanos))
	if w.Len() == 0 {
		delete(s.windows, key)
	}
	return nil
}

// Snapshot returns the instants recorded for key, oldest first.
func (s *MemoryStore) Snapshot(key string) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.windows[key]; ok {
		return w.Attempts()
	}
	return nil
}

// Cleanup drops windows whose newest instant has left the window.
func (s *MemoryStore) Cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, w := range s.windows {
		if now.Sub(w.lastSeen()) >= s.duration {
			delete(s.windows, key)
		}
	}
}

// Size returns the number of tracked keys.
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// StartJanitor periodically removes idle windows until ctx is cancelled.
func (s *MemoryStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s.Cleanup(now)
			}
		}
	}()
}
