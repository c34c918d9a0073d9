// Package ratelimit provides per-identity sliding-window admission control.
// State is process-local; in a multi-process deployment this would need a
// shared backing store.
package ratelimit

import (
	"sync"
	"time"
)

// window is a fixed-capacity ring of request timestamps (unix ms), oldest
// first. Entries are appended in monotonically increasing order, so pruning
// is a scan from the head.
type window struct {
	ts    []int64
	head  int
	count int
}

func (w *window) prune(cutoff int64) {
	for w.count > 0 && w.ts[w.head] < cutoff {
		w.head = (w.head + 1) % len(w.ts)
		w.count--
	}
}

func (w *window) push(now int64) {
	w.ts[(w.head+w.count)%len(w.ts)] = now
	w.count++
}

// Limiter admits up to limit requests per identity per trailing interval.
// Identity keys are never evicted; known limitation, matches the bounded
// scale this service runs at.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	interval time.Duration
	now      func() time.Time
}

func New(limit int, interval time.Duration) *Limiter {
	return &Limiter{
		windows:  map[string]*window{},
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// NewWithClock is for tests that need to slide the window deterministically.
func NewWithClock(limit int, interval time.Duration, now func() time.Time) *Limiter {
	l := New(limit, interval)
	l.now = now
	return l
}

// Allow records one request for identity and reports whether it is admitted.
// Check-then-append is a single critical section, so a burst of concurrent
// calls can never admit more than limit within the window.
func (l *Limiter) Allow(identity string) bool {
	nowMs := l.now().UnixMilli()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[identity]
	if !ok {
		w = &window{ts: make([]int64, l.limit)}
		l.windows[identity] = w
	}
	w.prune(nowMs - l.interval.Milliseconds())
	if w.count >= l.limit {
		return false
	}
	w.push(nowMs)
	return true
}
