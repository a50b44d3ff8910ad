// Package quota implements the fixed-window request counters that gate
// admission to rate-limited route classes.
//
// Fixed windows were chosen over a sliding log or token bucket for O(1)
// memory and update cost per key. The trade-off is a brief burst of up to
// twice the limit across a window boundary, which is accepted and
// documented rather than smoothed away.
package quota

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is the sentinel for a rejected admission attempt.
var ErrRateLimited = errors.New("rate limit exceeded")

// DeniedError carries the retry hint for a rejected request. Backoff is the
// caller's responsibility; the tracker never queues or waits.
type DeniedError struct {
	RetryAfter time.Duration
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e *DeniedError) Unwrap() error { return ErrRateLimited }

// Limit is the admission budget for one route class.
type Limit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LimitProvider resolves the budget for a route class. Implementations must
// be safe for concurrent use; the config package provides a hot-reloadable
// one.
type LimitProvider interface {
	Limit(routeClass string) Limit
}

// Decision reports the outcome of one admission attempt.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// window is the mutable counter for one (key, routeClass) pair. Each window
// has its own mutex so unrelated identities never contend.
type window struct {
	mu    sync.Mutex
	count int
	start time.Time
}

// Tracker maintains the shared quota table. All methods are safe under
// unbounded concurrency; increments on the same key are linearizable, so
// two racing requests can never both take the last slot.
type Tracker struct {
	limits  LimitProvider
	windows sync.Map // "class|key" -> *window
	now     func() time.Time
}

func NewTracker(limits LimitProvider) *Tracker {
	return &Tracker{
		limits: limits,
		now:    time.Now,
	}
}

// WithClock overrides the time source for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Admit records one attempt for (key, routeClass) and decides whether it
// may proceed. The window resets whenever the elapsed time since its start
// reaches the window length; the request that would overflow the limit is
// itself rejected, never admitted and punished after the fact.
func (t *Tracker) Admit(key, routeClass string) (Decision, error) {
	limit := t.limits.Limit(routeClass)
	if limit.Requests <= 0 || limit.Window <= 0 {
		// Unlimited class.
		return Decision{Allowed: true, Limit: 0, Remaining: -1}, nil
	}

	now := t.now()
	value, _ := t.windows.LoadOrStore(routeClass+"|"+key, &window{start: now})
	w := value.(*window)

	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Sub(w.start) >= limit.Window {
		w.count = 0
		w.start = now
	}

	if w.count >= limit.Requests {
		retryAfter := limit.Window - now.Sub(w.start)
		return Decision{
			Allowed:    false,
			Limit:      limit.Requests,
			Remaining:  0,
			RetryAfter: retryAfter,
		}, &DeniedError{RetryAfter: retryAfter}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - w.count,
	}, nil
}

// Cleanup drops windows that have been idle for at least two window
// lengths. The server runs this periodically so abandoned keys do not
// accumulate.
func (t *Tracker) Cleanup() {
	now := t.now()
	t.windows.Range(func(key, value interface{}) bool {
		w := value.(*window)
		class, _, _ := cutClass(key.(string))
		limit := t.limits.Limit(class)

		w.mu.Lock()
		stale := limit.Window > 0 && now.Sub(w.start) >= 2*limit.Window
		w.mu.Unlock()

		if stale {
			t.windows.Delete(key)
		}
		return true
	})
}

func cutClass(composite string) (class, key string, ok bool) {
	for i := 0; i < len(composite); i++ {
		if composite[i] == '|' {
			return composite[:i], composite[i+1:], true
		}
	}
	return composite, "", false
}
