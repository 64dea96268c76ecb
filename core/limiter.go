package core

import (
	"fmt"
	"sync"
)

// ModelLimiter caps the model calls a single run may make, so a misrouted
// handoff cannot loop agents against the provider indefinitely. A zero
// limit disables the cap.
type ModelLimiter struct {
	mu    sync.Mutex
	limit int
	used  int
}

// NewModelLimiter creates a limiter allowing up to maxCalls model calls.
func NewModelLimiter(maxCalls int) *ModelLimiter {
	return &ModelLimiter{limit: maxCalls}
}

// Increment records one model call, failing once the cap is exhausted.
func (l *ModelLimiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.used++
	if l.limit > 0 && l.used > l.limit {
		return fmt.Errorf("exceeded max model calls: %d", l.limit)
	}
	return nil
}

// Count reports the calls recorded so far.
func (l *ModelLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}

// Remaining reports calls left under the cap, or -1 when unlimited.
func (l *ModelLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limit == 0 {
		return -1
	}
	return l.limit - l.used
}
