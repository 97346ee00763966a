package mcp

import (
	"fmt"
	"sync"
)

// timeTracker accounts cumulative annealing time (num_reads * annealing_time,
// in microseconds) against an optional budget. A reservation is taken before
// dispatch and rolled back if the backend fails, so only completed solves
// consume budget.
type timeTracker struct {
	mu      sync.Mutex
	totalUS int64
	limitUS int64 // 0 = unlimited
}

func newTimeTracker(limitUS int64) *timeTracker {
	return &timeTracker{limitUS: limitUS}
}

func (t *timeTracker) reserve(us int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limitUS > 0 && t.totalUS+us > t.limitUS {
		return fmt.Errorf("annealing time budget exhausted: %dus consumed of %dus, %dus requested",
			t.totalUS, t.limitUS, us)
	}
	t.totalUS += us
	return nil
}

func (t *timeTracker) release(us int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalUS -= us
	if t.totalUS < 0 {
		t.totalUS = 0
	}
}

func (t *timeTracker) status() (totalUS, limitUS, remainingUS int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	remaining := int64(0)
	if t.limitUS > 0 {
		remaining = t.limitUS - t.totalUS
	}
	return t.totalUS, t.limitUS, remaining
}
