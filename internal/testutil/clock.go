package testutil

import (
	"sync"

	"github.com/roach88/convoy/internal/model"
)

// SimClock is a manually advanced simulated clock for driving actors in
// tests. Unlike sim.Runtime's clock it never jumps on its own.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SimClock struct {
	mu    sync.Mutex
	start model.TimeOfDay
	now   model.TimeOfDay
}

// NewSimClock creates a clock reading start.
func NewSimClock(start model.TimeOfDay) *SimClock {
	return &SimClock{start: start, now: start}
}

// Now returns the current simulated time.
func (c *SimClock) Now() model.TimeOfDay {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by secs and returns the new time.
// Negative values are ignored: simulated time never runs backwards.
func (c *SimClock) Advance(secs int64) model.TimeOfDay {
	c.mu.Lock()
	defer c.mu.Unlock()
	if secs > 0 {
		c.now = c.now.Add(secs)
	}
	return c.now
}

// AdvanceTo moves the clock to t if t is later.
func (c *SimClock) AdvanceTo(t model.TimeOfDay) model.TimeOfDay {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = model.MaxTime(c.now, t)
	return c.now
}

// Reset returns the clock to its start time.
//
// Used for test reuse so the same scenario replays with identical times.
func (c *SimClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
