package sim

import "sync/atomic"

// Clock is the monotonic logical clock stamping every routed message.
// Envelope.Seq values are unique and strictly increasing within a run, so
// replaying a trace ORDER BY seq reproduces delivery order.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt resumes a clock after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
