package engine

import "sync/atomic"

// Clock numbers engine steps. Every processed update takes the next value
// and stamps it on the trace events it records, so a scenario run twice
// produces an identical trace. Engines sharing a Clock number their steps
// in one sequence.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first step is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new step.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last step handed out, or 0 before the first.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
