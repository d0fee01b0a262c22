package engine

import "sync/atomic"

// Sequencer stamps evaluations with their seq within a run.
// Next must never return the same value twice.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is the logical clock of a run: seq 1 is the first evaluation and
// every later evaluation gets a larger seq, whichever worker evaluates it.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock for a new run.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock that resumes a run whose last recorded seq
// is last.
func NewClockAt(last int64) *Clock {
	c := &Clock{}
	c.seq.Store(last)
	return c
}

// Next reserves and returns the next seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last reserved seq, or the starting value.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
