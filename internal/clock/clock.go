// Package clock provides the timestamp sources that stamp graph transitions.
package clock

import (
	"sync/atomic"
	"time"
)

// Source produces timestamps.
type Source interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

// Now returns the current UTC wall time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Monotonic wraps a Source so that successive readings strictly increase,
// even when the underlying source stalls or steps backwards.
//
// Thread-safety: Monotonic is safe for concurrent use (atomic operations).
// Each call returns a unique timestamp.
type Monotonic struct {
	source Source
	last   atomic.Int64
}

// NewMonotonic creates a Monotonic clock over source.
func NewMonotonic(source Source) *Monotonic {
	return &Monotonic{source: source}
}

// Now returns the source's reading, bumped by one nanosecond past the
// previous reading when it would not otherwise advance.
func (c *Monotonic) Now() time.Time {
	for {
		reading := c.source.Now().UnixNano()
		prev := c.last.Load()
		if reading <= prev {
			reading = prev + 1
		}
		if c.last.CompareAndSwap(prev, reading) {
			return time.Unix(0, reading).UTC()
		}
	}
}

// Last returns the most recent reading without advancing, or the zero time
// if Now has never been called.
func (c *Monotonic) Last() time.Time {
	last := c.last.Load()
	if last == 0 {
		return time.Time{}
	}
	return time.Unix(0, last).UTC()
}
