package persistexpire

import (
	"time"
)

// Clock is an interface for getting the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc is a function type that implements the Clock interface.
type ClockFunc func() time.Time

// Now calls the function.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock is the default clock that uses time.Now.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock returns a clock that always returns the given time.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time {
		return t
	})
}

// OffsetClock is a clock that shifts the time of the underlying clock.
// It is useful to simulate elapsed time without waiting.
type OffsetClock struct {
	// Clock is the clock that provides the current time.
	// If nil, SystemClock is used.
	Clock Clock

	// Offset is added to the current time.
	Offset time.Duration
}

// Now returns the current time plus the offset.
func (c *OffsetClock) Now() time.Time {
	clock := c.Clock
	if clock == nil {
		clock = SystemClock
	}
	return clock.Now().Add(c.Offset)
}
