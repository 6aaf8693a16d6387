package expiration

import (
	"math/rand/v2"
	"time"
)

// Policy is the interface for the expiration checker.
// Implementations determine when a persisted state should be considered expired.
type Policy interface {
	// IsExpired returns true if the state is expired.
	// The now parameter represents the current time, and persistedAt is the time the state was persisted at.
	IsExpired(now, persistedAt time.Time) bool
}

// PolicyFunc is a function type that implements the Policy interface.
type PolicyFunc func(now, persistedAt time.Time) bool

// IsExpired calls the function.
func (f PolicyFunc) IsExpired(now, persistedAt time.Time) bool {
	return f(now, persistedAt)
}

// SecondsPolicy is a policy that expires a state older than the given number of seconds.
// The age is measured with millisecond precision.
type SecondsPolicy struct {
	// Seconds is the maximum age of the state.
	Seconds float64
}

var _ Policy = SecondsPolicy{}

// IsExpired returns true if the elapsed seconds since persistedAt is strictly greater than Seconds.
// A state that is exactly Seconds old is not expired.
func (p SecondsPolicy) IsExpired(now, persistedAt time.Time) bool {
	return ElapsedSeconds(now, persistedAt) > p.Seconds
}

// ElapsedSeconds returns the seconds elapsed from persistedAt to now, measured in whole milliseconds.
// It is negative when persistedAt is in the future.
func ElapsedSeconds(now, persistedAt time.Time) float64 {
	return float64(now.UnixMilli()-persistedAt.UnixMilli()) / 1000
}

// NeverPolicy is a policy that never expires a state.
type NeverPolicy struct{}

var _ Policy = NeverPolicy{}

// IsExpired always returns false.
func (NeverPolicy) IsExpired(now, persistedAt time.Time) bool {
	return false
}

// EarlyPolicy is a policy that can expire a state before its maximum age is reached.
// It is useful for spreading the resets of many clients that were persisted at the same time.
type EarlyPolicy struct {
	// Policy is the underlying policy.
	Policy Policy

	// Duration is how much earlier the state can expire.
	Duration time.Duration

	// Percentage is the chance (between 0 and 1) that the state will expire early.
	// A value of 0 means never expire early, while 1 means always expire early.
	Percentage float64

	// Random is the random number generator to decide early expiration.
	// If not set, the default system random generator is used.
	Random *rand.Rand
}

var _ Policy = (*EarlyPolicy)(nil)

// IsExpired checks if the state is expired.
// With probability (1-Percentage) it asks the underlying policy as is.
// Otherwise it asks the underlying policy as if now were Duration later.
func (p *EarlyPolicy) IsExpired(now, persistedAt time.Time) bool {
	if p.randFloat64() > p.Percentage {
		return p.Policy.IsExpired(now, persistedAt)
	}
	return p.Policy.IsExpired(now.Add(p.Duration), persistedAt)
}

func (p *EarlyPolicy) randFloat64() float64 {
	if p.Random == nil {
		return rand.Float64()
	}
	return p.Random.Float64()
}
