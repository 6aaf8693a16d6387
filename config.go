package persistexpire

import (
	"log/slog"
	"math"
	"time"

	"github.com/karupanerura/persist-expire/expiration"
)

// DefaultPersistedAtKey is the default key holding the time the state was persisted at.
const DefaultPersistedAtKey = "__persisted_at"

// Config is the expiry configuration of a single reducer.
// The zero value is usable: missing fields fall back to the defaults of DefaultConfig.
type Config struct {
	// PersistedAtKey is the key holding the time relative to which the state is expired.
	PersistedAtKey string

	// ExpireSeconds is the age in seconds after which the state is expired.
	// nil (or zero, or NaN) disables the expiry check.
	ExpireSeconds *float64

	// ExpiredState replaces the state on expiry, e.g. the initial reducer state.
	// nil means the empty State.
	ExpiredState *State

	// AutoExpire makes In stamp the current time when the state has no persisted time yet,
	// so the state expires if it has not been stamped again within ExpireSeconds.
	AutoExpire bool

	// Policy overrides the expiry check derived from ExpireSeconds.
	Policy expiration.Policy

	// Clock is the source of the current time.
	Clock Clock

	// TimestampDecoder converts the stored persisted time.
	TimestampDecoder TimestampDecoder

	// OnExpired is called with the reducer key and the stale state when the state is expired.
	OnExpired func(key string, stale *State)

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PersistedAtKey:   DefaultPersistedAtKey,
		ExpiredState:     EmptyState(),
		Clock:            SystemClock,
		TimestampDecoder: DefaultTimestampDecoder,
		Logger:           slog.New(slog.DiscardHandler),
	}
}

// ExpirationPolicy returns the effective expiry check.
// It returns nil when the expiry check is disabled.
func (c Config) ExpirationPolicy() expiration.Policy {
	if c.Policy != nil {
		return c.Policy
	}
	if c.ExpireSeconds == nil || *c.ExpireSeconds == 0 || math.IsNaN(*c.ExpireSeconds) {
		return nil
	}
	return expiration.SecondsPolicy{Seconds: *c.ExpireSeconds}
}

// normalize fills the missing fields with the defaults.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.PersistedAtKey == "" {
		c.PersistedAtKey = d.PersistedAtKey
	}
	if c.ExpiredState == nil {
		c.ExpiredState = d.ExpiredState
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	if c.TimestampDecoder == nil {
		c.TimestampDecoder = d.TimestampDecoder
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	return c
}

// Option is the interface for the options of the expiry transform.
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) {
	f(c)
}

// WithPersistedAtKey sets the key holding the persisted time.
// An empty key keeps the default.
func WithPersistedAtKey(key string) Option {
	return optionFunc(func(c *Config) {
		c.PersistedAtKey = key
	})
}

// WithExpireSeconds sets the age in seconds after which the state is expired.
func WithExpireSeconds(seconds float64) Option {
	return optionFunc(func(c *Config) {
		c.ExpireSeconds = &seconds
	})
}

// WithExpireAfter is like WithExpireSeconds but takes a time.Duration.
func WithExpireAfter(d time.Duration) Option {
	return WithExpireSeconds(d.Seconds())
}

// WithExpiredState sets the state used for resetting an expired state.
func WithExpiredState(state *State) Option {
	return optionFunc(func(c *Config) {
		c.ExpiredState = state
	})
}

// WithAutoExpire enables or disables the automatic stamping of the persisted time.
func WithAutoExpire(enabled bool) Option {
	return optionFunc(func(c *Config) {
		c.AutoExpire = enabled
	})
}

// WithExpirationPolicy sets the policy deciding whether a rehydrated state is expired.
// It takes precedence over WithExpireSeconds.
func WithExpirationPolicy(policy expiration.Policy) Option {
	return optionFunc(func(c *Config) {
		c.Policy = policy
	})
}

// WithClock sets the clock.
func WithClock(clock Clock) Option {
	return optionFunc(func(c *Config) {
		c.Clock = clock
	})
}

// WithTimestampDecoder sets the decoder of the persisted time.
func WithTimestampDecoder(decoder TimestampDecoder) Option {
	return optionFunc(func(c *Config) {
		c.TimestampDecoder = decoder
	})
}

// WithOnExpired sets the function called when a rehydrated state is expired.
func WithOnExpired(f func(key string, stale *State)) Option {
	return optionFunc(func(c *Config) {
		c.OnExpired = f
	})
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *Config) {
		c.Logger = logger
	})
}
