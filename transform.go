package persistexpire

import (
	"log/slog"
	"time"

	"github.com/karupanerura/persist-expire/internal/panicutil"
)

// ExpiryTransform is a Transform that expires the state of a single reducer.
type ExpiryTransform struct {
	reducerKey string
	config     Config
}

var _ Transform = (*ExpiryTransform)(nil)

// NewExpiryTransform creates a transform with the given expiry configuration for the reducer key.
// The options are applied over DefaultConfig.
func NewExpiryTransform(reducerKey string, opts ...Option) *ExpiryTransform {
	config := DefaultConfig()
	for _, opt := range opts {
		opt.apply(&config)
	}
	return &ExpiryTransform{
		reducerKey: reducerKey,
		config:     config.normalize(),
	}
}

// ReducerKey returns the reducer key the transform is created for.
func (t *ExpiryTransform) ReducerKey() string {
	return t.reducerKey
}

// Config returns the effective configuration.
func (t *ExpiryTransform) Config() Config {
	return t.config
}

// In stamps the persisted time if AutoExpire is enabled and the state has no persisted time yet.
func (t *ExpiryTransform) In(state *State, key string) *State {
	return transformPersistence(state, &t.config)
}

// Out replaces the state with the expired state if the persisted time is too old.
func (t *ExpiryTransform) Out(state *State, key string) *State {
	return transformRehydrate(state, key, &t.config)
}

// Whitelist returns the reducer key only.
// The host must not call the transform for any other key.
func (t *ExpiryTransform) Whitelist() []string {
	return []string{t.reducerKey}
}

// PersistTransform applies the inbound expiry policy of the configuration to the state.
// It returns the state itself unless it stamps the persisted time into a new State.
func PersistTransform(state *State, config Config) *State {
	config = config.normalize()
	return transformPersistence(state, &config)
}

// RehydrateTransform applies the outbound expiry policy of the configuration to the state.
// It returns either the state itself or the configured expired state.
func RehydrateTransform(state *State, config Config) *State {
	config = config.normalize()
	return transformRehydrate(state, "", &config)
}

func transformPersistence(state *State, config *Config) *State {
	if !config.AutoExpire || state.Has(config.PersistedAtKey) {
		return state
	}
	return state.Set(config.PersistedAtKey, currentTime(config).UnixMilli())
}

func transformRehydrate(state *State, key string, config *Config) *State {
	policy := config.ExpirationPolicy()
	if policy == nil {
		return state
	}

	value, ok := state.Get(config.PersistedAtKey)
	if !ok || value == nil {
		return state
	}

	logger := config.Logger.With(slog.String("key", key), slog.String("persistedAtKey", config.PersistedAtKey))
	persistedAt, ok, err := panicutil.Guard2(time.Time{}, false, func() (time.Time, bool) {
		return config.TimestampDecoder.DecodeTimestamp(value)
	})
	if err != nil {
		logger.Warn("timestamp decoder panicked", slog.Any("error", err))
		return state
	}
	if !ok {
		logger.Debug("skip expiry check for unconvertible timestamp", slog.Any("value", value))
		return state
	}

	now := currentTime(config)
	expired, err := panicutil.Guard(false, func() bool {
		return policy.IsExpired(now, persistedAt)
	})
	if err != nil {
		logger.Warn("expiration policy panicked", slog.Any("error", err))
		return state
	}
	if !expired {
		return state
	}

	logger.Info("state expired", slog.Time("persistedAt", persistedAt), slog.Duration("age", now.Sub(persistedAt)))
	if config.OnExpired != nil {
		if err := panicutil.Run(func() { config.OnExpired(key, state) }); err != nil {
			logger.Warn("expiry hook panicked", slog.Any("error", err))
		}
	}
	return config.ExpiredState
}

func currentTime(c *Config) time.Time {
	now, err := panicutil.Guard(time.Time{}, c.Clock.Now)
	if err != nil {
		c.Logger.Warn("clock panicked, falling back to the system clock", slog.Any("error", err))
		return time.Now()
	}
	return now
}
