package persist

import (
	"log/slog"

	persistexpire "github.com/karupanerura/persist-expire"
)

// DefaultKeyPrefix is the default prefix of the storage keys.
const DefaultKeyPrefix = "persist:"

// DefaultConcurrency is the default number of reducers processed concurrently by PersistAll and RehydrateAll.
var DefaultConcurrency = 8

// Option is the interface for the options of the Persistor.
type Option interface {
	apply(*Persistor)
}

type optionFunc func(*Persistor)

func (f optionFunc) apply(p *Persistor) {
	f(p)
}

// WithTransforms appends the transforms to the persistor.
func WithTransforms(transforms ...persistexpire.Transform) Option {
	return optionFunc(func(p *Persistor) {
		p.transforms = append(p.transforms, transforms...)
	})
}

// WithCodec sets the codec.
// The default codec is JSONCodec.
func WithCodec(codec Codec) Option {
	return optionFunc(func(p *Persistor) {
		p.codec = codec
	})
}

// WithKeyPrefix sets the prefix of the storage keys.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(p *Persistor) {
		p.keyPrefix = prefix
	})
}

// WithConcurrency sets the number of reducers processed concurrently.
// The concurrency must be a natural number.
func WithConcurrency(n int) Option {
	if n <= 0 {
		panic("concurrency must be natural number")
	}
	return optionFunc(func(p *Persistor) {
		p.concurrency = n
	})
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(p *Persistor) {
		p.logger = logger
	})
}
