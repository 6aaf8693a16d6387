package memstorage

import (
	"github.com/karupanerura/persist-expire/internal/keyhash"
)

// DefaultBucketsSize is the default number of buckets in the storage.
var DefaultBucketsSize = 16

// Option is the interface for the options of the in-memory storage.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

// WithKeyHash sets the key hash function to the storage.
func WithKeyHash(f func(string) int) Option {
	return optionFunc(func(o *options) {
		o.hashKey = f
	})
}

// WithBucketsSize sets the number of buckets in the storage.
// The number of buckets must be a natural number.
func WithBucketsSize(bucketsSize int) Option {
	if bucketsSize <= 0 {
		panic("bucketSize must be natural number")
	}
	return optionFunc(func(o *options) {
		o.bucketsSize = bucketsSize
	})
}

type options struct {
	hashKey     func(string) int
	bucketsSize int
}

func defaultOptions() options {
	return options{
		hashKey:     keyhash.String,
		bucketsSize: DefaultBucketsSize,
	}
}
