package memstorage

import (
	"bytes"
	"context"
	"sync"

	persistexpire "github.com/karupanerura/persist-expire"
)

type bucket struct {
	m  map[string][]byte
	mu sync.RWMutex
}

func (b *bucket) get(key string) []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if v, ok := b.m[key]; ok {
		return bytes.Clone(v)
	}
	return nil
}

func (b *bucket) set(key string, value []byte) {
	v := bytes.Clone(value)
	if v == nil {
		v = []byte{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[key] = v
}

func (b *bucket) remove(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, key)
}

type distributedStorage struct {
	buckets []*bucket
	options options
}

// NewInMemoryStorage creates a new in-memory state storage.
// The storage can be distributed across multiple buckets for improved concurrency.
// The storage uses a hash function to distribute the keys across the buckets.
func NewInMemoryStorage(opts ...Option) persistexpire.Storage {
	options := defaultOptions()
	for _, opt := range opts {
		opt.apply(&options)
	}

	if options.bucketsSize == 1 {
		return &storage{
			bucket: bucket{m: map[string][]byte{}},
		}
	}

	buckets := make([]*bucket, options.bucketsSize)
	for i := range buckets {
		buckets[i] = &bucket{m: map[string][]byte{}}
	}

	return &distributedStorage{
		buckets: buckets,
		options: options,
	}
}

var _ persistexpire.Storage = (*distributedStorage)(nil)

// resolveBucket returns the bucket that corresponds to the given key.
func (s *distributedStorage) resolveBucket(key string) *bucket {
	index := s.options.hashKey(key) % len(s.buckets)
	if index < 0 {
		index *= -1
	}
	return s.buckets[index]
}

func (s *distributedStorage) GetItem(_ context.Context, key string) ([]byte, error) {
	return s.resolveBucket(key).get(key), nil
}

func (s *distributedStorage) SetItem(_ context.Context, key string, value []byte) error {
	s.resolveBucket(key).set(key, value)
	return nil
}

func (s *distributedStorage) RemoveItem(_ context.Context, key string) error {
	s.resolveBucket(key).remove(key)
	return nil
}

type storage struct {
	bucket
}

var _ persistexpire.Storage = (*storage)(nil)

func (s *storage) GetItem(_ context.Context, key string) ([]byte, error) {
	return s.get(key), nil
}

func (s *storage) SetItem(_ context.Context, key string, value []byte) error {
	s.set(key, value)
	return nil
}

func (s *storage) RemoveItem(_ context.Context, key string) error {
	s.remove(key)
	return nil
}
