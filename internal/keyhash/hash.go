package keyhash

import (
	"hash"
	"hash/fnv"
	"sync"
)

const (
	// intSize is the size of an int in bits.
	intSize = 32 << (^uint(0) >> 63)
)

// String computes the FNV-1a hash of the string.
// It uses the 32-bit variant on 32-bit platforms and the 64-bit variant otherwise.
func String(s string) int {
	if intSize == 32 {
		return hash32(s)
	}
	return hash64(s)
}

var hash32Pool = &resettablePool[hash.Hash32]{
	pool: sync.Pool{
		New: func() any {
			return fnv.New32a()
		},
	},
}

// hash64Pool is a pool for 64-bit FNV-1a hash objects.
var hash64Pool = &resettablePool[hash.Hash64]{
	pool: sync.Pool{
		New: func() any {
			return fnv.New64a()
		},
	},
}

// resetter is an interface that defines a Reset method.
// Types that implement this interface can be used with resettablePool.
type resetter interface {
	Reset()
}

// resettablePool is a generic pool for objects that implement the resetter interface.
// It uses a sync.Pool to manage the objects and ensures that they are reset before being reused.
type resettablePool[H resetter] struct {
	pool sync.Pool
}

// Put adds an object to the pool after resetting it.
func (p *resettablePool[H]) Put(h H) {
	h.Reset()
	p.pool.Put(h)
}

// Get retrieves an object from the pool.
func (p *resettablePool[H]) Get() H {
	return p.pool.Get().(H)
}

func hash32(s string) int {
	h := hash32Pool.Get()
	defer hash32Pool.Put(h)
	_, _ = h.Write([]byte(s))
	return int(h.Sum32())
}

func hash64(s string) int {
	h := hash64Pool.Get()
	defer hash64Pool.Put(h)
	_, _ = h.Write([]byte(s))
	return int(h.Sum64())
}
