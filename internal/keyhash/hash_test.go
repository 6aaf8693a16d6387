package keyhash_test

import (
	"hash/fnv"
	"sync"
	"testing"

	"github.com/karupanerura/persist-expire/internal/keyhash"
)

const (
	intSize = 32 << (^uint(0) >> 63)
)

func reference(s string) int {
	if intSize == 32 {
		h := fnv.New32a()
		_, _ = h.Write([]byte(s))
		return int(h.Sum32())
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64())
}

func TestString(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "test", "persist:user", "persist:settings"} {
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()

			if got, want := keyhash.String(key), reference(key); got != want {
				t.Errorf("String(%q) = %x, want %x", key, got, want)
			}
		})
	}
}

func TestString_Concurrent(t *testing.T) {
	t.Parallel()

	want := reference("persist:user")
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := keyhash.String("persist:user"); got != want {
				t.Errorf("String() = %x, want %x", got, want)
			}
		}()
	}
	wg.Wait()
}
