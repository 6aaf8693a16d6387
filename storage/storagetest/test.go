// storagetest package provides generic test cases for state storage implementations.
package storagetest

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	persistexpire "github.com/karupanerura/persist-expire"
	"golang.org/x/sync/errgroup"
)

// BenchmarkSetItem benchmarks the SetItem method of the storage.
func BenchmarkSetItem(b *testing.B, storage persistexpire.Storage, keys []string) {
	value := []byte(`{"username":"redux","id":1,"__persisted_at":1672574400000}`)
	ctx := b.Context()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		storage.SetItem(ctx, keys[i%len(keys)], value)
	}
}

// TestCopy tests that the storage does not share byte slices with its callers.
func TestCopy(t *testing.T, provider func() (persistexpire.Storage, func())) {
	t.Run("Copy", func(t *testing.T) {
		t.Parallel()

		storage, release := provider()
		defer release()

		input := []byte(`{"username":"redux"}`)
		if err := storage.SetItem(t.Context(), "user", input); err != nil {
			t.Fatal(err)
		}
		input[2] = 'X'

		got, err := storage.GetItem(t.Context(), "user")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != `{"username":"redux"}` {
			t.Errorf("stored value must not be affected by the input, got %s", got)
		}

		got[2] = 'Y'
		again, err := storage.GetItem(t.Context(), "user")
		if err != nil {
			t.Fatal(err)
		}
		if string(again) != `{"username":"redux"}` {
			t.Errorf("stored value must not be affected by the output, got %s", again)
		}
	})
}

// TestRemove tests the RemoveItem method of the storage.
func TestRemove(t *testing.T, provider func() (persistexpire.Storage, func())) {
	t.Run("Remove", func(t *testing.T) {
		t.Parallel()

		storage, release := provider()
		defer release()

		if err := storage.RemoveItem(t.Context(), "missing"); err != nil {
			t.Errorf("removing a missing key must not fail: %v", err)
		}

		if err := storage.SetItem(t.Context(), "user", []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
		if err := storage.SetItem(t.Context(), "settings", []byte(`{"theme":"dark"}`)); err != nil {
			t.Fatal(err)
		}
		if err := storage.RemoveItem(t.Context(), "user"); err != nil {
			t.Fatal(err)
		}

		got, err := storage.GetItem(t.Context(), "user")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("removed key must not exist, got %s", got)
		}

		got, err = storage.GetItem(t.Context(), "settings")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != `{"theme":"dark"}` {
			t.Errorf("other keys must be kept, got %s", got)
		}
	})
}

// TestConsistency tests concurrent reads and writes of the storage.
func TestConsistency(t *testing.T, provider func() (persistexpire.Storage, func())) {
	t.Run("Consistency", func(t *testing.T) {
		t.Parallel()

		t.Run("SetAndGet", func(t *testing.T) {
			t.Parallel()

			storage, release := provider()
			defer release()

			patterns := make([]persistexpire.Entry, 32)
			for i := range patterns {
				patterns[i] = persistexpire.Entry{
					Key:   "reducer" + strconv.Itoa(i),
					Value: []byte(fmt.Sprintf(`{"id":%d}`, i)),
				}
			}
			rand.Shuffle(len(patterns), func(i, j int) {
				patterns[i], patterns[j] = patterns[j], patterns[i]
			})

			var eg errgroup.Group
			for _, pattern := range patterns {
				pattern := pattern
				eg.Go(func() error {
					value, err := storage.GetItem(t.Context(), pattern.Key)
					if err != nil {
						return err
					} else if value != nil {
						return fmt.Errorf("unexpected exists value for key %s", pattern.Key)
					}
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			eg = errgroup.Group{}
			for _, pattern := range patterns {
				pattern := pattern
				eg.Go(func() error {
					return storage.SetItem(t.Context(), pattern.Key, pattern.Value.([]byte))
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			eg = errgroup.Group{}
			values := make([][]byte, len(patterns))
			for i, pattern := range patterns {
				i := i
				pattern := pattern
				eg.Go(func() error {
					value, err := storage.GetItem(t.Context(), pattern.Key)
					if err != nil {
						return err
					}
					values[i] = value
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				t.Fatal(err)
			}

			for i, pattern := range patterns {
				if df := cmp.Diff(pattern.Value, values[i]); df != "" {
					t.Errorf("pattern[%d] key=%s value diff=%s", i, pattern.Key, df)
				}
			}
		})

		t.Run("Overwrite", func(t *testing.T) {
			t.Parallel()

			storage, release := provider()
			defer release()

			for i := 0; i < 3; i++ {
				if err := storage.SetItem(t.Context(), "user", []byte(strconv.Itoa(i))); err != nil {
					t.Fatal(err)
				}
			}
			got, err := storage.GetItem(t.Context(), "user")
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != "2" {
				t.Errorf("Expected the last value 2, got %s", got)
			}
		})
	})
}

// TestAll runs all test cases of this package.
func TestAll(t *testing.T, provider func() (persistexpire.Storage, func())) {
	TestConsistency(t, provider)
	TestCopy(t, provider)
	TestRemove(t, provider)
}
