package persist_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	persistexpire "github.com/karupanerura/persist-expire"
	"github.com/karupanerura/persist-expire/persist"
	"github.com/karupanerura/persist-expire/storage"
	"github.com/karupanerura/persist-expire/storage/memstorage"
)

func newUserState() *persistexpire.State {
	return persistexpire.NewState(
		persistexpire.Entry{Key: "username", Value: "redux"},
		persistexpire.Entry{Key: "id", Value: 1},
	)
}

func TestPersistor_ExpiryRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &persistexpire.OffsetClock{Clock: persistexpire.FixedClock(now)}
	backend := memstorage.NewInMemoryStorage()
	p := persist.New(backend, persist.WithTransforms(
		persistexpire.NewExpiryTransform("user",
			persistexpire.WithAutoExpire(true),
			persistexpire.WithPersistedAtKey("updatedAt"),
			persistexpire.WithExpireSeconds(60),
			persistexpire.WithExpiredState(persistexpire.NewState(persistexpire.Entry{Key: "username", Value: "initial"})),
			persistexpire.WithClock(clock),
		),
	))

	if err := p.Persist(t.Context(), "user", newUserState()); err != nil {
		t.Fatal(err)
	}

	raw, err := backend.GetItem(t.Context(), "persist:user")
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"username":"redux","id":1,"updatedAt":1672574400000}`; string(raw) != want {
		t.Errorf("Expected %s, got %s", want, raw)
	}

	clock.Offset = 30 * time.Second
	got, err := p.Rehydrate(t.Context(), "user")
	if err != nil {
		t.Fatal(err)
	}
	want := persistexpire.NewState(
		persistexpire.Entry{Key: "username", Value: "redux"},
		persistexpire.Entry{Key: "id", Value: json.Number("1")},
		persistexpire.Entry{Key: "updatedAt", Value: json.Number("1672574400000")},
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state diff=%s", diff)
	}

	// persisting the rehydrated state keeps the first stamp
	if err := p.Persist(t.Context(), "user", got.Set("username", "redux2")); err != nil {
		t.Fatal(err)
	}

	clock.Offset = 61 * time.Second
	got, err = p.Rehydrate(t.Context(), "user")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(persistexpire.NewState(persistexpire.Entry{Key: "username", Value: "initial"}), got); diff != "" {
		t.Errorf("state diff=%s", diff)
	}
}

func TestPersistor_Whitelist(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	backend := memstorage.NewInMemoryStorage()
	p := persist.New(backend,
		persist.WithKeyPrefix("app:"),
		persist.WithTransforms(persistexpire.NewExpiryTransform("user",
			persistexpire.WithAutoExpire(true),
			persistexpire.WithClock(persistexpire.FixedClock(now)),
		)),
	)

	if err := p.PersistAll(t.Context(), map[string]*persistexpire.State{
		"user":     newUserState(),
		"settings": persistexpire.NewState(persistexpire.Entry{Key: "theme", Value: "dark"}),
	}); err != nil {
		t.Fatal(err)
	}

	user, err := backend.GetItem(t.Context(), "app:user")
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"username":"redux","id":1,"__persisted_at":1672574400000}`; string(user) != want {
		t.Errorf("Expected %s, got %s", want, user)
	}

	settings, err := backend.GetItem(t.Context(), "app:settings")
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"theme":"dark"}`; string(settings) != want {
		t.Errorf("Expected %s, got %s", want, settings)
	}
}

func TestPersistor_TransformOrder(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var calls []string
	record := func(name string) func(*persistexpire.State, string) *persistexpire.State {
		return func(s *persistexpire.State, key string) *persistexpire.State {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, name+":"+key)
			return s
		}
	}

	p := persist.New(memstorage.NewInMemoryStorage(), persist.WithTransforms(
		&persistexpire.TransformFuncs{InFunc: record("in1"), OutFunc: record("out1")},
		&persistexpire.TransformFuncs{InFunc: record("in2"), OutFunc: record("out2"), Keys: []string{"user"}},
		&persistexpire.TransformFuncs{InFunc: record("in3"), OutFunc: record("out3"), Keys: []string{"other"}},
	))

	if err := p.Persist(t.Context(), "user", newUserState()); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Rehydrate(t.Context(), "user"); err != nil {
		t.Fatal(err)
	}

	want := []string{"in1:user", "in2:user", "out2:user", "out1:user"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("calls diff=%s", diff)
	}
}

func TestPersistor_RehydrateAll(t *testing.T) {
	t.Parallel()

	p := persist.New(memstorage.NewInMemoryStorage(), persist.WithConcurrency(2))
	states := map[string]*persistexpire.State{
		"a": persistexpire.NewState(persistexpire.Entry{Key: "v", Value: "a"}),
		"b": persistexpire.NewState(persistexpire.Entry{Key: "v", Value: "b"}),
		"c": persistexpire.NewState(persistexpire.Entry{Key: "v", Value: "c"}),
	}
	if err := p.PersistAll(t.Context(), states); err != nil {
		t.Fatal(err)
	}

	got, err := p.RehydrateAll(t.Context(), []string{"a", "b", "c", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(states, got); diff != "" {
		t.Errorf("states diff=%s", diff)
	}
}

func TestPersistor_Missing(t *testing.T) {
	t.Parallel()

	p := persist.New(memstorage.NewInMemoryStorage(), persist.WithTransforms(
		persistexpire.NewExpiryTransform("user", persistexpire.WithExpireSeconds(5)),
	))

	got, err := p.Rehydrate(t.Context(), "user")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("Expected nil, got %v", got)
	}
}

func TestPersistor_Purge(t *testing.T) {
	t.Parallel()

	p := persist.New(memstorage.NewInMemoryStorage())
	if err := p.Persist(t.Context(), "user", newUserState()); err != nil {
		t.Fatal(err)
	}
	if err := p.Purge(t.Context(), "user"); err != nil {
		t.Fatal(err)
	}

	got, err := p.Rehydrate(t.Context(), "user")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("Expected nil after purge, got %v", got)
	}
}

func TestPersistor_Errors(t *testing.T) {
	t.Parallel()

	failing := &storage.FunctionsStorage{
		GetItemFunc: func(context.Context, string) ([]byte, error) {
			return nil, storage.ErrGet
		},
		SetItemFunc: func(context.Context, string, []byte) error {
			return storage.ErrSet
		},
		RemoveItemFunc: func(context.Context, string) error {
			return storage.ErrRemove
		},
	}

	t.Run("storage errors", func(t *testing.T) {
		t.Parallel()

		p := persist.New(failing)
		if err := p.Persist(t.Context(), "user", newUserState()); !errors.Is(err, storage.ErrSet) {
			t.Errorf("Expected ErrSet, got %v", err)
		}
		if _, err := p.Rehydrate(t.Context(), "user"); !errors.Is(err, storage.ErrGet) {
			t.Errorf("Expected ErrGet, got %v", err)
		}
		if err := p.Purge(t.Context(), "user"); !errors.Is(err, storage.ErrRemove) {
			t.Errorf("Expected ErrRemove, got %v", err)
		}
		if err := p.PersistAll(t.Context(), map[string]*persistexpire.State{"user": newUserState()}); !errors.Is(err, storage.ErrSet) {
			t.Errorf("Expected ErrSet, got %v", err)
		}
		if _, err := p.RehydrateAll(t.Context(), []string{"user"}); !errors.Is(err, storage.ErrGet) {
			t.Errorf("Expected ErrGet, got %v", err)
		}
	})

	t.Run("silent storage errors", func(t *testing.T) {
		t.Parallel()

		var count atomic.Int32
		p := persist.New(&storage.SilentErrorStorage{
			Storage: failing,
			OnError: func(error) { count.Add(1) },
		})
		if err := p.Persist(t.Context(), "user", newUserState()); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		got, err := p.Rehydrate(t.Context(), "user")
		if err != nil || got != nil {
			t.Errorf("Expected nil state and no error, got %v, %v", got, err)
		}
		if count.Load() != 2 {
			t.Errorf("Expected 2 errors to be reported, got %d", count.Load())
		}
	})

	t.Run("decode error", func(t *testing.T) {
		t.Parallel()

		p := persist.New(&storage.FunctionsStorage{
			GetItemFunc: func(context.Context, string) ([]byte, error) {
				return []byte(`["not", "an", "object"]`), nil
			},
		})
		if _, err := p.Rehydrate(t.Context(), "user"); !errors.Is(err, persist.ErrDecode) {
			t.Errorf("Expected ErrDecode, got %v", err)
		}
	})

	t.Run("encode error", func(t *testing.T) {
		t.Parallel()

		p := persist.New(memstorage.NewInMemoryStorage())
		state := persistexpire.NewState(persistexpire.Entry{Key: "ch", Value: make(chan int)})
		if err := p.Persist(t.Context(), "user", state); !errors.Is(err, persist.ErrEncode) {
			t.Errorf("Expected ErrEncode, got %v", err)
		}
	})

	t.Run("transform panic", func(t *testing.T) {
		t.Parallel()

		p := persist.New(memstorage.NewInMemoryStorage(), persist.WithTransforms(&persistexpire.TransformFuncs{
			InFunc: func(*persistexpire.State, string) *persistexpire.State {
				panic("in")
			},
		}))
		if err := p.Persist(t.Context(), "user", newUserState()); !errors.Is(err, persist.ErrTransform) {
			t.Errorf("Expected ErrTransform, got %v", err)
		}
	})
}

func TestPersistor_RehydrateSharesLoad(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	release := make(chan struct{})
	p := persist.New(&storage.FunctionsStorage{
		GetItemFunc: func(context.Context, string) ([]byte, error) {
			loads.Add(1)
			<-release
			return []byte(`{"username":"redux"}`), nil
		},
	})

	const n = 10
	var wg sync.WaitGroup
	results := make([]*persistexpire.State, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := p.Rehydrate(context.Background(), "user")
			if err != nil {
				t.Error(err)
			}
			results[i] = state
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if loads.Load() < 1 || loads.Load() > n {
		t.Errorf("unexpected loads %d", loads.Load())
	}
	for i, state := range results {
		if v, _ := state.Get("username"); v != "redux" {
			t.Errorf("results[%d] = %v", i, state)
		}
	}
}

func TestPersistor_RehydrateCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)
	p := persist.New(&storage.FunctionsStorage{
		GetItemFunc: func(context.Context, string) ([]byte, error) {
			<-release
			return nil, nil
		},
	})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := p.Rehydrate(ctx, "user"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestWithConcurrency(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for zero concurrency, but did not panic")
		}
	}()
	persist.WithConcurrency(0)
}

func TestPersistor_Refresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &persistexpire.OffsetClock{Clock: persistexpire.FixedClock(now)}
	backend := memstorage.NewInMemoryStorage()
	p := persist.New(backend, persist.WithTransforms(
		persistexpire.NewExpiryTransform("user",
			persistexpire.WithAutoExpire(true),
			persistexpire.WithExpireSeconds(60),
			persistexpire.WithExpiredState(persistexpire.NewState(persistexpire.Entry{Key: "username", Value: "initial"})),
			persistexpire.WithClock(clock),
		),
	))

	if err := p.Persist(t.Context(), "user", newUserState()); err != nil {
		t.Fatal(err)
	}

	// not expired yet, the stored state keeps its stamp
	clock.Offset = 30 * time.Second
	if err := p.Refresh(t.Context(), "user", "missing", "user"); err != nil {
		t.Fatal(err)
	}
	raw, err := backend.GetItem(t.Context(), "persist:user")
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"username":"redux","id":1,"__persisted_at":1672574400000}`; string(raw) != want {
		t.Errorf("Expected %s, got %s", want, raw)
	}

	// expired, the replacement is stored with a new stamp
	clock.Offset = 90 * time.Second
	if err := p.Refresh(t.Context(), "user"); err != nil {
		t.Fatal(err)
	}
	raw, err = backend.GetItem(t.Context(), "persist:user")
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"username":"initial","__persisted_at":1672574490000}`; string(raw) != want {
		t.Errorf("Expected %s, got %s", want, raw)
	}

	missing, err := backend.GetItem(t.Context(), "persist:missing")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("Expected missing key to stay missing, got %s", missing)
	}
}
