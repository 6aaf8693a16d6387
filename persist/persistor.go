package persist

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	persistexpire "github.com/karupanerura/persist-expire"
	"github.com/karupanerura/persist-expire/internal/ctxsync"
	"github.com/karupanerura/persist-expire/internal/iterutil"
	"github.com/karupanerura/persist-expire/internal/panicutil"
	"github.com/karupanerura/persist-expire/storage"
)

// Persistor persists and rehydrates reducer states through the transforms.
// It is safe for concurrent use.
type Persistor struct {
	storage     persistexpire.Storage
	transforms  []persistexpire.Transform
	codec       Codec
	keyPrefix   string
	concurrency int
	logger      *slog.Logger

	group     singleflight.Group
	refreshMu ctxsync.CtxLocker
}

// New creates a new Persistor with the storage.
func New(s persistexpire.Storage, opts ...Option) *Persistor {
	p := &Persistor{
		codec:       JSONCodec{},
		keyPrefix:   DefaultKeyPrefix,
		concurrency: DefaultConcurrency,
		refreshMu:   ctxsync.CtxLocker{Locker: &sync.Mutex{}},
	}
	for _, opt := range opts {
		opt.apply(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	p.storage = &storage.PrefixStorage{Storage: s, Prefix: p.keyPrefix}
	return p
}

// Persist applies the In transforms to the state and stores the result.
func (p *Persistor) Persist(ctx context.Context, key string, state *persistexpire.State) error {
	logger := p.logger.With(slog.String("key", key))

	inbound, err := p.transformIn(state, key)
	if err != nil {
		logger.Error("failed to transform state", slog.Any("error", err))
		return err
	}

	b, err := p.codec.Encode(inbound)
	if err != nil {
		logger.Error("failed to encode state", slog.Any("error", err))
		return fmt.Errorf("persist %s: %w", key, err)
	}

	if err := p.storage.SetItem(ctx, key, b); err != nil {
		logger.Error("failed to store state", slog.Any("error", err))
		return fmt.Errorf("persist %s: %w", key, err)
	}
	logger.Debug("state persisted", slog.Int("bytes", len(b)))
	return nil
}

// PersistAll persists the states concurrently.
// It returns the first error, if any.
func (p *Persistor) PersistAll(ctx context.Context, states map[string]*persistexpire.State) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)
	for _, key := range slices.Sorted(maps.Keys(states)) {
		state := states[key]
		eg.Go(func() error {
			return p.Persist(ctx, key, state)
		})
	}
	return eg.Wait()
}

// Rehydrate loads the state and applies the Out transforms in the reverse order.
// It returns nil state and nil error if nothing is persisted for the key.
// Concurrent calls for the same key share a single load.
func (p *Persistor) Rehydrate(ctx context.Context, key string) (*persistexpire.State, error) {
	ch := p.group.DoChan(key, func() (any, error) {
		return p.rehydrate(context.WithoutCancel(ctx), key)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*persistexpire.State), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Persistor) rehydrate(ctx context.Context, key string) (*persistexpire.State, error) {
	logger := p.logger.With(slog.String("key", key))

	b, err := p.storage.GetItem(ctx, key)
	if err != nil {
		logger.Error("failed to load state", slog.Any("error", err))
		return nil, fmt.Errorf("rehydrate %s: %w", key, err)
	}
	if b == nil {
		logger.Debug("no persisted state")
		return nil, nil
	}

	state, err := p.codec.Decode(b)
	if err != nil {
		logger.Error("failed to decode state", slog.Any("error", err))
		return nil, fmt.Errorf("rehydrate %s: %w", key, err)
	}

	outbound, err := p.transformOut(state, key)
	if err != nil {
		logger.Error("failed to transform state", slog.Any("error", err))
		return nil, err
	}
	return outbound, nil
}

// RehydrateAll rehydrates the states of the keys concurrently.
// Keys with nothing persisted are omitted from the result.
func (p *Persistor) RehydrateAll(ctx context.Context, keys []string) (map[string]*persistexpire.State, error) {
	var mu sync.Mutex
	result := make(map[string]*persistexpire.State, len(keys))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)
	for key := range iterutil.Uniq(slices.Values(keys)) {
		eg.Go(func() error {
			state, err := p.Rehydrate(ctx, key)
			if err != nil {
				return err
			}
			if state == nil {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			result[key] = state
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Refresh rehydrates the states of the keys and persists them back,
// so that expired states are replaced in the storage by their rehydrated replacement.
// Keys with nothing persisted are left untouched.
// Refresh calls of the same Persistor do not overlap.
func (p *Persistor) Refresh(ctx context.Context, keys ...string) error {
	if err := p.refreshMu.LockCtx(ctx); err != nil {
		return err
	}
	defer p.refreshMu.Unlock()

	states, err := p.RehydrateAll(ctx, keys)
	if err != nil {
		return err
	}
	if err := p.PersistAll(ctx, states); err != nil {
		return err
	}
	p.logger.Debug("states refreshed", slog.Int("count", len(states)))
	return nil
}

// Purge removes the persisted state of the key.
func (p *Persistor) Purge(ctx context.Context, key string) error {
	if err := p.storage.RemoveItem(ctx, key); err != nil {
		p.logger.Error("failed to purge state", slog.String("key", key), slog.Any("error", err))
		return fmt.Errorf("purge %s: %w", key, err)
	}
	return nil
}

func (p *Persistor) transformIn(state *persistexpire.State, key string) (*persistexpire.State, error) {
	for _, t := range p.transforms {
		if !persistexpire.AppliesTo(t, key) {
			continue
		}

		var err error
		state, err = panicutil.Guard(state, func() *persistexpire.State {
			return t.In(state, key)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: in %s: %w", ErrTransform, key, err)
		}
	}
	return state, nil
}

func (p *Persistor) transformOut(state *persistexpire.State, key string) (*persistexpire.State, error) {
	for _, t := range slices.Backward(p.transforms) {
		if !persistexpire.AppliesTo(t, key) {
			continue
		}

		var err error
		state, err = panicutil.Guard(state, func() *persistexpire.State {
			return t.Out(state, key)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: out %s: %w", ErrTransform, key, err)
		}
	}
	return state, nil
}
