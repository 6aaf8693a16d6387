package intervalrefresher

import (
	"context"
	"time"
)

// Target is the interface of things that can refresh persisted states, such as *persist.Persistor.
type Target interface {
	Refresh(ctx context.Context, keys ...string) error
}

// IntervalRefresher refreshes the persisted states of a fixed set of keys at a fixed interval,
// so that expired states are replaced in the storage even when nobody rehydrates them.
type IntervalRefresher struct {
	target            Target
	keys              []string
	interval          time.Duration
	onBackgroundError func(error)
}

// NewIntervalRefresher creates a new IntervalRefresher.
// onBackgroundError is called with every error of the background refreshes; nil discards them.
func NewIntervalRefresher(target Target, keys []string, interval time.Duration, onBackgroundError func(error)) *IntervalRefresher {
	return &IntervalRefresher{
		target:            target,
		keys:              keys,
		interval:          interval,
		onBackgroundError: onBackgroundError,
	}
}

// LaunchBackgroundRefresher starts refreshing in the background.
// It stops when ctx is canceled.
func (r *IntervalRefresher) LaunchBackgroundRefresher(ctx context.Context) {
	go r.poll(ctx)
}

func (r *IntervalRefresher) poll(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *IntervalRefresher) refresh(ctx context.Context) {
	if err := r.target.Refresh(ctx, r.keys...); err != nil && ctx.Err() == nil && r.onBackgroundError != nil {
		r.onBackgroundError(err)
	}
}
