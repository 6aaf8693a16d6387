package ctxsync

import (
	"context"
	"sync"
)

// CtxLocker wraps a sync.Locker so that waiting for the lock can be abandoned with a context.
type CtxLocker struct {
	sync.Locker
}

type tryLocker interface {
	TryLock() bool
}

// LockCtx acquires the lock or returns the context error when ctx is done first.
// An abandoned acquisition releases the lock as soon as it is eventually obtained.
func (l *CtxLocker) LockCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tl, ok := l.Locker.(tryLocker); ok && tl.TryLock() {
		return nil
	}

	acquired := make(chan struct{})
	go func() {
		l.Locker.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		go func() {
			<-acquired
			l.Locker.Unlock()
		}()
		return ctx.Err()
	}
}
