package lock

import (
	"context"
	"errors"
	"strings"
	"sync"

	"trustscore/internal/errs"
	"trustscore/internal/ports"
)

// LocalLocker is an in-process keyed mutex. Entries are reference counted and
// dropped when the last holder or waiter leaves.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

var _ ports.KeyLocker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	kl, ok := l.locks[trimmedKey]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[trimmedKey] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(trimmedKey, kl, false)
		return nil, errs.Wrapf(ports.ErrLockNotAcquired, "lock %s: %v", trimmedKey, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(trimmedKey, kl, true) })
	}, nil
}

func (l *LocalLocker) release(key string, kl *keyLock, held bool) {
	if held {
		<-kl.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// size reports the number of tracked keys.
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func checkKey(ctx context.Context, key string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return "", errs.Wrap(ports.ErrLockNotAcquired, "key is required")
	}
	return trimmedKey, nil
}
