package ports

import (
	"context"
	"errors"
)

var ErrLockNotAcquired = errors.New("key lock not acquired")

// KeyLocker serializes work on one key across goroutines or processes.
// Different keys never block each other.
type KeyLocker interface {
	// Lock blocks until key is held or ctx ends. The returned func releases it
	// and is safe to call more than once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
