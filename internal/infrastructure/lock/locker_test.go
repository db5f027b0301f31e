package lock

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"trustscore/internal/ports"
)

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "reliability:Products:1")
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxActive)
	}
	if n := locker.size(); n != 0 {
		t.Fatalf("tracked keys after release = %d, want 0", n)
	}
}

func TestLocalLocker_DifferentKeysDoNotContend(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock(a) error = %v", err)
	}
	defer unlockA()

	timeout, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := locker.Lock(timeout, "b")
	if err != nil {
		t.Fatalf("Lock(b) error = %v", err)
	}
	unlockB()
}

func TestLocalLocker_HonoursContext(t *testing.T) {
	locker := NewLocalLocker()

	unlock, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "k"); !errors.Is(err, ports.ErrLockNotAcquired) {
		t.Fatalf("Lock() while held error = %v, want ErrLockNotAcquired", err)
	}

	unlock()
	unlock()

	again, err := locker.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock() after release error = %v", err)
	}
	again()
	if n := locker.size(); n != 0 {
		t.Fatalf("tracked keys = %d, want 0", n)
	}
}

func TestLocalLocker_RejectsEmptyKey(t *testing.T) {
	if _, err := NewLocalLocker().Lock(context.Background(), " "); !errors.Is(err, ports.ErrLockNotAcquired) {
		t.Fatalf("Lock(empty) error = %v", err)
	}
}

func TestRedisLocker_ExclusiveAndReleased(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	prefix := "trustscore-test:" + uuid.NewString() + ":"
	locker := NewRedisLocker(rdb, prefix, 5*time.Second, 200*time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if _, err := locker.Lock(ctx, "k"); !errors.Is(err, ports.ErrLockNotAcquired) {
		t.Fatalf("second Lock() error = %v, want ErrLockNotAcquired", err)
	}
	unlock()

	again, err := locker.Lock(ctx, "k")
	if err != nil {
		t.Fatalf("Lock() after release error = %v", err)
	}
	again()
}
