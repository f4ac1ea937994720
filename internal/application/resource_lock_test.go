package application

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestResourceLocker_SerializesSharedKeys(t *testing.T) {
	t.Parallel()

	locker := newResourceLocker()
	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locker.Lock("hall:a", "faculty:x")
			defer release()

			now := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if now <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, now) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected at most one holder at a time, got %d", maxActive)
	}
	if locker.size() != 0 {
		t.Fatalf("expected lock table to be empty after release, got %d", locker.size())
	}
}

func TestResourceLocker_DisjointKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	locker := newResourceLocker()
	release := locker.Lock("hall:a")
	defer release()

	done := make(chan struct{})
	go func() {
		other := locker.Lock("hall:b", "", "hall:b")
		other()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected disjoint key to be acquired without waiting")
	}
}

func TestSessionLockKeys(t *testing.T) {
	t.Parallel()

	keys := normalizeLockKeys(sessionLockKeys([]string{"f1", "", "f1"}, []string{"h1"}))
	if len(keys) != 2 || keys[0] != "faculty:f1" || keys[1] != "hall:h1" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}
