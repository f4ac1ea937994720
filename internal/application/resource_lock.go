package application

import (
	"sort"
	"sync"
)

// resourceLocker serializes check-then-write sequences per faculty member and
// per hall within one process. Cross-process safety comes from the store
// transaction.
type resourceLocker struct {
	mu    sync.Mutex
	locks map[string]*resourceLock
}

type resourceLock struct {
	mu   sync.Mutex
	refs int
}

func newResourceLocker() *resourceLocker {
	return &resourceLocker{locks: make(map[string]*resourceLock)}
}

// Lock acquires every key in sorted order and returns the release function.
// Empty and duplicate keys are ignored.
func (l *resourceLocker) Lock(keys ...string) func() {
	ordered := normalizeLockKeys(keys)
	held := make([]*resourceLock, 0, len(ordered))

	for _, key := range ordered {
		l.mu.Lock()
		lock, ok := l.locks[key]
		if !ok {
			lock = &resourceLock{}
			l.locks[key] = lock
		}
		lock.refs++
		l.mu.Unlock()

		lock.mu.Lock()
		held = append(held, lock)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(ordered[i])
		}
	}
}

func (l *resourceLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[key]
	if !ok {
		return
	}
	lock.refs--
	if lock.refs <= 0 {
		delete(l.locks, key)
	}
}

func (l *resourceLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func normalizeLockKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func sessionLockKeys(facultyIDs, hallIDs []string) []string {
	keys := make([]string, 0, len(facultyIDs)+len(hallIDs))
	for _, id := range facultyIDs {
		if id != "" {
			keys = append(keys, "faculty:"+id)
		}
	}
	for _, id := range hallIDs {
		if id != "" {
			keys = append(keys, "hall:"+id)
		}
	}
	return keys
}
