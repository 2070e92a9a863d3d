package service

import "sync"

// rootLocks serializes work per destination root while letting different
// roots proceed concurrently.
type rootLocks struct {
	mu    sync.Mutex
	locks map[string]*rootLock
}

type rootLock struct {
	sync.Mutex
	refs int
}

func newRootLocks() *rootLocks {
	return &rootLocks{locks: make(map[string]*rootLock)}
}

// lock blocks until root is free and returns the matching unlock.
func (l *rootLocks) lock(root string) func() {
	l.mu.Lock()
	entry, ok := l.locks[root]
	if !ok {
		entry = &rootLock{}
		l.locks[root] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, root)
		}
		l.mu.Unlock()
	}
}
