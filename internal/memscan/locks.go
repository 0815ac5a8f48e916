package memscan

import "sync"

type targetLock struct {
	mu   sync.Mutex
	refs int
}

// targetLocks serializes operations per pid. Entries are dropped once no
// operation holds or waits on them.
type targetLocks struct {
	mu sync.Mutex
	m  map[int]*targetLock
}

func newTargetLocks() *targetLocks {
	return &targetLocks{m: make(map[int]*targetLock)}
}

// lock blocks until pid is free and returns the matching unlock.
func (l *targetLocks) lock(pid int) func() {
	l.mu.Lock()
	tl, ok := l.m[pid]
	if !ok {
		tl = &targetLock{}
		l.m[pid] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()

	return func() {
		tl.mu.Unlock()

		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.m, pid)
		}
		l.mu.Unlock()
	}
}

func (l *targetLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
