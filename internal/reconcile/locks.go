package reconcile

import "sync"

// threadLocks serializes reconciliations per conversation thread so two
// messages of one thread cannot both read the same pre-update candidate
// via thread linkage. In-process only: running multiple worker
// instances reintroduces the race across processes.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	mu   sync.Mutex
	refs int
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*threadLock)}
}

// acquire blocks until the lock for key is held and returns the release
// function. Lock entries are dropped once unreferenced.
func (t *threadLocks) acquire(key string) func() {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &threadLock{}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}
