package lock

import "sync"

// Keyed provides mutual exclusion per string key. It serializes message
// writes per (user, session) pair so that causal-chain construction stays
// linear under concurrent callers in the same process.
//
// Locks are never evicted; the expected key cardinality (active sessions) is
// small relative to message volume.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyed creates a new keyed lock set
func NewKeyed() *Keyed {
	return &Keyed{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for key, creating it on first use
func (k *Keyed) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
}

// Unlock releases the mutex for key. Unlocking a key that was never locked
// is a programming error and panics, matching sync.Mutex semantics.
func (k *Keyed) Unlock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		panic("lock: unlock of unknown key " + key)
	}

	m.Unlock()
}
