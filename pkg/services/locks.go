package services

import "sync"

// keyedMutex serializes steps per workflow id inside one process. Entries are
// dropped once nobody holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex

	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()

	lock, ok := k.locks[key]
	if !ok {
		lock = &keyedLock{}
		k.locks[key] = lock
	}

	lock.refs++
	k.mu.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		k.mu.Lock()
		defer k.mu.Unlock()

		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, key)
		}
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.locks)
}
