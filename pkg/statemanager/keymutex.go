package statemanager

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// maxKeyMutexes bounds the keyed-mutex table. Keys are (kind, name) pairs;
// 1024 comfortably covers a small-fleet cluster's live resource set.
const maxKeyMutexes = 1024

// keyMutex hands out one mutex per resource key from a bounded LRU so the
// table cannot grow without bound across the lifetime of the process.
type keyMutex struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *sync.Mutex]
}

func newKeyMutex() *keyMutex {
	cache, _ := lru.New[string, *sync.Mutex](maxKeyMutexes)
	return &keyMutex{cache: cache}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.cache.Get(key)
	if !ok {
		m = &sync.Mutex{}
		k.cache.Add(key, m)
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
