package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/piccolo-io/piccolo/pkg/errdefs"
)

// MemStore is an in-process Store used by unit tests and by `piccolo
// master --dev`. It mirrors the adapter contract: ordered prefix scans,
// monotonic revisions and prefix watches.
type MemStore struct {
	mu       sync.Mutex
	data     map[string]string
	revision int64
	watchers []*memWatcher
}

type memWatcher struct {
	prefix string
	ch     chan Event
	ctx    context.Context
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]string)}
}

// Put writes value under key.
func (s *MemStore) Put(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(key, value)
	return nil
}

func (s *MemStore) putLocked(key, value string) {
	s.revision++
	s.data[key] = value
	s.notifyLocked(Event{Type: EventPut, Key: key, Value: value, Revision: s.revision})
}

// Get returns the value stored under key.
func (s *MemStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", errdefs.NotFound("key %s not found", key)
	}
	return v, nil
}

// GetPrefix returns all pairs under prefix in key order.
func (s *MemStore) GetPrefix(ctx context.Context, prefix string) ([]KV, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kvs []KV
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix) {
			kvs = append(kvs, KV{Key: k, Value: v})
		}
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].Key < kvs[j].Key })
	return kvs, nil
}

// Delete removes key.
func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	s.revision++
	delete(s.data, key)
	s.notifyLocked(Event{Type: EventDelete, Key: key, Revision: s.revision})
	return nil
}

// CompareAndSwap writes value only if the current value equals expected;
// empty expected means create-if-absent.
func (s *MemStore) CompareAndSwap(ctx context.Context, key, expected, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.data[key]
	if expected == "" {
		if exists {
			return false, nil
		}
	} else if !exists || current != expected {
		return false, nil
	}
	s.putLocked(key, value)
	return true, nil
}

// Watch streams changes under prefix. fromRev is accepted for interface
// parity; the in-memory store has no history, so watches start from now.
func (s *MemStore) Watch(ctx context.Context, prefix string, fromRev int64) (<-chan Event, error) {
	w := &memWatcher{prefix: prefix, ch: make(chan Event, 256), ctx: ctx}

	s.mu.Lock()
	s.watchers = append(s.watchers, w)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, other := range s.watchers {
			if other == w {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(w.ch)
	}()

	return w.ch, nil
}

func (s *MemStore) notifyLocked(ev Event) {
	for _, w := range s.watchers {
		if !strings.HasPrefix(ev.Key, w.prefix) {
			continue
		}
		select {
		case w.ch <- ev:
		case <-w.ctx.Done():
		default:
			// Watcher buffer full; drop rather than block a writer.
		}
	}
}

// Revision returns the current store revision.
func (s *MemStore) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error { return nil }
