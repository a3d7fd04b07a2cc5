// Package memory is an in-process Cache Gateway for single-node deployments
// and tests. Entries carry their own TTL and the least recently used entry is
// evicted once maxEntries is reached.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type Store struct {
	mu         sync.Mutex
	maxEntries int
	now        func() time.Time

	list  *list.List
	items map[string]*list.Element
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &Store{
		maxEntries: maxEntries,
		now:        time.Now,
		list:       list.New(),
		items:      make(map[string]*list.Element),
	}
}

// WithClock replaces the time source; used to step past TTLs in tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}

	e := elem.Value.(*entry)
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.remove(elem)
		return nil, false, nil
	}

	s.list.MoveToFront(elem)
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores value; ttl <= 0 means the entry never expires.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	if elem, ok := s.items[key]; ok {
		e := elem.Value.(*entry)
		e.value = stored
		e.expiresAt = expiresAt
		s.list.MoveToFront(elem)
		return nil
	}

	for s.list.Len() >= s.maxEntries {
		s.remove(s.list.Back())
	}

	s.items[key] = s.list.PushFront(&entry{key: key, value: stored, expiresAt: expiresAt})
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Len()
}

func (s *Store) remove(elem *list.Element) {
	s.list.Remove(elem)
	delete(s.items, elem.Value.(*entry).key)
}
