package record

import (
	"context"
	"fmt"
	"sync"
)

// LRUStore is an in-memory LRU cache of records. Saves are forwarded to
// an optional backing Store, and misses are loaded from it. In a warm
// function container the cache survives between invocations.
type LRUStore struct {
	mu   sync.Mutex
	cap  int
	back Store // may be nil

	// Doubly-linked list for LRU ordering (most recent at head).
	head, tail *lruEntry
	items      map[string]*lruEntry
}

type lruEntry struct {
	key  string
	rec  *Record
	prev *lruEntry
	next *lruEntry
}

// NewLRUStore creates an LRU cache with the given capacity that delegates
// to back, which may be nil. Capacity must be >= 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		items: make(map[string]*lruEntry, cap),
	}
}

// Save writes the record to the cache and delegates to the backing store.
func (s *LRUStore) Save(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	s.put(rec.ID, rec)
	s.mu.Unlock()

	if s.back == nil {
		return nil
	}
	return s.back.Save(ctx, rec)
}

// Load checks the cache first. On miss, loads from the backing store and
// promotes the record into the cache.
func (s *LRUStore) Load(ctx context.Context, id string) (*Record, error) {
	s.mu.Lock()
	if e, ok := s.items[id]; ok {
		s.moveToFront(e)
		r := e.rec
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	if s.back == nil {
		return nil, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	rec, err := s.back.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.put(id, rec)
	s.mu.Unlock()

	return rec, nil
}

// Recent returns up to n cached records, most recently used first.
// A non-positive n returns every cached record.
func (s *LRUStore) Recent(n int) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > len(s.items) {
		n = len(s.items)
	}
	out := make([]*Record, 0, n)
	for e := s.head; e != nil && len(out) < n; e = e.next {
		out = append(out, e.rec)
	}
	return out
}

// Len returns the number of cached records.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// put inserts or refreshes an entry. Callers hold s.mu.
func (s *LRUStore) put(key string, rec *Record) {
	if e, ok := s.items[key]; ok {
		e.rec = rec
		s.moveToFront(e)
		return
	}
	e := &lruEntry{key: key, rec: rec}
	s.items[key] = e
	s.pushFront(e)
	if len(s.items) > s.cap {
		s.evict()
	}
}

func (s *LRUStore) pushFront(e *lruEntry) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *LRUStore) moveToFront(e *lruEntry) {
	if s.head == e {
		return
	}
	s.remove(e)
	s.pushFront(e)
}

func (s *LRUStore) remove(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (s *LRUStore) evict() {
	if s.tail == nil {
		return
	}
	e := s.tail
	s.remove(e)
	delete(s.items, e.key)
}
