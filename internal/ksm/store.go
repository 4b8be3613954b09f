package ksm

import (
	"container/list"
	"sync"
	"time"
)

// Store caches parsed file results keyed by resolved path, revalidated by
// modification time: a changed file is re-parsed on next access, matching
// how the production loader only re-read files whose mtime had moved.
// Capacity is a simple entry count with LRU eviction.
type Store struct {
	mu         sync.Mutex
	maxEntries int
	items      map[string]*storeEntry
	evictList  *list.List
}

type storeEntry struct {
	path    string
	modTime time.Time
	value   any
	element *list.Element
}

// DefaultStoreEntries is the parsed-file cache capacity used when none is
// configured.
const DefaultStoreEntries = 256

// NewStore creates a parsed-file cache holding at most maxEntries results.
func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultStoreEntries
	}
	return &Store{
		maxEntries: maxEntries,
		items:      make(map[string]*storeEntry),
		evictList:  list.New(),
	}
}

// Get returns the cached value for path if its recorded mtime matches
// modTime. A stale entry is dropped and reported as a miss.
func (s *Store) Get(path string, modTime time.Time) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[path]
	if !ok {
		return nil, false
	}
	if !e.modTime.Equal(modTime) {
		s.remove(e)
		return nil, false
	}
	s.evictList.MoveToFront(e.element)
	return e.value, true
}

// Put stores the parsed value for path at the given mtime.
func (s *Store) Put(path string, modTime time.Time, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.items[path]; ok {
		s.remove(old)
	}
	e := &storeEntry{path: path, modTime: modTime, value: value}
	e.element = s.evictList.PushFront(e)
	s.items[path] = e

	for len(s.items) > s.maxEntries {
		s.remove(s.evictList.Back().Value.(*storeEntry))
	}
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) remove(e *storeEntry) {
	s.evictList.Remove(e.element)
	delete(s.items, e.path)
}
