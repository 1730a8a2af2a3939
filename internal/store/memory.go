package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no fresh response is cached for a key.
	ErrNotFound = errors.New("no cached response for key")
)

type memoryEntry struct {
	body     []byte
	storedAt time.Time
}

// MemoryStore is a concurrency-safe in-memory response cache.
type MemoryStore struct {
	mu sync.RWMutex

	// key: request key, value: cached body
	data  map[string]memoryEntry
	order []string // insertion order, oldest first

	// retention configuration
	maxEntries int           // max number of cached responses
	maxAge     time.Duration // entries older than this are stale

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxEntries or maxAge is <= 0, it is treated as unlimited.
func NewMemoryStore(maxEntries int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]memoryEntry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

func (s *MemoryStore) fresh(e memoryEntry) bool {
	if s.maxAge <= 0 {
		return true
	}
	return s.now().Sub(e.storedAt) < s.maxAge
}

// Get returns the cached body for key if it has not expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || !s.fresh(e) {
		return nil, ErrNotFound
	}
	return e.body, nil
}

// Set stores body under key and enforces retention by count.
func (s *MemoryStore) Set(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; ok {
		s.removeFromOrder(key)
	}
	s.data[key] = memoryEntry{body: body, storedAt: s.now()}
	s.order = append(s.order, key)

	// Enforce retention by count.
	if s.maxEntries > 0 && len(s.order) > s.maxEntries {
		over := len(s.order) - s.maxEntries
		for _, k := range s.order[:over] {
			delete(s.data, k)
		}
		s.order = s.order[over:]
	}
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (s *MemoryStore) Purge(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	removed := 0
	for _, k := range s.order {
		if s.fresh(s.data[k]) {
			kept = append(kept, k)
			continue
		}
		delete(s.data, k)
		removed++
	}
	s.order = kept
	return removed, nil
}

// Len returns the number of entries currently held, fresh or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) removeFromOrder(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
