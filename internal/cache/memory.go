package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count     int64
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store implementation. It is concurrency-safe
// and suitable for single-instance deployments and tests.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[string]*memoryEntry
	clock func() time.Time
}

// NewMemoryStore constructs an in-memory store and starts a janitor goroutine
// that prunes expired entries once a minute.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		data:  make(map[string]*memoryEntry),
		clock: time.Now,
	}
	go s.janitor()
	return s
}

// newMemoryStoreWithClock is used by tests to control time.
func newMemoryStoreWithClock(clock func() time.Time) *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]*memoryEntry),
		clock: clock,
	}
}

func (s *MemoryStore) janitor() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		now := s.clock()
		s.mu.Lock()
		for key, entry := range s.data {
			if now.After(entry.expiresAt) {
				delete(s.data, key)
			}
		}
		s.mu.Unlock()
	}
}

func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &memoryEntry{expiresAt: now.Add(window)}
		s.data[key] = entry
	}
	entry.count++

	return entry.count, entry.expiresAt.Sub(now), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &memoryEntry{value: value, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok || s.clock().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
