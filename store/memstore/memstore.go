// Package memstore is the baseline in-process CacheStore: entries live in a
// map guarded by a mutex, same as the teacher's MemoryCache, generalized to
// the streaming contract and given a real TTL since the original MemoryCache
// never expired anything.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/gatewaycore/cachingpolicy"
)

type entry struct {
	head      cachingpolicy.ResponseHead
	body      []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Store is an in-memory CacheStore. Expired entries are evicted lazily, on
// the next Get that would have returned them.
type Store struct {
	mu    sync.RWMutex
	items map[string]entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{items: make(map[string]entry)}
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if e.expired(time.Now()) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return nil, nil
	}
	return cachingpolicy.NewMemoryReadStream(e.head, e.body), nil
}

func (s *Store) Put(ctx context.Context, key string, head cachingpolicy.ResponseHead, ttl time.Duration) (cachingpolicy.WriteStream, error) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	return cachingpolicy.NewMemoryWriteStream(func(body []byte) error {
		s.mu.Lock()
		s.items[key] = entry{head: head.Clone(), body: body, expiresAt: expiresAt}
		s.mu.Unlock()
		return nil
	}), nil
}

// Delete removes key unconditionally. Not part of CacheStore — exposed for
// tests and operational tooling, matching the teacher's MemoryCache.Delete.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Len reports the number of entries currently held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var _ cachingpolicy.CacheStore = (*Store)(nil)
