// Package freecachestore adapts github.com/coocood/freecache's zero-GC,
// fixed-size in-memory cache into a cachingpolicy.CacheStore.
package freecachestore

import (
	"context"
	"fmt"
	"time"

	"github.com/coocood/freecache"

	"github.com/gatewaycore/cachingpolicy"
)

// Store is a CacheStore backed by freecache.
type Store struct {
	cache *freecache.Cache
}

// New creates a Store with the given cache size in bytes (freecache enforces
// a 512KB minimum).
func New(size int) *Store {
	return &Store{cache: freecache.NewCache(size)}
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	blob, err := s.cache.Get([]byte(key))
	if err != nil {
		if err == freecache.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("freecachestore: get failed for key %q: %w", key, err)
	}
	head, body, err := cachingpolicy.DecodeEntry(blob)
	if err != nil {
		return nil, err
	}
	return cachingpolicy.NewMemoryReadStream(head, body), nil
}

func (s *Store) Put(ctx context.Context, key string, head cachingpolicy.ResponseHead, ttl time.Duration) (cachingpolicy.WriteStream, error) {
	return cachingpolicy.NewMemoryWriteStream(func(body []byte) error {
		blob, err := cachingpolicy.EncodeEntry(head, body)
		if err != nil {
			return err
		}
		if err := s.cache.Set([]byte(key), blob, int(ttl.Seconds())); err != nil {
			return fmt.Errorf("freecachestore: set failed for key %q: %w", key, err)
		}
		return nil
	}), nil
}

// EntryCount returns the number of entries currently stored.
func (s *Store) EntryCount() int64 { return s.cache.EntryCount() }

// HitRate returns the ratio of cache hits to total lookups.
func (s *Store) HitRate() float64 { return s.cache.HitRate() }

var _ cachingpolicy.CacheStore = (*Store)(nil)
