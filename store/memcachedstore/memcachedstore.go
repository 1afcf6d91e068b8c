// Package memcachedstore adapts a Memcached server into a
// cachingpolicy.CacheStore using github.com/bradfitz/gomemcache.
package memcachedstore

import (
	"context"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/gatewaycore/cachingpolicy"
)

func cacheKey(key string) string {
	return "cachingpolicy:" + key
}

// Store is a CacheStore backed by Memcached.
type Store struct {
	client *memcache.Client
}

// New returns a Store talking to the given memcache server(s) with equal
// weight, matching the teacher's memcache.New semantics.
func New(server ...string) *Store {
	return NewWithClient(memcache.New(server...))
}

// NewWithClient wraps an already-configured *memcache.Client.
func NewWithClient(client *memcache.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	item, err := s.client.Get(cacheKey(key))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return nil, nil
		}
		return nil, fmt.Errorf("memcachedstore: get failed for key %q: %w", key, err)
	}
	head, body, err := cachingpolicy.DecodeEntry(item.Value)
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
		item := &memcache.Item{
			Key:        cacheKey(key),
			Value:      blob,
			Expiration: int32(ttl.Seconds()),
		}
		if err := s.client.Set(item); err != nil {
			return fmt.Errorf("memcachedstore: set failed for key %q: %w", key, err)
		}
		return nil
	}), nil
}

var _ cachingpolicy.CacheStore = (*Store)(nil)
