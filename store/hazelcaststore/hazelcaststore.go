// Package hazelcaststore adapts a Hazelcast distributed map into a
// cachingpolicy.CacheStore via github.com/hazelcast/hazelcast-go-client,
// using the map's native per-entry TTL support.
package hazelcaststore

import (
	"context"
	"fmt"
	"time"

	"github.com/hazelcast/hazelcast-go-client"

	"github.com/gatewaycore/cachingpolicy"
)

func cacheKey(key string) string {
	return "cachingpolicy:" + key
}

// Store is a CacheStore backed by a Hazelcast IMap.
type Store struct {
	client *hazelcast.Client
	m      *hazelcast.Map
}

// New connects to the cluster described by cfg and opens mapName.
func New(ctx context.Context, cfg hazelcast.Config, mapName string) (*Store, error) {
	client, err := hazelcast.StartNewClientWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("hazelcaststore: connect failed: %w", err)
	}
	m, err := client.GetMap(ctx, mapName)
	if err != nil {
		_ = client.Shutdown(ctx)
		return nil, fmt.Errorf("hazelcaststore: get map failed: %w", err)
	}
	return &Store{client: client, m: m}, nil
}

// NewWithMap wraps an already-open *hazelcast.Map.
func NewWithMap(m *hazelcast.Map) *Store {
	return &Store{m: m}
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	val, err := s.m.Get(ctx, cacheKey(key))
	if err != nil {
		return nil, fmt.Errorf("hazelcaststore: get failed for key %q: %w", key, err)
	}
	if val == nil {
		return nil, nil
	}
	blob, ok := val.([]byte)
	if !ok {
		return nil, fmt.Errorf("hazelcaststore: unexpected value type for key %q", key)
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
		var putErr error
		if ttl > 0 {
			putErr = s.m.SetWithTTL(ctx, cacheKey(key), blob, ttl)
		} else {
			putErr = s.m.Set(ctx, cacheKey(key), blob)
		}
		if putErr != nil {
			return fmt.Errorf("hazelcaststore: put failed for key %q: %w", key, putErr)
		}
		return nil
	}), nil
}

// Close disconnects the client, if this Store owns it.
func (s *Store) Close(ctx context.Context) error {
	if s.client != nil {
		return s.client.Shutdown(ctx)
	}
	return nil
}

var _ cachingpolicy.CacheStore = (*Store)(nil)
