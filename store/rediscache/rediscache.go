// Package rediscache adapts a Redis server into a cachingpolicy.CacheStore
// using github.com/redis/go-redis/v9, storing each entry as a single
// gob-encoded blob under a prefixed key.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gatewaycore/cachingpolicy"
)

const keyPrefix = "cachingpolicy:"

func redisKey(key string) string {
	return keyPrefix + key
}

// Config holds the connection settings for a Store.
type Config struct {
	// Addr is the Redis server address (e.g. "localhost:6379"). Required.
	Addr string
	// Password is the Redis password. Optional.
	Password string
	// DB is the Redis logical database number. Optional, defaults to 0.
	DB int
}

// Store is a CacheStore backed by Redis.
type Store struct {
	client *redis.Client
}

// New connects to the Redis server described by cfg.
func New(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("rediscache: address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{client: client}, nil
}

// NewWithClient wraps an already-configured *redis.Client.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	blob, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("rediscache: get failed for key %q: %w", key, err)
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
		if err := s.client.Set(ctx, redisKey(key), blob, ttl).Err(); err != nil {
			return fmt.Errorf("rediscache: set failed for key %q: %w", key, err)
		}
		return nil
	}), nil
}

// Close releases the underlying client's connections.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ cachingpolicy.CacheStore = (*Store)(nil)
