// Package natsstore adapts a NATS JetStream Key/Value bucket into a
// cachingpolicy.CacheStore via github.com/nats-io/nats.go. JetStream KV
// buckets carry one TTL for the whole bucket, so per-Put ttl is enforced the
// same way store/diskstore and store/leveldbstore do it: an expiry marker
// travels alongside the entry and is checked on Get.
package natsstore

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/gatewaycore/cachingpolicy"
)

func bucketKey(key string) string {
	return "cachingpolicy_" + sanitizeKey(key)
}

// sanitizeKey replaces the characters ':', '*', '>', '.' and ' ' with an
// underscore; collisions are acceptable since the original fields
// are already folded into the key by keybuilder.go.
func sanitizeKey(key string) string {
	out := []byte(key)
	for i, c := range out {
		switch c {
		case ':', '*', '>', '.', ' ':
			out[i] = '_'
		}
	}
	return string(out)
}

// Config holds the settings used to open or create the K/V bucket.
type Config struct {
	URL         string // defaults to nats.DefaultURL
	Bucket      string // required
	Description string
}

// Store is a CacheStore backed by a NATS JetStream K/V bucket.
type Store struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

// New connects to NATS and creates (or opens) the configured bucket.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("natsstore: bucket name is required")
	}
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("natsstore: connect failed: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natsstore: jetstream init failed: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: cfg.Description,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natsstore: bucket setup failed: %w", err)
	}

	return &Store{kv: kv, nc: nc}, nil
}

// NewWithKeyValue wraps an already-open jetstream.KeyValue bucket; Close is
// then a no-op since this Store does not own the connection.
func NewWithKeyValue(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	entry, err := s.kv.Get(ctx, bucketKey(key))
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("natsstore: get failed for key %q: %w", key, err)
	}

	expiresAt, body, err := splitExpiry(entry.Value())
	if err != nil {
		return nil, fmt.Errorf("natsstore: corrupt entry for key %q: %w", key, err)
	}
	if !expiresAt.IsZero() && time.Now().After(expiresAt) {
		_ = s.kv.Delete(ctx, bucketKey(key))
		return nil, nil
	}

	head, body, err := cachingpolicy.DecodeEntry(body)
	if err != nil {
		return nil, err
	}
	return cachingpolicy.NewMemoryReadStream(head, body), nil
}

func (s *Store) Put(ctx context.Context, key string, head cachingpolicy.ResponseHead, ttl time.Duration) (cachingpolicy.WriteStream, error) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	return cachingpolicy.NewMemoryWriteStream(func(body []byte) error {
		entryBlob, err := cachingpolicy.EncodeEntry(head, body)
		if err != nil {
			return err
		}
		blob := joinExpiry(expiresAt, entryBlob)
		if _, err := s.kv.Put(ctx, bucketKey(key), blob); err != nil {
			return fmt.Errorf("natsstore: put failed for key %q: %w", key, err)
		}
		return nil
	}), nil
}

// Close closes the underlying NATS connection, if this Store owns one.
func (s *Store) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}

func joinExpiry(expiresAt time.Time, body []byte) []byte {
	var nanos int64
	if !expiresAt.IsZero() {
		nanos = expiresAt.UnixNano()
	}
	out := make([]byte, 8+len(body))
	for i := 0; i < 8; i++ {
		out[i] = byte(nanos >> (8 * (7 - i)))
	}
	copy(out[8:], body)
	return out
}

func splitExpiry(blob []byte) (time.Time, []byte, error) {
	if len(blob) < 8 {
		return time.Time{}, nil, fmt.Errorf("entry too short")
	}
	var nanos int64
	for i := 0; i < 8; i++ {
		nanos = nanos<<8 | int64(blob[i])
	}
	if nanos == 0 {
		return time.Time{}, blob[8:], nil
	}
	return time.Unix(0, nanos), blob[8:], nil
}

var _ cachingpolicy.CacheStore = (*Store)(nil)
