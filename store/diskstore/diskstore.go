// Package diskstore adapts github.com/peterbourgon/diskv's disk-backed
// key/value layer into a cachingpolicy.CacheStore. diskv has no native TTL,
// so expiry is tracked alongside the entry and checked on Get, same
// approach as store/memstore.
package diskstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/peterbourgon/diskv"

	"github.com/gatewaycore/cachingpolicy"
)

// Store is a CacheStore backed by a diskv directory tree.
type Store struct {
	d *diskv.Diskv
}

// New returns a Store that will store files under basePath.
func New(basePath string) *Store {
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 100 * 1024 * 1024,
		}),
	}
}

// NewWithDiskv wraps an already-configured *diskv.Diskv.
func NewWithDiskv(d *diskv.Diskv) *Store {
	return &Store{d: d}
}

func keyToFilename(key string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	filename := keyToFilename(key)
	blob, err := s.d.Read(filename)
	if err != nil {
		return nil, nil
	}

	expiresAt, body, err := splitExpiry(blob)
	if err != nil {
		return nil, fmt.Errorf("diskstore: corrupt entry for key %q: %w", key, err)
	}
	if !expiresAt.IsZero() && time.Now().After(expiresAt) {
		_ = s.d.Erase(filename)
		return nil, nil
	}

	head, body, err := cachingpolicy.DecodeEntry(body)
	if err != nil {
		return nil, err
	}
	return cachingpolicy.NewMemoryReadStream(head, body), nil
}

func (s *Store) Put(ctx context.Context, key string, head cachingpolicy.ResponseHead, ttl time.Duration) (cachingpolicy.WriteStream, error) {
	filename := keyToFilename(key)
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
		if err := s.d.WriteStream(filename, bytes.NewReader(blob), true); err != nil {
			return fmt.Errorf("diskstore: write failed for key %q: %w", key, err)
		}
		return nil
	}), nil
}

// joinExpiry/splitExpiry prefix the gob-encoded entry with a fixed-width
// Unix-nanosecond expiry marker (0 meaning "never"), since diskv only
// stores raw bytes and has no notion of per-entry TTL.
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
