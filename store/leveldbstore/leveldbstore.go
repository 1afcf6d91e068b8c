// Package leveldbstore adapts github.com/syndtr/goleveldb into a
// cachingpolicy.CacheStore. LevelDB has no native TTL, so each value is
// prefixed with a fixed-width expiry marker checked on Get, the same
// approach store/diskstore uses.
package leveldbstore

import (
	"context"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/gatewaycore/cachingpolicy"
)

// Store is a CacheStore backed by a LevelDB database.
type Store struct {
	db *leveldb.DB
}

// New opens (or creates) a LevelDB database at path.
func New(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbstore: open failed: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open *leveldb.DB.
func NewWithDB(db *leveldb.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	blob, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("leveldbstore: get failed for key %q: %w", key, err)
	}

	expiresAt, entryBlob, err := splitExpiry(blob)
	if err != nil {
		return nil, fmt.Errorf("leveldbstore: corrupt entry for key %q: %w", key, err)
	}
	if !expiresAt.IsZero() && time.Now().After(expiresAt) {
		_ = s.db.Delete([]byte(key), nil)
		return nil, nil
	}

	head, body, err := cachingpolicy.DecodeEntry(entryBlob)
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
		if err := s.db.Put([]byte(key), blob, nil); err != nil {
			return fmt.Errorf("leveldbstore: put failed for key %q: %w", key, err)
		}
		return nil
	}), nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
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
