// Package securestore wraps a cachingpolicy.CacheStore to add SHA-256 key
// hashing (always on) and optional AES-256-GCM encryption of the stored
// entry (when a passphrase is supplied).
package securestore

import (
	"context"
	"crypto/cipher"
	"fmt"
	"time"

	"github.com/gatewaycore/cachingpolicy"
)

// Store wraps an inner CacheStore, hashing every key and, if configured,
// encrypting every entry before it reaches the inner store.
type Store struct {
	inner cachingpolicy.CacheStore
	gcm   cipher.AEAD
}

// Config holds the settings for wrapping a CacheStore.
type Config struct {
	// Store is the underlying CacheStore to wrap. Required.
	Store cachingpolicy.CacheStore
	// Passphrase enables AES-256-GCM encryption when non-empty. If empty,
	// only key hashing is performed.
	Passphrase string
}

// New wraps cfg.Store. Keys are always hashed with SHA-256; if
// cfg.Passphrase is set, entries are additionally encrypted.
func New(cfg Config) (*Store, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("securestore: Store is required")
	}

	s := &Store{inner: cfg.Store}
	if cfg.Passphrase != "" {
		gcm, err := cachingpolicy.NewCipher(cfg.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("securestore: failed to initialize encryption: %w", err)
		}
		s.gcm = gcm
	}
	return s, nil
}

// IsEncrypted reports whether entries are being encrypted.
func (s *Store) IsEncrypted() bool {
	return s.gcm != nil
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	hashedKey := cachingpolicy.HashKey(key)
	rs, err := s.inner.Get(ctx, hashedKey, hint)
	if err != nil || rs == nil {
		return nil, err
	}
	defer rs.Close()

	sealed, err := drain(ctx, rs)
	if err != nil {
		return nil, err
	}

	blob, err := cachingpolicy.Decrypt(s.gcm, sealed)
	if err != nil {
		return nil, fmt.Errorf("securestore: failed to decrypt entry for key %q: %w", key, err)
	}

	head, body, err := cachingpolicy.DecodeEntry(blob)
	if err != nil {
		return nil, err
	}
	return cachingpolicy.NewMemoryReadStream(head, body), nil
}

func (s *Store) Put(ctx context.Context, key string, head cachingpolicy.ResponseHead, ttl time.Duration) (cachingpolicy.WriteStream, error) {
	hashedKey := cachingpolicy.HashKey(key)
	return cachingpolicy.NewMemoryWriteStream(func(body []byte) error {
		blob, err := cachingpolicy.EncodeEntry(head, body)
		if err != nil {
			return err
		}
		sealed, err := cachingpolicy.Encrypt(s.gcm, blob)
		if err != nil {
			return fmt.Errorf("securestore: failed to encrypt entry for key %q: %w", key, err)
		}

		ws, err := s.inner.Put(ctx, hashedKey, cachingpolicy.ResponseHead{}, ttl)
		if err != nil {
			return err
		}
		if err := ws.Write(sealed); err != nil {
			_ = ws.Abort()
			return err
		}
		return ws.End()
	}), nil
}

func drain(ctx context.Context, rs cachingpolicy.ReadStream) ([]byte, error) {
	var out []byte
	for {
		chunk, done, err := rs.Next(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		if done {
			return out, nil
		}
	}
}

var _ cachingpolicy.CacheStore = (*Store)(nil)
