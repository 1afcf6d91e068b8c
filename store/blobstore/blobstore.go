// Package blobstore adapts gocloud.dev/blob (S3, GCS, Azure, in-memory,
// filesystem) into a cachingpolicy.CacheStore. Blob storage has no native
// per-object TTL, so an expiry marker travels alongside the entry and is
// checked on Get, the same approach store/diskstore and store/leveldbstore
// use.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/gatewaycore/cachingpolicy"
)

// DefaultKeyPrefix is prepended to every blob key when Config.KeyPrefix is
// left empty.
const DefaultKeyPrefix = "cachingpolicy/"

// Config holds the settings used to open a bucket.
type Config struct {
	// BucketURL is a Go CDK blob URL, e.g. "s3://my-bucket?region=us-west-2",
	// "mem://", or "file:///var/cache". Ignored if Bucket is set.
	BucketURL string
	// KeyPrefix defaults to DefaultKeyPrefix.
	KeyPrefix string
	// Timeout bounds each operation when ctx carries no deadline. Defaults
	// to 30s.
	Timeout time.Duration
	// Bucket, if set, is used instead of opening BucketURL; New will not
	// close it.
	Bucket *blob.Bucket
}

// Store is a CacheStore backed by a Go CDK blob bucket.
type Store struct {
	bucket     *blob.Bucket
	keyPrefix  string
	timeout    time.Duration
	ownsBucket bool
}

// New opens (or reuses) the bucket described by cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.BucketURL == "" && cfg.Bucket == nil {
		return nil, fmt.Errorf("blobstore: either BucketURL or Bucket must be set")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.Bucket != nil {
		return &Store{bucket: cfg.Bucket, keyPrefix: cfg.KeyPrefix, timeout: cfg.Timeout}, nil
	}

	bucket, err := blob.OpenBucket(ctx, cfg.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("blobstore: failed to open bucket: %w", err)
	}
	return &Store{bucket: bucket, keyPrefix: cfg.KeyPrefix, timeout: cfg.Timeout, ownsBucket: true}, nil
}

func (s *Store) blobKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return s.keyPrefix + hex.EncodeToString(hash[:])
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	reader, err := s.bucket.NewReader(ctx, s.blobKey(key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("blobstore: get failed for key %q: %w", key, err)
	}
	defer reader.Close()

	blob, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("blobstore: read failed for key %q: %w", key, err)
	}

	expiresAt, entryBlob, err := splitExpiry(blob)
	if err != nil {
		return nil, fmt.Errorf("blobstore: corrupt entry for key %q: %w", key, err)
	}
	if !expiresAt.IsZero() && time.Now().After(expiresAt) {
		_ = s.bucket.Delete(ctx, s.blobKey(key))
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

		putCtx, cancel := s.withTimeout(ctx)
		defer cancel()

		writer, err := s.bucket.NewWriter(putCtx, s.blobKey(key), nil)
		if err != nil {
			return fmt.Errorf("blobstore: failed to create writer for key %q: %w", key, err)
		}
		_, writeErr := writer.Write(blob)
		closeErr := writer.Close()
		if writeErr != nil {
			return fmt.Errorf("blobstore: write failed for key %q: %w", key, writeErr)
		}
		if closeErr != nil {
			return fmt.Errorf("blobstore: close failed for key %q: %w", key, closeErr)
		}
		return nil
	}), nil
}

// Close releases the bucket, if this Store opened it.
func (s *Store) Close() error {
	if s.ownsBucket {
		return s.bucket.Close()
	}
	return nil
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
