// Package compressstore wraps a cachingpolicy.CacheStore to compress every
// entry before it reaches the inner store, trading CPU for storage and
// network bandwidth. Brotli (best ratio) and Snappy (fastest) are both
// supported; a one-byte marker on the stored blob records which algorithm
// produced it so a later Get decompresses correctly even after Algorithm
// has been changed on the Store.
package compressstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"

	"github.com/gatewaycore/cachingpolicy"
)

// Algorithm selects the compression scheme a Store applies on Put.
type Algorithm int

const (
	// Brotli gives the best compression ratio at the cost of speed.
	Brotli Algorithm = iota
	// Snappy is fastest, with a lower compression ratio.
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Stats holds running compression statistics for a Store.
type Stats struct {
	CompressedBytes   int64
	UncompressedBytes int64
	EntryCount        int64
}

// Config holds the settings for wrapping a CacheStore with compression.
type Config struct {
	// Store is the underlying CacheStore to wrap. Required.
	Store cachingpolicy.CacheStore
	// Algorithm selects the compressor used on Put. Defaults to Brotli.
	Algorithm Algorithm
	// BrotliLevel is the brotli compression level (0-11). Defaults to 6.
	// Ignored unless Algorithm is Brotli.
	BrotliLevel int
}

// Store is a CacheStore that compresses entries before delegating to an
// inner CacheStore.
type Store struct {
	inner       cachingpolicy.CacheStore
	algorithm   Algorithm
	brotliLevel int

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	entryCount        atomic.Int64
}

// New wraps cfg.Store with the configured compression algorithm.
func New(cfg Config) (*Store, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("compressstore: Store is required")
	}
	if cfg.BrotliLevel == 0 {
		cfg.BrotliLevel = 6
	}
	if cfg.BrotliLevel < 0 || cfg.BrotliLevel > 11 {
		return nil, fmt.Errorf("compressstore: invalid brotli level %d", cfg.BrotliLevel)
	}
	return &Store{inner: cfg.Store, algorithm: cfg.Algorithm, brotliLevel: cfg.BrotliLevel}, nil
}

// Stats returns a snapshot of compression statistics.
func (s *Store) Stats() Stats {
	return Stats{
		CompressedBytes:   s.compressedBytes.Load(),
		UncompressedBytes: s.uncompressedBytes.Load(),
		EntryCount:        s.entryCount.Load(),
	}
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	rs, err := s.inner.Get(ctx, key, hint)
	if err != nil || rs == nil {
		return nil, err
	}
	defer rs.Close()

	stored, err := drain(ctx, rs)
	if err != nil {
		return nil, err
	}
	if len(stored) < 1 {
		return nil, fmt.Errorf("compressstore: corrupt entry for key %q", key)
	}

	blob, err := decompressWithAlgorithm(Algorithm(stored[0]), stored[1:])
	if err != nil {
		return nil, fmt.Errorf("compressstore: decompression failed for key %q: %w", key, err)
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

		compressed, err := s.compress(blob)
		if err != nil {
			return fmt.Errorf("compressstore: compression failed for key %q: %w", key, err)
		}
		stored := make([]byte, 1+len(compressed))
		stored[0] = byte(s.algorithm)
		copy(stored[1:], compressed)

		s.compressedBytes.Add(int64(len(compressed)))
		s.uncompressedBytes.Add(int64(len(blob)))
		s.entryCount.Add(1)

		ws, err := s.inner.Put(ctx, key, cachingpolicy.ResponseHead{}, ttl)
		if err != nil {
			return err
		}
		if err := ws.Write(stored); err != nil {
			_ = ws.Abort()
			return err
		}
		return ws.End()
	}), nil
}

func (s *Store) compress(data []byte) ([]byte, error) {
	switch s.algorithm {
	case Snappy:
		return snappy.Encode(nil, data), nil
	default:
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, s.brotliLevel)
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

func decompressWithAlgorithm(algorithm Algorithm, data []byte) ([]byte, error) {
	switch algorithm {
	case Snappy:
		return snappy.Decode(nil, data)
	case Brotli:
		r := brotli.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm marker %d", algorithm)
	}
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
