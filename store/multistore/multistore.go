// Package multistore composes several CacheStore tiers into one, ordered
// fastest/smallest (first) to slowest/largest (last). Get searches tiers in
// order and promotes a hit back up to every faster tier; Put writes to every
// tier. Warm lets an operator push an already-known entry into every tier
// without going through a request lifecycle, e.g. to preload a hot key
// before traffic arrives.
package multistore

import (
	"context"
	"fmt"
	"time"

	"github.com/gatewaycore/cachingpolicy"
)

// Store is a CacheStore composed of ordered tiers.
type Store struct {
	tiers []cachingpolicy.CacheStore
}

// New composes tiers, fastest first. At least two tiers must be given —
// a single tier needs no composition.
func New(tiers ...cachingpolicy.CacheStore) (*Store, error) {
	if len(tiers) < 2 {
		return nil, fmt.Errorf("multistore: at least two tiers are required")
	}
	for _, tier := range tiers {
		if tier == nil {
			return nil, fmt.Errorf("multistore: tiers must be non-nil")
		}
	}
	return &Store{tiers: tiers}, nil
}

// Get searches tiers in order. A hit at tier i is promoted (written) to
// every tier before it so the next lookup is served by a faster tier.
func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	for i, tier := range s.tiers {
		rs, err := tier.Get(ctx, key, hint)
		if err != nil {
			return nil, fmt.Errorf("multistore: tier %d lookup failed: %w", i, err)
		}
		if rs == nil {
			continue
		}
		if i == 0 {
			return rs, nil
		}

		head := rs.Head()
		body, err := drain(ctx, rs)
		rs.Close()
		if err != nil {
			return nil, err
		}

		s.promote(ctx, key, head, body, i)
		return cachingpolicy.NewMemoryReadStream(head, body), nil
	}
	return nil, nil
}

// promote best-effort writes an already-fetched entry to every tier faster
// than foundAt. Promotion failures are not fatal to the Get that triggered
// them — the value was already found.
func (s *Store) promote(ctx context.Context, key string, head cachingpolicy.ResponseHead, body []byte, foundAt int) {
	for i := 0; i < foundAt; i++ {
		ws, err := s.tiers[i].Put(ctx, key, head, 0)
		if err != nil {
			continue
		}
		if err := ws.Write(body); err != nil {
			_ = ws.Abort()
			continue
		}
		_ = ws.End()
	}
}

// Put writes to every tier. A WriteStream returned here fans its Write/End
// out to every tier's own WriteStream; if any tier fails to open a
// WriteStream the whole Put fails before any bytes are written.
func (s *Store) Put(ctx context.Context, key string, head cachingpolicy.ResponseHead, ttl time.Duration) (cachingpolicy.WriteStream, error) {
	writers := make([]cachingpolicy.WriteStream, 0, len(s.tiers))
	for i, tier := range s.tiers {
		ws, err := tier.Put(ctx, key, head, ttl)
		if err != nil {
			for _, w := range writers {
				_ = w.Abort()
			}
			return nil, fmt.Errorf("multistore: tier %d put failed: %w", i, err)
		}
		writers = append(writers, ws)
	}
	return &fanOutWriteStream{writers: writers}, nil
}

// Warm pushes a fully-known entry into every tier directly, bypassing the
// request lifecycle. Useful for preloading hot keys ahead of traffic.
func (s *Store) Warm(ctx context.Context, key string, head cachingpolicy.ResponseHead, body []byte, ttl time.Duration) error {
	ws, err := s.Put(ctx, key, head, ttl)
	if err != nil {
		return err
	}
	if err := ws.Write(body); err != nil {
		_ = ws.Abort()
		return err
	}
	return ws.End()
}

type fanOutWriteStream struct {
	writers []cachingpolicy.WriteStream
}

func (f *fanOutWriteStream) Write(chunk []byte) error {
	for i, w := range f.writers {
		if err := w.Write(chunk); err != nil {
			return fmt.Errorf("multistore: tier %d write failed: %w", i, err)
		}
	}
	return nil
}

func (f *fanOutWriteStream) End() error {
	var firstErr error
	for i, w := range f.writers {
		if err := w.End(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("multistore: tier %d commit failed: %w", i, err)
		}
	}
	return firstErr
}

func (f *fanOutWriteStream) Abort() error {
	for _, w := range f.writers {
		_ = w.Abort()
	}
	return nil
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
