package cachingpolicy

import (
	"context"
	"time"
)

// DownstreamWriter is the side of a response a TeeWriteStream must keep
// flowing no matter what the cache sink does (§4.4).
type DownstreamWriter interface {
	Write(chunk []byte) error
	End() error
}

// TeeWriteStream forwards each response chunk both downstream and into a
// CacheStore write-stream, committing (or dropping) the cache side
// independently of downstream delivery (§4.4). The head is captured once at
// construction and is the same object passed to the store as the entry's
// head.
type TeeWriteStream struct {
	downstream DownstreamWriter
	cacheWrite WriteStream
	cacheKey   string

	cacheFailed bool
}

// NewTeeWriteStream opens the cache side via store.Put and returns a tee
// that will forward every chunk to both downstream and the cache. If Put
// itself fails, the tee still forwards to downstream and logs the cache
// side as unavailable (ComponentMissing-style degradation) rather than
// failing the response.
func NewTeeWriteStream(ctx context.Context, downstream DownstreamWriter, store CacheStore, key string, head ResponseHead, ttl time.Duration) *TeeWriteStream {
	t := &TeeWriteStream{downstream: downstream, cacheKey: key}

	if store == nil {
		t.cacheFailed = true
		GetLogger().Warn("no cache store registered, response will not be cached", "key", key)
		return t
	}

	ws, err := store.Put(ctx, key, head, ttl)
	if err != nil {
		t.cacheFailed = true
		GetLogger().Warn("failed to open cache write stream", "key", key, "error", err)
		return t
	}
	t.cacheWrite = ws
	return t
}

// Write initiates the cache write for chunk first and then delivers it
// downstream (§5 ordering); a cache-side failure never blocks or fails
// downstream delivery (§4.4).
func (t *TeeWriteStream) Write(chunk []byte) error {
	if !t.cacheFailed && t.cacheWrite != nil {
		if err := t.cacheWrite.Write(chunk); err != nil {
			t.abortCache(err)
		}
	}

	if err := t.downstream.Write(chunk); err != nil {
		t.abortCache(err)
		return err
	}
	return nil
}

// End finalizes both sinks: cache commit is attempted first (best-effort,
// errors are swallowed per §7 StoreWriteError), then downstream is ended.
func (t *TeeWriteStream) End() error {
	if !t.cacheFailed && t.cacheWrite != nil {
		if err := t.cacheWrite.End(); err != nil {
			GetLogger().Warn("failed to commit cache entry", "key", t.cacheKey, "error", err)
		}
	}
	return t.downstream.End()
}

func (t *TeeWriteStream) abortCache(cause error) {
	if t.cacheFailed || t.cacheWrite == nil {
		return
	}
	t.cacheFailed = true
	GetLogger().Warn("dropping cache entry after write failure", "key", t.cacheKey, "error", cause)
	if err := t.cacheWrite.Abort(); err != nil {
		GetLogger().Debug("error aborting cache write stream", "key", t.cacheKey, "error", err)
	}
}
