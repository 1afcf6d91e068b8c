package cachingpolicy

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestTeeWriteStreamForwardsAndCaches(t *testing.T) {
	store := newMockStore()
	downstream := newMockDownstream()
	head := ResponseHead{StatusCode: http.StatusOK, Header: http.Header{"Content-Type": []string{"text/plain"}}}

	tee := NewTeeWriteStream(context.Background(), downstream, store, "key1", head, time.Minute)
	if err := tee.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tee.Write([]byte("world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tee.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	if len(downstream.chunks) != 2 {
		t.Fatalf("expected 2 chunks delivered downstream, got %d", len(downstream.chunks))
	}
	if !downstream.ended {
		t.Fatal("expected downstream to be ended")
	}
	if !store.has("key1") {
		t.Fatal("expected entry committed to store")
	}
}

func TestTeeWriteStreamNilStoreStillForwardsDownstream(t *testing.T) {
	downstream := newMockDownstream()
	head := ResponseHead{StatusCode: http.StatusOK, Header: http.Header{}}

	tee := NewTeeWriteStream(context.Background(), downstream, nil, "key1", head, time.Minute)
	if err := tee.Write([]byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := tee.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	if len(downstream.chunks) != 1 {
		t.Fatal("expected downstream to still receive the chunk with no store registered")
	}
}

func TestTeeWriteStreamPutFailureDoesNotBlockDownstream(t *testing.T) {
	store := newMockStore()
	store.putErr = errDownstreamWrite
	downstream := newMockDownstream()
	head := ResponseHead{StatusCode: http.StatusOK, Header: http.Header{}}

	tee := NewTeeWriteStream(context.Background(), downstream, store, "key1", head, time.Minute)
	if err := tee.Write([]byte("data")); err != nil {
		t.Fatalf("expected downstream write to succeed despite cache Put failure: %v", err)
	}
	if err := tee.End(); err != nil {
		t.Fatalf("End should swallow cache-side failure: %v", err)
	}
	if store.has("key1") {
		t.Fatal("entry should not have been committed")
	}
}

func TestTeeWriteStreamDownstreamFailurePropagatesAndAbortsCache(t *testing.T) {
	store := newMockStore()
	downstream := newMockDownstream()
	downstream.failOn = 0
	head := ResponseHead{StatusCode: http.StatusOK, Header: http.Header{}}

	tee := NewTeeWriteStream(context.Background(), downstream, store, "key1", head, time.Minute)
	err := tee.Write([]byte("data"))
	if err == nil {
		t.Fatal("expected downstream failure to propagate")
	}

	if err := tee.End(); err != nil {
		// End still ends downstream which records ended=true; downstream
		// mock does not fail End, only Write.
	}
	if store.has("key1") {
		t.Fatal("entry should have been aborted after downstream failure")
	}
}
