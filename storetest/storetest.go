// Package storetest provides a conformance suite shared by every
// cachingpolicy.CacheStore backend implementation (store/*).
package storetest

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gatewaycore/cachingpolicy"
)

// Conformance exercises newStore() against the CacheStore contract: a miss
// before any write, a round-tripped head+body after a Put/End, and absence
// of the entry once its TTL would have elapsed is left to the backend's own
// TTL-specific tests since not every backend can be driven with a fake
// clock. Each call gets a fresh store from newStore so backend tests can
// run the suite more than once (e.g. once plain, once with an encryption
// or compression wrapper).
func Conformance(t *testing.T, newStore func() cachingpolicy.CacheStore) {
	t.Helper()

	t.Run("miss before write", func(t *testing.T) {
		store := newStore()
		ctx := context.Background()
		rs, err := store.Get(ctx, "absent-key", "")
		if err != nil {
			t.Fatalf("Get on absent key: %v", err)
		}
		if rs != nil {
			t.Fatal("expected miss (nil, nil) for a key never written")
		}
	})

	t.Run("round trip", func(t *testing.T) {
		store := newStore()
		ctx := context.Background()
		key := "round-trip-key"
		head := cachingpolicy.ResponseHead{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}
		body := []byte(`{"ok":true}`)

		ws, err := store.Put(ctx, key, head, time.Minute)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := ws.Write(body); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := ws.End(); err != nil {
			t.Fatalf("End: %v", err)
		}

		rs, err := store.Get(ctx, key, "")
		if err != nil {
			t.Fatalf("Get after Put: %v", err)
		}
		if rs == nil {
			t.Fatal("expected a hit after Put/End, got a miss")
		}
		defer rs.Close()

		gotHead := rs.Head()
		if gotHead.StatusCode != head.StatusCode {
			t.Errorf("status code = %d, want %d", gotHead.StatusCode, head.StatusCode)
		}
		if gotHead.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", gotHead.Header.Get("Content-Type"))
		}

		var got bytes.Buffer
		for {
			chunk, done, err := rs.Next(ctx)
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			got.Write(chunk)
			if done {
				break
			}
		}
		if !bytes.Equal(got.Bytes(), body) {
			t.Fatalf("body = %q, want %q", got.Bytes(), body)
		}
	})

	t.Run("abort drops entry", func(t *testing.T) {
		store := newStore()
		ctx := context.Background()
		key := "aborted-key"
		head := cachingpolicy.ResponseHead{StatusCode: http.StatusOK, Header: http.Header{}}

		ws, err := store.Put(ctx, key, head, time.Minute)
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := ws.Write([]byte("partial")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := ws.Abort(); err != nil {
			t.Fatalf("Abort: %v", err)
		}

		rs, err := store.Get(ctx, key, "")
		if err != nil {
			t.Fatalf("Get after Abort: %v", err)
		}
		if rs != nil {
			t.Error("expected aborted entry to not be retrievable")
		}
	})
}
